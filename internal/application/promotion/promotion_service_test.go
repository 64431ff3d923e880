package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/promotion"
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type promoFixture struct {
	store  *testutil.Store
	svc    *PromotionService
	apple  *catalog.Product
	bread  *catalog.Product
	window [2]time.Time
}

func newPromoFixture(t *testing.T, policy setting.StackingPolicy) *promoFixture {
	t.Helper()
	store := testutil.NewStore(t)
	svc, err := NewPromotionService(store.UoW, policy, 2, nil)
	require.NoError(t, err)
	pcs := store.BaseUnit(t, "pcs")
	now := time.Now()
	return &promoFixture{
		store:  store,
		svc:    svc,
		apple:  store.Product(t, "APPLE", pcs.ID, "10"),
		bread:  store.Product(t, "BREAD", pcs.ID, "20"),
		window: [2]time.Time{now.AddDate(0, 0, -1), now.AddDate(0, 0, 1)},
	}
}

func (f *promoFixture) discount(t *testing.T, req CreateDiscountRequest) *promotion.Discount {
	t.Helper()
	if req.ValidFrom.IsZero() {
		req.ValidFrom, req.ValidTill = f.window[0], f.window[1]
	}
	d, err := f.svc.CreateDiscount(context.Background(), req)
	require.NoError(t, err)
	return d
}

// seedPlan creates the apple 10% discount and the bulk discount under one
// generic plan.
func (f *promoFixture) seedPlan(t *testing.T) {
	t.Helper()
	apples := f.discount(t, CreateDiscountRequest{
		Name:       "Apple week",
		Scope:      promotion.ScopeSelected,
		ProductIDs: []uuid.UUID{f.apple.ID},
		Type:       promotion.AmountPercentage,
		Value:      testutil.Dec("10"),
	})
	bulk := f.discount(t, CreateDiscountRequest{
		Name:       "Bulk",
		Scope:      promotion.ScopeAll,
		Type:       promotion.AmountFixed,
		Value:      testutil.Dec("1"),
		MinimumQty: testutil.Dec("2"),
	})
	_, err := f.svc.CreatePlan(context.Background(), CreatePlanRequest{
		Name:        "Everyone",
		Type:        promotion.PlanGeneric,
		DiscountIDs: []uuid.UUID{apples.ID, bulk.ID},
	})
	require.NoError(t, err)
}

func (f *promoFixture) coupon(t *testing.T, code string, amountType promotion.AmountType, amount, minimum string, expires time.Time) {
	t.Helper()
	_, err := f.svc.CreateCoupon(context.Background(), CreateCouponRequest{
		Code:          code,
		Type:          amountType,
		Amount:        testutil.Dec(amount),
		MinimumAmount: testutil.Dec(minimum),
		Quantity:      5,
		ExpiredDate:   expires,
	})
	require.NoError(t, err)
}

// cart is 3 apples at 10 and one bread at 20, gross 50
func (f *promoFixture) cart(coupon string, customerID *uuid.UUID) ResolveRequest {
	return ResolveRequest{
		CustomerID: customerID,
		CouponCode: coupon,
		Lines: []ResolveLine{
			{ProductID: f.apple.ID, Qty: testutil.Dec("3"), UnitPrice: testutil.Dec("10")},
			{ProductID: f.bread.ID, Qty: testutil.Dec("1"), UnitPrice: testutil.Dec("20")},
		},
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(testutil.Dec(want)), "%s: got %s, want %s", msg, got, want)
}

func TestPromotionService_AdditiveStacking(t *testing.T) {
	f := newPromoFixture(t, setting.StackingPolicy{Mode: setting.StackingAdditive})
	f.seedPlan(t)
	f.coupon(t, "save10", promotion.AmountPercentage, "10", "40", f.window[1])
	ctx := context.Background()

	res, err := f.svc.Resolve(ctx, f.cart("", nil))
	require.NoError(t, err)
	assert.Len(t, res.Applied, 2, "both discounts hit the apple line, bread is below the bulk minimum")
	assert.Len(t, res.LineDiscounts, 1)
	assertDec(t, "6", res.TotalDiscount, "plans only")
	assert.Nil(t, res.CouponID)

	res, err = f.svc.Resolve(ctx, f.cart(" Save10 ", nil))
	require.NoError(t, err)
	require.NotNil(t, res.CouponID)
	assertDec(t, "4.4", res.CouponDiscount, "coupon on the discounted subtotal")
	assertDec(t, "10.4", res.TotalDiscount, "plans and coupon")
}

func TestPromotionService_BestOfStacking(t *testing.T) {
	f := newPromoFixture(t, setting.StackingPolicy{Mode: setting.StackingBestOf})
	f.seedPlan(t)
	ctx := context.Background()

	res, err := f.svc.Resolve(ctx, f.cart("", nil))
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, "Apple week", res.Applied[0].Name, "ties keep the first discount")
	assertDec(t, "3", res.TotalDiscount, "one discount per line")

	t.Run("larger coupon replaces plan discounts", func(t *testing.T) {
		f.coupon(t, "BIG", promotion.AmountPercentage, "10", "0", f.window[1])
		res, err := f.svc.Resolve(ctx, f.cart("BIG", nil))
		require.NoError(t, err)
		require.NotNil(t, res.CouponID)
		assert.Empty(t, res.LineDiscounts)
		assertDec(t, "4.7", res.TotalDiscount, "coupon only")
	})

	t.Run("smaller coupon is not spent", func(t *testing.T) {
		f.coupon(t, "TINY", promotion.AmountFixed, "1", "0", f.window[1])
		res, err := f.svc.Resolve(ctx, f.cart("TINY", nil))
		require.NoError(t, err)
		assert.Nil(t, res.CouponID)
		assertDec(t, "3", res.TotalDiscount, "plans only")
	})
}

func TestPromotionService_Cap(t *testing.T) {
	f := newPromoFixture(t, setting.StackingPolicy{Mode: setting.StackingAdditive, CapPercent: testutil.Dec("10")})
	f.seedPlan(t)
	f.coupon(t, "SAVE10", promotion.AmountPercentage, "10", "0", f.window[1])

	res, err := f.svc.Resolve(context.Background(), f.cart("SAVE10", nil))
	require.NoError(t, err)
	assertDec(t, "5", res.TotalDiscount, "capped at 10% of 50")
	assertDec(t, "0", res.CouponDiscount, "the coupon is trimmed first")
	assert.Len(t, res.LineDiscounts, 1)
}

func TestPromotionService_LimitedPlan(t *testing.T) {
	f := newPromoFixture(t, setting.StackingPolicy{})
	ctx := context.Background()
	member := uuid.New()

	vip := f.discount(t, CreateDiscountRequest{
		Name:  "Members",
		Scope: promotion.ScopeAll,
		Type:  promotion.AmountFixed,
		Value: testutil.Dec("2"),
	})
	_, err := f.svc.CreatePlan(ctx, CreatePlanRequest{Name: "VIP", Type: promotion.PlanLimited, DiscountIDs: []uuid.UUID{vip.ID}})
	assert.True(t, errors.Is(err, shared.ErrValidation), "limited plans need customers")

	_, err = f.svc.CreatePlan(ctx, CreatePlanRequest{
		Name:        "VIP",
		Type:        promotion.PlanLimited,
		DiscountIDs: []uuid.UUID{vip.ID},
		CustomerIDs: []uuid.UUID{member},
	})
	require.NoError(t, err)

	res, err := f.svc.Resolve(ctx, f.cart("", nil))
	require.NoError(t, err)
	assert.True(t, res.TotalDiscount.IsZero(), "walk-in customers get nothing")

	stranger := uuid.New()
	res, err = f.svc.Resolve(ctx, f.cart("", &stranger))
	require.NoError(t, err)
	assert.True(t, res.TotalDiscount.IsZero())

	res, err = f.svc.Resolve(ctx, f.cart("", &member))
	require.NoError(t, err)
	assertDec(t, "8", res.TotalDiscount, "2 per unit over 4 units")

	_, err = f.svc.CreatePlan(ctx, CreatePlanRequest{Name: "Ghost", Type: promotion.PlanGeneric, DiscountIDs: []uuid.UUID{uuid.New()}})
	assert.True(t, shared.IsNotFound(err))
}

func TestPromotionService_DiscountWindow(t *testing.T) {
	f := newPromoFixture(t, setting.StackingPolicy{})
	ctx := context.Background()
	tomorrow := time.Now().AddDate(0, 0, 1)

	later := f.discount(t, CreateDiscountRequest{
		Name:      "Next week",
		Scope:     promotion.ScopeAll,
		Type:      promotion.AmountPercentage,
		Value:     testutil.Dec("50"),
		ValidFrom: tomorrow,
		ValidTill: tomorrow.AddDate(0, 0, 7),
	})
	_, err := f.svc.CreatePlan(ctx, CreatePlanRequest{Name: "Soon", Type: promotion.PlanGeneric, DiscountIDs: []uuid.UUID{later.ID}})
	require.NoError(t, err)

	res, err := f.svc.Resolve(ctx, f.cart("", nil))
	require.NoError(t, err)
	assert.True(t, res.TotalDiscount.IsZero(), "not yet valid")

	_, err = f.svc.CreateDiscount(ctx, CreateDiscountRequest{
		Name:      "Backwards",
		Scope:     promotion.ScopeAll,
		Type:      promotion.AmountFixed,
		Value:     testutil.Dec("1"),
		ValidFrom: tomorrow,
		ValidTill: time.Now().AddDate(0, 0, -1),
	})
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = f.svc.CreateDiscount(ctx, CreateDiscountRequest{
		Name:      "Too much",
		Scope:     promotion.ScopeAll,
		Type:      promotion.AmountPercentage,
		Value:     testutil.Dec("120"),
		ValidFrom: f.window[0],
		ValidTill: f.window[1],
	})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestPromotionService_CouponAvailability(t *testing.T) {
	f := newPromoFixture(t, setting.StackingPolicy{})
	ctx := context.Background()
	f.coupon(t, "OLD", promotion.AmountFixed, "5", "0", time.Now().AddDate(0, 0, -2))
	f.coupon(t, "BIGSPEND", promotion.AmountFixed, "5", "100", f.window[1])

	tests := []struct {
		name string
		code string
	}{
		{"unknown", "NOPE"},
		{"expired", "OLD"},
		{"below minimum amount", "BIGSPEND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Resolve(ctx, f.cart(tt.code, nil))
			assert.True(t, errors.Is(err, shared.ErrCouponUnavailable), "got %v", err)
		})
	}

	_, err := f.svc.CreateCoupon(ctx, CreateCouponRequest{Code: "ZERO", Type: promotion.AmountFixed, Amount: testutil.Dec("5"), Quantity: 0, ExpiredDate: f.window[1]})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestPromotionService_ResolveTxSeesUncommittedCoupon(t *testing.T) {
	f := newPromoFixture(t, setting.StackingPolicy{})
	ctx := context.Background()

	err := f.store.UoW.Execute(ctx, func(repos uow.Repositories) error {
		c, err := promotion.NewCoupon("inline", promotion.AmountFixed, testutil.Dec("3"), decimal.Zero, 1, f.window[1])
		require.NoError(t, err)
		require.NoError(t, repos.Coupons().Create(ctx, c))

		lines := []promotion.CartLine{{Ref: uuid.New(), ProductID: f.bread.ID, Qty: testutil.Dec("1"), UnitPrice: testutil.Dec("20")}}
		res, err := f.svc.ResolveTx(ctx, repos, nil, lines, "INLINE", time.Now())
		require.NoError(t, err)
		assertDec(t, "3", res.CouponDiscount, "coupon inside the same unit of work")
		return nil
	})
	require.NoError(t, err)
}

func TestPromotionService_IssueGiftCard(t *testing.T) {
	f := newPromoFixture(t, setting.StackingPolicy{})
	ctx := context.Background()

	card, err := f.svc.IssueGiftCard(ctx, IssueGiftCardRequest{CardNo: "GC-1000", Amount: testutil.Dec("75")})
	require.NoError(t, err)
	assertDec(t, "75", card.Balance(), "fresh card")

	var stored *finance.GiftCard
	require.NoError(t, f.store.UoW.Execute(ctx, func(repos uow.Repositories) error {
		stored, err = repos.GiftCards().FindByCardNo(ctx, "GC-1000")
		return err
	}))
	assert.Equal(t, card.ID, stored.ID)

	_, err = f.svc.IssueGiftCard(ctx, IssueGiftCardRequest{CardNo: "GC-2000", Amount: testutil.Dec("0")})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestNewPromotionService_UnknownStackingMode(t *testing.T) {
	store := testutil.NewStore(t)
	_, err := NewPromotionService(store.UoW, setting.StackingPolicy{Mode: "lowest"}, 2, nil)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}
