package promotion

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC) // a Wednesday

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustDiscount(t *testing.T, name string, amountType AmountType, value string) *Discount {
	t.Helper()
	d, err := NewDiscount(name, ScopeAll, amountType, dec(value), today.AddDate(0, 0, -1), today.AddDate(0, 0, 1))
	require.NoError(t, err)
	return d
}

func mustResolver(t *testing.T, mode setting.StackingMode, capPercent string) *Resolver {
	t.Helper()
	r, err := NewResolver(setting.StackingPolicy{Mode: mode, CapPercent: dec(capPercent)}, 2)
	require.NoError(t, err)
	return r
}

func TestDiscount_ActiveOn(t *testing.T) {
	d := mustDiscount(t, "spring", AmountPercentage, "10")

	assert.True(t, d.ActiveOn(today))
	assert.False(t, d.ActiveOn(today.AddDate(0, 0, 2)))
	assert.False(t, d.ActiveOn(today.AddDate(0, 0, -2)))

	d.RestrictDays(time.Monday)
	assert.False(t, d.ActiveOn(today))
	d.RestrictDays(time.Monday, time.Wednesday)
	assert.True(t, d.ActiveOn(today))

	d.IsActive = false
	assert.False(t, d.ActiveOn(today))
}

func TestDiscount_ActiveOn_AcrossLocations(t *testing.T) {
	// validity dates come back from the database as UTC midnight
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	till := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	d, err := NewDiscount("west", ScopeAll, AmountPercentage, dec("10"), from, till)
	require.NoError(t, err)

	west := time.FixedZone("UTC-8", -8*3600)
	lastEvening := time.Date(2026, 3, 11, 20, 0, 0, 0, west)
	assert.True(t, d.ActiveOn(lastEvening), "still the last valid day on the local clock")
	assert.False(t, d.ActiveOn(time.Date(2026, 3, 12, 0, 30, 0, 0, west)))

	east := time.FixedZone("UTC+9", 9*3600)
	assert.True(t, d.ActiveOn(time.Date(2026, 3, 1, 0, 30, 0, 0, east)), "first day starts at local midnight")
	assert.False(t, d.ActiveOn(time.Date(2026, 2, 28, 23, 30, 0, 0, east)))

	c, err := NewCoupon("WEST", AmountFixed, dec("5"), decimal.Zero, 1, till)
	require.NoError(t, err)
	assert.NoError(t, c.Validate(dec("20"), lastEvening))
	assert.True(t, errors.Is(c.Validate(dec("20"), time.Date(2026, 3, 12, 0, 30, 0, 0, west)), shared.ErrCouponUnavailable))
}

func TestDiscount_AppliesTo(t *testing.T) {
	productA, productB := uuid.New(), uuid.New()
	d := mustDiscount(t, "selected", AmountFixed, "1")
	d.RestrictProducts(productA)
	maxQty := dec("5")
	d.SetQuantityRange(dec("2"), &maxQty)

	tests := []struct {
		name    string
		product uuid.UUID
		qty     string
		want    bool
	}{
		{"in list and range", productA, "3", true},
		{"below minimum", productA, "1", false},
		{"above maximum", productA, "6", false},
		{"at maximum", productA, "5", true},
		{"not in list", productB, "3", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.AppliesTo(tt.product, dec(tt.qty)))
		})
	}
}

func TestDiscount_AmountFor(t *testing.T) {
	line := CartLine{Ref: uuid.New(), ProductID: uuid.New(), Qty: dec("3"), UnitPrice: dec("10")}

	pct := mustDiscount(t, "pct", AmountPercentage, "10")
	assert.True(t, pct.AmountFor(line).Equal(dec("3")))

	fixed := mustDiscount(t, "fixed", AmountFixed, "2")
	assert.True(t, fixed.AmountFor(line).Equal(dec("6")), "fixed discounts apply per unit")

	huge := mustDiscount(t, "huge", AmountFixed, "50")
	assert.True(t, huge.AmountFor(line).Equal(dec("30")), "capped at line gross")
}

func TestDiscountPlan_AppliesToCustomer(t *testing.T) {
	customer := uuid.New()
	other := uuid.New()

	generic, err := NewDiscountPlan("all", PlanGeneric, nil, nil)
	require.NoError(t, err)
	assert.True(t, generic.AppliesToCustomer(nil))
	assert.True(t, generic.AppliesToCustomer(&other))

	limited, err := NewDiscountPlan("vip", PlanLimited, nil, []uuid.UUID{customer})
	require.NoError(t, err)
	assert.True(t, limited.AppliesToCustomer(&customer))
	assert.False(t, limited.AppliesToCustomer(&other))
	assert.False(t, limited.AppliesToCustomer(nil))

	_, err = NewDiscountPlan("empty", PlanLimited, nil, nil)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestResolver_Stacking(t *testing.T) {
	customer := uuid.New()
	line := CartLine{Ref: uuid.New(), ProductID: uuid.New(), Qty: dec("2"), UnitPrice: dec("50")}

	tenPct := mustDiscount(t, "ten", AmountPercentage, "10")
	fiveOff := mustDiscount(t, "five", AmountFixed, "5")
	planA, err := NewDiscountPlan("a", PlanGeneric, []uuid.UUID{tenPct.ID}, nil)
	require.NoError(t, err)
	planB, err := NewDiscountPlan("b", PlanLimited, []uuid.UUID{fiveOff.ID, tenPct.ID}, []uuid.UUID{customer})
	require.NoError(t, err)

	input := func() ResolveInput {
		return ResolveInput{
			CustomerID: &customer,
			Lines:      []CartLine{line},
			Plans:      []DiscountPlan{*planA, *planB},
			Discounts:  []Discount{*tenPct, *fiveOff},
			Today:      today,
		}
	}

	t.Run("additive sums distinct discounts once", func(t *testing.T) {
		res, err := mustResolver(t, setting.StackingAdditive, "0").Resolve(input())
		require.NoError(t, err)
		// 10% of 100 plus 5 per unit over 2 units
		assert.True(t, res.LineDiscount(line.Ref).Equal(dec("20")))
		assert.True(t, res.TotalDiscount.Equal(dec("20")))
		assert.Len(t, res.Applied, 2)
	})

	t.Run("best of keeps the largest", func(t *testing.T) {
		res, err := mustResolver(t, setting.StackingBestOf, "0").Resolve(input())
		require.NoError(t, err)
		assert.True(t, res.LineDiscount(line.Ref).Equal(dec("10")))
		require.Len(t, res.Applied, 1)
		assert.Equal(t, tenPct.ID, res.Applied[0].SourceID)
	})

	t.Run("cap limits the total", func(t *testing.T) {
		res, err := mustResolver(t, setting.StackingAdditive, "15").Resolve(input())
		require.NoError(t, err)
		assert.True(t, res.TotalDiscount.Equal(dec("15")))
		assert.True(t, res.LineDiscount(line.Ref).Equal(dec("15")))
	})

	t.Run("walk-in customer only gets generic plans", func(t *testing.T) {
		in := input()
		in.CustomerID = nil
		res, err := mustResolver(t, setting.StackingAdditive, "0").Resolve(in)
		require.NoError(t, err)
		assert.True(t, res.TotalDiscount.Equal(dec("10")))
	})
}

func TestResolver_Coupon(t *testing.T) {
	line := CartLine{Ref: uuid.New(), ProductID: uuid.New(), Qty: dec("1"), UnitPrice: dec("60")}

	newCoupon := func(t *testing.T) *Coupon {
		c, err := NewCoupon("save5", AmountFixed, dec("5"), dec("50"), 1, today)
		require.NoError(t, err)
		return c
	}

	t.Run("valid coupon applies", func(t *testing.T) {
		c := newCoupon(t)
		res, err := mustResolver(t, setting.StackingAdditive, "0").Resolve(ResolveInput{
			Lines: []CartLine{line}, Coupon: c, Today: today,
		})
		require.NoError(t, err)
		require.NotNil(t, res.CouponID)
		assert.Equal(t, c.ID, *res.CouponID)
		assert.True(t, res.CouponDiscount.Equal(dec("5")))
		assert.True(t, res.TotalDiscount.Equal(dec("5")))
		assert.Equal(t, "SAVE5", c.Code)
	})

	t.Run("used up coupon is rejected", func(t *testing.T) {
		c := newCoupon(t)
		require.NoError(t, c.Redeem())
		_, err := mustResolver(t, setting.StackingAdditive, "0").Resolve(ResolveInput{
			Lines: []CartLine{line}, Coupon: c, Today: today,
		})
		assert.True(t, errors.Is(err, shared.ErrCouponUnavailable))
		assert.Contains(t, err.Error(), "used up")
	})

	t.Run("minimum amount is enforced", func(t *testing.T) {
		c := newCoupon(t)
		small := CartLine{Ref: uuid.New(), ProductID: uuid.New(), Qty: dec("1"), UnitPrice: dec("40")}
		_, err := mustResolver(t, setting.StackingAdditive, "0").Resolve(ResolveInput{
			Lines: []CartLine{small}, Coupon: c, Today: today,
		})
		assert.True(t, errors.Is(err, shared.ErrCouponUnavailable))
	})

	t.Run("expired coupon is rejected", func(t *testing.T) {
		c := newCoupon(t)
		_, err := mustResolver(t, setting.StackingAdditive, "0").Resolve(ResolveInput{
			Lines: []CartLine{line}, Coupon: c, Today: today.AddDate(0, 0, 1),
		})
		assert.True(t, errors.Is(err, shared.ErrCouponUnavailable))
	})

	t.Run("best of prefers the larger of coupon and plans", func(t *testing.T) {
		c := newCoupon(t)
		d := mustDiscount(t, "ten", AmountPercentage, "10")
		plan, err := NewDiscountPlan("g", PlanGeneric, []uuid.UUID{d.ID}, nil)
		require.NoError(t, err)

		res, err := mustResolver(t, setting.StackingBestOf, "0").Resolve(ResolveInput{
			Lines: []CartLine{line}, Plans: []DiscountPlan{*plan}, Discounts: []Discount{*d},
			Coupon: c, Today: today,
		})
		require.NoError(t, err)
		assert.Nil(t, res.CouponID, "plan discount of 6 beats the 5 coupon")
		assert.True(t, res.TotalDiscount.Equal(dec("6")))
	})
}

func TestCoupon_RedeemAndRelease(t *testing.T) {
	c, err := NewCoupon("ONE", AmountPercentage, dec("10"), decimal.Zero, 1, today)
	require.NoError(t, err)

	require.NoError(t, c.Redeem())
	assert.Equal(t, 1, c.Used)
	assert.Equal(t, 2, c.GetVersion())

	err = c.Redeem()
	assert.True(t, errors.Is(err, shared.ErrCouponUnavailable))

	c.Release()
	assert.Equal(t, 0, c.Used)
	assert.Equal(t, 1, c.Remaining())
}
