// Package promotion administers discounts, discount plans, coupons and
// gift cards, and resolves them against a cart inside a unit of work.
package promotion

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/promotion"
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PromotionService creates promotions and resolves them for documents
type PromotionService struct {
	uow      uow.UnitOfWork
	resolver *promotion.Resolver
	logger   *zap.Logger
}

// NewPromotionService creates a service resolving under the stacking policy
func NewPromotionService(u uow.UnitOfWork, policy setting.StackingPolicy, decimals int32, logger *zap.Logger) (*PromotionService, error) {
	resolver, err := promotion.NewResolver(policy, decimals)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotionService{uow: u, resolver: resolver, logger: logger}, nil
}

// CreateDiscount creates a discount
func (s *PromotionService) CreateDiscount(ctx context.Context, req CreateDiscountRequest) (*promotion.Discount, error) {
	d, err := promotion.NewDiscount(req.Name, req.Scope, req.Type, req.Value, req.ValidFrom, req.ValidTill)
	if err != nil {
		return nil, err
	}
	if len(req.ProductIDs) > 0 {
		d.RestrictProducts(req.ProductIDs...)
	}
	if len(req.Days) > 0 {
		d.RestrictDays(req.Days...)
	}
	d.SetQuantityRange(req.MinimumQty, req.MaximumQty)

	err = s.uow.Execute(ctx, func(repos uow.Repositories) error {
		return repos.Discounts().SaveDiscount(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("discount created", zap.String("name", d.Name), zap.Stringer("discount_id", d.ID))
	return d, nil
}

// CreatePlan groups existing discounts into a plan
func (s *PromotionService) CreatePlan(ctx context.Context, req CreatePlanRequest) (*promotion.DiscountPlan, error) {
	plan, err := promotion.NewDiscountPlan(req.Name, req.Type, req.DiscountIDs, req.CustomerIDs)
	if err != nil {
		return nil, err
	}
	err = s.uow.Execute(ctx, func(repos uow.Repositories) error {
		found, err := repos.Discounts().FindDiscountsByIDs(ctx, req.DiscountIDs)
		if err != nil {
			return err
		}
		if len(found) != len(uniqueIDs(req.DiscountIDs)) {
			return shared.NewDomainError(shared.CodeNotFound, "One or more discounts of the plan do not exist")
		}
		return repos.Discounts().SavePlan(ctx, plan)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("discount plan created", zap.String("name", plan.Name), zap.Stringer("plan_id", plan.ID))
	return plan, nil
}

// CreateCoupon creates a coupon
func (s *PromotionService) CreateCoupon(ctx context.Context, req CreateCouponRequest) (*promotion.Coupon, error) {
	c, err := promotion.NewCoupon(req.Code, req.Type, req.Amount, req.MinimumAmount, req.Quantity, req.ExpiredDate)
	if err != nil {
		return nil, err
	}
	err = s.uow.Execute(ctx, func(repos uow.Repositories) error {
		return repos.Coupons().Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("coupon created", zap.String("code", c.Code), zap.Int("quantity", c.Quantity))
	return c, nil
}

// IssueGiftCard loads a new gift card
func (s *PromotionService) IssueGiftCard(ctx context.Context, req IssueGiftCardRequest) (*finance.GiftCard, error) {
	card, err := finance.NewGiftCard(req.CardNo, req.Amount, req.CustomerID, req.ExpiredDate)
	if err != nil {
		return nil, err
	}
	err = s.uow.Execute(ctx, func(repos uow.Repositories) error {
		return repos.GiftCards().Create(ctx, card)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("gift card issued", zap.String("card_no", card.CardNo), zap.String("amount", card.Amount.String()))
	return card, nil
}

// ResolveTx resolves plan discounts and the coupon for a cart inside the
// caller's unit of work. An empty coupon code resolves plans only.
func (s *PromotionService) ResolveTx(ctx context.Context, repos uow.Repositories, customerID *uuid.UUID, lines []promotion.CartLine, couponCode string, today time.Time) (*promotion.Resolution, error) {
	plans, err := repos.Discounts().FindActivePlans(ctx)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for i := range plans {
		ids = append(ids, plans[i].DiscountIDs...)
	}
	var discounts []promotion.Discount
	if len(ids) > 0 {
		discounts, err = repos.Discounts().FindDiscountsByIDs(ctx, uniqueIDs(ids))
		if err != nil {
			return nil, err
		}
	}

	var coupon *promotion.Coupon
	if code := promotion.NormalizeCode(couponCode); code != "" {
		coupon, err = repos.Coupons().FindByCode(ctx, code)
		if err != nil {
			if shared.IsNotFound(err) {
				return nil, shared.NewDomainErrorf(shared.CodeCouponUnavailable, "Coupon %s does not exist", code)
			}
			return nil, err
		}
	}

	return s.resolver.Resolve(promotion.ResolveInput{
		CustomerID: customerID,
		Lines:      lines,
		Plans:      plans,
		Discounts:  discounts,
		Coupon:     coupon,
		Today:      today,
	})
}

// Resolve previews the discounts of a cart without changing anything
func (s *PromotionService) Resolve(ctx context.Context, req ResolveRequest) (*promotion.Resolution, error) {
	var res *promotion.Resolution
	err := s.uow.Execute(ctx, func(repos uow.Repositories) error {
		lines := make([]promotion.CartLine, len(req.Lines))
		for i, l := range req.Lines {
			ref := l.Ref
			if ref == uuid.Nil {
				ref = uuid.New()
			}
			lines[i] = promotion.CartLine{Ref: ref, ProductID: l.ProductID, Qty: l.Qty, UnitPrice: l.UnitPrice}
		}
		var err error
		res, err = s.ResolveTx(ctx, repos, req.CustomerID, lines, req.CouponCode, time.Now())
		return err
	})
	return res, err
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
