package promotion

import (
	"context"

	"github.com/google/uuid"
)

// DiscountRepository persists discounts and plans
type DiscountRepository interface {
	SaveDiscount(ctx context.Context, discount *Discount) error
	SavePlan(ctx context.Context, plan *DiscountPlan) error
	FindActivePlans(ctx context.Context) ([]DiscountPlan, error)
	FindDiscountsByIDs(ctx context.Context, ids []uuid.UUID) ([]Discount, error)
}

// CouponRepository persists coupons and their redemptions
type CouponRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	// FindByCode returns shared.ErrNotFound for unknown codes
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Create(ctx context.Context, coupon *Coupon) error
	// SaveWithVersion persists the coupon if nobody else changed it meanwhile
	SaveWithVersion(ctx context.Context, coupon *Coupon) error
	// CreateRedemption inserts the redemption, reporting false when the
	// document already redeemed the coupon
	CreateRedemption(ctx context.Context, redemption *CouponRedemption) (bool, error)
	// DeleteRedemption removes a redemption, reporting whether one existed
	DeleteRedemption(ctx context.Context, couponID, documentID uuid.UUID) (bool, error)
}
