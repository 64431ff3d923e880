package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/domain/promotion"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDiscountRepository implements promotion.DiscountRepository using GORM
type GormDiscountRepository struct {
	db *gorm.DB
}

// NewGormDiscountRepository creates a new GormDiscountRepository
func NewGormDiscountRepository(db *gorm.DB) *GormDiscountRepository {
	return &GormDiscountRepository{db: db}
}

// SaveDiscount creates or updates a discount
func (r *GormDiscountRepository) SaveDiscount(ctx context.Context, discount *promotion.Discount) error {
	return r.db.WithContext(ctx).Save(discount).Error
}

// SavePlan creates or updates a discount plan
func (r *GormDiscountRepository) SavePlan(ctx context.Context, plan *promotion.DiscountPlan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

// FindActivePlans returns every active plan
func (r *GormDiscountRepository) FindActivePlans(ctx context.Context) ([]promotion.DiscountPlan, error) {
	var plans []promotion.DiscountPlan
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// FindDiscountsByIDs loads discounts; unknown IDs are skipped
func (r *GormDiscountRepository) FindDiscountsByIDs(ctx context.Context, ids []uuid.UUID) ([]promotion.Discount, error) {
	if len(ids) == 0 {
		return []promotion.Discount{}, nil
	}
	var discounts []promotion.Discount
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at ASC").
		Find(&discounts).Error; err != nil {
		return nil, err
	}
	return discounts, nil
}

// GormCouponRepository implements promotion.CouponRepository using GORM
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// FindByID finds a coupon by its ID
func (r *GormCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*promotion.Coupon, error) {
	var coupon promotion.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &coupon, nil
}

// FindByCode finds a coupon by its normalized code
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*promotion.Coupon, error) {
	var coupon promotion.Coupon
	if err := r.db.WithContext(ctx).
		Where("code = ?", promotion.NormalizeCode(code)).
		First(&coupon).Error; err != nil {
		return nil, notFound(err)
	}
	return &coupon, nil
}

// Create inserts a coupon
func (r *GormCouponRepository) Create(ctx context.Context, coupon *promotion.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

// SaveWithVersion persists a coupon whose version Redeem or Release bumped
func (r *GormCouponRepository) SaveWithVersion(ctx context.Context, coupon *promotion.Coupon) error {
	result := r.db.WithContext(ctx).
		Model(&promotion.Coupon{}).
		Where("id = ? AND version = ?", coupon.ID, coupon.Version-1).
		Updates(map[string]interface{}{
			"used":       coupon.Used,
			"quantity":   coupon.Quantity,
			"is_active":  coupon.IsActive,
			"version":    coupon.Version,
			"updated_at": coupon.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorf(shared.CodeConcurrencyConflict, "Coupon %s was modified by another transaction", coupon.Code)
	}
	return nil
}

// CreateRedemption records that a document redeemed a coupon. A second
// redemption by the same document is ignored and reported as false.
func (r *GormCouponRepository) CreateRedemption(ctx context.Context, redemption *promotion.CouponRedemption) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "coupon_id"}, {Name: "document_id"}},
			DoNothing: true,
		}).
		Create(redemption)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteRedemption removes the redemption of a coupon by a document
func (r *GormCouponRepository) DeleteRedemption(ctx context.Context, couponID, documentID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("coupon_id = ? AND document_id = ?", couponID, documentID).
		Delete(&promotion.CouponRedemption{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

var (
	_ promotion.DiscountRepository = (*GormDiscountRepository)(nil)
	_ promotion.CouponRepository   = (*GormCouponRepository)(nil)
)
