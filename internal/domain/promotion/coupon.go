package promotion

import (
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon is a code with a limited number of uses
type Coupon struct {
	shared.BaseAggregateRoot
	Code          string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Type          AmountType      `gorm:"type:varchar(20);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	MinimumAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Quantity      int             `gorm:"not null"`
	Used          int             `gorm:"not null;default:0"`
	ExpiredDate   time.Time       `gorm:"not null"`
	IsActive      bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Coupon) TableName() string {
	return "coupons"
}

// NewCoupon creates an active coupon
func NewCoupon(code string, amountType AmountType, amount, minimumAmount decimal.Decimal, quantity int, expiredDate time.Time) (*Coupon, error) {
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewValidationError("Coupon code is required")
	}
	if !amountType.IsValid() {
		return nil, shared.NewValidationError("Invalid coupon type %q", amountType)
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Coupon amount must be positive")
	}
	if amountType == AmountPercentage && amount.GreaterThan(hundred) {
		return nil, shared.NewValidationError("Percentage coupon cannot exceed 100")
	}
	if quantity <= 0 {
		return nil, shared.NewValidationError("Coupon quantity must be positive")
	}
	return &Coupon{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              NormalizeCode(code),
		Type:              amountType,
		Amount:            amount,
		MinimumAmount:     minimumAmount,
		Quantity:          quantity,
		ExpiredDate:       expiredDate,
		IsActive:          true,
	}, nil
}

// NormalizeCode canonicalises a coupon code for lookup
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Remaining returns how many uses are left
func (c *Coupon) Remaining() int {
	return c.Quantity - c.Used
}

// Validate checks the coupon is usable for an order subtotal on a day
func (c *Coupon) Validate(subtotal decimal.Decimal, today time.Time) error {
	if !c.IsActive {
		return shared.NewDomainErrorf(shared.CodeCouponUnavailable, "Coupon %s is not active", c.Code)
	}
	if truncateDay(c.ExpiredDate).Before(truncateDay(today)) {
		return shared.NewDomainErrorf(shared.CodeCouponUnavailable, "Coupon %s expired on %s", c.Code, c.ExpiredDate.Format(time.DateOnly))
	}
	if c.Used >= c.Quantity {
		return shared.NewDomainErrorf(shared.CodeCouponUnavailable, "Coupon %s is used up", c.Code)
	}
	if subtotal.LessThan(c.MinimumAmount) {
		return shared.NewDomainErrorf(shared.CodeCouponUnavailable,
			"Coupon %s requires a minimum amount of %s", c.Code, c.MinimumAmount)
	}
	return nil
}

// DiscountFor returns the coupon value against the subtotal
func (c *Coupon) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	if c.Type == AmountPercentage {
		amount = subtotal.Mul(c.Amount).Div(hundred)
	} else {
		amount = c.Amount
	}
	return decimal.Min(amount, subtotal)
}

// Redeem consumes one use
func (c *Coupon) Redeem() error {
	if c.Used >= c.Quantity {
		return shared.NewDomainErrorf(shared.CodeCouponUnavailable, "Coupon %s is used up", c.Code)
	}
	c.Used++
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// Release gives back one use after a redemption is reversed
func (c *Coupon) Release() {
	if c.Used > 0 {
		c.Used--
	}
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// CouponRedemption records that a document consumed a coupon use. The
// (coupon, document) pair is unique so retries cannot consume twice.
type CouponRedemption struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CouponID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_coupon_redemption,priority:1"`
	DocumentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_coupon_redemption,priority:2"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	CreatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CouponRedemption) TableName() string {
	return "coupon_redemptions"
}

// NewCouponRedemption creates a redemption record
func NewCouponRedemption(couponID, documentID uuid.UUID, amount decimal.Decimal) *CouponRedemption {
	return &CouponRedemption{
		ID:         uuid.New(),
		CouponID:   couponID,
		DocumentID: documentID,
		Amount:     amount,
		CreatedAt:  time.Now(),
	}
}
