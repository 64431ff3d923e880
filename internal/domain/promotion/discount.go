// Package promotion models discounts, discount plans and coupons, and
// resolves which of them apply to a cart.
package promotion

import (
	"slices"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountScope tells which products a discount covers
type DiscountScope string

const (
	ScopeAll      DiscountScope = "all"
	ScopeSelected DiscountScope = "selected"
)

// AmountType is how a discount or coupon value is interpreted
type AmountType string

const (
	AmountPercentage AmountType = "percentage"
	AmountFixed      AmountType = "fixed"
)

// IsValid checks if the amount type is valid
func (t AmountType) IsValid() bool {
	return t == AmountPercentage || t == AmountFixed
}

var hundred = decimal.NewFromInt(100)

// Discount is a rule reducing the price of qualifying lines. A fixed
// discount is an amount off each unit of the line.
type Discount struct {
	shared.BaseEntity
	Name       string              `gorm:"type:varchar(200);not null"`
	Scope      DiscountScope       `gorm:"type:varchar(20);not null"`
	ProductIDs []uuid.UUID         `gorm:"type:text;serializer:json"`
	ValidFrom  time.Time           `gorm:"not null"`
	ValidTill  time.Time           `gorm:"not null"`
	Type       AmountType          `gorm:"type:varchar(20);not null"`
	Value      decimal.Decimal     `gorm:"type:decimal(20,4);not null"`
	MinimumQty decimal.Decimal     `gorm:"type:decimal(20,6);not null;default:0"`
	MaximumQty decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	Days       []time.Weekday      `gorm:"type:text;serializer:json"`
	IsActive   bool                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Discount) TableName() string {
	return "discounts"
}

// NewDiscount creates an active discount valid between from and till (inclusive dates)
func NewDiscount(name string, scope DiscountScope, amountType AmountType, value decimal.Decimal, from, till time.Time) (*Discount, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("Discount name is required")
	}
	if scope != ScopeAll && scope != ScopeSelected {
		return nil, shared.NewValidationError("Invalid discount scope %q", scope)
	}
	if !amountType.IsValid() {
		return nil, shared.NewValidationError("Invalid discount type %q", amountType)
	}
	if !value.IsPositive() {
		return nil, shared.NewValidationError("Discount value must be positive")
	}
	if amountType == AmountPercentage && value.GreaterThan(hundred) {
		return nil, shared.NewValidationError("Percentage discount cannot exceed 100")
	}
	if till.Before(from) {
		return nil, shared.NewValidationError("Discount validity ends before it starts")
	}
	return &Discount{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Scope:      scope,
		ValidFrom:  from,
		ValidTill:  till,
		Type:       amountType,
		Value:      value,
		MinimumQty: decimal.Zero,
		IsActive:   true,
	}, nil
}

// RestrictProducts limits a selected-scope discount to the given products
func (d *Discount) RestrictProducts(ids ...uuid.UUID) {
	d.Scope = ScopeSelected
	d.ProductIDs = ids
}

// RestrictDays limits the discount to the given weekdays
func (d *Discount) RestrictDays(days ...time.Weekday) {
	d.Days = days
}

// SetQuantityRange bounds the line quantity the discount applies to
func (d *Discount) SetQuantityRange(minQty decimal.Decimal, maxQty *decimal.Decimal) {
	d.MinimumQty = minQty
	if maxQty == nil {
		d.MaximumQty = decimal.NullDecimal{}
		return
	}
	d.MaximumQty = decimal.NewNullDecimal(*maxQty)
}

// ActiveOn reports whether the discount is usable on the given day
func (d *Discount) ActiveOn(today time.Time) bool {
	if !d.IsActive {
		return false
	}
	day := truncateDay(today)
	if day.Before(truncateDay(d.ValidFrom)) || day.After(truncateDay(d.ValidTill)) {
		return false
	}
	if len(d.Days) > 0 && !slices.Contains(d.Days, today.Weekday()) {
		return false
	}
	return true
}

// AppliesTo reports whether the discount covers a line of the product and quantity
func (d *Discount) AppliesTo(productID uuid.UUID, qty decimal.Decimal) bool {
	if d.Scope == ScopeSelected && !slices.Contains(d.ProductIDs, productID) {
		return false
	}
	if qty.LessThan(d.MinimumQty) {
		return false
	}
	if d.MaximumQty.Valid && qty.GreaterThan(d.MaximumQty.Decimal) {
		return false
	}
	return true
}

// AmountFor returns the discount amount for the line, never above its gross
func (d *Discount) AmountFor(line CartLine) decimal.Decimal {
	gross := line.Gross()
	var amount decimal.Decimal
	if d.Type == AmountPercentage {
		amount = gross.Mul(d.Value).Div(hundred)
	} else {
		amount = d.Value.Mul(line.Qty)
	}
	return decimal.Min(amount, gross)
}

// PlanType tells which customers a plan targets
type PlanType string

const (
	PlanGeneric PlanType = "generic"
	PlanLimited PlanType = "limited"
)

// DiscountPlan groups discounts and scopes them to customers
type DiscountPlan struct {
	shared.BaseEntity
	Name        string      `gorm:"type:varchar(200);not null"`
	Type        PlanType    `gorm:"type:varchar(20);not null"`
	CustomerIDs []uuid.UUID `gorm:"type:text;serializer:json"`
	DiscountIDs []uuid.UUID `gorm:"type:text;serializer:json"`
	IsActive    bool        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DiscountPlan) TableName() string {
	return "discount_plans"
}

// NewDiscountPlan creates an active plan over the given discounts
func NewDiscountPlan(name string, planType PlanType, discountIDs []uuid.UUID, customerIDs []uuid.UUID) (*DiscountPlan, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("Discount plan name is required")
	}
	if planType != PlanGeneric && planType != PlanLimited {
		return nil, shared.NewValidationError("Invalid discount plan type %q", planType)
	}
	if planType == PlanLimited && len(customerIDs) == 0 {
		return nil, shared.NewValidationError("A limited discount plan needs at least one customer")
	}
	return &DiscountPlan{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        name,
		Type:        planType,
		CustomerIDs: customerIDs,
		DiscountIDs: discountIDs,
		IsActive:    true,
	}, nil
}

// AppliesToCustomer reports whether the plan covers the customer (nil for walk-in)
func (p *DiscountPlan) AppliesToCustomer(customerID *uuid.UUID) bool {
	if !p.IsActive {
		return false
	}
	if p.Type == PlanGeneric {
		return true
	}
	return customerID != nil && slices.Contains(p.CustomerIDs, *customerID)
}

// truncateDay keeps the calendar date of t as seen in its own location and
// pins it to UTC midnight, so dates loaded from the database compare with a
// local clock day for day.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
