package promotion

import (
	"time"

	"github.com/erp/backoffice/internal/domain/promotion"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateDiscountRequest creates a discount
type CreateDiscountRequest struct {
	Name       string                  `json:"name" binding:"required,max=200"`
	Scope      promotion.DiscountScope `json:"scope" binding:"required,oneof=all selected"`
	ProductIDs []uuid.UUID             `json:"product_ids"`
	ValidFrom  time.Time               `json:"valid_from" binding:"required"`
	ValidTill  time.Time               `json:"valid_till" binding:"required"`
	Type       promotion.AmountType    `json:"type" binding:"required,oneof=percentage fixed"`
	Value      decimal.Decimal         `json:"value"`
	MinimumQty decimal.Decimal         `json:"minimum_qty"`
	MaximumQty *decimal.Decimal        `json:"maximum_qty"`
	Days       []time.Weekday          `json:"days"`
}

// CreatePlanRequest creates a discount plan
type CreatePlanRequest struct {
	Name        string             `json:"name" binding:"required,max=200"`
	Type        promotion.PlanType `json:"type" binding:"required,oneof=generic limited"`
	DiscountIDs []uuid.UUID        `json:"discount_ids" binding:"required,min=1"`
	CustomerIDs []uuid.UUID        `json:"customer_ids"`
}

// CreateCouponRequest creates a coupon
type CreateCouponRequest struct {
	Code          string               `json:"code" binding:"required,max=50"`
	Type          promotion.AmountType `json:"type" binding:"required,oneof=percentage fixed"`
	Amount        decimal.Decimal      `json:"amount"`
	MinimumAmount decimal.Decimal      `json:"minimum_amount"`
	Quantity      int                  `json:"quantity" binding:"required,min=1"`
	ExpiredDate   time.Time            `json:"expired_date" binding:"required"`
}

// IssueGiftCardRequest loads a new gift card
type IssueGiftCardRequest struct {
	CardNo      string          `json:"card_no" binding:"required,max=50"`
	Amount      decimal.Decimal `json:"amount"`
	CustomerID  *uuid.UUID      `json:"customer_id"`
	ExpiredDate *time.Time      `json:"expired_date"`
}

// ResolveLine is a cart line in a preview request
type ResolveLine struct {
	// Ref keys the line in the result; generated when empty
	Ref       uuid.UUID       `json:"ref"`
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ResolveRequest previews the discounts of a cart
type ResolveRequest struct {
	CustomerID *uuid.UUID    `json:"customer_id"`
	Lines      []ResolveLine `json:"lines" binding:"required,min=1,dive"`
	CouponCode string        `json:"coupon_code"`
}
