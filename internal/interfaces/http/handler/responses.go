package handler

import (
	"time"

	"github.com/erp/backoffice/internal/domain/cashregister"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/pricing"
	"github.com/erp/backoffice/internal/domain/promotion"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitResponse is a unit of measure in API responses
type UnitResponse struct {
	ID             uuid.UUID            `json:"id"`
	Code           string               `json:"code"`
	Name           string               `json:"name"`
	BaseUnitID     *uuid.UUID           `json:"base_unit_id,omitempty"`
	Operator       catalog.UnitOperator `json:"operator,omitempty"`
	OperationValue decimal.Decimal      `json:"operation_value"`
}

func toUnitResponse(u *catalog.Unit) UnitResponse {
	return UnitResponse{
		ID:             u.ID,
		Code:           u.Code,
		Name:           u.Name,
		BaseUnitID:     u.BaseUnitID,
		Operator:       u.Operator,
		OperationValue: u.OperationValue,
	}
}

// ProductResponse is a product in API responses
type ProductResponse struct {
	ID               uuid.UUID           `json:"id"`
	Code             string              `json:"code"`
	Name             string              `json:"name"`
	Type             catalog.ProductType `json:"type"`
	IsBatch          bool                `json:"is_batch"`
	IsVariant        bool                `json:"is_variant"`
	TrackInventory   bool                `json:"track_inventory"`
	AllowOverselling bool                `json:"allow_overselling"`
	Cost             decimal.Decimal     `json:"cost"`
	Price            decimal.Decimal     `json:"price"`
	TaxID            *uuid.UUID          `json:"tax_id,omitempty"`
	TaxMethod        pricing.TaxMethod   `json:"tax_method"`
	UnitID           uuid.UUID           `json:"unit_id"`
	PurchaseUnitID   uuid.UUID           `json:"purchase_unit_id"`
	SaleUnitID       uuid.UUID           `json:"sale_unit_id"`
	AlertQuantity    decimal.Decimal     `json:"alert_quantity"`
	IsActive         bool                `json:"is_active"`
}

func toProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:               p.ID,
		Code:             p.Code,
		Name:             p.Name,
		Type:             p.Type,
		IsBatch:          p.IsBatch,
		IsVariant:        p.IsVariant,
		TrackInventory:   p.TrackInventory,
		AllowOverselling: p.AllowOverselling,
		Cost:             p.Cost,
		Price:            p.Price,
		TaxID:            p.TaxID,
		TaxMethod:        p.TaxMethod,
		UnitID:           p.UnitID,
		PurchaseUnitID:   p.PurchaseUnitID,
		SaleUnitID:       p.SaleUnitID,
		AlertQuantity:    p.AlertQuantity,
		IsActive:         p.IsActive,
	}
}

// VariantResponse is a product variant in API responses
type VariantResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	Name            string          `json:"name"`
	ItemCode        string          `json:"item_code"`
	AdditionalCost  decimal.Decimal `json:"additional_cost"`
	AdditionalPrice decimal.Decimal `json:"additional_price"`
}

// BatchResponse is a product batch in API responses
type BatchResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   uuid.UUID  `json:"product_id"`
	BatchNo     string     `json:"batch_no"`
	ExpiredDate *time.Time `json:"expired_date,omitempty"`
}

// NamedResponse is a warehouse or tax in API responses
type NamedResponse struct {
	ID   uuid.UUID        `json:"id"`
	Code string           `json:"code,omitempty"`
	Name string           `json:"name"`
	Rate *decimal.Decimal `json:"rate,omitempty"`
}

// MovementResponse is a stock ledger entry in API responses
type MovementResponse struct {
	ID           uuid.UUID                `json:"id"`
	ProductID    uuid.UUID                `json:"product_id"`
	WarehouseID  uuid.UUID                `json:"warehouse_id"`
	VariantID    *uuid.UUID               `json:"variant_id,omitempty"`
	BatchID      *uuid.UUID               `json:"batch_id,omitempty"`
	Delta        decimal.Decimal          `json:"delta"`
	BalanceAfter decimal.Decimal          `json:"balance_after"`
	Reason       inventory.MovementReason `json:"reason"`
	DocumentID   *uuid.UUID               `json:"document_id,omitempty"`
	LineID       *uuid.UUID               `json:"line_id,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
}

// optionalID hides the nil UUID used for "no variant" and "no batch" keys
func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func toMovementResponses(movements []inventory.StockMovement) []MovementResponse {
	out := make([]MovementResponse, len(movements))
	for i, m := range movements {
		out[i] = MovementResponse{
			ID:           m.ID,
			ProductID:    m.ProductID,
			WarehouseID:  m.WarehouseID,
			VariantID:    optionalID(m.VariantID),
			BatchID:      optionalID(m.BatchID),
			Delta:        m.Delta,
			BalanceAfter: m.BalanceAfter,
			Reason:       m.Reason,
			DocumentID:   m.DocumentID,
			LineID:       m.LineID,
			CreatedAt:    m.CreatedAt,
		}
	}
	return out
}

// OutflowResponse is a recorded cash outflow in API responses
type OutflowResponse struct {
	ID             uuid.UUID                `json:"id"`
	CashRegisterID uuid.UUID                `json:"cash_register_id"`
	Kind           cashregister.OutflowKind `json:"kind"`
	Amount         decimal.Decimal          `json:"amount"`
	Note           string                   `json:"note,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

// DiscountResponse is a discount rule in API responses
type DiscountResponse struct {
	ID         uuid.UUID               `json:"id"`
	Name       string                  `json:"name"`
	Scope      promotion.DiscountScope `json:"scope"`
	ProductIDs []uuid.UUID             `json:"product_ids,omitempty"`
	ValidFrom  time.Time               `json:"valid_from"`
	ValidTill  time.Time               `json:"valid_till"`
	Type       promotion.AmountType    `json:"type"`
	Value      decimal.Decimal         `json:"value"`
	MinimumQty decimal.Decimal         `json:"minimum_qty"`
	MaximumQty *decimal.Decimal        `json:"maximum_qty,omitempty"`
	Days       []time.Weekday          `json:"days,omitempty"`
}

func toDiscountResponse(d *promotion.Discount) DiscountResponse {
	resp := DiscountResponse{
		ID:         d.ID,
		Name:       d.Name,
		Scope:      d.Scope,
		ProductIDs: d.ProductIDs,
		ValidFrom:  d.ValidFrom,
		ValidTill:  d.ValidTill,
		Type:       d.Type,
		Value:      d.Value,
		MinimumQty: d.MinimumQty,
		Days:       d.Days,
	}
	if d.MaximumQty.Valid {
		maxQty := d.MaximumQty.Decimal
		resp.MaximumQty = &maxQty
	}
	return resp
}

// PlanResponse is a discount plan in API responses
type PlanResponse struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Type        promotion.PlanType `json:"type"`
	DiscountIDs []uuid.UUID        `json:"discount_ids"`
	CustomerIDs []uuid.UUID        `json:"customer_ids,omitempty"`
}

// CouponResponse is a coupon in API responses
type CouponResponse struct {
	ID            uuid.UUID            `json:"id"`
	Code          string               `json:"code"`
	Type          promotion.AmountType `json:"type"`
	Amount        decimal.Decimal      `json:"amount"`
	MinimumAmount decimal.Decimal      `json:"minimum_amount"`
	Quantity      int                  `json:"quantity"`
	Used          int                  `json:"used"`
	ExpiredDate   time.Time            `json:"expired_date"`
}

// GiftCardResponse is a gift card in API responses
type GiftCardResponse struct {
	ID          uuid.UUID       `json:"id"`
	CardNo      string          `json:"card_no"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty"`
	ExpiredDate *time.Time      `json:"expired_date,omitempty"`
}

func toGiftCardResponse(g *finance.GiftCard) GiftCardResponse {
	return GiftCardResponse{
		ID:          g.ID,
		CardNo:      g.CardNo,
		Amount:      g.Amount,
		Balance:     g.Balance(),
		CustomerID:  g.CustomerID,
		ExpiredDate: g.ExpiredDate,
	}
}

// ResolutionResponse is the outcome of resolving promotions for a cart
type ResolutionResponse struct {
	Applied        []promotion.AppliedDiscount `json:"applied"`
	LineDiscounts  map[string]decimal.Decimal  `json:"line_discounts"`
	CouponID       *uuid.UUID                  `json:"coupon_id,omitempty"`
	CouponDiscount decimal.Decimal             `json:"coupon_discount"`
	TotalDiscount  decimal.Decimal             `json:"total_discount"`
}

func toResolutionResponse(r *promotion.Resolution) ResolutionResponse {
	lines := make(map[string]decimal.Decimal, len(r.LineDiscounts))
	for ref, amount := range r.LineDiscounts {
		lines[ref.String()] = amount
	}
	applied := r.Applied
	if applied == nil {
		applied = []promotion.AppliedDiscount{}
	}
	return ResolutionResponse{
		Applied:        applied,
		LineDiscounts:  lines,
		CouponID:       r.CouponID,
		CouponDiscount: r.CouponDiscount,
		TotalDiscount:  r.TotalDiscount,
	}
}
