package catalog

import (
	"time"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegisterUnitRequest creates a base unit, or a derived one when BaseUnitID is set
type RegisterUnitRequest struct {
	Code           string               `json:"code" binding:"required,min=1,max=20"`
	Name           string               `json:"name" binding:"required,min=1,max=100"`
	BaseUnitID     *uuid.UUID           `json:"base_unit_id"`
	Operator       catalog.UnitOperator `json:"operator" binding:"omitempty,oneof=* /"`
	OperationValue decimal.Decimal      `json:"operation_value"`
}

// RebaseUnitRequest points a derived unit at another base unit
type RebaseUnitRequest struct {
	UnitID         uuid.UUID            `json:"-"`
	BaseUnitID     uuid.UUID            `json:"base_unit_id" binding:"required"`
	Operator       catalog.UnitOperator `json:"operator" binding:"required,oneof=* /"`
	OperationValue decimal.Decimal      `json:"operation_value"`
}

// RegisterProductRequest creates a product
type RegisterProductRequest struct {
	Code             string              `json:"code" binding:"required,min=1,max=50"`
	Name             string              `json:"name" binding:"required,min=1,max=200"`
	Type             catalog.ProductType `json:"type" binding:"omitempty,oneof=standard combo digital service"`
	UnitID           uuid.UUID           `json:"unit_id" binding:"required"`
	PurchaseUnitID   *uuid.UUID          `json:"purchase_unit_id"`
	SaleUnitID       *uuid.UUID          `json:"sale_unit_id"`
	Cost             decimal.Decimal     `json:"cost"`
	Price            decimal.Decimal     `json:"price"`
	TaxID            *uuid.UUID          `json:"tax_id"`
	TaxMethod        pricing.TaxMethod   `json:"tax_method" binding:"omitempty,oneof=exclusive inclusive"`
	IsBatch          bool                `json:"is_batch"`
	IsVariant        bool                `json:"is_variant"`
	TrackInventory   *bool               `json:"track_inventory"`
	AllowOverselling bool                `json:"allow_overselling"`
	AlertQuantity    decimal.Decimal     `json:"alert_quantity"`
}

// RegisterVariantRequest creates a product variant
type RegisterVariantRequest struct {
	ProductID       uuid.UUID       `json:"product_id" binding:"required"`
	Name            string          `json:"name" binding:"required,max=100"`
	ItemCode        string          `json:"item_code" binding:"required,max=50"`
	AdditionalCost  decimal.Decimal `json:"additional_cost"`
	AdditionalPrice decimal.Decimal `json:"additional_price"`
}

// RegisterBatchRequest creates a product batch
type RegisterBatchRequest struct {
	ProductID   uuid.UUID  `json:"product_id" binding:"required"`
	BatchNo     string     `json:"batch_no" binding:"required,max=50"`
	ExpiredDate *time.Time `json:"expired_date"`
}

// RegisterWarehouseRequest creates a warehouse
type RegisterWarehouseRequest struct {
	Code string `json:"code" binding:"required,max=50"`
	Name string `json:"name" binding:"required,max=200"`
}

// RegisterTaxRequest creates a tax rate
type RegisterTaxRequest struct {
	Name string          `json:"name" binding:"required,max=100"`
	Rate decimal.Decimal `json:"rate"`
}

// GetProductRequest looks up a product
type GetProductRequest struct {
	ID              uuid.UUID
	IncludeInactive bool
}

// ConvertRequest converts a quantity between units
type ConvertRequest struct {
	Quantity   decimal.Decimal `json:"quantity"`
	FromUnitID uuid.UUID       `json:"from_unit_id" binding:"required"`
	ToUnitID   uuid.UUID       `json:"to_unit_id" binding:"required"`
}

// ConvertResponse is the converted quantity
type ConvertResponse struct {
	Quantity decimal.Decimal `json:"quantity"`
}
