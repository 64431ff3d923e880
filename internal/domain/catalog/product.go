package catalog

import (
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/pricing"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductType represents the kind of product
type ProductType string

const (
	ProductTypeStandard ProductType = "standard"
	ProductTypeCombo    ProductType = "combo"
	ProductTypeDigital  ProductType = "digital"
	ProductTypeService  ProductType = "service"
)

// IsValid checks if the product type is valid
func (t ProductType) IsValid() bool {
	switch t {
	case ProductTypeStandard, ProductTypeCombo, ProductTypeDigital, ProductTypeService:
		return true
	}
	return false
}

// MarginType represents how profit margin is expressed
type MarginType string

const (
	MarginTypePercentage MarginType = "percentage"
	MarginTypeFlat       MarginType = "flat"
)

// Product is the aggregate root for a sellable/stockable item
type Product struct {
	shared.BaseAggregateRoot
	Code             string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name             string            `gorm:"type:varchar(200);not null"`
	Type             ProductType       `gorm:"type:varchar(20);not null;default:'standard'"`
	IsBatch          bool              `gorm:"not null;default:false"`
	IsVariant        bool              `gorm:"not null;default:false"`
	IsIMEI           bool              `gorm:"column:is_imei;not null;default:false"`
	TrackInventory   bool              `gorm:"not null"`
	AllowOverselling bool              `gorm:"not null;default:false"`
	Cost             decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0"`
	Price            decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0"`
	ProfitMargin     decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0"`
	MarginType       MarginType        `gorm:"type:varchar(20);not null;default:'percentage'"`
	TaxID            *uuid.UUID        `gorm:"type:uuid"`
	TaxMethod        pricing.TaxMethod `gorm:"type:varchar(20);not null;default:'exclusive'"`
	UnitID           uuid.UUID         `gorm:"type:uuid;not null"`
	PurchaseUnitID   uuid.UUID         `gorm:"type:uuid;not null"`
	SaleUnitID       uuid.UUID         `gorm:"type:uuid;not null"`
	AlertQuantity    decimal.Decimal   `gorm:"type:decimal(20,6);not null;default:0"`
	IsActive         bool              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a standard, inventory-tracked product using one unit for
// stocking, purchasing and selling.
func NewProduct(code, name string, unitID uuid.UUID) (*Product, error) {
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewValidationError("Product code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewValidationError("Product code cannot exceed 50 characters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("Product name cannot be empty")
	}
	if unitID == uuid.Nil {
		return nil, shared.NewValidationError("Product unit is required")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Type:              ProductTypeStandard,
		TrackInventory:    true,
		Cost:              decimal.Zero,
		Price:             decimal.Zero,
		ProfitMargin:      decimal.Zero,
		MarginType:        MarginTypePercentage,
		TaxMethod:         pricing.TaxMethodExclusive,
		UnitID:            unitID,
		PurchaseUnitID:    unitID,
		SaleUnitID:        unitID,
		AlertQuantity:     decimal.Zero,
		IsActive:          true,
	}, nil
}

// SetType changes the product type. Service and digital products carry no stock.
func (p *Product) SetType(t ProductType) error {
	if !t.IsValid() {
		return shared.NewValidationError("Invalid product type %q", t)
	}
	p.Type = t
	if t == ProductTypeService || t == ProductTypeDigital {
		p.TrackInventory = false
	}
	p.touch()
	return nil
}

// SetPricing sets cost and price and derives the profit margin
func (p *Product) SetPricing(cost, price decimal.Decimal) error {
	if cost.IsNegative() || price.IsNegative() {
		return shared.NewValidationError("Cost and price cannot be negative")
	}
	p.Cost = cost
	p.Price = price
	p.ProfitMargin = p.margin()
	p.touch()
	return nil
}

func (p *Product) margin() decimal.Decimal {
	diff := p.Price.Sub(p.Cost)
	if p.MarginType == MarginTypeFlat {
		return diff
	}
	if p.Cost.IsZero() {
		return decimal.Zero
	}
	return diff.Div(p.Cost).Mul(decimal.NewFromInt(100)).Round(4)
}

// SetTax attaches a tax and the method its price is quoted in
func (p *Product) SetTax(taxID *uuid.UUID, method pricing.TaxMethod) error {
	if !method.IsValid() {
		return shared.NewValidationError("Invalid tax method %q", method)
	}
	p.TaxID = taxID
	p.TaxMethod = method
	p.touch()
	return nil
}

// SetUnits sets the transaction units. They must convert to the stocking unit,
// which the catalog service checks against the unit graph.
func (p *Product) SetUnits(purchaseUnitID, saleUnitID uuid.UUID) {
	p.PurchaseUnitID = purchaseUnitID
	p.SaleUnitID = saleUnitID
	p.touch()
}

// EnableBatches makes stock of this product tracked per batch
func (p *Product) EnableBatches() {
	p.IsBatch = true
	p.touch()
}

// EnableVariants makes stock of this product tracked per variant
func (p *Product) EnableVariants() {
	p.IsVariant = true
	p.touch()
}

// SetOverselling toggles whether stock of this product may go negative
func (p *Product) SetOverselling(allow bool) {
	p.AllowOverselling = allow
	p.touch()
}

// SetTrackInventory toggles stock tracking
func (p *Product) SetTrackInventory(track bool) {
	p.TrackInventory = track
	p.touch()
}

// SetAlertQuantity sets the low-stock threshold
func (p *Product) SetAlertQuantity(qty decimal.Decimal) {
	p.AlertQuantity = qty
	p.touch()
}

// Deactivate removes the product from new transactions
func (p *Product) Deactivate() {
	p.IsActive = false
	p.touch()
}

// CanOversell reports whether stock may go below zero
func (p *Product) CanOversell(withoutStock bool) bool {
	return withoutStock || p.AllowOverselling
}

// SalePrice returns the price for the given variant (nil for the bare product)
func (p *Product) SalePrice(variant *ProductVariant) decimal.Decimal {
	if variant == nil {
		return p.Price
	}
	return p.Price.Add(variant.AdditionalPrice)
}

// UnitCost returns the cost for the given variant (nil for the bare product)
func (p *Product) UnitCost(variant *ProductVariant) decimal.Decimal {
	if variant == nil {
		return p.Cost
	}
	return p.Cost.Add(variant.AdditionalCost)
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}
