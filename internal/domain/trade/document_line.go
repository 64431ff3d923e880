package trade

import (
	"time"

	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/pricing"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentLine is one product line of a document. Qty is in the line
// unit; BaseQty is the same quantity in the product's stocking unit.
type DocumentLine struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	DocumentID uuid.UUID  `gorm:"type:uuid;not null;index"`
	LineNo     int        `gorm:"not null"`
	ProductID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	VariantID  *uuid.UUID `gorm:"type:uuid"`
	BatchID    *uuid.UUID `gorm:"type:uuid"`
	UnitID     uuid.UUID  `gorm:"type:uuid;not null"`
	// Direction is only meaningful for adjustment and production lines
	Direction     LineDirection     `gorm:"type:varchar(10)"`
	Qty           decimal.Decimal   `gorm:"type:decimal(20,6);not null"`
	BaseQty       decimal.Decimal   `gorm:"type:decimal(20,6);not null;default:0"`
	Received      decimal.Decimal   `gorm:"type:decimal(20,6);not null;default:0"`
	PostedBaseQty decimal.Decimal   `gorm:"type:decimal(20,6);not null;default:0"`
	IsDelivered   bool              `gorm:"not null;default:false"`
	IsPacking     bool              `gorm:"not null;default:false"`
	UnitPrice     decimal.Decimal   `gorm:"type:decimal(20,4);not null"`
	Discount      decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0"`
	PromoDiscount decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0"`
	TaxRate       decimal.Decimal   `gorm:"type:decimal(10,4);not null;default:0"`
	TaxMethod     pricing.TaxMethod `gorm:"type:varchar(20);not null;default:'exclusive'"`
	Subtotal      decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0"`
	TaxAmount     decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0"`
	LineTotal     decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0"`
	CreatedAt     time.Time         `gorm:"not null"`
	UpdatedAt     time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentLine) TableName() string {
	return "document_lines"
}

// LineInput is what a caller provides to add a line
type LineInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	BatchID   *uuid.UUID
	UnitID    uuid.UUID
	Direction LineDirection
	Qty       decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxMethod pricing.TaxMethod
}

// Validate checks the shape of the input
func (in LineInput) Validate() error {
	if in.ProductID == uuid.Nil {
		return shared.NewValidationError("Product is required")
	}
	if in.UnitID == uuid.Nil {
		return shared.NewValidationError("Unit is required")
	}
	if !in.Qty.IsPositive() {
		return shared.NewValidationError("Quantity must be positive")
	}
	if in.UnitPrice.IsNegative() {
		return shared.NewValidationError("Unit price cannot be negative")
	}
	if in.Discount.IsNegative() {
		return shared.NewValidationError("Discount cannot be negative")
	}
	if in.TaxRate.IsNegative() {
		return shared.NewValidationError("Tax rate cannot be negative")
	}
	if in.TaxMethod != "" && !in.TaxMethod.IsValid() {
		return shared.NewValidationError("Unknown tax method %q", in.TaxMethod)
	}
	if in.Direction != "" && !in.Direction.IsValid() {
		return shared.NewValidationError("Unknown line direction %q", in.Direction)
	}
	return nil
}

func newDocumentLine(documentID uuid.UUID, lineNo int, in LineInput) *DocumentLine {
	now := time.Now()
	method := in.TaxMethod
	if method == "" {
		method = pricing.TaxMethodExclusive
	}
	return &DocumentLine{
		ID:            uuid.New(),
		DocumentID:    documentID,
		LineNo:        lineNo,
		ProductID:     in.ProductID,
		VariantID:     in.VariantID,
		BatchID:       in.BatchID,
		UnitID:        in.UnitID,
		Direction:     in.Direction,
		Qty:           in.Qty,
		BaseQty:       decimal.Zero,
		Received:      decimal.Zero,
		PostedBaseQty: decimal.Zero,
		UnitPrice:     in.UnitPrice,
		Discount:      in.Discount,
		PromoDiscount: decimal.Zero,
		TaxRate:       in.TaxRate,
		TaxMethod:     method,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Gross returns price times quantity
func (l *DocumentLine) Gross() decimal.Decimal {
	return l.UnitPrice.Mul(l.Qty)
}

// TotalDiscount returns the manual plus promotional discount, never above gross
func (l *DocumentLine) TotalDiscount() decimal.Decimal {
	return decimal.Min(l.Discount.Add(l.PromoDiscount), l.Gross())
}

// UnpostedBaseQty is the base quantity not yet posted to the ledger
func (l *DocumentLine) UnpostedBaseQty() decimal.Decimal {
	return l.BaseQty.Sub(l.PostedBaseQty)
}

// IsFullyPosted reports whether every base unit of the line is posted
func (l *DocumentLine) IsFullyPosted() bool {
	return !l.UnpostedBaseQty().IsPositive()
}

// StockKey returns the ledger key of the line in a warehouse
func (l *DocumentLine) StockKey(warehouseID uuid.UUID) inventory.StockKey {
	return inventory.NewStockKey(l.ProductID, warehouseID, l.VariantID, l.BatchID)
}

func (l *DocumentLine) applyAmounts(a pricing.LineAmounts) {
	l.Subtotal = a.Subtotal
	l.TaxAmount = a.TaxAmount
	l.LineTotal = a.LineTotal
	l.UpdatedAt = time.Now()
}
