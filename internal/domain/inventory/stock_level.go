package inventory

import (
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockKey addresses one unit of inventory quantity. The nil UUID is the
// explicit "no variant" / "no batch" value, never a wildcard.
type StockKey struct {
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	VariantID   uuid.UUID `json:"variant_id"`
	BatchID     uuid.UUID `json:"batch_id"`
}

// NewStockKey builds a key from optional variant and batch references
func NewStockKey(productID, warehouseID uuid.UUID, variantID, batchID *uuid.UUID) StockKey {
	k := StockKey{ProductID: productID, WarehouseID: warehouseID}
	if variantID != nil {
		k.VariantID = *variantID
	}
	if batchID != nil {
		k.BatchID = *batchID
	}
	return k
}

// HasVariant reports whether the key targets a specific variant
func (k StockKey) HasVariant() bool {
	return k.VariantID != uuid.Nil
}

// HasBatch reports whether the key targets a specific batch
func (k StockKey) HasBatch() bool {
	return k.BatchID != uuid.Nil
}

// WithBatch returns a copy of the key pointing at a batch
func (k StockKey) WithBatch(batchID uuid.UUID) StockKey {
	k.BatchID = batchID
	return k
}

// WithWarehouse returns a copy of the key pointing at another warehouse
func (k StockKey) WithWarehouse(warehouseID uuid.UUID) StockKey {
	k.WarehouseID = warehouseID
	return k
}

// Validate checks the mandatory parts of the key
func (k StockKey) Validate() error {
	if k.ProductID == uuid.Nil {
		return shared.NewValidationError("Stock key requires a product")
	}
	if k.WarehouseID == uuid.Nil {
		return shared.NewValidationError("Stock key requires a warehouse")
	}
	return nil
}

// String returns a compact representation for logs and lock keys
func (k StockKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.ProductID, k.WarehouseID, k.VariantID, k.BatchID)
}

// StockLevel is the ledger row for one stock key
type StockLevel struct {
	shared.BaseAggregateRoot
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_level_key,priority:1"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_level_key,priority:2;index"`
	VariantID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_level_key,priority:3"`
	BatchID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_level_key,priority:4"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockLevel) TableName() string {
	return "stock_levels"
}

// NewStockLevel creates an empty row for the key
func NewStockLevel(key StockKey) *StockLevel {
	return &StockLevel{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         key.ProductID,
		WarehouseID:       key.WarehouseID,
		VariantID:         key.VariantID,
		BatchID:           key.BatchID,
		Quantity:          decimal.Zero,
	}
}

// Key returns the stock key of the row
func (s *StockLevel) Key() StockKey {
	return StockKey{
		ProductID:   s.ProductID,
		WarehouseID: s.WarehouseID,
		VariantID:   s.VariantID,
		BatchID:     s.BatchID,
	}
}

// Apply adds a signed delta. A result below zero is rejected unless
// allowNegative is set. The version is bumped for compare-and-swap saves.
func (s *StockLevel) Apply(delta decimal.Decimal, allowNegative bool) error {
	next := s.Quantity.Add(delta)
	if next.IsNegative() && delta.IsNegative() && !allowNegative {
		return NewInsufficientStockError(Shortage{
			ProductID:   s.ProductID,
			WarehouseID: s.WarehouseID,
			VariantID:   s.VariantID,
			BatchID:     s.BatchID,
			Requested:   delta.Neg(),
			Available:   s.Quantity,
		})
	}
	s.Quantity = next
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}
