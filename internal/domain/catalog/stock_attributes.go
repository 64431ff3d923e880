package catalog

import (
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is a named dimension value of a product ("Red / L") with
// additive cost and price deltas.
type ProductVariant struct {
	shared.BaseEntity
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name            string          `gorm:"type:varchar(100);not null"`
	ItemCode        string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	AdditionalCost  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	AdditionalPrice decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	IsActive        bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductVariant) TableName() string {
	return "product_variants"
}

// NewProductVariant creates a variant of a variant-tracked product
func NewProductVariant(product *Product, name, itemCode string, additionalCost, additionalPrice decimal.Decimal) (*ProductVariant, error) {
	if !product.IsVariant {
		return nil, shared.NewValidationError("Product %s does not track variants", product.Code)
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(itemCode) == "" {
		return nil, shared.NewValidationError("Variant name and item code are required")
	}
	return &ProductVariant{
		BaseEntity:      shared.NewBaseEntity(),
		ProductID:       product.ID,
		Name:            name,
		ItemCode:        strings.ToUpper(itemCode),
		AdditionalCost:  additionalCost,
		AdditionalPrice: additionalPrice,
		IsActive:        true,
	}, nil
}

// Batch is a lot of a product with an optional expiry date. Its quantity
// per warehouse lives in the stock ledger.
type Batch struct {
	shared.BaseEntity
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_batch_product_no,priority:1"`
	BatchNo     string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_batch_product_no,priority:2"`
	ExpiredDate *time.Time `gorm:"index"`
	IsActive    bool       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Batch) TableName() string {
	return "product_batches"
}

// NewBatch creates a batch of a batch-tracked product
func NewBatch(product *Product, batchNo string, expiredDate *time.Time) (*Batch, error) {
	if !product.IsBatch {
		return nil, shared.NewValidationError("Product %s does not track batches", product.Code)
	}
	if strings.TrimSpace(batchNo) == "" {
		return nil, shared.NewValidationError("Batch number is required")
	}
	return &Batch{
		BaseEntity:  shared.NewBaseEntity(),
		ProductID:   product.ID,
		BatchNo:     batchNo,
		ExpiredDate: expiredDate,
		IsActive:    true,
	}, nil
}

// IsExpired reports whether the batch expired before the given time
func (b *Batch) IsExpired(now time.Time) bool {
	return b.ExpiredDate != nil && b.ExpiredDate.Before(now)
}

// Warehouse is a physical stock location
type Warehouse struct {
	shared.BaseEntity
	Code     string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name     string `gorm:"type:varchar(200);not null"`
	IsActive bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates an active warehouse
func NewWarehouse(code, name string) (*Warehouse, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("Warehouse code and name are required")
	}
	return &Warehouse{
		BaseEntity: shared.NewBaseEntity(),
		Code:       strings.ToUpper(code),
		Name:       name,
		IsActive:   true,
	}, nil
}

// Tax is a named tax rate in percent
type Tax struct {
	shared.BaseEntity
	Name     string          `gorm:"type:varchar(100);not null"`
	Rate     decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	IsActive bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Tax) TableName() string {
	return "taxes"
}

// NewTax creates an active tax
func NewTax(name string, rate decimal.Decimal) (*Tax, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("Tax name is required")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewValidationError("Tax rate must be between 0 and 100")
	}
	return &Tax{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Rate:       rate,
		IsActive:   true,
	}, nil
}
