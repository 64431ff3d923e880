package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWarehouseRepository implements catalog.WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByID finds a warehouse by its ID
func (r *GormWarehouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Warehouse, error) {
	var warehouse catalog.Warehouse
	if err := r.db.WithContext(ctx).First(&warehouse, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &warehouse, nil
}

// Save creates or updates a warehouse
func (r *GormWarehouseRepository) Save(ctx context.Context, warehouse *catalog.Warehouse) error {
	return r.db.WithContext(ctx).Save(warehouse).Error
}

// GormTaxRepository implements catalog.TaxRepository using GORM
type GormTaxRepository struct {
	db *gorm.DB
}

// NewGormTaxRepository creates a new GormTaxRepository
func NewGormTaxRepository(db *gorm.DB) *GormTaxRepository {
	return &GormTaxRepository{db: db}
}

// FindByID finds a tax by its ID
func (r *GormTaxRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Tax, error) {
	var tax catalog.Tax
	if err := r.db.WithContext(ctx).First(&tax, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &tax, nil
}

// Save creates or updates a tax
func (r *GormTaxRepository) Save(ctx context.Context, tax *catalog.Tax) error {
	return r.db.WithContext(ctx).Save(tax).Error
}

var (
	_ catalog.WarehouseRepository = (*GormWarehouseRepository)(nil)
	_ catalog.TaxRepository       = (*GormTaxRepository)(nil)
)
