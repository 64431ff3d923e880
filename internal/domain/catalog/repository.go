package catalog

import (
	"context"

	"github.com/google/uuid"
)

// UnitRepository persists units
type UnitRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Unit, error)
	FindAll(ctx context.Context) ([]Unit, error)
	Save(ctx context.Context, unit *Unit) error
}

// ProductRepository persists products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	Save(ctx context.Context, product *Product) error
}

// VariantRepository persists product variants
type VariantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductVariant, error)
	Save(ctx context.Context, variant *ProductVariant) error
}

// BatchRepository persists product batches
type BatchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Batch, error)
	Save(ctx context.Context, batch *Batch) error
}

// WarehouseRepository persists warehouses
type WarehouseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	Save(ctx context.Context, warehouse *Warehouse) error
}

// TaxRepository persists taxes
type TaxRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tax, error)
	Save(ctx context.Context, tax *Tax) error
}
