package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockRepository persists stock levels. Methods ending in ForUpdate hold a
// row lock until the surrounding transaction ends.
type StockRepository interface {
	// FindByKey returns shared.ErrNotFound when the row does not exist
	FindByKey(ctx context.Context, key StockKey) (*StockLevel, error)
	// GetOrCreateForUpdate creates the row with zero quantity on first use
	GetOrCreateForUpdate(ctx context.Context, key StockKey) (*StockLevel, error)
	// FindLevelsForUpdate returns the positive rows of a product variant in
	// a warehouse, unbatched stock included
	FindLevelsForUpdate(ctx context.Context, productID, warehouseID, variantID uuid.UUID) ([]StockLevel, error)
	// SumQuantity adds up every batch of a product variant in a warehouse
	SumQuantity(ctx context.Context, productID, warehouseID, variantID uuid.UUID) (decimal.Decimal, error)
	// SaveWithVersion persists the row if nobody else changed it meanwhile
	SaveWithVersion(ctx context.Context, level *StockLevel) error
	// FindByProduct lists every row of a product
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]StockLevel, error)
}

// MovementRepository persists the append-only movement history
type MovementRepository interface {
	Create(ctx context.Context, movement *StockMovement) error
	FindByDocument(ctx context.Context, documentID uuid.UUID) ([]StockMovement, error)
}
