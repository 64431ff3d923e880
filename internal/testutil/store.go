// Package testutil seeds throwaway stores and captures events for the
// application and HTTP tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/pricing"
	"github.com/erp/backoffice/internal/infrastructure/lock"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/persistence/testdb"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Store is a migrated SQLite database with a unit of work and a
// process-local locker over it
type Store struct {
	DB     *gorm.DB
	UoW    *persistence.GormUnitOfWork
	Locker *lock.LocalLocker
}

// NewStore opens a fresh store for one test
func NewStore(t *testing.T) *Store {
	t.Helper()
	db := testdb.NewSQLite(t)
	return &Store{
		DB:     db,
		UoW:    persistence.NewGormUnitOfWork(db, 2*time.Second),
		Locker: lock.NewLocalLocker(5 * time.Second),
	}
}

// Dec parses a decimal literal
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (s *Store) exec(t *testing.T, fn func(repos uow.Repositories) error) {
	t.Helper()
	require.NoError(t, s.UoW.Execute(context.Background(), fn))
}

// Warehouse creates a warehouse
func (s *Store) Warehouse(t *testing.T, code string) *catalog.Warehouse {
	t.Helper()
	wh, err := catalog.NewWarehouse(code, "Warehouse "+code)
	require.NoError(t, err)
	s.exec(t, func(repos uow.Repositories) error {
		return repos.Warehouses().Save(context.Background(), wh)
	})
	return wh
}

// BaseUnit creates a base unit
func (s *Store) BaseUnit(t *testing.T, code string) *catalog.Unit {
	t.Helper()
	u, err := catalog.NewBaseUnit(code, code)
	require.NoError(t, err)
	s.exec(t, func(repos uow.Repositories) error {
		return repos.Units().Save(context.Background(), u)
	})
	return u
}

// DerivedUnit creates a unit converting to base with op and value
func (s *Store) DerivedUnit(t *testing.T, code string, base uuid.UUID, op catalog.UnitOperator, value string) *catalog.Unit {
	t.Helper()
	u, err := catalog.NewDerivedUnit(code, code, base, op, Dec(value))
	require.NoError(t, err)
	s.exec(t, func(repos uow.Repositories) error {
		return repos.Units().Save(context.Background(), u)
	})
	return u
}

// Tax creates a tax rate
func (s *Store) Tax(t *testing.T, name, rate string) *catalog.Tax {
	t.Helper()
	tax, err := catalog.NewTax(name, Dec(rate))
	require.NoError(t, err)
	s.exec(t, func(repos uow.Repositories) error {
		return repos.Taxes().Save(context.Background(), tax)
	})
	return tax
}

// ProductOption adjusts a product before it is saved
type ProductOption func(p *catalog.Product)

// WithBatches tracks the product per batch
func WithBatches() ProductOption {
	return func(p *catalog.Product) { p.EnableBatches() }
}

// WithVariants tracks the product per variant
func WithVariants() ProductOption {
	return func(p *catalog.Product) { p.EnableVariants() }
}

// WithOverselling lets the product go below zero
func WithOverselling() ProductOption {
	return func(p *catalog.Product) { p.SetOverselling(true) }
}

// WithoutTracking stops the ledger from tracking the product
func WithoutTracking() ProductOption {
	return func(p *catalog.Product) { p.SetTrackInventory(false) }
}

// WithUnits sets the purchase and sale units
func WithUnits(purchase, sale uuid.UUID) ProductOption {
	return func(p *catalog.Product) { p.SetUnits(purchase, sale) }
}

// WithTax charges the tax with the given method
func WithTax(taxID uuid.UUID, method pricing.TaxMethod) ProductOption {
	return func(p *catalog.Product) {
		p.TaxID = &taxID
		p.TaxMethod = method
	}
}

// WithCost sets the unit cost
func WithCost(cost string) ProductOption {
	return func(p *catalog.Product) { p.Cost = Dec(cost) }
}

// Product creates a product priced at price in its stocking unit
func (s *Store) Product(t *testing.T, code string, unitID uuid.UUID, price string, opts ...ProductOption) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(code, "Product "+code, unitID)
	require.NoError(t, err)
	require.NoError(t, p.SetPricing(decimal.Zero, Dec(price)))
	for _, opt := range opts {
		opt(p)
	}
	s.exec(t, func(repos uow.Repositories) error {
		return repos.Products().Save(context.Background(), p)
	})
	return p
}

// Variant creates a variant of p
func (s *Store) Variant(t *testing.T, p *catalog.Product, itemCode, additionalPrice string) *catalog.ProductVariant {
	t.Helper()
	v, err := catalog.NewProductVariant(p, itemCode, itemCode, decimal.Zero, Dec(additionalPrice))
	require.NoError(t, err)
	s.exec(t, func(repos uow.Repositories) error {
		return repos.Variants().Save(context.Background(), v)
	})
	return v
}

// Batch creates a batch of p
func (s *Store) Batch(t *testing.T, p *catalog.Product, batchNo string, expires *time.Time) *catalog.Batch {
	t.Helper()
	b, err := catalog.NewBatch(p, batchNo, expires)
	require.NoError(t, err)
	s.exec(t, func(repos uow.Repositories) error {
		return repos.Batches().Save(context.Background(), b)
	})
	return b
}

// Stock posts an opening balance for a key
func (s *Store) Stock(t *testing.T, key inventory.StockKey, qty string) {
	t.Helper()
	ctx := context.Background()
	s.exec(t, func(repos uow.Repositories) error {
		level, err := repos.Stock().GetOrCreateForUpdate(ctx, key)
		if err != nil {
			return err
		}
		delta := Dec(qty)
		if err := level.Apply(delta, true); err != nil {
			return err
		}
		if err := repos.Stock().SaveWithVersion(ctx, level); err != nil {
			return err
		}
		return repos.Movements().Create(ctx, inventory.NewStockMovement(level, delta, inventory.ReasonOpening, inventory.DocumentRef{}))
	})
}

// Quantity reads the quantity of a key, zero when the row does not exist
func (s *Store) Quantity(t *testing.T, key inventory.StockKey) decimal.Decimal {
	t.Helper()
	var level inventory.StockLevel
	err := s.DB.Where("product_id = ? AND warehouse_id = ? AND variant_id = ? AND batch_id = ?",
		key.ProductID, key.WarehouseID, key.VariantID, key.BatchID).
		Limit(1).Find(&level).Error
	require.NoError(t, err)
	return level.Quantity
}

// Key builds an unbatched stock key without variant
func Key(productID, warehouseID uuid.UUID) inventory.StockKey {
	return inventory.NewStockKey(productID, warehouseID, nil, nil)
}
