package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var forUpdate = clause.Locking{Strength: "UPDATE"}

// GormStockRepository implements inventory.StockRepository using GORM.
// SQLite ignores the row locks; its write transactions are serialized by
// the database lock instead.
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

func (r *GormStockRepository) whereKey(query *gorm.DB, key inventory.StockKey) *gorm.DB {
	return query.Where("product_id = ? AND warehouse_id = ? AND variant_id = ? AND batch_id = ?",
		key.ProductID, key.WarehouseID, key.VariantID, key.BatchID)
}

// FindByKey finds the row of a stock key
func (r *GormStockRepository) FindByKey(ctx context.Context, key inventory.StockKey) (*inventory.StockLevel, error) {
	var level inventory.StockLevel
	if err := r.whereKey(r.db.WithContext(ctx), key).First(&level).Error; err != nil {
		return nil, notFound(err)
	}
	return &level, nil
}

// GetOrCreateForUpdate inserts a zero row when missing, then locks it.
// ON CONFLICT DO NOTHING lets two first-time writers race safely.
func (r *GormStockRepository) GetOrCreateForUpdate(ctx context.Context, key inventory.StockKey) (*inventory.StockLevel, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	fresh := inventory.NewStockLevel(key)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "product_id"}, {Name: "warehouse_id"}, {Name: "variant_id"}, {Name: "batch_id"},
			},
			DoNothing: true,
		}).
		Create(fresh).Error; err != nil {
		return nil, err
	}

	var level inventory.StockLevel
	if err := r.whereKey(r.db.WithContext(ctx).Clauses(forUpdate), key).First(&level).Error; err != nil {
		return nil, notFound(err)
	}
	return &level, nil
}

// FindLevelsForUpdate locks the positive rows of a product variant in a
// warehouse, in batch order so concurrent callers lock in the same order
func (r *GormStockRepository) FindLevelsForUpdate(ctx context.Context, productID, warehouseID, variantID uuid.UUID) ([]inventory.StockLevel, error) {
	var levels []inventory.StockLevel
	if err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("product_id = ? AND warehouse_id = ? AND variant_id = ? AND quantity > 0", productID, warehouseID, variantID).
		Order("batch_id ASC").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// SumQuantity adds up every batch of a product variant in a warehouse
func (r *GormStockRepository) SumQuantity(ctx context.Context, productID, warehouseID, variantID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockLevel{}).
		Select("SUM(quantity)").
		Where("product_id = ? AND warehouse_id = ? AND variant_id = ?", productID, warehouseID, variantID).
		Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// SaveWithVersion persists a row whose version Apply already bumped
func (r *GormStockRepository) SaveWithVersion(ctx context.Context, level *inventory.StockLevel) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.StockLevel{}).
		Where("id = ? AND version = ?", level.ID, level.Version-1).
		Updates(map[string]interface{}{
			"quantity":   level.Quantity,
			"version":    level.Version,
			"updated_at": level.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorf(shared.CodeConcurrencyConflict, "Stock level %s was modified by another transaction", level.Key())
	}
	return nil
}

// FindByProduct lists every row of a product
func (r *GormStockRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.StockLevel, error) {
	var levels []inventory.StockLevel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("warehouse_id ASC, variant_id ASC, batch_id ASC").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// GormMovementRepository implements inventory.MovementRepository using GORM
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Create appends a movement
func (r *GormMovementRepository) Create(ctx context.Context, movement *inventory.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// FindByDocument returns the movements a document posted, oldest first
func (r *GormMovementRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]inventory.StockMovement, error) {
	var movements []inventory.StockMovement
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC, id ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

var (
	_ inventory.StockRepository    = (*GormStockRepository)(nil)
	_ inventory.MovementRepository = (*GormMovementRepository)(nil)
)
