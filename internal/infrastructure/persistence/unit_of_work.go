package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/cashregister"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/promotion"
	"github.com/erp/backoffice/internal/domain/trade"
	"gorm.io/gorm"
)

// GormUnitOfWork implements uow.UnitOfWork using GORM transactions.
// On Postgres every transaction bounds its row lock waits with
// lock_timeout, so a blocked writer fails with LOCK_TIMEOUT instead of
// queueing forever.
type GormUnitOfWork struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB, lockTimeout time.Duration) *GormUnitOfWork {
	return &GormUnitOfWork{db: db, lockTimeout: lockTimeout}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(repos uow.Repositories) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if u.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", u.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}
		return fn(&gormRepositories{tx: tx})
	})
	return translateError(err)
}

// gormRepositories binds every repository to one transaction
type gormRepositories struct {
	tx *gorm.DB
}

func (r *gormRepositories) Units() catalog.UnitRepository {
	return NewGormUnitRepository(r.tx)
}

func (r *gormRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormRepositories) Variants() catalog.VariantRepository {
	return NewGormVariantRepository(r.tx)
}

func (r *gormRepositories) Batches() catalog.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

func (r *gormRepositories) Warehouses() catalog.WarehouseRepository {
	return NewGormWarehouseRepository(r.tx)
}

func (r *gormRepositories) Taxes() catalog.TaxRepository {
	return NewGormTaxRepository(r.tx)
}

func (r *gormRepositories) Stock() inventory.StockRepository {
	return NewGormStockRepository(r.tx)
}

func (r *gormRepositories) Movements() inventory.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

func (r *gormRepositories) Documents() trade.DocumentRepository {
	return NewGormDocumentRepository(r.tx)
}

func (r *gormRepositories) Discounts() promotion.DiscountRepository {
	return NewGormDiscountRepository(r.tx)
}

func (r *gormRepositories) Coupons() promotion.CouponRepository {
	return NewGormCouponRepository(r.tx)
}

func (r *gormRepositories) Payments() finance.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormRepositories) GiftCards() finance.GiftCardRepository {
	return NewGormGiftCardRepository(r.tx)
}

func (r *gormRepositories) RewardPoints() finance.RewardPointRepository {
	return NewGormRewardPointRepository(r.tx)
}

func (r *gormRepositories) Registers() cashregister.RegisterRepository {
	return NewGormRegisterRepository(r.tx)
}

var (
	_ uow.UnitOfWork   = (*GormUnitOfWork)(nil)
	_ uow.Repositories = (*gormRepositories)(nil)
)
