// Package uow defines the unit-of-work contract application services run
// their multi-aggregate operations through.
package uow

import (
	"context"

	"github.com/erp/backoffice/internal/domain/cashregister"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/promotion"
	"github.com/erp/backoffice/internal/domain/trade"
)

// UnitOfWork runs a function inside one database transaction.
// If the function returns an error, every change is rolled back.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to every repository bound to the same
// transaction. Row locks taken through a repository are held until the
// unit of work ends.
type Repositories interface {
	Units() catalog.UnitRepository
	Products() catalog.ProductRepository
	Variants() catalog.VariantRepository
	Batches() catalog.BatchRepository
	Warehouses() catalog.WarehouseRepository
	Taxes() catalog.TaxRepository
	Stock() inventory.StockRepository
	Movements() inventory.MovementRepository
	Documents() trade.DocumentRepository
	Discounts() promotion.DiscountRepository
	Coupons() promotion.CouponRepository
	Payments() finance.PaymentRepository
	GiftCards() finance.GiftCardRepository
	RewardPoints() finance.RewardPointRepository
	Registers() cashregister.RegisterRepository
}
