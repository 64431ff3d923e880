package catalog

import (
	"context"

	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/pricing"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService registers the master data the ledger and settlement
// engine work against
type CatalogService struct {
	uow    uow.UnitOfWork
	logger *zap.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(u uow.UnitOfWork, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{uow: u, logger: logger}
}

// RegisterUnit creates a unit after checking the resulting graph stays acyclic
func (s *CatalogService) RegisterUnit(ctx context.Context, req RegisterUnitRequest) (*catalog.Unit, error) {
	var unit *catalog.Unit
	var err error
	if req.BaseUnitID == nil {
		unit, err = catalog.NewBaseUnit(req.Code, req.Name)
	} else {
		unit, err = catalog.NewDerivedUnit(req.Code, req.Name, *req.BaseUnitID, req.Operator, req.OperationValue)
	}
	if err != nil {
		return nil, err
	}

	err = s.uow.Execute(ctx, func(repos uow.Repositories) error {
		units, err := repos.Units().FindAll(ctx)
		if err != nil {
			return err
		}
		if err := catalog.ValidateGraph(append(units, *unit)); err != nil {
			return err
		}
		return repos.Units().Save(ctx, unit)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("unit registered", zap.String("code", unit.Code), zap.Stringer("unit_id", unit.ID))
	return unit, nil
}

// RebaseUnit points a derived unit at another base. The change is
// rejected when it would close a cycle.
func (s *CatalogService) RebaseUnit(ctx context.Context, req RebaseUnitRequest) (*catalog.Unit, error) {
	var unit *catalog.Unit
	err := s.uow.Execute(ctx, func(repos uow.Repositories) error {
		units, err := repos.Units().FindAll(ctx)
		if err != nil {
			return err
		}
		idx := -1
		for i := range units {
			if units[i].ID == req.UnitID {
				idx = i
			}
		}
		if idx < 0 {
			return shared.NewDomainErrorf(shared.CodeNotFound, "Unit %s not found", req.UnitID)
		}
		unit = &units[idx]
		if err := unit.Rebase(req.BaseUnitID, req.Operator, req.OperationValue); err != nil {
			return err
		}
		if err := catalog.ValidateGraph(units); err != nil {
			return err
		}
		return repos.Units().Save(ctx, unit)
	})
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// RegisterProduct creates a product. Purchase and sale units must convert
// to the stocking unit.
func (s *CatalogService) RegisterProduct(ctx context.Context, req RegisterProductRequest) (*catalog.Product, error) {
	product, err := catalog.NewProduct(req.Code, req.Name, req.UnitID)
	if err != nil {
		return nil, err
	}
	if req.Type != "" {
		if err := product.SetType(req.Type); err != nil {
			return nil, err
		}
	}
	if err := product.SetPricing(req.Cost, req.Price); err != nil {
		return nil, err
	}
	method := req.TaxMethod
	if method == "" {
		method = pricing.TaxMethodExclusive
	}
	if err := product.SetTax(req.TaxID, method); err != nil {
		return nil, err
	}
	purchaseUnit, saleUnit := req.UnitID, req.UnitID
	if req.PurchaseUnitID != nil {
		purchaseUnit = *req.PurchaseUnitID
	}
	if req.SaleUnitID != nil {
		saleUnit = *req.SaleUnitID
	}
	product.SetUnits(purchaseUnit, saleUnit)
	if req.IsBatch {
		product.EnableBatches()
	}
	if req.IsVariant {
		product.EnableVariants()
	}
	if req.TrackInventory != nil {
		product.SetTrackInventory(*req.TrackInventory)
	}
	product.SetOverselling(req.AllowOverselling)
	product.SetAlertQuantity(req.AlertQuantity)

	err = s.uow.Execute(ctx, func(repos uow.Repositories) error {
		resolver, err := LoadResolver(ctx, repos, catalog.DefaultQuantityPrecision)
		if err != nil {
			return err
		}
		for _, id := range []uuid.UUID{purchaseUnit, saleUnit} {
			if _, err := resolver.Convert(decimal.NewFromInt(1), id, product.UnitID); err != nil {
				return err
			}
		}
		if product.TaxID != nil {
			if _, err := repos.Taxes().FindByID(ctx, *product.TaxID); err != nil {
				return err
			}
		}
		return repos.Products().Save(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("product registered", zap.String("code", product.Code), zap.Stringer("product_id", product.ID))
	return product, nil
}

// RegisterVariant creates a variant of a variant-tracked product
func (s *CatalogService) RegisterVariant(ctx context.Context, req RegisterVariantRequest) (*catalog.ProductVariant, error) {
	var variant *catalog.ProductVariant
	err := s.uow.Execute(ctx, func(repos uow.Repositories) error {
		product, err := repos.Products().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		variant, err = catalog.NewProductVariant(product, req.Name, req.ItemCode, req.AdditionalCost, req.AdditionalPrice)
		if err != nil {
			return err
		}
		return repos.Variants().Save(ctx, variant)
	})
	if err != nil {
		return nil, err
	}
	return variant, nil
}

// RegisterBatch creates a batch of a batch-tracked product
func (s *CatalogService) RegisterBatch(ctx context.Context, req RegisterBatchRequest) (*catalog.Batch, error) {
	var batch *catalog.Batch
	err := s.uow.Execute(ctx, func(repos uow.Repositories) error {
		product, err := repos.Products().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		batch, err = catalog.NewBatch(product, req.BatchNo, req.ExpiredDate)
		if err != nil {
			return err
		}
		return repos.Batches().Save(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// RegisterWarehouse creates a warehouse
func (s *CatalogService) RegisterWarehouse(ctx context.Context, req RegisterWarehouseRequest) (*catalog.Warehouse, error) {
	warehouse, err := catalog.NewWarehouse(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	err = s.uow.Execute(ctx, func(repos uow.Repositories) error {
		return repos.Warehouses().Save(ctx, warehouse)
	})
	if err != nil {
		return nil, err
	}
	return warehouse, nil
}

// RegisterTax creates a tax rate
func (s *CatalogService) RegisterTax(ctx context.Context, req RegisterTaxRequest) (*catalog.Tax, error) {
	tax, err := catalog.NewTax(req.Name, req.Rate)
	if err != nil {
		return nil, err
	}
	err = s.uow.Execute(ctx, func(repos uow.Repositories) error {
		return repos.Taxes().Save(ctx, tax)
	})
	if err != nil {
		return nil, err
	}
	return tax, nil
}

// GetProduct returns a product by id
func (s *CatalogService) GetProduct(ctx context.Context, req GetProductRequest) (*catalog.Product, error) {
	var product *catalog.Product
	err := s.uow.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		product, err = repos.Products().FindByID(ctx, req.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !product.IsActive && !req.IncludeInactive {
		return nil, shared.NewDomainErrorf(shared.CodeNotFound, "Product %s is inactive", product.Code)
	}
	return product, nil
}
