package inventory

import (
	"context"

	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// StockLedger applies signed deltas to stock levels keyed by product,
// warehouse, variant and batch.
type StockLedger struct {
	uow            uow.UnitOfWork
	settings       setting.GeneralSetting
	batchStrategy  inventory.BatchOutboundStrategy
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	rejections     metric.Int64Counter
}

// NewStockLedger creates a ledger using the batch strategy named in settings
func NewStockLedger(u uow.UnitOfWork, settings setting.GeneralSetting, logger *zap.Logger) (*StockLedger, error) {
	strategyType := inventory.BatchOutboundStrategyTypeFEFO
	if settings.BatchStrategy == setting.BatchStrategyFIFO {
		strategyType = inventory.BatchOutboundStrategyTypeFIFO
	}
	batchStrategy, err := inventory.NewBatchOutboundStrategy(strategyType)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rejections, err := otel.Meter("github.com/erp/backoffice/inventory").Int64Counter(
		"inventory.stock.rejections",
		metric.WithDescription("Outgoing deltas rejected for insufficient stock"),
		metric.WithUnit("{deltas}"),
	)
	if err != nil {
		return nil, err
	}
	return &StockLedger{
		uow:           u,
		settings:      settings,
		batchStrategy: batchStrategy,
		logger:        logger,
		rejections:    rejections,
	}, nil
}

// SetEventPublisher sets the publisher for stock changed events
func (l *StockLedger) SetEventPublisher(publisher shared.EventPublisher) {
	l.eventPublisher = publisher
}

// SetBatchStrategy replaces the batch selection strategy
func (l *StockLedger) SetBatchStrategy(s inventory.BatchOutboundStrategy) {
	l.batchStrategy = s
}

// ApplyDelta applies one delta in its own unit of work
func (l *StockLedger) ApplyDelta(ctx context.Context, req DeltaRequest) (*DeltaResult, error) {
	var result *DeltaResult
	err := l.uow.Execute(ctx, func(repos uow.Repositories) error {
		r, err := l.Apply(ctx, repos, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.PublishMovements(ctx, result.Movements)
	return result, nil
}

// Apply applies a delta inside the caller's unit of work. Products that do
// not track inventory are accepted without touching the ledger.
func (l *StockLedger) Apply(ctx context.Context, repos uow.Repositories, req DeltaRequest) (*DeltaResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	product, err := repos.Products().FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.TrackInventory {
		return &DeltaResult{Tracked: false, Quantity: decimal.Zero}, nil
	}
	if err := checkKeyShape(product, req); err != nil {
		return nil, err
	}

	key := inventory.NewStockKey(req.ProductID, req.WarehouseID, req.VariantID, req.BatchID)
	allowNegative := product.CanOversell(l.settings.WithoutStock)

	if product.IsBatch && !key.HasBatch() && req.Delta.IsNegative() && !req.Exact {
		return l.applySplit(ctx, repos, key, req, allowNegative)
	}

	movement, err := l.applyToKey(ctx, repos, key, req.Delta, allowNegative, req)
	if err != nil {
		return nil, err
	}
	return &DeltaResult{
		Tracked:   true,
		Movements: []inventory.StockMovement{*movement},
		Quantity:  movement.BalanceAfter,
	}, nil
}

// applySplit spreads an outgoing delta without a batch over the batches
// picked by the batch strategy. With overselling allowed, whatever the
// batches cannot cover goes to the first batch picked, or to unbatched
// stock when nothing is left.
func (l *StockLedger) applySplit(ctx context.Context, repos uow.Repositories, key inventory.StockKey, req DeltaRequest, allowNegative bool) (*DeltaResult, error) {
	levels, err := repos.Stock().FindLevelsForUpdate(ctx, key.ProductID, key.WarehouseID, key.VariantID)
	if err != nil {
		return nil, err
	}
	candidates, err := l.candidates(ctx, repos, levels)
	if err != nil {
		return nil, err
	}

	requested := req.Delta.Neg()
	plan, err := l.batchStrategy.SelectBatches(requested, candidates)
	if err != nil {
		return nil, err
	}

	deductions := plan.Deductions
	if !plan.FullyFulfilled {
		if !allowNegative {
			l.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(req.Reason))))
			return nil, inventory.NewInsufficientStockError(inventory.Shortage{
				ProductID:   key.ProductID,
				WarehouseID: key.WarehouseID,
				VariantID:   key.VariantID,
				Requested:   requested,
				Available:   plan.TotalDeducted,
			})
		}
		if len(deductions) > 0 {
			deductions[0].Quantity = deductions[0].Quantity.Add(plan.RemainingQuantity)
		} else {
			deductions = []inventory.BatchDeduction{{BatchID: uuid.Nil, Quantity: plan.RemainingQuantity}}
		}
	}

	result := &DeltaResult{Tracked: true, Quantity: decimal.Zero}
	for _, d := range deductions {
		m, err := l.applyToKey(ctx, repos, key.WithBatch(d.BatchID), d.Quantity.Neg(), allowNegative, req)
		if err != nil {
			return nil, err
		}
		result.Movements = append(result.Movements, *m)
	}
	total, err := repos.Stock().SumQuantity(ctx, key.ProductID, key.WarehouseID, key.VariantID)
	if err != nil {
		return nil, err
	}
	result.Quantity = total
	return result, nil
}

func (l *StockLedger) candidates(ctx context.Context, repos uow.Repositories, levels []inventory.StockLevel) ([]inventory.BatchCandidate, error) {
	ids := make([]uuid.UUID, 0, len(levels))
	for i := range levels {
		if levels[i].BatchID != uuid.Nil {
			ids = append(ids, levels[i].BatchID)
		}
	}
	byID := make(map[uuid.UUID]catalog.Batch, len(ids))
	if len(ids) > 0 {
		batches, err := repos.Batches().FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, b := range batches {
			byID[b.ID] = b
		}
	}

	out := make([]inventory.BatchCandidate, 0, len(levels))
	for i := range levels {
		c := inventory.BatchCandidate{
			BatchID:    levels[i].BatchID,
			ReceivedAt: levels[i].CreatedAt,
			Available:  levels[i].Quantity,
		}
		if b, ok := byID[levels[i].BatchID]; ok {
			c.BatchNo = b.BatchNo
			c.ExpiredDate = b.ExpiredDate
			c.ReceivedAt = b.CreatedAt
		}
		out = append(out, c)
	}
	return out, nil
}

func (l *StockLedger) applyToKey(ctx context.Context, repos uow.Repositories, key inventory.StockKey, delta decimal.Decimal, allowNegative bool, req DeltaRequest) (*inventory.StockMovement, error) {
	level, err := repos.Stock().GetOrCreateForUpdate(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := level.Apply(delta, allowNegative); err != nil {
		l.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(req.Reason))))
		return nil, err
	}
	if err := repos.Stock().SaveWithVersion(ctx, level); err != nil {
		return nil, err
	}
	movement := inventory.NewStockMovement(level, delta, req.Reason, req.ref())
	if err := repos.Movements().Create(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

// QuantityOf returns the quantity of a stock key. Without a batch, a
// batch-tracked product reports the sum over its batches.
func (l *StockLedger) QuantityOf(ctx context.Context, q QuantityQuery) (decimal.Decimal, error) {
	qty := decimal.Zero
	err := l.uow.Execute(ctx, func(repos uow.Repositories) error {
		product, err := repos.Products().FindByID(ctx, q.ProductID)
		if err != nil {
			return err
		}
		key := inventory.NewStockKey(q.ProductID, q.WarehouseID, q.VariantID, q.BatchID)
		if err := key.Validate(); err != nil {
			return err
		}
		if product.IsBatch && !key.HasBatch() {
			qty, err = repos.Stock().SumQuantity(ctx, key.ProductID, key.WarehouseID, key.VariantID)
			return err
		}
		level, err := repos.Stock().FindByKey(ctx, key)
		if err != nil {
			if shared.IsNotFound(err) {
				return nil
			}
			return err
		}
		qty = level.Quantity
		return nil
	})
	return qty, err
}

// Movements lists the ledger history of a document
func (l *StockLedger) Movements(ctx context.Context, documentID uuid.UUID) ([]inventory.StockMovement, error) {
	var out []inventory.StockMovement
	err := l.uow.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		out, err = repos.Movements().FindByDocument(ctx, documentID)
		return err
	})
	return out, err
}

// PublishMovements publishes a stock changed event per committed movement
func (l *StockLedger) PublishMovements(ctx context.Context, movements []inventory.StockMovement) {
	if l.eventPublisher == nil || len(movements) == 0 {
		return
	}
	events := make([]shared.DomainEvent, 0, len(movements))
	for i := range movements {
		events = append(events, inventory.NewStockChangedEvent(&movements[i]))
	}
	if err := l.eventPublisher.Publish(ctx, events...); err != nil {
		l.logger.Error("failed to publish stock events", zap.Error(err))
	}
}

func checkKeyShape(product *catalog.Product, req DeltaRequest) error {
	if product.IsVariant && req.VariantID == nil {
		return shared.NewValidationError("Product %s tracks variants, a variant is required", product.Code)
	}
	if !product.IsVariant && req.VariantID != nil {
		return shared.NewValidationError("Product %s has no variants", product.Code)
	}
	if !product.IsBatch && req.BatchID != nil {
		return shared.NewValidationError("Product %s does not track batches", product.Code)
	}
	return nil
}
