// Package settlement drives documents through their lifecycle and keeps
// the stock ledger, coupons, reward points and payments consistent with
// every transition.
package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	catalogapp "github.com/erp/backoffice/internal/application/catalog"
	financeapp "github.com/erp/backoffice/internal/application/finance"
	inventoryapp "github.com/erp/backoffice/internal/application/inventory"
	promotionapp "github.com/erp/backoffice/internal/application/promotion"
	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/pricing"
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/erp/backoffice/settlement"

// RetryPolicy bounds the retries of transient conflicts
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the retry policy used unless configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

// Engine is the order settlement engine
type Engine struct {
	uow            uow.UnitOfWork
	locker         uow.Locker
	ledger         *inventoryapp.StockLedger
	allocator      *financeapp.PaymentAllocator
	promotions     *promotionapp.PromotionService
	settings       setting.Settings
	calc           *pricing.Calculator
	retry          RetryPolicy
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	tracer         trace.Tracer
	completed      metric.Int64Counter
}

// NewEngine creates a new settlement engine
func NewEngine(
	u uow.UnitOfWork,
	locker uow.Locker,
	ledger *inventoryapp.StockLedger,
	allocator *financeapp.PaymentAllocator,
	promotions *promotionapp.PromotionService,
	settings setting.Settings,
	logger *zap.Logger,
) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	completed, err := otel.Meter(instrumentationName).Int64Counter(
		"settlement.documents.completed",
		metric.WithDescription("Documents moved to COMPLETED"),
		metric.WithUnit("{documents}"),
	)
	if err != nil {
		return nil, err
	}
	return &Engine{
		uow:        u,
		locker:     locker,
		ledger:     ledger,
		allocator:  allocator,
		promotions: promotions,
		settings:   settings,
		calc:       pricing.NewCalculator(settings.General.Decimals),
		retry:      DefaultRetryPolicy(),
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		completed:  completed,
	}, nil
}

// SetEventPublisher sets the publisher for document and stock events
func (e *Engine) SetEventPublisher(publisher shared.EventPublisher) {
	e.eventPublisher = publisher
}

// SetRetryPolicy replaces the retry policy
func (e *Engine) SetRetryPolicy(p RetryPolicy) {
	e.retry = p
}

// work is the state of one attempt at an operation. It is thrown away
// when the attempt is rolled back.
type work struct {
	repos     uow.Repositories
	resolver  *catalog.UnitResolver
	docs      []*trade.Document
	movements []inventory.StockMovement
}

func (w *work) track(doc *trade.Document) {
	for _, d := range w.docs {
		if d == doc {
			return
		}
	}
	w.docs = append(w.docs, doc)
}

// run executes fn in a unit of work under the document lock, retrying
// transient conflicts, and publishes the collected events after commit.
// lockID may be uuid.Nil for operations on new documents.
func (e *Engine) run(ctx context.Context, op string, lockID uuid.UUID, fn func(ctx context.Context, w *work) (*trade.Document, error)) (*trade.Document, error) {
	ctx, span := e.tracer.Start(ctx, "settlement."+op, trace.WithAttributes(
		attribute.String("settlement.operation", op),
		attribute.String("document.id", lockID.String()),
	))
	defer span.End()

	if lockID != uuid.Nil {
		release, err := e.locker.Acquire(ctx, uow.DocumentLockKey(lockID))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		defer release()
	}

	var doc *trade.Document
	var committed *work
	attempt := func() error {
		w := &work{}
		err := e.uow.Execute(ctx, func(repos uow.Repositories) error {
			w.repos = repos
			d, err := fn(ctx, w)
			if err != nil {
				return err
			}
			doc = d
			w.track(d)
			return nil
		})
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		committed = w
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retry.InitialInterval
	b.MaxInterval = e.retry.MaxInterval
	notify := func(err error, wait time.Duration) {
		e.logger.Debug("retrying settlement operation",
			zap.String("operation", op),
			zap.Stringer("document_id", lockID),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(attempt, backoff.WithContext(backoff.WithMaxRetries(b, e.retry.MaxRetries), ctx), notify); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logOutcome(op, lockID, err)
		return nil, err
	}

	e.publish(ctx, committed)
	return doc, nil
}

func (e *Engine) logOutcome(op string, id uuid.UUID, err error) {
	var de *shared.DomainError
	if errors.As(err, &de) {
		e.logger.Warn("settlement operation rejected",
			zap.String("operation", op),
			zap.Stringer("document_id", id),
			zap.String("code", de.Code),
			zap.String("message", de.Message))
		return
	}
	e.logger.Error("settlement operation failed",
		zap.String("operation", op),
		zap.Stringer("document_id", id),
		zap.Error(err))
}

func (e *Engine) publish(ctx context.Context, w *work) {
	if e.ledger != nil {
		e.ledger.PublishMovements(ctx, w.movements)
	}
	for _, doc := range w.docs {
		events := doc.GetDomainEvents()
		doc.ClearDomainEvents()
		if e.eventPublisher == nil || len(events) == 0 {
			continue
		}
		if err := e.eventPublisher.Publish(ctx, events...); err != nil {
			e.logger.Error("failed to publish document events",
				zap.Stringer("document_id", doc.ID),
				zap.Error(err))
		}
	}
}

func isTransient(err error) bool {
	return errors.Is(err, shared.ErrConcurrencyConflict) || errors.Is(err, shared.ErrLockTimeout)
}

// Create creates a DRAFT document with its initial lines
func (e *Engine) Create(ctx context.Context, req CreateDocumentRequest) (*trade.Document, error) {
	return e.run(ctx, "create", uuid.Nil, func(ctx context.Context, w *work) (*trade.Document, error) {
		doc, err := e.newDocument(ctx, w, req)
		if err != nil {
			return nil, err
		}
		if err := w.repos.Documents().Create(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	})
}

func (e *Engine) newDocument(ctx context.Context, w *work, req CreateDocumentRequest) (*trade.Document, error) {
	doc, err := trade.NewDocument(req.input())
	if err != nil {
		return nil, err
	}
	if _, err := w.repos.Warehouses().FindByID(ctx, doc.WarehouseID); err != nil {
		return nil, err
	}
	if doc.ToWarehouseID != nil {
		if _, err := w.repos.Warehouses().FindByID(ctx, *doc.ToWarehouseID); err != nil {
			return nil, err
		}
	}
	if doc.Type.IsReturn() {
		original, err := e.returnOriginal(ctx, w, doc)
		if err != nil {
			return nil, err
		}
		if doc.CustomerID == nil {
			doc.CustomerID = original.CustomerID
		}
		if doc.SupplierID == nil {
			doc.SupplierID = original.SupplierID
		}
	}
	for _, l := range req.Lines {
		if err := e.addLine(ctx, w, doc, l); err != nil {
			return nil, err
		}
	}
	if err := doc.Reprice(e.calc, nil, decimal.Zero); err != nil {
		return nil, err
	}
	return doc, nil
}

// AddLine appends a line to a DRAFT document and reprices it
func (e *Engine) AddLine(ctx context.Context, documentID uuid.UUID, req LineRequest) (*trade.Document, error) {
	return e.run(ctx, "add_line", documentID, func(ctx context.Context, w *work) (*trade.Document, error) {
		doc, err := w.repos.Documents().FindByIDForUpdate(ctx, documentID)
		if err != nil {
			return nil, err
		}
		if err := e.addLine(ctx, w, doc, req); err != nil {
			return nil, err
		}
		if err := doc.Reprice(e.calc, nil, decimal.Zero); err != nil {
			return nil, err
		}
		if err := w.repos.Documents().SaveWithLock(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	})
}

// RemoveLine drops a line from a DRAFT document and reprices it
func (e *Engine) RemoveLine(ctx context.Context, documentID, lineID uuid.UUID) (*trade.Document, error) {
	return e.run(ctx, "remove_line", documentID, func(ctx context.Context, w *work) (*trade.Document, error) {
		doc, err := w.repos.Documents().FindByIDForUpdate(ctx, documentID)
		if err != nil {
			return nil, err
		}
		if err := doc.RemoveLine(lineID); err != nil {
			return nil, err
		}
		if err := doc.Reprice(e.calc, nil, decimal.Zero); err != nil {
			return nil, err
		}
		if err := w.repos.Documents().SaveWithLock(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	})
}

// addLine fills product defaults into the line, validates the stock key
// shape and resolves the quantity in the product's stocking unit.
func (e *Engine) addLine(ctx context.Context, w *work, doc *trade.Document, req LineRequest) error {
	product, err := w.repos.Products().FindByID(ctx, req.ProductID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return shared.NewValidationError("Product %s is inactive", product.Code)
	}

	var variant *catalog.ProductVariant
	if req.VariantID != nil {
		if !product.IsVariant {
			return shared.NewValidationError("Product %s has no variants", product.Code)
		}
		variant, err = w.repos.Variants().FindByID(ctx, *req.VariantID)
		if err != nil {
			return err
		}
		if variant.ProductID != product.ID {
			return shared.NewValidationError("Variant %s does not belong to product %s", variant.ItemCode, product.Code)
		}
	} else if product.IsVariant {
		return shared.NewValidationError("Product %s tracks variants, a variant is required", product.Code)
	}
	if req.BatchID != nil {
		if !product.IsBatch {
			return shared.NewValidationError("Product %s does not track batches", product.Code)
		}
		batch, err := w.repos.Batches().FindByID(ctx, *req.BatchID)
		if err != nil {
			return err
		}
		if batch.ProductID != product.ID {
			return shared.NewValidationError("Batch %s does not belong to product %s", batch.BatchNo, product.Code)
		}
	}

	in := trade.LineInput{
		ProductID: product.ID,
		VariantID: req.VariantID,
		BatchID:   req.BatchID,
		UnitID:    defaultUnit(doc.Type, product),
		Direction: req.Direction,
		Qty:       req.Qty,
		Discount:  req.Discount,
		TaxMethod: product.TaxMethod,
	}
	if req.UnitID != nil {
		in.UnitID = *req.UnitID
	}
	if req.UnitPrice != nil {
		in.UnitPrice = *req.UnitPrice
	} else if doc.Type == trade.DocumentTypePurchase || doc.Type == trade.DocumentTypePurchaseReturn {
		in.UnitPrice = product.UnitCost(variant)
	} else {
		in.UnitPrice = product.SalePrice(variant)
	}
	if req.TaxMethod != "" {
		in.TaxMethod = req.TaxMethod
	}
	if req.TaxRate != nil {
		in.TaxRate = *req.TaxRate
	} else if product.TaxID != nil {
		tax, err := w.repos.Taxes().FindByID(ctx, *product.TaxID)
		if err != nil {
			return err
		}
		in.TaxRate = tax.Rate
	}

	line, err := doc.AddLine(in)
	if err != nil {
		return err
	}
	base, err := e.toBase(ctx, w, line.Qty, line.UnitID, product)
	if err != nil {
		return err
	}
	line.BaseQty = base
	return nil
}

func defaultUnit(t trade.DocumentType, product *catalog.Product) uuid.UUID {
	switch t {
	case trade.DocumentTypeSale, trade.DocumentTypeSaleReturn, trade.DocumentTypeQuotation:
		return product.SaleUnitID
	case trade.DocumentTypePurchase, trade.DocumentTypePurchaseReturn:
		return product.PurchaseUnitID
	}
	return product.UnitID
}

func (e *Engine) unitResolver(ctx context.Context, w *work) (*catalog.UnitResolver, error) {
	if w.resolver == nil {
		r, err := catalogapp.LoadResolver(ctx, w.repos, e.settings.General.QuantityPrecision)
		if err != nil {
			return nil, err
		}
		w.resolver = r
	}
	return w.resolver, nil
}

func (e *Engine) toBase(ctx context.Context, w *work, qty decimal.Decimal, unitID uuid.UUID, product *catalog.Product) (decimal.Decimal, error) {
	r, err := e.unitResolver(ctx, w)
	if err != nil {
		return decimal.Zero, err
	}
	return r.Convert(qty, unitID, product.UnitID)
}

// Get returns a document with its lines
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*trade.Document, error) {
	var doc *trade.Document
	err := e.uow.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		doc, err = repos.Documents().FindByID(ctx, id)
		return err
	})
	return doc, err
}

// List returns a page of documents
func (e *Engine) List(ctx context.Context, filter trade.DocumentFilter) ([]trade.Document, int64, error) {
	var docs []trade.Document
	var total int64
	err := e.uow.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		docs, total, err = repos.Documents().FindAll(ctx, filter)
		return err
	})
	return docs, total, err
}
