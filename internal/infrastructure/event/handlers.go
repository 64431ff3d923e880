package event

import (
	"context"

	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"go.uber.org/zap"
)

// StockAlertHandler warns when a committed movement leaves a stock row
// negative, which only happens when selling without stock is allowed
type StockAlertHandler struct {
	logger *zap.Logger
}

// NewStockAlertHandler creates a StockAlertHandler
func NewStockAlertHandler(logger *zap.Logger) *StockAlertHandler {
	return &StockAlertHandler{logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *StockAlertHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockChanged}
}

// Handle implements shared.EventHandler
func (h *StockAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*inventory.StockChangedEvent)
	if !ok || !changed.Balance.IsNegative() {
		return nil
	}
	h.logger.Warn("stock oversold",
		zap.Stringer("product_id", changed.Key.ProductID),
		zap.Stringer("warehouse_id", changed.Key.WarehouseID),
		zap.Stringer("batch_id", changed.Key.BatchID),
		zap.String("balance", changed.Balance.String()),
		zap.String("reason", changed.Reason.String()))
	return nil
}

// DocumentLogHandler writes one log line per document lifecycle change
type DocumentLogHandler struct {
	logger *zap.Logger
}

// NewDocumentLogHandler creates a DocumentLogHandler
func NewDocumentLogHandler(logger *zap.Logger) *DocumentLogHandler {
	return &DocumentLogHandler{logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *DocumentLogHandler) EventTypes() []string {
	return []string{
		trade.EventTypeDocumentCreated,
		trade.EventTypeDocumentSubmitted,
		trade.EventTypeDocumentCompleted,
		trade.EventTypeDocumentCancelled,
		trade.EventTypeDocumentDeleted,
	}
}

// Handle implements shared.EventHandler
func (h *DocumentLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	doc, ok := event.(*trade.DocumentEvent)
	if !ok {
		return nil
	}
	h.logger.Info("document "+event.EventType(),
		zap.String("reference", doc.Reference),
		zap.String("type", string(doc.DocumentType)),
		zap.String("status", string(doc.Status)),
		zap.String("grand_total", doc.GrandTotal.String()),
		zap.String("payment_status", string(doc.PaymentStatus)))
	return nil
}
