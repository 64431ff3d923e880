package event

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotentHandler wraps an EventHandler so a redelivered event is
// handled once
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
}

// NewIdempotentHandler creates a new idempotent handler wrapper
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, config shared.IdempotencyConfig, logger *zap.Logger) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  config,
		logger:  logger,
	}
}

// EventTypes returns the event types of the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle claims the event ID and processes the event if the claim is new.
// A failed handler gives the claim back so redelivery can retry.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	key := "event:" + event.EventID().String()
	isNew, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	if err != nil {
		// handle anyway, a duplicate is better than a dropped event
		h.logger.Warn("failed to check idempotency, processing anyway",
			zap.String("event_type", event.EventType()),
			zap.Error(err))
	} else if !isNew {
		h.logger.Debug("duplicate event skipped",
			zap.String("event_type", event.EventType()),
			zap.Stringer("event_id", event.EventID()))
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		if forgetErr := h.store.Forget(ctx, key); forgetErr != nil {
			h.logger.Warn("failed to release idempotency key", zap.Error(forgetErr))
		}
		return err
	}
	return nil
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
