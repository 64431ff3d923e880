package inventory

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementReason is the business event behind a ledger delta
type MovementReason string

const (
	ReasonOpening        MovementReason = "opening"
	ReasonPurchase       MovementReason = "purchase"
	ReasonSale           MovementReason = "sale"
	ReasonTransferIn     MovementReason = "transfer_in"
	ReasonTransferOut    MovementReason = "transfer_out"
	ReasonAdjustmentIn   MovementReason = "adjustment_in"
	ReasonAdjustmentOut  MovementReason = "adjustment_out"
	ReasonSaleReturn     MovementReason = "sale_return"
	ReasonPurchaseReturn MovementReason = "purchase_return"
	ReasonProductionIn   MovementReason = "production_in"
	ReasonProductionOut  MovementReason = "production_out"
	ReasonReversal       MovementReason = "reversal"
)

// IsValid checks if the reason is valid
func (r MovementReason) IsValid() bool {
	switch r {
	case ReasonOpening, ReasonPurchase, ReasonSale, ReasonTransferIn, ReasonTransferOut,
		ReasonAdjustmentIn, ReasonAdjustmentOut, ReasonSaleReturn, ReasonPurchaseReturn,
		ReasonProductionIn, ReasonProductionOut, ReasonReversal:
		return true
	}
	return false
}

// String returns the string representation
func (r MovementReason) String() string {
	return string(r)
}

// StockMovement is an append-only record of one applied delta
type StockMovement struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID    uuid.UUID       `gorm:"type:uuid;not null"`
	BatchID      uuid.UUID       `gorm:"type:uuid;not null"`
	Delta        decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Reason       MovementReason  `gorm:"type:varchar(30);not null"`
	DocumentID   *uuid.UUID      `gorm:"type:uuid;index"`
	LineID       *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// Key returns the stock key the movement was posted to
func (m *StockMovement) Key() StockKey {
	return StockKey{ProductID: m.ProductID, WarehouseID: m.WarehouseID, VariantID: m.VariantID, BatchID: m.BatchID}
}

// NewStockMovement records a delta applied to a stock level
func NewStockMovement(level *StockLevel, delta decimal.Decimal, reason MovementReason, ref DocumentRef) *StockMovement {
	return &StockMovement{
		ID:           uuid.New(),
		ProductID:    level.ProductID,
		WarehouseID:  level.WarehouseID,
		VariantID:    level.VariantID,
		BatchID:      level.BatchID,
		Delta:        delta,
		BalanceAfter: level.Quantity,
		Reason:       reason,
		DocumentID:   ref.DocumentID,
		LineID:       ref.LineID,
		CreatedAt:    time.Now(),
	}
}

// DocumentRef links a delta back to the document line that caused it
type DocumentRef struct {
	DocumentID *uuid.UUID
	LineID     *uuid.UUID
}

// StockChangedEvent is published after a delta is committed
type StockChangedEvent struct {
	shared.BaseDomainEvent
	Key     StockKey        `json:"key"`
	Delta   decimal.Decimal `json:"delta"`
	Balance decimal.Decimal `json:"balance"`
	Reason  MovementReason  `json:"reason"`
}

// EventTypeStockChanged is the event type of StockChangedEvent
const EventTypeStockChanged = "inventory.stock_changed"

// NewStockChangedEvent creates the event for a movement
func NewStockChangedEvent(m *StockMovement) *StockChangedEvent {
	return &StockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockChanged, "stock_level", m.ID),
		Key:             m.Key(),
		Delta:           m.Delta,
		Balance:         m.BalanceAfter,
		Reason:          m.Reason,
	}
}

// NetPosting is what a set of movements left behind on one stock key
type NetPosting struct {
	Key    StockKey
	LineID *uuid.UUID
	Delta  decimal.Decimal
}

type netKey struct {
	key  StockKey
	line uuid.UUID
}

// ReversalOf returns the deltas that undo the movements, grouped by stock
// key and line. Deltas that take stock away come first.
func ReversalOf(movements []StockMovement) []NetPosting {
	var order []netKey
	nets := make(map[netKey]*NetPosting)
	for i := range movements {
		m := &movements[i]
		k := netKey{key: m.Key()}
		if m.LineID != nil {
			k.line = *m.LineID
		}
		n, ok := nets[k]
		if !ok {
			n = &NetPosting{Key: k.key, LineID: m.LineID, Delta: decimal.Zero}
			nets[k] = n
			order = append(order, k)
		}
		n.Delta = n.Delta.Add(m.Delta)
	}

	var outs, ins []NetPosting
	for _, k := range order {
		n := *nets[k]
		if n.Delta.IsZero() {
			continue
		}
		n.Delta = n.Delta.Neg()
		if n.Delta.IsNegative() {
			outs = append(outs, n)
		} else {
			ins = append(ins, n)
		}
	}
	return append(outs, ins...)
}
