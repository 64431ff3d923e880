package inventory

import (
	"sort"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchOutboundStrategyType defines the type of batch outbound strategy
type BatchOutboundStrategyType string

const (
	// BatchOutboundStrategyTypeFIFO consumes the oldest received batch first
	BatchOutboundStrategyTypeFIFO BatchOutboundStrategyType = "FIFO"
	// BatchOutboundStrategyTypeFEFO consumes the batch closest to expiry first
	BatchOutboundStrategyTypeFEFO BatchOutboundStrategyType = "FEFO"
	// BatchOutboundStrategyTypeCustom orders batches with a caller supplied comparator
	BatchOutboundStrategyTypeCustom BatchOutboundStrategyType = "CUSTOM"
)

// IsValid checks if the strategy type is valid
func (t BatchOutboundStrategyType) IsValid() bool {
	switch t {
	case BatchOutboundStrategyTypeFIFO, BatchOutboundStrategyTypeFEFO, BatchOutboundStrategyTypeCustom:
		return true
	}
	return false
}

// BatchCandidate is a batch stock row eligible for an outgoing delta
type BatchCandidate struct {
	BatchID     uuid.UUID
	BatchNo     string
	ExpiredDate *time.Time
	ReceivedAt  time.Time
	Available   decimal.Decimal
}

// BatchComparator reports whether a should be consumed before b
type BatchComparator func(a, b BatchCandidate) bool

// BatchDeduction is the quantity taken from a single batch
type BatchDeduction struct {
	BatchID          uuid.UUID
	BatchNo          string
	Quantity         decimal.Decimal
	RemainingInBatch decimal.Decimal
}

// BatchOutboundResult is the complete plan for an outgoing quantity
type BatchOutboundResult struct {
	Deductions        []BatchDeduction
	TotalDeducted     decimal.Decimal
	RemainingQuantity decimal.Decimal
	FullyFulfilled    bool
}

// BatchOutboundStrategy selects batches for an outgoing quantity
type BatchOutboundStrategy interface {
	strategy.Strategy
	// StrategyType returns the batch outbound strategy type
	StrategyType() BatchOutboundStrategyType
	// SelectBatches plans deductions over batches with positive quantity
	SelectBatches(requestedQuantity decimal.Decimal, candidates []BatchCandidate) (*BatchOutboundResult, error)
}

// ComparatorStrategy orders candidates with a comparator and consumes them in order
type ComparatorStrategy struct {
	strategy.BaseStrategy
	kind BatchOutboundStrategyType
	less BatchComparator
}

// NewFEFOBatchOutboundStrategy creates the first-expired-first-out strategy.
// Batches without an expiry date go last; ties fall back to receipt order.
func NewFEFOBatchOutboundStrategy() *ComparatorStrategy {
	return &ComparatorStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fefo_batch_outbound",
			strategy.StrategyTypeBatch,
			"Selects batches closest to expiry first",
		),
		kind: BatchOutboundStrategyTypeFEFO,
		less: ExpiryFirst,
	}
}

// NewFIFOBatchOutboundStrategy creates the first-in-first-out strategy
func NewFIFOBatchOutboundStrategy() *ComparatorStrategy {
	return &ComparatorStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo_batch_outbound",
			strategy.StrategyTypeBatch,
			"Selects the oldest received batches first",
		),
		kind: BatchOutboundStrategyTypeFIFO,
		less: ReceivedFirst,
	}
}

// NewCustomBatchOutboundStrategy wraps a caller supplied comparator
func NewCustomBatchOutboundStrategy(name string, less BatchComparator) *ComparatorStrategy {
	return &ComparatorStrategy{
		BaseStrategy: strategy.NewBaseStrategy(name, strategy.StrategyTypeBatch, "Custom batch ordering"),
		kind:         BatchOutboundStrategyTypeCustom,
		less:         less,
	}
}

// NewBatchOutboundStrategy returns the built-in strategy for the type
func NewBatchOutboundStrategy(t BatchOutboundStrategyType) (BatchOutboundStrategy, error) {
	switch t {
	case BatchOutboundStrategyTypeFEFO:
		return NewFEFOBatchOutboundStrategy(), nil
	case BatchOutboundStrategyTypeFIFO:
		return NewFIFOBatchOutboundStrategy(), nil
	}
	return nil, shared.NewValidationError("Unknown batch outbound strategy %q", t)
}

// StrategyType returns the batch outbound strategy type
func (s *ComparatorStrategy) StrategyType() BatchOutboundStrategyType {
	return s.kind
}

// SelectBatches consumes candidates in comparator order
func (s *ComparatorStrategy) SelectBatches(requestedQuantity decimal.Decimal, candidates []BatchCandidate) (*BatchOutboundResult, error) {
	if !requestedQuantity.IsPositive() {
		return nil, shared.NewValidationError("Requested quantity must be positive")
	}

	available := make([]BatchCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Available.IsPositive() {
			available = append(available, c)
		}
	}
	sort.SliceStable(available, func(i, j int) bool {
		return s.less(available[i], available[j])
	})

	return calculateDeductions(requestedQuantity, available), nil
}

// ExpiryFirst orders by expiry date ascending, undated batches last
func ExpiryFirst(a, b BatchCandidate) bool {
	switch {
	case a.ExpiredDate != nil && b.ExpiredDate != nil:
		if !a.ExpiredDate.Equal(*b.ExpiredDate) {
			return a.ExpiredDate.Before(*b.ExpiredDate)
		}
	case a.ExpiredDate != nil:
		return true
	case b.ExpiredDate != nil:
		return false
	}
	return ReceivedFirst(a, b)
}

// ReceivedFirst orders by receipt time ascending
func ReceivedFirst(a, b BatchCandidate) bool {
	if !a.ReceivedAt.Equal(b.ReceivedAt) {
		return a.ReceivedAt.Before(b.ReceivedAt)
	}
	return a.BatchNo < b.BatchNo
}

func calculateDeductions(requested decimal.Decimal, ordered []BatchCandidate) *BatchOutboundResult {
	result := &BatchOutboundResult{
		Deductions:    make([]BatchDeduction, 0, len(ordered)),
		TotalDeducted: decimal.Zero,
	}
	remaining := requested

	for _, c := range ordered {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, c.Available)
		result.Deductions = append(result.Deductions, BatchDeduction{
			BatchID:          c.BatchID,
			BatchNo:          c.BatchNo,
			Quantity:         take,
			RemainingInBatch: c.Available.Sub(take),
		})
		result.TotalDeducted = result.TotalDeducted.Add(take)
		remaining = remaining.Sub(take)
	}

	result.RemainingQuantity = remaining
	result.FullyFulfilled = !remaining.IsPositive()
	return result
}
