package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shortage describes one stock key that cannot cover a requested quantity
type Shortage struct {
	LineID      *uuid.UUID      `json:"line_id,omitempty"`
	ProductID   uuid.UUID       `json:"product_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	VariantID   uuid.UUID       `json:"variant_id"`
	BatchID     uuid.UUID       `json:"batch_id"`
	Requested   decimal.Decimal `json:"requested"`
	Available   decimal.Decimal `json:"available"`
}

// InsufficientStockError lists every shortage found while posting. It
// matches shared.ErrInsufficientStock with errors.Is and unwraps to a
// *shared.DomainError for transport mapping.
type InsufficientStockError struct {
	*shared.DomainError
	Shortages []Shortage `json:"shortages"`
}

// NewInsufficientStockError creates an error for the given shortages
func NewInsufficientStockError(shortages ...Shortage) *InsufficientStockError {
	e := &InsufficientStockError{Shortages: shortages}
	e.DomainError = shared.NewDomainError(shared.CodeInsufficientStock, e.describe())
	return e
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	return e.DomainError.Message
}

// Unwrap exposes the underlying domain error
func (e *InsufficientStockError) Unwrap() error {
	return e.DomainError
}

// ForLine returns a copy with every shortage attributed to the line
func (e *InsufficientStockError) ForLine(lineID uuid.UUID) *InsufficientStockError {
	out := make([]Shortage, len(e.Shortages))
	for i, s := range e.Shortages {
		id := lineID
		s.LineID = &id
		out[i] = s
	}
	return NewInsufficientStockError(out...)
}

func (e *InsufficientStockError) describe() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		ref := s.ProductID.String()
		if s.LineID != nil {
			ref = "line " + s.LineID.String()
		}
		parts = append(parts, fmt.Sprintf("%s: requested %s, available %s", ref, s.Requested, s.Available))
	}
	return fmt.Sprintf("Insufficient stock for %d item(s): %s", len(e.Shortages), strings.Join(parts, "; "))
}

// AsInsufficientStock extracts the shortage list from err
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}

// CombineShortages merges several shortage errors into one
func CombineShortages(errs []*InsufficientStockError) *InsufficientStockError {
	var all []Shortage
	for _, e := range errs {
		all = append(all, e.Shortages...)
	}
	return NewInsufficientStockError(all...)
}
