// Package cashregister models till sessions that bound POS sales and cash
// movements between opening and closing.
package cashregister

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the session state
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Register is one till session of a user in a warehouse. At most one
// OPEN register exists per user and warehouse; the database enforces it
// with a partial unique index on OpenKey.
type Register struct {
	shared.BaseAggregateRoot
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status      Status          `gorm:"type:varchar(10);not null"`
	CashInHand  decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	// OpenKey is user/warehouse while open and NULL once closed
	OpenKey        *string             `gorm:"type:varchar(80);uniqueIndex"`
	ClosingBalance decimal.NullDecimal `gorm:"type:decimal(20,4)"`
	ActualCash     decimal.NullDecimal `gorm:"type:decimal(20,4)"`
	Variance       decimal.NullDecimal `gorm:"type:decimal(20,4)"`
	Note           string              `gorm:"type:text"`
	OpenedAt       time.Time           `gorm:"not null"`
	ClosedAt       *time.Time
}

// TableName returns the table name for GORM
func (Register) TableName() string {
	return "cash_registers"
}

// OpenKeyFor returns the uniqueness key of an open session
func OpenKeyFor(userID, warehouseID uuid.UUID) string {
	return userID.String() + "/" + warehouseID.String()
}

// Open starts a session with the counted opening cash
func Open(userID, warehouseID uuid.UUID, cashInHand decimal.Decimal) (*Register, error) {
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("User is required")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewValidationError("Warehouse is required")
	}
	if cashInHand.IsNegative() {
		return nil, shared.NewValidationError("Opening cash cannot be negative")
	}
	key := OpenKeyFor(userID, warehouseID)
	r := &Register{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		WarehouseID:       warehouseID,
		Status:            StatusOpen,
		CashInHand:        cashInHand,
		OpenKey:           &key,
	}
	r.OpenedAt = r.CreatedAt
	return r, nil
}

// IsOpen reports whether the session accepts activity
func (r *Register) IsOpen() bool {
	return r.Status == StatusOpen
}

// EnsureOpen fails when the session is closed
func (r *Register) EnsureOpen() error {
	if !r.IsOpen() {
		return shared.NewDomainErrorf(shared.CodeInvalidStateTransition, "Cash register %s is closed", r.ID)
	}
	return nil
}

// Close records the counted cash against the expected balance. The
// variance is reported as is.
func (r *Register) Close(summary Summary, actualCash decimal.Decimal, note string) error {
	if !r.IsOpen() {
		return shared.NewInvalidTransitionError(string(r.Status), string(StatusClosed))
	}
	if actualCash.IsNegative() {
		return shared.NewValidationError("Counted cash cannot be negative")
	}
	now := time.Now()
	r.Status = StatusClosed
	r.OpenKey = nil
	r.ClosingBalance = decimal.NewNullDecimal(summary.ClosingBalance)
	r.ActualCash = decimal.NewNullDecimal(actualCash)
	r.Variance = decimal.NewNullDecimal(actualCash.Sub(summary.ClosingBalance))
	r.Note = note
	r.ClosedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// Summary is the cash position of a session
type Summary struct {
	RegisterID     uuid.UUID       `json:"register_id"`
	CashInHand     decimal.Decimal `json:"cash_in_hand"`
	CashSales      decimal.Decimal `json:"cash_sales"`
	CashPaidOut    decimal.Decimal `json:"cash_paid_out"`
	Outflows       decimal.Decimal `json:"outflows"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// Summarize computes the expected closing balance from signed cash
// payment effects and recorded outflows.
func Summarize(r *Register, cashEffects []decimal.Decimal, outflows []Outflow) Summary {
	s := Summary{
		RegisterID:  r.ID,
		CashInHand:  r.CashInHand,
		CashSales:   decimal.Zero,
		CashPaidOut: decimal.Zero,
		Outflows:    decimal.Zero,
	}
	for _, e := range cashEffects {
		if e.IsNegative() {
			s.CashPaidOut = s.CashPaidOut.Add(e.Neg())
		} else {
			s.CashSales = s.CashSales.Add(e)
		}
	}
	for _, o := range outflows {
		s.Outflows = s.Outflows.Add(o.Amount)
	}
	s.ClosingBalance = s.CashInHand.Add(s.CashSales).Sub(s.CashPaidOut).Sub(s.Outflows)
	return s
}
