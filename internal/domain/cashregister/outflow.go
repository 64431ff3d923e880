package cashregister

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutflowKind classifies cash taken out of the till
type OutflowKind string

const (
	OutflowExpense    OutflowKind = "expense"
	OutflowPayroll    OutflowKind = "payroll"
	OutflowWithdrawal OutflowKind = "withdrawal"
)

// IsValid checks if the kind is valid
func (k OutflowKind) IsValid() bool {
	return k == OutflowExpense || k == OutflowPayroll || k == OutflowWithdrawal
}

// Outflow is cash paid from the till outside of a document payment
type Outflow struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CashRegisterID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind           OutflowKind     `gorm:"type:varchar(20);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Note           string          `gorm:"type:text"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Outflow) TableName() string {
	return "cash_outflows"
}

// NewOutflow records cash leaving an open register
func NewOutflow(r *Register, kind OutflowKind, amount decimal.Decimal, note string) (*Outflow, error) {
	if err := r.EnsureOpen(); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("Unknown outflow kind %q", kind)
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Outflow amount must be positive")
	}
	return &Outflow{
		ID:             uuid.New(),
		CashRegisterID: r.ID,
		Kind:           kind,
		Amount:         amount,
		Note:           note,
		CreatedAt:      time.Now(),
	}, nil
}
