package cashregister

import (
	"time"

	"github.com/erp/backoffice/internal/domain/cashregister"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenRegisterRequest opens a session with the counted opening cash
type OpenRegisterRequest struct {
	UserID      uuid.UUID       `json:"user_id" binding:"required"`
	WarehouseID uuid.UUID       `json:"warehouse_id" binding:"required"`
	CashInHand  decimal.Decimal `json:"cash_in_hand"`
}

// OutflowRequest records cash leaving the till
type OutflowRequest struct {
	RegisterID uuid.UUID                `json:"-"`
	Kind       cashregister.OutflowKind `json:"kind" binding:"required,oneof=expense payroll withdrawal"`
	Amount     decimal.Decimal          `json:"amount"`
	Note       string                   `json:"note" binding:"max=500"`
}

// CloseRegisterRequest closes a session with the counted cash
type CloseRegisterRequest struct {
	RegisterID uuid.UUID       `json:"-"`
	ActualCash decimal.Decimal `json:"actual_cash"`
	Note       string          `json:"note" binding:"max=500"`
}

// RegisterResponse is a cash register session in API responses
type RegisterResponse struct {
	ID             uuid.UUID           `json:"id"`
	UserID         uuid.UUID           `json:"user_id"`
	WarehouseID    uuid.UUID           `json:"warehouse_id"`
	Status         cashregister.Status `json:"status"`
	CashInHand     decimal.Decimal     `json:"cash_in_hand"`
	ClosingBalance *decimal.Decimal    `json:"closing_balance,omitempty"`
	ActualCash     *decimal.Decimal    `json:"actual_cash,omitempty"`
	Variance       *decimal.Decimal    `json:"variance,omitempty"`
	Note           string              `json:"note,omitempty"`
	OpenedAt       time.Time           `json:"opened_at"`
	ClosedAt       *time.Time          `json:"closed_at,omitempty"`
}

// ToRegisterResponse converts a register to its response
func ToRegisterResponse(r *cashregister.Register) RegisterResponse {
	return RegisterResponse{
		ID:             r.ID,
		UserID:         r.UserID,
		WarehouseID:    r.WarehouseID,
		Status:         r.Status,
		CashInHand:     r.CashInHand,
		ClosingBalance: nullable(r.ClosingBalance),
		ActualCash:     nullable(r.ActualCash),
		Variance:       nullable(r.Variance),
		Note:           r.Note,
		OpenedAt:       r.OpenedAt,
		ClosedAt:       r.ClosedAt,
	}
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
