package finance

import (
	"encoding/json"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocateRequest records a payment against a document
type AllocateRequest struct {
	DocumentID     uuid.UUID
	Amount         decimal.Decimal
	Detail         finance.MethodDetail
	UserID         *uuid.UUID
	CashRegisterID *uuid.UUID
	Note           string
}

// Validate checks the shape of the request
func (r AllocateRequest) Validate() error {
	if r.DocumentID == uuid.Nil {
		return shared.NewValidationError("Document is required")
	}
	if !r.Amount.IsPositive() {
		return shared.NewValidationError("Payment amount must be positive")
	}
	if r.Detail == nil {
		return shared.NewValidationError("Payment method is required")
	}
	return r.Detail.Validate()
}

// AllocatePaymentRequest is the JSON form of a payment. Detail is decoded
// according to Method.
type AllocatePaymentRequest struct {
	Amount         decimal.Decimal       `json:"amount"`
	Method         finance.PaymentMethod `json:"method" binding:"required"`
	Detail         json.RawMessage       `json:"detail"`
	CashRegisterID *uuid.UUID            `json:"cash_register_id"`
	Note           string                `json:"note" binding:"max=500"`
}

// ToAllocateRequest decodes the method detail and builds the request
func (r AllocatePaymentRequest) ToAllocateRequest(documentID uuid.UUID, userID *uuid.UUID) (AllocateRequest, error) {
	detail, err := finance.DecodeDetail(r.Method, r.Detail)
	if err != nil {
		return AllocateRequest{}, err
	}
	return AllocateRequest{
		DocumentID:     documentID,
		Amount:         r.Amount,
		Detail:         detail,
		UserID:         userID,
		CashRegisterID: r.CashRegisterID,
		Note:           r.Note,
	}, nil
}

// ReverseRequest reverses a payment. CashRegisterID names the open till a
// cash refund is paid from.
type ReverseRequest struct {
	PaymentID      uuid.UUID  `json:"-"`
	UserID         *uuid.UUID `json:"-"`
	CashRegisterID *uuid.UUID `json:"cash_register_id"`
	Note           string     `json:"note" binding:"max=500"`
}

// PaymentResponse is a payment in API responses
type PaymentResponse struct {
	ID             uuid.UUID             `json:"id"`
	Reference      string                `json:"reference"`
	DocumentID     *uuid.UUID            `json:"document_id,omitempty"`
	CustomerID     *uuid.UUID            `json:"customer_id,omitempty"`
	CashRegisterID *uuid.UUID            `json:"cash_register_id,omitempty"`
	Flow           finance.PaymentFlow   `json:"flow"`
	Method         finance.PaymentMethod `json:"method"`
	Amount         decimal.Decimal       `json:"amount"`
	Detail         json.RawMessage       `json:"detail"`
	ReversalOfID   *uuid.UUID            `json:"reversal_of_id,omitempty"`
	ReversedAt     *time.Time            `json:"reversed_at,omitempty"`
	Note           string                `json:"note,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// ToPaymentResponse converts a payment to its response
func ToPaymentResponse(p *finance.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		Reference:      p.Reference,
		DocumentID:     p.DocumentID,
		CustomerID:     p.CustomerID,
		CashRegisterID: p.CashRegisterID,
		Flow:           p.Flow,
		Method:         p.Method,
		Amount:         p.Amount,
		Detail:         detailJSON(p.Detail.MethodDetail),
		ReversalOfID:   p.ReversalOfID,
		ReversedAt:     p.ReversedAt,
		Note:           p.Note,
		CreatedAt:      p.CreatedAt,
	}
}

// detailJSON renders the method detail as its JSON object, null when absent
func detailJSON(d finance.MethodDetail) json.RawMessage {
	if d == nil {
		return json.RawMessage("null")
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}

// ToPaymentResponses converts a slice of payments
func ToPaymentResponses(payments []finance.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out
}
