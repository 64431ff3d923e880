package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentFlow tells which way the money moves
type PaymentFlow string

const (
	// FlowIncoming is money received, e.g. from a customer
	FlowIncoming PaymentFlow = "incoming"
	// FlowOutgoing is money paid out, e.g. to a supplier or as a refund
	FlowOutgoing PaymentFlow = "outgoing"
)

// FlowFor returns the flow of payments against a document type
func FlowFor(t trade.DocumentType) PaymentFlow {
	switch t {
	case trade.DocumentTypePurchase, trade.DocumentTypeSaleReturn:
		return FlowOutgoing
	}
	return FlowIncoming
}

// Payment settles part of a document, or stands alone as a deposit. A
// reversal is a separate payment with a negated amount.
type Payment struct {
	shared.BaseEntity
	Reference      string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	DocumentID     *uuid.UUID      `gorm:"type:uuid;index"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index"`
	UserID         *uuid.UUID      `gorm:"type:uuid"`
	CashRegisterID *uuid.UUID      `gorm:"type:uuid;index"`
	Flow           PaymentFlow     `gorm:"type:varchar(20);not null"`
	Method         PaymentMethod   `gorm:"type:varchar(30);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Detail         DetailColumn    `gorm:"type:text"`
	ReversalOfID   *uuid.UUID      `gorm:"type:uuid;index"`
	ReversedAt     *time.Time
	Note           string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// PaymentInput is what a caller provides to record a payment
type PaymentInput struct {
	DocumentID     *uuid.UUID
	CustomerID     *uuid.UUID
	UserID         *uuid.UUID
	CashRegisterID *uuid.UUID
	Flow           PaymentFlow
	Amount         decimal.Decimal
	Detail         MethodDetail
	Note           string
}

// NewPayment validates and creates a payment
func NewPayment(in PaymentInput) (*Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, shared.NewValidationError("Payment amount must be positive")
	}
	if in.Detail == nil {
		return nil, shared.NewValidationError("Payment method is required")
	}
	if err := in.Detail.Validate(); err != nil {
		return nil, err
	}
	flow := in.Flow
	if flow == "" {
		flow = FlowIncoming
	}
	base := shared.NewBaseEntity()
	return &Payment{
		BaseEntity:     base,
		Reference:      paymentReference(base.ID, base.CreatedAt),
		DocumentID:     in.DocumentID,
		CustomerID:     in.CustomerID,
		UserID:         in.UserID,
		CashRegisterID: in.CashRegisterID,
		Flow:           flow,
		Method:         in.Detail.Method(),
		Amount:         in.Amount,
		Detail:         DetailColumn{MethodDetail: in.Detail},
		Note:           in.Note,
	}, nil
}

func paymentReference(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("PAY-%s-%s", at.Format("20060102"), strings.ToUpper(id.String()[:8]))
}

// IsReversal reports whether the payment compensates another one
func (p *Payment) IsReversal() bool {
	return p.ReversalOfID != nil
}

// IsReversed reports whether a compensating payment exists
func (p *Payment) IsReversed() bool {
	return p.ReversedAt != nil
}

// CountsTowardsPaid reports whether the payment is part of the paid sum
func (p *Payment) CountsTowardsPaid() bool {
	return !p.IsReversal() && !p.IsReversed()
}

// Reverse marks the payment reversed and returns the compensating payment
func (p *Payment) Reverse(userID *uuid.UUID, note string) (*Payment, error) {
	if p.IsReversal() {
		return nil, shared.NewValidationError("A reversal cannot be reversed")
	}
	if p.IsReversed() {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidStateTransition, "Payment %s is already reversed", p.Reference)
	}
	now := time.Now()
	p.ReversedAt = &now
	p.UpdatedAt = now

	base := shared.NewBaseEntity()
	id := p.ID
	return &Payment{
		BaseEntity:     base,
		Reference:      paymentReference(base.ID, base.CreatedAt),
		DocumentID:     p.DocumentID,
		CustomerID:     p.CustomerID,
		UserID:         userID,
		CashRegisterID: p.CashRegisterID,
		Flow:           p.Flow,
		Method:         p.Method,
		Amount:         p.Amount.Neg(),
		Detail:         p.Detail,
		ReversalOfID:   &id,
		Note:           note,
	}, nil
}

// CashEffect is the signed effect on a till: incoming cash adds, outgoing
// cash subtracts, and reversals carry their negated amount.
func (p *Payment) CashEffect() decimal.Decimal {
	if p.Method != PaymentMethodCash {
		return decimal.Zero
	}
	if p.Flow == FlowOutgoing {
		return p.Amount.Neg()
	}
	return p.Amount
}

// PaidSum sums the payments that count towards a document's paid amount
func PaidSum(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for i := range payments {
		if payments[i].CountsTowardsPaid() {
			sum = sum.Add(payments[i].Amount)
		}
	}
	return sum
}
