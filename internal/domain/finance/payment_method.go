package finance

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is the tag of a payment's method detail
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"          // Cash in the till
	PaymentMethodCard         PaymentMethod = "card"          // Credit or debit card
	PaymentMethodCheque       PaymentMethod = "cheque"        // Cheque
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer" // Bank transfer
	PaymentMethodGiftCard     PaymentMethod = "gift_card"     // Store gift card
	PaymentMethodPayPal       PaymentMethod = "paypal"        // PayPal
	PaymentMethodPoints       PaymentMethod = "points"        // Customer reward points
	PaymentMethodInstallment  PaymentMethod = "installment"   // Installment plan
	PaymentMethodDeposit      PaymentMethod = "deposit"       // Customer deposit
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodCheque, PaymentMethodBankTransfer,
		PaymentMethodGiftCard, PaymentMethodPayPal, PaymentMethodPoints, PaymentMethodInstallment,
		PaymentMethodDeposit:
		return true
	}
	return false
}

// MethodDetail is the method-specific part of a payment. Each method has
// exactly one detail type, so the method is derived from the detail.
type MethodDetail interface {
	Method() PaymentMethod
	Validate() error
}

// CashDetail carries nothing beyond the amount
type CashDetail struct{}

// CardDetail describes a card payment
type CardDetail struct {
	Brand          string `json:"brand,omitempty"`
	Last4          string `json:"last4"`
	HolderName     string `json:"holder_name,omitempty"`
	TransactionRef string `json:"transaction_ref,omitempty"`
}

// ChequeDetail describes a cheque payment
type ChequeDetail struct {
	ChequeNo string `json:"cheque_no"`
	Bank     string `json:"bank,omitempty"`
}

// BankTransferDetail describes a bank transfer
type BankTransferDetail struct {
	Reference string `json:"reference"`
	Bank      string `json:"bank,omitempty"`
}

// GiftCardDetail references the card being debited
type GiftCardDetail struct {
	GiftCardID uuid.UUID `json:"gift_card_id"`
}

// PayPalDetail describes a PayPal payment
type PayPalDetail struct {
	TransactionID string `json:"transaction_id"`
	PayerEmail    string `json:"payer_email,omitempty"`
}

// PointsDetail records the points redeemed. Points is filled by the
// allocator from the configured redeem value.
type PointsDetail struct {
	Points decimal.Decimal `json:"points"`
}

// InstallmentDetail describes an installment plan payment
type InstallmentDetail struct {
	PlanReference string `json:"plan_reference"`
	Installments  int    `json:"installments"`
}

// DepositDetail draws on a customer deposit
type DepositDetail struct {
	Reference string `json:"reference,omitempty"`
}

func (CashDetail) Method() PaymentMethod         { return PaymentMethodCash }
func (CardDetail) Method() PaymentMethod         { return PaymentMethodCard }
func (ChequeDetail) Method() PaymentMethod       { return PaymentMethodCheque }
func (BankTransferDetail) Method() PaymentMethod { return PaymentMethodBankTransfer }
func (GiftCardDetail) Method() PaymentMethod     { return PaymentMethodGiftCard }
func (PayPalDetail) Method() PaymentMethod       { return PaymentMethodPayPal }
func (PointsDetail) Method() PaymentMethod       { return PaymentMethodPoints }
func (InstallmentDetail) Method() PaymentMethod  { return PaymentMethodInstallment }
func (DepositDetail) Method() PaymentMethod      { return PaymentMethodDeposit }

func (CashDetail) Validate() error { return nil }

func (d CardDetail) Validate() error {
	if len(d.Last4) != 4 {
		return shared.NewValidationError("Card payment requires the last 4 digits")
	}
	return nil
}

func (d ChequeDetail) Validate() error {
	if strings.TrimSpace(d.ChequeNo) == "" {
		return shared.NewValidationError("Cheque payment requires a cheque number")
	}
	return nil
}

func (d BankTransferDetail) Validate() error {
	if strings.TrimSpace(d.Reference) == "" {
		return shared.NewValidationError("Bank transfer requires a reference")
	}
	return nil
}

func (d GiftCardDetail) Validate() error {
	if d.GiftCardID == uuid.Nil {
		return shared.NewValidationError("Gift card payment requires a gift card")
	}
	return nil
}

func (d PayPalDetail) Validate() error {
	if strings.TrimSpace(d.TransactionID) == "" {
		return shared.NewValidationError("PayPal payment requires a transaction id")
	}
	return nil
}

func (d PointsDetail) Validate() error {
	if d.Points.IsNegative() {
		return shared.NewValidationError("Points cannot be negative")
	}
	return nil
}

func (d InstallmentDetail) Validate() error {
	if d.Installments <= 0 {
		return shared.NewValidationError("Installment payment requires a positive number of installments")
	}
	return nil
}

func (DepositDetail) Validate() error { return nil }

// DetailFor returns an empty detail of the method's type
func DetailFor(m PaymentMethod) (MethodDetail, error) {
	switch m {
	case PaymentMethodCash:
		return &CashDetail{}, nil
	case PaymentMethodCard:
		return &CardDetail{}, nil
	case PaymentMethodCheque:
		return &ChequeDetail{}, nil
	case PaymentMethodBankTransfer:
		return &BankTransferDetail{}, nil
	case PaymentMethodGiftCard:
		return &GiftCardDetail{}, nil
	case PaymentMethodPayPal:
		return &PayPalDetail{}, nil
	case PaymentMethodPoints:
		return &PointsDetail{}, nil
	case PaymentMethodInstallment:
		return &InstallmentDetail{}, nil
	case PaymentMethodDeposit:
		return &DepositDetail{}, nil
	}
	return nil, shared.NewValidationError("Unknown payment method %q", m)
}

// DecodeDetail parses a JSON detail for the method
func DecodeDetail(m PaymentMethod, raw []byte) (MethodDetail, error) {
	d, err := DetailFor(m)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, d); err != nil {
			return nil, shared.NewValidationError("Invalid %s payment detail: %v", m, err)
		}
	}
	return deref(d), nil
}

func deref(d MethodDetail) MethodDetail {
	switch v := d.(type) {
	case *CashDetail:
		return *v
	case *CardDetail:
		return *v
	case *ChequeDetail:
		return *v
	case *BankTransferDetail:
		return *v
	case *GiftCardDetail:
		return *v
	case *PayPalDetail:
		return *v
	case *PointsDetail:
		return *v
	case *InstallmentDetail:
		return *v
	case *DepositDetail:
		return *v
	}
	return d
}

// DetailColumn stores a MethodDetail as a tagged JSON document
type DetailColumn struct {
	MethodDetail
}

type detailEnvelope struct {
	Method PaymentMethod   `json:"method"`
	Data   json.RawMessage `json:"data"`
}

// Value implements driver.Valuer
func (c DetailColumn) Value() (driver.Value, error) {
	if c.MethodDetail == nil {
		return nil, nil
	}
	data, err := json.Marshal(c.MethodDetail)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(detailEnvelope{Method: c.Method(), Data: data})
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (c *DetailColumn) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		c.MethodDetail = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("payment detail: unsupported source type %T", src)
	}
	var env detailEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("payment detail: %w", err)
	}
	d, err := DecodeDetail(env.Method, env.Data)
	if err != nil {
		return fmt.Errorf("payment detail: %w", err)
	}
	c.MethodDetail = d
	return nil
}

// MarshalJSON renders the detail itself
func (c DetailColumn) MarshalJSON() ([]byte, error) {
	if c.MethodDetail == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c.MethodDetail)
}
