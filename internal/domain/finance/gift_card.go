package finance

import (
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GiftCard is a prepaid balance. Amount is the loaded value and Expense
// what has been spent from it.
type GiftCard struct {
	shared.BaseAggregateRoot
	CardNo      string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Expense     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	CustomerID  *uuid.UUID      `gorm:"type:uuid"`
	ExpiredDate *time.Time
	IsActive    bool `gorm:"not null"`
}

// TableName returns the table name for GORM
func (GiftCard) TableName() string {
	return "gift_cards"
}

// NewGiftCard issues a card loaded with amount
func NewGiftCard(cardNo string, amount decimal.Decimal, customerID *uuid.UUID, expiredDate *time.Time) (*GiftCard, error) {
	if strings.TrimSpace(cardNo) == "" {
		return nil, shared.NewValidationError("Gift card number is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Gift card amount must be positive")
	}
	return &GiftCard{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CardNo:            strings.TrimSpace(cardNo),
		Amount:            amount,
		Expense:           decimal.Zero,
		CustomerID:        customerID,
		ExpiredDate:       expiredDate,
		IsActive:          true,
	}, nil
}

// Balance returns what is left on the card
func (g *GiftCard) Balance() decimal.Decimal {
	return g.Amount.Sub(g.Expense)
}

// Debit spends amount from the card
func (g *GiftCard) Debit(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("Debit amount must be positive")
	}
	if !g.IsActive {
		return shared.NewValidationError("Gift card %s is not active", g.CardNo)
	}
	if g.ExpiredDate != nil && g.ExpiredDate.Before(now) {
		return shared.NewValidationError("Gift card %s has expired", g.CardNo)
	}
	if amount.GreaterThan(g.Balance()) {
		return shared.NewDomainErrorf(shared.CodeInsufficientBalance,
			"Gift card %s balance %s is below %s", g.CardNo, g.Balance(), amount)
	}
	g.Expense = g.Expense.Add(amount)
	g.UpdatedAt = now
	g.IncrementVersion()
	return nil
}

// Credit gives back a previously debited amount
func (g *GiftCard) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("Credit amount must be positive")
	}
	if amount.GreaterThan(g.Expense) {
		return shared.NewValidationError("Cannot credit %s to gift card %s, only %s was spent", amount, g.CardNo, g.Expense)
	}
	g.Expense = g.Expense.Sub(amount)
	g.UpdatedAt = time.Now()
	g.IncrementVersion()
	return nil
}
