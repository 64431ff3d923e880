package finance

import (
	"time"

	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RewardPointKind tells why points moved
type RewardPointKind string

const (
	RewardPointEarn     RewardPointKind = "earn"
	RewardPointRedeem   RewardPointKind = "redeem"
	RewardPointReversal RewardPointKind = "reversal"
)

// RewardPointEntry is a signed movement on a customer's points ledger
type RewardPointEntry struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind       RewardPointKind `gorm:"type:varchar(20);not null"`
	Points     decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	DocumentID *uuid.UUID      `gorm:"type:uuid;index"`
	PaymentID  *uuid.UUID      `gorm:"type:uuid;index"`
	ExpiresAt  *time.Time
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RewardPointEntry) TableName() string {
	return "reward_point_entries"
}

// IsExpired reports whether the entry no longer counts
func (e *RewardPointEntry) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

// RewardPointAccount is the per-customer row that serialises point
// debits. Balance is a cache refreshed on every change.
type RewardPointAccount struct {
	CustomerID uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Balance    decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	Version    int             `gorm:"not null;default:1"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RewardPointAccount) TableName() string {
	return "reward_point_accounts"
}

// PointBalance sums the unexpired entries
func PointBalance(entries []RewardPointEntry, now time.Time) decimal.Decimal {
	sum := decimal.Zero
	for i := range entries {
		if entries[i].IsExpired(now) {
			continue
		}
		sum = sum.Add(entries[i].Points)
	}
	return sum
}

// EarnedPoints returns the points a completed sale earns
func EarnedPoints(cfg setting.RewardPointSetting, grandTotal decimal.Decimal) decimal.Decimal {
	if !cfg.IsActive || !cfg.PerPointAmount.IsPositive() {
		return decimal.Zero
	}
	if grandTotal.LessThan(cfg.MinimumAmount) {
		return decimal.Zero
	}
	return grandTotal.Div(cfg.PerPointAmount).Floor()
}

// PointsForAmount returns the points needed to pay amount
func PointsForAmount(cfg setting.RewardPointSetting, amount decimal.Decimal) (decimal.Decimal, error) {
	if !cfg.RedeemValue.IsPositive() {
		return decimal.Zero, shared.NewValidationError("Reward point redemption is not configured")
	}
	return amount.DivRound(cfg.RedeemValue, 6), nil
}

// NewEarnEntry credits points earned by a document
func NewEarnEntry(customerID, documentID uuid.UUID, points decimal.Decimal, cfg setting.RewardPointSetting, now time.Time) *RewardPointEntry {
	e := &RewardPointEntry{
		ID:         uuid.New(),
		CustomerID: customerID,
		Kind:       RewardPointEarn,
		Points:     points,
		DocumentID: &documentID,
		CreatedAt:  now,
	}
	if cfg.Expiry > 0 {
		exp := now.Add(cfg.Expiry)
		e.ExpiresAt = &exp
	}
	return e
}

// NewRedeemEntry debits points spent on a payment
func NewRedeemEntry(customerID uuid.UUID, paymentID uuid.UUID, documentID *uuid.UUID, points decimal.Decimal, now time.Time) *RewardPointEntry {
	return &RewardPointEntry{
		ID:         uuid.New(),
		CustomerID: customerID,
		Kind:       RewardPointRedeem,
		Points:     points.Neg(),
		DocumentID: documentID,
		PaymentID:  &paymentID,
		CreatedAt:  now,
	}
}

// NewReversalEntry compensates an earlier entry
func NewReversalEntry(original *RewardPointEntry, now time.Time) *RewardPointEntry {
	return &RewardPointEntry{
		ID:         uuid.New(),
		CustomerID: original.CustomerID,
		Kind:       RewardPointReversal,
		Points:     original.Points.Neg(),
		DocumentID: original.DocumentID,
		PaymentID:  original.PaymentID,
		ExpiresAt:  original.ExpiresAt,
		CreatedAt:  now,
	}
}

// Refresh stores a new balance and bumps the version for a CAS save
func (a *RewardPointAccount) Refresh(balance decimal.Decimal, now time.Time) {
	a.Balance = balance
	a.UpdatedAt = now
	a.Version++
}

// Debit checks the balance covers points and records the new balance
func (a *RewardPointAccount) Debit(balance, points decimal.Decimal, now time.Time) error {
	if points.GreaterThan(balance) {
		return shared.NewDomainErrorf(shared.CodeInsufficientBalance,
			"Customer has %s reward points, %s required", balance, points)
	}
	a.Refresh(balance.Sub(points), now)
	return nil
}
