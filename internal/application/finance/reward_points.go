package finance

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RewardPointLedger earns, redeems and reverses customer reward points.
// Every change goes through the locked account row so concurrent debits
// of the same customer serialise.
type RewardPointLedger struct {
	cfg setting.RewardPointSetting
}

// NewRewardPointLedger creates a ledger for the reward point settings
func NewRewardPointLedger(cfg setting.RewardPointSetting) *RewardPointLedger {
	return &RewardPointLedger{cfg: cfg}
}

// Earn credits the points a completed sale earns. It does nothing when the
// document already earned points, so a retried completion earns once.
func (l *RewardPointLedger) Earn(ctx context.Context, repos uow.Repositories, doc *trade.Document) (decimal.Decimal, error) {
	if doc.Type != trade.DocumentTypeSale || doc.CustomerID == nil {
		return decimal.Zero, nil
	}
	points := finance.EarnedPoints(l.cfg, doc.GrandTotal)
	if !points.IsPositive() {
		return decimal.Zero, nil
	}
	existing, err := repos.RewardPoints().FindEntriesByDocument(ctx, doc.ID)
	if err != nil {
		return decimal.Zero, err
	}
	for i := range existing {
		if existing[i].Kind == finance.RewardPointEarn {
			return decimal.Zero, nil
		}
	}

	now := time.Now()
	account, err := repos.RewardPoints().GetOrCreateAccountForUpdate(ctx, *doc.CustomerID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := repos.RewardPoints().CreateEntry(ctx, finance.NewEarnEntry(*doc.CustomerID, doc.ID, points, l.cfg, now)); err != nil {
		return decimal.Zero, err
	}
	if err := l.refresh(ctx, repos, account, now); err != nil {
		return decimal.Zero, err
	}
	return points, nil
}

// Redeem debits points for a payment
func (l *RewardPointLedger) Redeem(ctx context.Context, repos uow.Repositories, customerID, paymentID uuid.UUID, documentID *uuid.UUID, points decimal.Decimal) error {
	now := time.Now()
	account, err := repos.RewardPoints().GetOrCreateAccountForUpdate(ctx, customerID)
	if err != nil {
		return err
	}
	balance, err := l.balance(ctx, repos, customerID, now)
	if err != nil {
		return err
	}
	if err := account.Debit(balance, points, now); err != nil {
		return err
	}
	if err := repos.RewardPoints().CreateEntry(ctx, finance.NewRedeemEntry(customerID, paymentID, documentID, points, now)); err != nil {
		return err
	}
	return repos.RewardPoints().SaveAccountWithVersion(ctx, account)
}

// ReverseDocument compensates the points a document earned. Earlier
// reversals make it a no-op.
func (l *RewardPointLedger) ReverseDocument(ctx context.Context, repos uow.Repositories, documentID uuid.UUID) error {
	entries, err := repos.RewardPoints().FindEntriesByDocument(ctx, documentID)
	if err != nil {
		return err
	}
	var earned []finance.RewardPointEntry
	for _, e := range entries {
		switch {
		case e.Kind == finance.RewardPointReversal && e.PaymentID == nil:
			return nil
		case e.Kind == finance.RewardPointEarn:
			earned = append(earned, e)
		}
	}
	return l.reverse(ctx, repos, earned)
}

// ReversePayment gives back the points a payment redeemed
func (l *RewardPointLedger) ReversePayment(ctx context.Context, repos uow.Repositories, paymentID uuid.UUID) error {
	entries, err := repos.RewardPoints().FindEntriesByPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	var redeemed []finance.RewardPointEntry
	for _, e := range entries {
		switch e.Kind {
		case finance.RewardPointReversal:
			return nil
		case finance.RewardPointRedeem:
			redeemed = append(redeemed, e)
		}
	}
	return l.reverse(ctx, repos, redeemed)
}

// Balance returns the unexpired points of a customer
func (l *RewardPointLedger) Balance(ctx context.Context, repos uow.Repositories, customerID uuid.UUID) (decimal.Decimal, error) {
	return l.balance(ctx, repos, customerID, time.Now())
}

func (l *RewardPointLedger) reverse(ctx context.Context, repos uow.Repositories, entries []finance.RewardPointEntry) error {
	now := time.Now()
	accounts := make(map[uuid.UUID]*finance.RewardPointAccount)
	for i := range entries {
		e := &entries[i]
		if _, ok := accounts[e.CustomerID]; !ok {
			account, err := repos.RewardPoints().GetOrCreateAccountForUpdate(ctx, e.CustomerID)
			if err != nil {
				return err
			}
			accounts[e.CustomerID] = account
		}
		if err := repos.RewardPoints().CreateEntry(ctx, finance.NewReversalEntry(e, now)); err != nil {
			return err
		}
	}
	for _, account := range accounts {
		if err := l.refresh(ctx, repos, account, now); err != nil {
			return err
		}
	}
	return nil
}

func (l *RewardPointLedger) refresh(ctx context.Context, repos uow.Repositories, account *finance.RewardPointAccount, now time.Time) error {
	balance, err := l.balance(ctx, repos, account.CustomerID, now)
	if err != nil {
		return err
	}
	account.Refresh(balance, now)
	return repos.RewardPoints().SaveAccountWithVersion(ctx, account)
}

func (l *RewardPointLedger) balance(ctx context.Context, repos uow.Repositories, customerID uuid.UUID, now time.Time) (decimal.Decimal, error) {
	entries, err := repos.RewardPoints().FindEntries(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	return finance.PointBalance(entries, now), nil
}

// pointsFor converts a payment amount to the points it costs
func (l *RewardPointLedger) pointsFor(amount decimal.Decimal) (decimal.Decimal, error) {
	if !l.cfg.IsActive {
		return decimal.Zero, shared.NewValidationError("Reward points are not enabled")
	}
	return finance.PointsForAmount(l.cfg, amount)
}
