package finance

import (
	"context"

	"github.com/google/uuid"
)

// PaymentRepository persists payments
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindByIDForUpdate loads and row-locks a payment
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByDocument(ctx context.Context, documentID uuid.UUID) ([]Payment, error)
	FindByCashRegister(ctx context.Context, registerID uuid.UUID) ([]Payment, error)
	// MarkReversed sets reversed_at unless it is already set
	MarkReversed(ctx context.Context, payment *Payment) error
}

// GiftCardRepository persists gift cards
type GiftCardRepository interface {
	Create(ctx context.Context, card *GiftCard) error
	FindByID(ctx context.Context, id uuid.UUID) (*GiftCard, error)
	FindByCardNo(ctx context.Context, cardNo string) (*GiftCard, error)
	// SaveWithVersion persists the card if nobody else changed it meanwhile
	SaveWithVersion(ctx context.Context, card *GiftCard) error
}

// RewardPointRepository persists the points ledger
type RewardPointRepository interface {
	// GetOrCreateAccountForUpdate returns the locked account row
	GetOrCreateAccountForUpdate(ctx context.Context, customerID uuid.UUID) (*RewardPointAccount, error)
	SaveAccountWithVersion(ctx context.Context, account *RewardPointAccount) error
	CreateEntry(ctx context.Context, entry *RewardPointEntry) error
	FindEntries(ctx context.Context, customerID uuid.UUID) ([]RewardPointEntry, error)
	FindEntriesByDocument(ctx context.Context, documentID uuid.UUID) ([]RewardPointEntry, error)
	FindEntriesByPayment(ctx context.Context, paymentID uuid.UUID) ([]RewardPointEntry, error)
}
