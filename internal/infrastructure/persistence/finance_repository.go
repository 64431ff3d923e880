package persistence

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements finance.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create inserts a payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *finance.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Payment, error) {
	var payment finance.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

// FindByIDForUpdate finds and row-locks a payment
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.Payment, error) {
	var payment finance.Payment
	if err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		First(&payment, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

// FindByDocument lists the payments of a document, reversals included
func (r *GormPaymentRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]finance.Payment, error) {
	var payments []finance.Payment
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC, id ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// FindByCashRegister lists the payments taken at a register
func (r *GormPaymentRepository) FindByCashRegister(ctx context.Context, registerID uuid.UUID) ([]finance.Payment, error) {
	var payments []finance.Payment
	if err := r.db.WithContext(ctx).
		Where("cash_register_id = ?", registerID).
		Order("created_at ASC, id ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// MarkReversed stamps reversed_at once. A payment that is already reversed
// in the database fails with INVALID_STATE_TRANSITION.
func (r *GormPaymentRepository) MarkReversed(ctx context.Context, payment *finance.Payment) error {
	now := time.Now()
	if payment.ReversedAt != nil {
		now = *payment.ReversedAt
	}
	result := r.db.WithContext(ctx).
		Model(&finance.Payment{}).
		Where("id = ? AND reversed_at IS NULL", payment.ID).
		Updates(map[string]interface{}{
			"reversed_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorf(shared.CodeInvalidStateTransition, "Payment %s is already reversed", payment.Reference)
	}
	payment.ReversedAt = &now
	payment.UpdatedAt = now
	return nil
}

// GormGiftCardRepository implements finance.GiftCardRepository using GORM
type GormGiftCardRepository struct {
	db *gorm.DB
}

// NewGormGiftCardRepository creates a new GormGiftCardRepository
func NewGormGiftCardRepository(db *gorm.DB) *GormGiftCardRepository {
	return &GormGiftCardRepository{db: db}
}

// Create inserts a gift card
func (r *GormGiftCardRepository) Create(ctx context.Context, card *finance.GiftCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

// FindByID finds a gift card by its ID
func (r *GormGiftCardRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.GiftCard, error) {
	var card finance.GiftCard
	if err := r.db.WithContext(ctx).First(&card, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &card, nil
}

// FindByCardNo finds a gift card by its number
func (r *GormGiftCardRepository) FindByCardNo(ctx context.Context, cardNo string) (*finance.GiftCard, error) {
	var card finance.GiftCard
	if err := r.db.WithContext(ctx).Where("card_no = ?", cardNo).First(&card).Error; err != nil {
		return nil, notFound(err)
	}
	return &card, nil
}

// SaveWithVersion persists a card whose version Debit or Credit bumped
func (r *GormGiftCardRepository) SaveWithVersion(ctx context.Context, card *finance.GiftCard) error {
	result := r.db.WithContext(ctx).
		Model(&finance.GiftCard{}).
		Where("id = ? AND version = ?", card.ID, card.Version-1).
		Updates(map[string]interface{}{
			"expense":    card.Expense,
			"is_active":  card.IsActive,
			"version":    card.Version,
			"updated_at": card.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorf(shared.CodeConcurrencyConflict, "Gift card %s was modified by another transaction", card.CardNo)
	}
	return nil
}

// GormRewardPointRepository implements finance.RewardPointRepository using GORM
type GormRewardPointRepository struct {
	db *gorm.DB
}

// NewGormRewardPointRepository creates a new GormRewardPointRepository
func NewGormRewardPointRepository(db *gorm.DB) *GormRewardPointRepository {
	return &GormRewardPointRepository{db: db}
}

// GetOrCreateAccountForUpdate inserts an empty account when missing, then
// locks it
func (r *GormRewardPointRepository) GetOrCreateAccountForUpdate(ctx context.Context, customerID uuid.UUID) (*finance.RewardPointAccount, error) {
	fresh := &finance.RewardPointAccount{
		CustomerID: customerID,
		Balance:    decimal.Zero,
		Version:    1,
		UpdatedAt:  time.Now(),
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoNothing: true,
		}).
		Create(fresh).Error; err != nil {
		return nil, err
	}

	var account finance.RewardPointAccount
	if err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		First(&account, "customer_id = ?", customerID).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

// SaveAccountWithVersion persists an account whose version Refresh bumped
func (r *GormRewardPointRepository) SaveAccountWithVersion(ctx context.Context, account *finance.RewardPointAccount) error {
	result := r.db.WithContext(ctx).
		Model(&finance.RewardPointAccount{}).
		Where("customer_id = ? AND version = ?", account.CustomerID, account.Version-1).
		Updates(map[string]interface{}{
			"balance":    account.Balance,
			"version":    account.Version,
			"updated_at": account.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "Reward point account was modified by another transaction")
	}
	return nil
}

// CreateEntry appends a points entry
func (r *GormRewardPointRepository) CreateEntry(ctx context.Context, entry *finance.RewardPointEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindEntries lists the entries of a customer, oldest first
func (r *GormRewardPointRepository) FindEntries(ctx context.Context, customerID uuid.UUID) ([]finance.RewardPointEntry, error) {
	return r.findEntries(ctx, "customer_id = ?", customerID)
}

// FindEntriesByDocument lists the entries a document earned or redeemed
func (r *GormRewardPointRepository) FindEntriesByDocument(ctx context.Context, documentID uuid.UUID) ([]finance.RewardPointEntry, error) {
	return r.findEntries(ctx, "document_id = ?", documentID)
}

// FindEntriesByPayment lists the entries a payment redeemed
func (r *GormRewardPointRepository) FindEntriesByPayment(ctx context.Context, paymentID uuid.UUID) ([]finance.RewardPointEntry, error) {
	return r.findEntries(ctx, "payment_id = ?", paymentID)
}

func (r *GormRewardPointRepository) findEntries(ctx context.Context, cond string, arg uuid.UUID) ([]finance.RewardPointEntry, error) {
	var entries []finance.RewardPointEntry
	if err := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

var (
	_ finance.PaymentRepository     = (*GormPaymentRepository)(nil)
	_ finance.GiftCardRepository    = (*GormGiftCardRepository)(nil)
	_ finance.RewardPointRepository = (*GormRewardPointRepository)(nil)
)
