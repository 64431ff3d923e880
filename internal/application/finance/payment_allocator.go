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
	"go.uber.org/zap"
)

// PaymentAllocator records payments against documents and keeps the paid
// amount and payment status of each document in line with its payments.
type PaymentAllocator struct {
	uow     uow.UnitOfWork
	locker  uow.Locker
	general setting.GeneralSetting
	points  *RewardPointLedger
	logger  *zap.Logger
}

// NewPaymentAllocator creates a new PaymentAllocator
func NewPaymentAllocator(u uow.UnitOfWork, locker uow.Locker, settings setting.Settings, logger *zap.Logger) *PaymentAllocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentAllocator{
		uow:     u,
		locker:  locker,
		general: settings.General,
		points:  NewRewardPointLedger(settings.RewardPoint),
		logger:  logger,
	}
}

// Points returns the reward point ledger the allocator debits
func (a *PaymentAllocator) Points() *RewardPointLedger {
	return a.points
}

// Allocate records a payment against a document in its own unit of work
func (a *PaymentAllocator) Allocate(ctx context.Context, req AllocateRequest) (*finance.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	release, err := a.locker.Acquire(ctx, uow.DocumentLockKey(req.DocumentID))
	if err != nil {
		return nil, err
	}
	defer release()

	var payment *finance.Payment
	err = a.uow.Execute(ctx, func(repos uow.Repositories) error {
		doc, err := repos.Documents().FindByIDForUpdate(ctx, req.DocumentID)
		if err != nil {
			return err
		}
		payment, err = a.AllocateTx(ctx, repos, doc, req)
		return err
	})
	if err != nil {
		a.logger.Warn("payment rejected",
			zap.Stringer("document_id", req.DocumentID),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
		return nil, err
	}
	a.logger.Info("payment allocated",
		zap.Stringer("document_id", req.DocumentID),
		zap.String("reference", payment.Reference),
		zap.String("method", string(payment.Method)),
		zap.String("amount", payment.Amount.String()))
	return payment, nil
}

// AllocateTx records a payment inside the caller's unit of work. doc must
// be loaded for update; it is saved with its new paid amount.
func (a *PaymentAllocator) AllocateTx(ctx context.Context, repos uow.Repositories, doc *trade.Document, req AllocateRequest) (*finance.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !doc.Type.IsPayable() {
		return nil, shared.NewValidationError("%s documents do not take payments", doc.Type)
	}
	if doc.Status != trade.DocumentStatusPending && doc.Status != trade.DocumentStatusCompleted {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidStateTransition,
			"Cannot pay a %s document", doc.Status)
	}

	existing, err := repos.Payments().FindByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	paid := finance.PaidSum(existing)
	if paid.Add(req.Amount).GreaterThan(doc.GrandTotal.Add(a.general.PaymentEpsilon)) {
		return nil, shared.NewDomainErrorf(shared.CodePaymentOverAllocation,
			"Paying %s would exceed the total %s of %s, %s is already paid",
			req.Amount, doc.GrandTotal, doc.Reference, paid)
	}

	if req.CashRegisterID != nil {
		if err := a.ensureRegisterOpen(ctx, repos, *req.CashRegisterID); err != nil {
			return nil, err
		}
	}

	flow := finance.FlowFor(doc.Type)
	detail := req.Detail
	var points decimal.Decimal
	switch d := detail.(type) {
	case finance.GiftCardDetail:
		if err := a.moveGiftCard(ctx, repos, d.GiftCardID, req.Amount, flow == finance.FlowIncoming); err != nil {
			return nil, err
		}
	case finance.PointsDetail:
		if flow != finance.FlowIncoming {
			return nil, shared.NewValidationError("Reward points can only pay incoming payments")
		}
		if doc.CustomerID == nil {
			return nil, shared.NewValidationError("Paying with reward points requires a customer")
		}
		points, err = a.points.pointsFor(req.Amount)
		if err != nil {
			return nil, err
		}
		detail = finance.PointsDetail{Points: points}
	}

	payment, err := finance.NewPayment(finance.PaymentInput{
		DocumentID:     &doc.ID,
		CustomerID:     doc.CustomerID,
		UserID:         req.UserID,
		CashRegisterID: req.CashRegisterID,
		Flow:           flow,
		Amount:         req.Amount,
		Detail:         detail,
		Note:           req.Note,
	})
	if err != nil {
		return nil, err
	}
	if err := repos.Payments().Create(ctx, payment); err != nil {
		return nil, err
	}
	if points.IsPositive() {
		if err := a.points.Redeem(ctx, repos, *doc.CustomerID, payment.ID, &doc.ID, points); err != nil {
			return nil, err
		}
	}

	doc.ApplyPaid(paid.Add(req.Amount), a.general.PaymentEpsilon)
	if err := repos.Documents().SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	return payment, nil
}

// Reverse records a compensating payment and recomputes the paid amount
// of the document
func (a *PaymentAllocator) Reverse(ctx context.Context, req ReverseRequest) (*finance.Payment, error) {
	release, err := a.locker.Acquire(ctx, uow.PaymentLockKey(req.PaymentID))
	if err != nil {
		return nil, err
	}
	defer release()

	var reversal *finance.Payment
	err = a.uow.Execute(ctx, func(repos uow.Repositories) error {
		original, err := repos.Payments().FindByID(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		// document before payment, the same order deletion locks in
		var doc *trade.Document
		if original.DocumentID != nil {
			doc, err = repos.Documents().FindByIDForUpdate(ctx, *original.DocumentID)
			if err != nil {
				return err
			}
		}
		original, err = repos.Payments().FindByIDForUpdate(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		reversal, err = a.ReversePaymentTx(ctx, repos, original, req)
		if err != nil {
			return err
		}
		if doc == nil {
			return nil
		}
		if err := a.RecomputePaid(ctx, repos, doc); err != nil {
			return err
		}
		return repos.Documents().SaveWithLock(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("payment reversed",
		zap.Stringer("payment_id", req.PaymentID),
		zap.String("reversal", reversal.Reference))
	return reversal, nil
}

// ReversePaymentTx reverses one payment inside the caller's unit of work:
// it records the compensating payment and gives back gift card balance or
// reward points. The document is left to the caller.
func (a *PaymentAllocator) ReversePaymentTx(ctx context.Context, repos uow.Repositories, original *finance.Payment, req ReverseRequest) (*finance.Payment, error) {
	reversal, err := original.Reverse(req.UserID, req.Note)
	if err != nil {
		return nil, err
	}
	if err := repos.Payments().MarkReversed(ctx, original); err != nil {
		return nil, err
	}

	registerID, err := a.reversalRegister(ctx, repos, original, req.CashRegisterID)
	if err != nil {
		return nil, err
	}
	reversal.CashRegisterID = registerID
	if err := repos.Payments().Create(ctx, reversal); err != nil {
		return nil, err
	}

	switch d := original.Detail.MethodDetail.(type) {
	case finance.GiftCardDetail:
		if err := a.moveGiftCard(ctx, repos, d.GiftCardID, original.Amount, original.Flow != finance.FlowIncoming); err != nil {
			return nil, err
		}
	case finance.PointsDetail:
		if err := a.points.ReversePayment(ctx, repos, original.ID); err != nil {
			return nil, err
		}
	}
	return reversal, nil
}

// RecomputePaid sets the paid amount and payment status of doc from its
// payments without saving it
func (a *PaymentAllocator) RecomputePaid(ctx context.Context, repos uow.Repositories, doc *trade.Document) error {
	payments, err := repos.Payments().FindByDocument(ctx, doc.ID)
	if err != nil {
		return err
	}
	doc.ApplyPaid(finance.PaidSum(payments), a.general.PaymentEpsilon)
	return nil
}

// ListByDocument returns the payments of a document, reversals included
func (a *PaymentAllocator) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]finance.Payment, error) {
	var payments []finance.Payment
	err := a.uow.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		payments, err = repos.Payments().FindByDocument(ctx, documentID)
		return err
	})
	return payments, err
}

// moveGiftCard debits the card when debit is true, else credits it back
func (a *PaymentAllocator) moveGiftCard(ctx context.Context, repos uow.Repositories, cardID uuid.UUID, amount decimal.Decimal, debit bool) error {
	card, err := repos.GiftCards().FindByID(ctx, cardID)
	if err != nil {
		return err
	}
	if debit {
		err = card.Debit(amount, time.Now())
	} else {
		err = card.Credit(amount)
	}
	if err != nil {
		return err
	}
	return repos.GiftCards().SaveWithVersion(ctx, card)
}

func (a *PaymentAllocator) ensureRegisterOpen(ctx context.Context, repos uow.Repositories, registerID uuid.UUID) error {
	register, err := repos.Registers().FindByIDForUpdate(ctx, registerID)
	if err != nil {
		return err
	}
	return register.EnsureOpen()
}

// reversalRegister picks the till a reversal lands in: the requested open
// register, else the original one while it is still open, else none.
func (a *PaymentAllocator) reversalRegister(ctx context.Context, repos uow.Repositories, original *finance.Payment, requested *uuid.UUID) (*uuid.UUID, error) {
	if requested != nil {
		if err := a.ensureRegisterOpen(ctx, repos, *requested); err != nil {
			return nil, err
		}
		return requested, nil
	}
	if original.CashRegisterID == nil {
		return nil, nil
	}
	register, err := repos.Registers().FindByID(ctx, *original.CashRegisterID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !register.IsOpen() {
		return nil, nil
	}
	return original.CashRegisterID, nil
}
