// Package cashregister runs till sessions: opening, cash outflows,
// closing with a variance against the expected balance.
package cashregister

import (
	"context"

	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/cashregister"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RegisterService manages cash register sessions
type RegisterService struct {
	uow    uow.UnitOfWork
	locker uow.Locker
	logger *zap.Logger
}

// NewRegisterService creates a new RegisterService
func NewRegisterService(u uow.UnitOfWork, locker uow.Locker, logger *zap.Logger) *RegisterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegisterService{uow: u, locker: locker, logger: logger}
}

// Open starts a session. A second open session for the same user and
// warehouse fails with shared.ErrRegisterAlreadyOpen.
func (s *RegisterService) Open(ctx context.Context, req OpenRegisterRequest) (*cashregister.Register, error) {
	register, err := cashregister.Open(req.UserID, req.WarehouseID, req.CashInHand)
	if err != nil {
		return nil, err
	}
	err = s.uow.Execute(ctx, func(repos uow.Repositories) error {
		if _, err := repos.Warehouses().FindByID(ctx, req.WarehouseID); err != nil {
			return err
		}
		return repos.Registers().Create(ctx, register)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("cash register opened",
		zap.Stringer("register_id", register.ID),
		zap.Stringer("user_id", register.UserID),
		zap.Stringer("warehouse_id", register.WarehouseID))
	return register, nil
}

// RecordOutflow records cash taken out of an open register
func (s *RegisterService) RecordOutflow(ctx context.Context, req OutflowRequest) (*cashregister.Outflow, error) {
	release, err := s.locker.Acquire(ctx, uow.RegisterLockKey(req.RegisterID))
	if err != nil {
		return nil, err
	}
	defer release()

	var outflow *cashregister.Outflow
	err = s.uow.Execute(ctx, func(repos uow.Repositories) error {
		register, err := repos.Registers().FindByIDForUpdate(ctx, req.RegisterID)
		if err != nil {
			return err
		}
		outflow, err = cashregister.NewOutflow(register, req.Kind, req.Amount, req.Note)
		if err != nil {
			return err
		}
		return repos.Registers().CreateOutflow(ctx, outflow)
	})
	if err != nil {
		return nil, err
	}
	return outflow, nil
}

// Close counts the till and closes the session. The variance between the
// counted and expected cash is recorded as is.
func (s *RegisterService) Close(ctx context.Context, req CloseRegisterRequest) (*cashregister.Register, error) {
	release, err := s.locker.Acquire(ctx, uow.RegisterLockKey(req.RegisterID))
	if err != nil {
		return nil, err
	}
	defer release()

	var register *cashregister.Register
	err = s.uow.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		register, err = repos.Registers().FindByIDForUpdate(ctx, req.RegisterID)
		if err != nil {
			return err
		}
		summary, err := s.summarize(ctx, repos, register)
		if err != nil {
			return err
		}
		if err := register.Close(summary, req.ActualCash, req.Note); err != nil {
			return err
		}
		return repos.Registers().SaveWithVersion(ctx, register)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("cash register closed",
		zap.Stringer("register_id", register.ID),
		zap.String("closing_balance", register.ClosingBalance.Decimal.String()),
		zap.String("variance", register.Variance.Decimal.String()))
	return register, nil
}

// Summary returns the current cash position of a session
func (s *RegisterService) Summary(ctx context.Context, registerID uuid.UUID) (*cashregister.Summary, error) {
	var summary cashregister.Summary
	err := s.uow.Execute(ctx, func(repos uow.Repositories) error {
		register, err := repos.Registers().FindByID(ctx, registerID)
		if err != nil {
			return err
		}
		summary, err = s.summarize(ctx, repos, register)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// FindOpen returns the open session of a user in a warehouse
func (s *RegisterService) FindOpen(ctx context.Context, userID, warehouseID uuid.UUID) (*cashregister.Register, error) {
	var register *cashregister.Register
	err := s.uow.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		register, err = repos.Registers().FindOpen(ctx, userID, warehouseID)
		return err
	})
	return register, err
}

func (s *RegisterService) summarize(ctx context.Context, repos uow.Repositories, register *cashregister.Register) (cashregister.Summary, error) {
	payments, err := repos.Payments().FindByCashRegister(ctx, register.ID)
	if err != nil {
		return cashregister.Summary{}, err
	}
	effects := make([]decimal.Decimal, 0, len(payments))
	for i := range payments {
		if e := payments[i].CashEffect(); !e.IsZero() {
			effects = append(effects, e)
		}
	}
	outflows, err := repos.Registers().FindOutflows(ctx, register.ID)
	if err != nil {
		return cashregister.Summary{}, err
	}
	return cashregister.Summarize(register, effects, outflows), nil
}
