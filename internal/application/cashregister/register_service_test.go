package cashregister

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/cashregister"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*RegisterService, *testutil.Store) {
	t.Helper()
	store := testutil.NewStore(t)
	return NewRegisterService(store.UoW, store.Locker, nil), store
}

// recordPayment stores a standalone payment against a register
func recordPayment(t *testing.T, store *testutil.Store, registerID uuid.UUID, flow finance.PaymentFlow, amount string, detail finance.MethodDetail) {
	t.Helper()
	p, err := finance.NewPayment(finance.PaymentInput{
		CashRegisterID: &registerID,
		Flow:           flow,
		Amount:         testutil.Dec(amount),
		Detail:         detail,
	})
	require.NoError(t, err)
	require.NoError(t, store.UoW.Execute(context.Background(), func(repos uow.Repositories) error {
		return repos.Payments().Create(context.Background(), p)
	}))
}

func TestRegisterService_OpenOncePerUserAndWarehouse(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	wh := store.Warehouse(t, "MAIN")
	other := store.Warehouse(t, "BRANCH")
	user := uuid.New()

	register, err := svc.Open(ctx, OpenRegisterRequest{UserID: user, WarehouseID: wh.ID, CashInHand: testutil.Dec("100")})
	require.NoError(t, err)
	assert.Equal(t, cashregister.StatusOpen, register.Status)

	_, err = svc.Open(ctx, OpenRegisterRequest{UserID: user, WarehouseID: wh.ID, CashInHand: testutil.Dec("5")})
	assert.True(t, errors.Is(err, shared.ErrRegisterAlreadyOpen))

	_, err = svc.Open(ctx, OpenRegisterRequest{UserID: user, WarehouseID: other.ID})
	assert.NoError(t, err, "another warehouse is another session")
	_, err = svc.Open(ctx, OpenRegisterRequest{UserID: uuid.New(), WarehouseID: wh.ID})
	assert.NoError(t, err, "another user is another session")

	_, err = svc.Open(ctx, OpenRegisterRequest{UserID: user, WarehouseID: uuid.New()})
	assert.True(t, shared.IsNotFound(err))

	found, err := svc.FindOpen(ctx, user, wh.ID)
	require.NoError(t, err)
	assert.Equal(t, register.ID, found.ID)

	_, err = svc.Close(ctx, CloseRegisterRequest{RegisterID: register.ID, ActualCash: testutil.Dec("100")})
	require.NoError(t, err)
	_, err = svc.FindOpen(ctx, user, wh.ID)
	assert.True(t, shared.IsNotFound(err))

	_, err = svc.Open(ctx, OpenRegisterRequest{UserID: user, WarehouseID: wh.ID})
	assert.NoError(t, err, "closing frees the slot")
}

func TestRegisterService_ConcurrentOpen(t *testing.T) {
	svc, store := newService(t)
	wh := store.Warehouse(t, "MAIN")
	user := uuid.New()

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Open(context.Background(), OpenRegisterRequest{UserID: user, WarehouseID: wh.ID})
		}(i)
	}
	wg.Wait()

	opened := 0
	for _, err := range errs {
		if err == nil {
			opened++
			continue
		}
		assert.True(t, errors.Is(err, shared.ErrRegisterAlreadyOpen), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, opened)
}

func TestRegisterService_CloseReportsVariance(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	wh := store.Warehouse(t, "MAIN")

	register, err := svc.Open(ctx, OpenRegisterRequest{UserID: uuid.New(), WarehouseID: wh.ID, CashInHand: testutil.Dec("100")})
	require.NoError(t, err)

	recordPayment(t, store, register.ID, finance.FlowIncoming, "40", finance.CashDetail{})
	recordPayment(t, store, register.ID, finance.FlowIncoming, "25", finance.CardDetail{Last4: "4242"})
	recordPayment(t, store, register.ID, finance.FlowOutgoing, "10", finance.CashDetail{})

	_, err = svc.RecordOutflow(ctx, OutflowRequest{RegisterID: register.ID, Kind: cashregister.OutflowExpense, Amount: testutil.Dec("15"), Note: "cleaning"})
	require.NoError(t, err)
	_, err = svc.RecordOutflow(ctx, OutflowRequest{RegisterID: register.ID, Kind: cashregister.OutflowWithdrawal, Amount: testutil.Dec("50")})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, register.ID)
	require.NoError(t, err)
	assert.True(t, summary.CashSales.Equal(testutil.Dec("40")), "card payments do not touch the till")
	assert.True(t, summary.CashPaidOut.Equal(testutil.Dec("10")))
	assert.True(t, summary.Outflows.Equal(testutil.Dec("65")))
	assert.True(t, summary.ClosingBalance.Equal(testutil.Dec("65")))

	closed, err := svc.Close(ctx, CloseRegisterRequest{RegisterID: register.ID, ActualCash: testutil.Dec("60"), Note: "short"})
	require.NoError(t, err)
	assert.Equal(t, cashregister.StatusClosed, closed.Status)
	require.True(t, closed.ClosingBalance.Valid)
	assert.True(t, closed.ClosingBalance.Decimal.Equal(testutil.Dec("65")))
	assert.True(t, closed.Variance.Decimal.Equal(testutil.Dec("-5")))
	assert.NotNil(t, closed.ClosedAt)

	resp := ToRegisterResponse(closed)
	require.NotNil(t, resp.Variance)
	assert.True(t, resp.Variance.Equal(testutil.Dec("-5")))

	_, err = svc.Close(ctx, CloseRegisterRequest{RegisterID: register.ID, ActualCash: testutil.Dec("60")})
	assert.True(t, errors.Is(err, shared.ErrInvalidStateTransition))

	_, err = svc.RecordOutflow(ctx, OutflowRequest{RegisterID: register.ID, Kind: cashregister.OutflowPayroll, Amount: testutil.Dec("1")})
	assert.True(t, errors.Is(err, shared.ErrInvalidStateTransition))
}

func TestRegisterService_RejectsBadOutflows(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	wh := store.Warehouse(t, "MAIN")
	register, err := svc.Open(ctx, OpenRegisterRequest{UserID: uuid.New(), WarehouseID: wh.ID})
	require.NoError(t, err)

	_, err = svc.RecordOutflow(ctx, OutflowRequest{RegisterID: register.ID, Kind: "tips", Amount: testutil.Dec("1")})
	assert.True(t, errors.Is(err, shared.ErrValidation))
	_, err = svc.RecordOutflow(ctx, OutflowRequest{RegisterID: register.ID, Kind: cashregister.OutflowExpense, Amount: testutil.Dec("0")})
	assert.True(t, errors.Is(err, shared.ErrValidation))
	_, err = svc.RecordOutflow(ctx, OutflowRequest{RegisterID: uuid.New(), Kind: cashregister.OutflowExpense, Amount: testutil.Dec("1")})
	assert.True(t, shared.IsNotFound(err))

	_, err = svc.Close(ctx, CloseRegisterRequest{RegisterID: register.ID, ActualCash: testutil.Dec("-1")})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}
