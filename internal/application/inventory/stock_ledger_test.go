package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, store *testutil.Store, general setting.GeneralSetting) *StockLedger {
	t.Helper()
	l, err := NewStockLedger(store.UoW, general, nil)
	require.NoError(t, err)
	return l
}

func TestStockLedger_ApplyDelta(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	pcs := store.BaseUnit(t, "pcs")
	wh := store.Warehouse(t, "MAIN")
	product := store.Product(t, "P1", pcs.ID, "10")
	ledger := newLedger(t, store, setting.Default().General)

	t.Run("incoming delta creates the row", func(t *testing.T) {
		res, err := ledger.ApplyDelta(ctx, DeltaRequest{
			ProductID: product.ID, WarehouseID: wh.ID, Delta: testutil.Dec("12"), Reason: inventory.ReasonPurchase,
		})
		require.NoError(t, err)
		assert.True(t, res.Tracked)
		require.Len(t, res.Movements, 1)
		assert.True(t, res.Quantity.Equal(testutil.Dec("12")))
		assert.True(t, res.Movements[0].BalanceAfter.Equal(testutil.Dec("12")))
	})

	t.Run("outgoing delta beyond stock is rejected and leaves the row", func(t *testing.T) {
		_, err := ledger.ApplyDelta(ctx, DeltaRequest{
			ProductID: product.ID, WarehouseID: wh.ID, Delta: testutil.Dec("-13"), Reason: inventory.ReasonSale,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		ise, ok := inventory.AsInsufficientStock(err)
		require.True(t, ok)
		require.Len(t, ise.Shortages, 1)
		assert.True(t, ise.Shortages[0].Requested.Equal(testutil.Dec("13")))
		assert.True(t, ise.Shortages[0].Available.Equal(testutil.Dec("12")))

		qty, err := ledger.QuantityOf(ctx, QuantityQuery{ProductID: product.ID, WarehouseID: wh.ID})
		require.NoError(t, err)
		assert.True(t, qty.Equal(testutil.Dec("12")))
	})

	t.Run("outgoing delta to exactly zero is accepted", func(t *testing.T) {
		res, err := ledger.ApplyDelta(ctx, DeltaRequest{
			ProductID: product.ID, WarehouseID: wh.ID, Delta: testutil.Dec("-12"), Reason: inventory.ReasonSale,
		})
		require.NoError(t, err)
		assert.True(t, res.Quantity.IsZero())
	})

	t.Run("zero delta is a validation error", func(t *testing.T) {
		_, err := ledger.ApplyDelta(ctx, DeltaRequest{
			ProductID: product.ID, WarehouseID: wh.ID, Reason: inventory.ReasonSale,
		})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		_, err := ledger.ApplyDelta(ctx, DeltaRequest{
			ProductID: uuid.New(), WarehouseID: wh.ID, Delta: testutil.Dec("1"), Reason: inventory.ReasonPurchase,
		})
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestStockLedger_Overselling(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	pcs := store.BaseUnit(t, "pcs")
	wh := store.Warehouse(t, "MAIN")

	t.Run("product flag allows negative stock", func(t *testing.T) {
		product := store.Product(t, "OVER", pcs.ID, "5", testutil.WithOverselling())
		ledger := newLedger(t, store, setting.Default().General)

		res, err := ledger.ApplyDelta(ctx, DeltaRequest{
			ProductID: product.ID, WarehouseID: wh.ID, Delta: testutil.Dec("-3"), Reason: inventory.ReasonSale,
		})
		require.NoError(t, err)
		assert.True(t, res.Quantity.Equal(testutil.Dec("-3")))
	})

	t.Run("store setting allows negative stock", func(t *testing.T) {
		product := store.Product(t, "STRICT", pcs.ID, "5")
		general := setting.Default().General
		general.WithoutStock = true
		ledger := newLedger(t, store, general)

		res, err := ledger.ApplyDelta(ctx, DeltaRequest{
			ProductID: product.ID, WarehouseID: wh.ID, Delta: testutil.Dec("-1"), Reason: inventory.ReasonSale,
		})
		require.NoError(t, err)
		assert.True(t, res.Quantity.Equal(testutil.Dec("-1")))
	})

	t.Run("untracked product never touches the ledger", func(t *testing.T) {
		product := store.Product(t, "SERVICE", pcs.ID, "5", testutil.WithoutTracking())
		ledger := newLedger(t, store, setting.Default().General)

		res, err := ledger.ApplyDelta(ctx, DeltaRequest{
			ProductID: product.ID, WarehouseID: wh.ID, Delta: testutil.Dec("-100"), Reason: inventory.ReasonSale,
		})
		require.NoError(t, err)
		assert.False(t, res.Tracked)
		assert.Empty(t, res.Movements)
		assert.True(t, store.Quantity(t, testutil.Key(product.ID, wh.ID)).IsZero())
	})
}

func TestStockLedger_Batches(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	pcs := store.BaseUnit(t, "pcs")
	wh := store.Warehouse(t, "MAIN")
	product := store.Product(t, "MILK", pcs.ID, "2", testutil.WithBatches())

	soon := time.Now().Add(48 * time.Hour)
	later := time.Now().Add(30 * 24 * time.Hour)
	late := store.Batch(t, product, "B-LATE", &later)
	early := store.Batch(t, product, "B-EARLY", &soon)
	lateKey := testutil.Key(product.ID, wh.ID).WithBatch(late.ID)
	earlyKey := testutil.Key(product.ID, wh.ID).WithBatch(early.ID)
	store.Stock(t, lateKey, "10")
	store.Stock(t, earlyKey, "4")

	ledger := newLedger(t, store, setting.Default().General)

	t.Run("outgoing delta without batch drains the earliest expiry first", func(t *testing.T) {
		res, err := ledger.ApplyDelta(ctx, DeltaRequest{
			ProductID: product.ID, WarehouseID: wh.ID, Delta: testutil.Dec("-6"), Reason: inventory.ReasonSale,
		})
		require.NoError(t, err)
		require.Len(t, res.Movements, 2)
		assert.Equal(t, early.ID, res.Movements[0].BatchID)
		assert.True(t, res.Movements[0].Delta.Equal(testutil.Dec("-4")))
		assert.Equal(t, late.ID, res.Movements[1].BatchID)
		assert.True(t, res.Movements[1].Delta.Equal(testutil.Dec("-2")))
		assert.True(t, res.Quantity.Equal(testutil.Dec("8")))
	})

	t.Run("quantity without batch sums every batch", func(t *testing.T) {
		qty, err := ledger.QuantityOf(ctx, QuantityQuery{ProductID: product.ID, WarehouseID: wh.ID})
		require.NoError(t, err)
		assert.True(t, qty.Equal(testutil.Dec("8")))

		batchID := late.ID
		qty, err = ledger.QuantityOf(ctx, QuantityQuery{ProductID: product.ID, WarehouseID: wh.ID, BatchID: &batchID})
		require.NoError(t, err)
		assert.True(t, qty.Equal(testutil.Dec("8")))
	})

	t.Run("split beyond every batch reports what the batches hold", func(t *testing.T) {
		_, err := ledger.ApplyDelta(ctx, DeltaRequest{
			ProductID: product.ID, WarehouseID: wh.ID, Delta: testutil.Dec("-9"), Reason: inventory.ReasonSale,
		})
		ise, ok := inventory.AsInsufficientStock(err)
		require.True(t, ok)
		assert.True(t, ise.Shortages[0].Available.Equal(testutil.Dec("8")))
		assert.True(t, store.Quantity(t, lateKey).Equal(testutil.Dec("8")))
	})

	t.Run("batch on a product without batches is rejected", func(t *testing.T) {
		plain := store.Product(t, "PLAIN", pcs.ID, "1")
		batchID := late.ID
		_, err := ledger.ApplyDelta(ctx, DeltaRequest{
			ProductID: plain.ID, WarehouseID: wh.ID, BatchID: &batchID, Delta: testutil.Dec("1"), Reason: inventory.ReasonPurchase,
		})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestStockLedger_FIFOStrategy(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	pcs := store.BaseUnit(t, "pcs")
	wh := store.Warehouse(t, "MAIN")
	product := store.Product(t, "BOLT", pcs.ID, "1", testutil.WithBatches())

	first := store.Batch(t, product, "B-1", nil)
	time.Sleep(5 * time.Millisecond)
	second := store.Batch(t, product, "B-2", nil)
	store.Stock(t, testutil.Key(product.ID, wh.ID).WithBatch(second.ID), "5")
	store.Stock(t, testutil.Key(product.ID, wh.ID).WithBatch(first.ID), "5")

	general := setting.Default().General
	general.BatchStrategy = setting.BatchStrategyFIFO
	ledger := newLedger(t, store, general)

	res, err := ledger.ApplyDelta(ctx, DeltaRequest{
		ProductID: product.ID, WarehouseID: wh.ID, Delta: testutil.Dec("-3"), Reason: inventory.ReasonSale,
	})
	require.NoError(t, err)
	require.Len(t, res.Movements, 1)
	assert.Equal(t, first.ID, res.Movements[0].BatchID)
}

func TestStockLedger_ConcurrentOutgoingDeltas(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	pcs := store.BaseUnit(t, "pcs")
	wh := store.Warehouse(t, "MAIN")
	product := store.Product(t, "HOT", pcs.ID, "1")
	key := testutil.Key(product.ID, wh.ID)
	store.Stock(t, key, "10")
	ledger := newLedger(t, store, setting.Default().General)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			for attempt := 0; attempt < 20; attempt++ {
				_, err = ledger.ApplyDelta(ctx, DeltaRequest{
					ProductID: product.ID, WarehouseID: wh.ID, Delta: testutil.Dec("-1"), Reason: inventory.ReasonSale,
				})
				if !errors.Is(err, shared.ErrConcurrencyConflict) && !errors.Is(err, shared.ErrLockTimeout) {
					break
				}
			}
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, shared.ErrInsufficientStock) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 5, rejected)
	assert.True(t, store.Quantity(t, key).IsZero())
}

func TestStockLedger_PublishesStockChanged(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	pcs := store.BaseUnit(t, "pcs")
	wh := store.Warehouse(t, "MAIN")
	product := store.Product(t, "EVT", pcs.ID, "1")
	ledger := newLedger(t, store, setting.Default().General)
	recorder := testutil.NewEventRecorder()
	ledger.SetEventPublisher(recorder)

	_, err := ledger.ApplyDelta(ctx, DeltaRequest{
		ProductID: product.ID, WarehouseID: wh.ID, Delta: testutil.Dec("3"), Reason: inventory.ReasonAdjustmentIn,
	})
	require.NoError(t, err)

	events := recorder.OfType(inventory.EventTypeStockChanged)
	require.Len(t, events, 1)
	changed, ok := events[0].(*inventory.StockChangedEvent)
	require.True(t, ok)
	assert.True(t, changed.Balance.Equal(testutil.Dec("3")))
	assert.Equal(t, inventory.ReasonAdjustmentIn, changed.Reason)

	_, err = ledger.ApplyDelta(ctx, DeltaRequest{
		ProductID: product.ID, WarehouseID: wh.ID, Delta: testutil.Dec("-4"), Reason: inventory.ReasonSale,
	})
	require.Error(t, err)
	assert.Len(t, recorder.OfType(inventory.EventTypeStockChanged), 1, "rejected deltas publish nothing")
}
