package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/cashregister"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/promotion"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDatabaseWithLogger(&config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "repo.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
	}, logger.Discard)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGormStockRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormStockRepository(db)

	product, warehouse := uuid.New(), uuid.New()
	key := inventory.NewStockKey(product, warehouse, nil, nil)

	t.Run("missing key is not found", func(t *testing.T) {
		_, err := repo.FindByKey(ctx, key)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("get or create is idempotent", func(t *testing.T) {
		first, err := repo.GetOrCreateForUpdate(ctx, key)
		require.NoError(t, err)
		second, err := repo.GetOrCreateForUpdate(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.True(t, second.Quantity.IsZero())
	})

	t.Run("save checks the version", func(t *testing.T) {
		level, err := repo.GetOrCreateForUpdate(ctx, key)
		require.NoError(t, err)
		stale := *level

		require.NoError(t, level.Apply(dec("7"), false))
		require.NoError(t, repo.SaveWithVersion(ctx, level))

		require.NoError(t, stale.Apply(dec("1"), false))
		err = repo.SaveWithVersion(ctx, &stale)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))

		stored, err := repo.FindByKey(ctx, key)
		require.NoError(t, err)
		assert.True(t, stored.Quantity.Equal(dec("7")))
	})

	t.Run("levels and sums span batches", func(t *testing.T) {
		batchA, batchB := uuid.New(), uuid.New()
		for batch, qty := range map[uuid.UUID]string{batchA: "3", batchB: "0"} {
			level, err := repo.GetOrCreateForUpdate(ctx, key.WithBatch(batch))
			require.NoError(t, err)
			require.NoError(t, level.Apply(dec(qty), false))
			require.NoError(t, repo.SaveWithVersion(ctx, level))
		}

		levels, err := repo.FindLevelsForUpdate(ctx, product, warehouse, uuid.Nil)
		require.NoError(t, err)
		require.Len(t, levels, 2, "empty batch rows are skipped")

		total, err := repo.SumQuantity(ctx, product, warehouse, uuid.Nil)
		require.NoError(t, err)
		assert.True(t, total.Equal(dec("10")), "got %s", total)

		none, err := repo.SumQuantity(ctx, uuid.New(), warehouse, uuid.Nil)
		require.NoError(t, err)
		assert.True(t, none.IsZero())

		all, err := repo.FindByProduct(ctx, product)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestGormMovementRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMovementRepository(newSQLiteDB(t))

	docID, lineID := uuid.New(), uuid.New()
	level := inventory.NewStockLevel(inventory.NewStockKey(uuid.New(), uuid.New(), nil, nil))
	ref := inventory.DocumentRef{DocumentID: &docID, LineID: &lineID}
	first := inventory.NewStockMovement(level, dec("-2"), inventory.ReasonSale, ref)
	second := inventory.NewStockMovement(level, dec("-1"), inventory.ReasonSale, ref)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	got, err := repo.FindByDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.True(t, got[1].Delta.Equal(dec("-1")))
}

func newSaleWithLines(t *testing.T, warehouse uuid.UUID, n int) *trade.Document {
	t.Helper()
	doc, err := trade.NewDocument(trade.DocumentInput{Type: trade.DocumentTypeSale, WarehouseID: warehouse})
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		line, err := doc.AddLine(trade.LineInput{
			ProductID: uuid.New(),
			UnitID:    uuid.New(),
			Qty:       dec("2"),
			UnitPrice: dec("10"),
		})
		require.NoError(t, err)
		line.BaseQty = dec("2")
	}
	return doc
}

func TestGormDocumentRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormDocumentRepository(db)
	warehouse := uuid.New()

	t.Run("create and load with ordered lines", func(t *testing.T) {
		doc := newSaleWithLines(t, warehouse, 3)
		require.NoError(t, repo.Create(ctx, doc))

		loaded, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, loaded.Lines, 3)
		for i, line := range loaded.Lines {
			assert.Equal(t, i+1, line.LineNo)
		}

		locked, err := repo.FindByIDForUpdate(ctx, doc.ID)
		require.NoError(t, err)
		assert.Len(t, locked.Lines, 3)
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("save replaces lines and bumps the version", func(t *testing.T) {
		doc := newSaleWithLines(t, warehouse, 2)
		require.NoError(t, repo.Create(ctx, doc))

		loaded, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		stale, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)

		require.NoError(t, loaded.RemoveLine(loaded.Lines[0].ID))
		loaded.Note = "trimmed"
		require.NoError(t, repo.SaveWithLock(ctx, loaded))
		assert.Equal(t, 2, loaded.Version)

		stored, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "trimmed", stored.Note)
		assert.Len(t, stored.Lines, 1)
		assert.Equal(t, 2, stored.Version)

		stale.Note = "lost update"
		err = repo.SaveWithLock(ctx, stale)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	})

	t.Run("list filters and hides deleted", func(t *testing.T) {
		other := uuid.New()
		kept := newSaleWithLines(t, other, 1)
		gone := newSaleWithLines(t, other, 1)
		require.NoError(t, gone.MarkDeleted())
		require.NoError(t, repo.Create(ctx, kept))
		require.NoError(t, repo.Create(ctx, gone))

		docs, total, err := repo.FindAll(ctx, trade.DocumentFilter{
			Filter:      shared.DefaultFilter(),
			WarehouseID: &other,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, docs, 1)
		assert.Equal(t, kept.ID, docs[0].ID)

		_, total, err = repo.FindAll(ctx, trade.DocumentFilter{
			Filter:      shared.DefaultFilter(),
			WarehouseID: &other,
			Status:      trade.DocumentStatusDeleted,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("returned quantities count pending and completed returns", func(t *testing.T) {
		original := newSaleWithLines(t, warehouse, 1)
		original.Status = trade.DocumentStatusCompleted
		require.NoError(t, repo.Create(ctx, original))
		product := original.Lines[0].ProductID

		newReturn := func(status trade.DocumentStatus, qty string) *trade.Document {
			ret, err := trade.NewDocument(trade.DocumentInput{
				Type:        trade.DocumentTypeSaleReturn,
				WarehouseID: warehouse,
				ReturnOfID:  &original.ID,
			})
			require.NoError(t, err)
			line, err := ret.AddLine(trade.LineInput{ProductID: product, UnitID: uuid.New(), Qty: dec(qty), UnitPrice: dec("10")})
			require.NoError(t, err)
			line.BaseQty = dec(qty)
			ret.Status = status
			require.NoError(t, repo.Create(ctx, ret))
			return ret
		}
		pending := newReturn(trade.DocumentStatusPending, "0.5")
		newReturn(trade.DocumentStatusCompleted, "1")
		newReturn(trade.DocumentStatusCancelled, "2")

		returned, err := repo.ReturnedQuantities(ctx, original.ID, uuid.Nil)
		require.NoError(t, err)
		key := trade.ReturnKey{ProductID: product}
		assert.True(t, returned[key].Equal(dec("1.5")), "got %s", returned[key])

		returned, err = repo.ReturnedQuantities(ctx, original.ID, pending.ID)
		require.NoError(t, err)
		assert.True(t, returned[key].Equal(dec("1")), "got %s", returned[key])
	})
}

func TestGormCouponRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormCouponRepository(db)

	coupon, err := promotion.NewCoupon("spring10", promotion.AmountFixed, dec("10"), decimal.Zero, 2, time.Now().AddDate(0, 1, 0))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, coupon))

	found, err := repo.FindByCode(ctx, " Spring10 ")
	require.NoError(t, err)
	assert.Equal(t, coupon.ID, found.ID)

	_, err = repo.FindByCode(ctx, "nope")
	assert.True(t, shared.IsNotFound(err))

	docID := uuid.New()
	created, err := repo.CreateRedemption(ctx, promotion.NewCouponRedemption(coupon.ID, docID, dec("10")))
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.CreateRedemption(ctx, promotion.NewCouponRedemption(coupon.ID, docID, dec("10")))
	require.NoError(t, err)
	assert.False(t, created, "a document redeems a coupon once")

	require.NoError(t, found.Redeem())
	require.NoError(t, repo.SaveWithVersion(ctx, found))
	stale := *coupon
	require.NoError(t, stale.Redeem())
	assert.True(t, errors.Is(repo.SaveWithVersion(ctx, &stale), shared.ErrConcurrencyConflict))

	removed, err := repo.DeleteRedemption(ctx, coupon.ID, docID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.DeleteRedemption(ctx, coupon.ID, docID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestGormPaymentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormPaymentRepository(newSQLiteDB(t))

	docID := uuid.New()
	payment, err := finance.NewPayment(finance.PaymentInput{
		DocumentID: &docID,
		Amount:     dec("25"),
		Detail:     finance.CardDetail{Last4: "1111", HolderName: "A Buyer"},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, payment))

	loaded, err := repo.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.PaymentMethodCard, loaded.Detail.Method())

	require.NoError(t, repo.MarkReversed(ctx, loaded))
	assert.NotNil(t, loaded.ReversedAt)
	err = repo.MarkReversed(ctx, payment)
	assert.True(t, errors.Is(err, shared.ErrInvalidStateTransition))

	byDoc, err := repo.FindByDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, byDoc, 1)
	assert.True(t, byDoc[0].IsReversed())
}

func TestGormRewardPointRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormRewardPointRepository(newSQLiteDB(t))
	customer := uuid.New()

	account, err := repo.GetOrCreateAccountForUpdate(ctx, customer)
	require.NoError(t, err)
	again, err := repo.GetOrCreateAccountForUpdate(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, account.Version, again.Version)

	account.Refresh(dec("12"), time.Now())
	require.NoError(t, repo.SaveAccountWithVersion(ctx, account))
	again.Refresh(dec("3"), time.Now())
	assert.True(t, errors.Is(repo.SaveAccountWithVersion(ctx, again), shared.ErrConcurrencyConflict))

	docID := uuid.New()
	require.NoError(t, repo.CreateEntry(ctx, &finance.RewardPointEntry{
		ID: uuid.New(), CustomerID: customer, Kind: finance.RewardPointEarn,
		Points: dec("12"), DocumentID: &docID, CreatedAt: time.Now(),
	}))
	entries, err := repo.FindEntriesByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	entries, err = repo.FindEntries(ctx, customer)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGormRegisterRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormRegisterRepository(newSQLiteDB(t))
	user, warehouse := uuid.New(), uuid.New()

	register, err := cashregister.Open(user, warehouse, dec("100"))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, register))

	second, err := cashregister.Open(user, warehouse, dec("50"))
	require.NoError(t, err)
	err = repo.Create(ctx, second)
	assert.True(t, errors.Is(err, shared.ErrRegisterAlreadyOpen))

	open, err := repo.FindOpen(ctx, user, warehouse)
	require.NoError(t, err)
	assert.Equal(t, register.ID, open.ID)

	outflow, err := cashregister.NewOutflow(open, cashregister.OutflowExpense, dec("20"), "milk")
	require.NoError(t, err)
	require.NoError(t, repo.CreateOutflow(ctx, outflow))
	outflows, err := repo.FindOutflows(ctx, open.ID)
	require.NoError(t, err)
	require.Len(t, outflows, 1)

	summary := cashregister.Summarize(open, nil, outflows)
	require.NoError(t, open.Close(summary, dec("80"), ""))
	require.NoError(t, repo.SaveWithVersion(ctx, open))

	_, err = repo.FindOpen(ctx, user, warehouse)
	assert.True(t, shared.IsNotFound(err))

	reopened, err := cashregister.Open(user, warehouse, dec("80"))
	require.NoError(t, err)
	assert.NoError(t, repo.Create(ctx, reopened), "closing frees the slot")
}
