package persistence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

func TestGormUnitOfWork_Postgres(t *testing.T) {
	t.Run("sets the lock timeout and commits", func(t *testing.T) {
		db, mock := newMockPostgres(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '1500ms'")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "stock_levels" WHERE .* FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}))
		mock.ExpectCommit()

		u := NewGormUnitOfWork(db, 1500*time.Millisecond)
		err := u.Execute(context.Background(), func(repos uow.Repositories) error {
			levels, err := repos.Stock().FindLevelsForUpdate(context.Background(), uuid.New(), uuid.New(), uuid.Nil)
			assert.Empty(t, levels)
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the callback fails", func(t *testing.T) {
		db, mock := newMockPostgres(t)
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		u := NewGormUnitOfWork(db, time.Second)
		err := u.Execute(context.Background(), func(uow.Repositories) error {
			return shared.ErrInsufficientStock
		})
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock wait timeout becomes LOCK_TIMEOUT", func(t *testing.T) {
		db, mock := newMockPostgres(t)
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM "documents"`).
			WillReturnError(&pgconn.PgError{Code: pgLockNotAvailable, TableName: "documents"})
		mock.ExpectRollback()

		u := NewGormUnitOfWork(db, time.Second)
		err := u.Execute(context.Background(), func(repos uow.Repositories) error {
			_, err := repos.Documents().FindByIDForUpdate(context.Background(), uuid.New())
			return err
		})
		assert.True(t, errors.Is(err, shared.ErrLockTimeout), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormUnitOfWork_SQLite(t *testing.T) {
	db := newSQLiteDB(t)
	u := NewGormUnitOfWork(db, time.Second)
	ctx := context.Background()
	key := uuid.New()

	err := u.Execute(ctx, func(repos uow.Repositories) error {
		level, err := repos.Stock().GetOrCreateForUpdate(ctx, stockKey(key))
		if err != nil {
			return err
		}
		if err := level.Apply(dec("5"), false); err != nil {
			return err
		}
		if err := repos.Stock().SaveWithVersion(ctx, level); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	_, err = NewGormStockRepository(db).FindByKey(ctx, stockKey(key))
	assert.True(t, shared.IsNotFound(err), "rolled back insert must not survive")
}

func TestTranslateError(t *testing.T) {
	wrapped := func(err error) error { return fmt.Errorf("query failed: %w", err) }

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"record not found", gorm.ErrRecordNotFound, shared.ErrNotFound},
		{"postgres lock timeout", wrapped(&pgconn.PgError{Code: pgLockNotAvailable}), shared.ErrLockTimeout},
		{"postgres serialization failure", &pgconn.PgError{Code: pgSerializationFailure}, shared.ErrConcurrencyConflict},
		{"postgres deadlock", &pgconn.PgError{Code: pgDeadlockDetected}, shared.ErrConcurrencyConflict},
		{"postgres unique violation", &pgconn.PgError{Code: pgUniqueViolation}, shared.ErrAlreadyExists},
		{"sqlite busy", wrapped(sqlite3.Error{Code: sqlite3.ErrBusy}), shared.ErrLockTimeout},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, shared.ErrAlreadyExists},
		{"domain error passes through", shared.ErrCouponUnavailable, shared.ErrCouponUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
		})
	}

	t.Run("nil and unknown errors", func(t *testing.T) {
		assert.NoError(t, translateError(nil))
		other := &pgconn.PgError{Code: "42P01"}
		assert.Same(t, other, translateError(other))
	})

	t.Run("unique violation helper", func(t *testing.T) {
		assert.True(t, isUniqueViolation(&pgconn.PgError{Code: pgUniqueViolation}))
		assert.False(t, isUniqueViolation(errors.New("boom")))
	})
}

func stockKey(productID uuid.UUID) inventory.StockKey {
	return inventory.NewStockKey(productID, productID, nil, nil)
}
