package persistence

import (
	"errors"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the ledger reacts to
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// translateError maps driver errors to domain errors. Domain errors pass
// through untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable:
			return shared.NewDomainErrorf(shared.CodeLockTimeout, "Timed out waiting for a row lock on %s", pgErr.TableName)
		case pgSerializationFailure, pgDeadlockDetected:
			return shared.NewDomainError(shared.CodeConcurrencyConflict, "Transaction conflicted with a concurrent one")
		case pgUniqueViolation:
			return shared.NewDomainErrorf(shared.CodeAlreadyExists, "Duplicate value violates %s", pgErr.ConstraintName)
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch {
		case liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked:
			return shared.NewDomainError(shared.CodeLockTimeout, "Timed out waiting for the database lock")
		case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return shared.NewDomainError(shared.CodeAlreadyExists, "Duplicate value violates a unique constraint")
		}
	}
	return err
}

// isUniqueViolation reports whether err is a duplicate key error
func isUniqueViolation(err error) bool {
	return errors.Is(translateError(err), shared.ErrAlreadyExists)
}

// notFound maps gorm.ErrRecordNotFound to shared.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}
