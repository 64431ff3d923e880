// Package testdb opens throwaway databases for tests: a migrated SQLite
// file for behavior tests and a sqlmock-backed Postgres dialect for
// checking generated SQL.
package testdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLite opens a migrated SQLite database in a temp dir. The file is
// shared by every connection of the pool, so concurrent transactions see
// each other the way they would on a server database.
func NewSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 8,
		MaxIdleConns: 8,
	}
	gormLogger := logger.Discard
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := persistence.NewDatabaseWithLogger(cfg, gormLogger)
	require.NoError(t, err, "Failed to open sqlite database")
	require.NoError(t, db.AutoMigrate())

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db.DB
}

// NewMockDB returns a GORM handle speaking the Postgres dialect over sqlmock
func NewMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		mockDB.Close()
	})

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	return gormDB, mock
}
