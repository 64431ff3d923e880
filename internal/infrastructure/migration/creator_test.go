package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add coupon limits", "add_coupon_limits"},
		{"Add-Coupon-Limits", "add_coupon_limits"},
		{"ADD__STOCK__INDEX", "add_stock_index"},
		{"Add Tills 123", "add_tills_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- test"), 0644))
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("numbers the first migration 000001", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "migrations")

		mf, err := CreateMigration(dir, "add stock index", "Speed up stock lookups")
		require.NoError(t, err)
		assert.Equal(t, "000001", mf.Version)
		assert.Equal(t, filepath.Join(dir, "000001_add_stock_index.up.sql"), mf.UpPath)
		assert.Equal(t, filepath.Join(dir, "000001_add_stock_index.down.sql"), mf.DownPath)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "add stock index")
		assert.Contains(t, string(up), "Speed up stock lookups")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "Rollback")
	})

	t.Run("continues after the highest existing number", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir,
			"000001_init_ledger.up.sql", "000001_init_ledger.down.sql",
			"000007_add_points.up.sql", "000007_add_points.down.sql",
		)

		mf, err := CreateMigration(dir, "add tills", "")
		require.NoError(t, err)
		assert.Equal(t, "000008", mf.Version)
	})

	t.Run("rejects names without usable characters", func(t *testing.T) {
		_, err := CreateMigration(t.TempDir(), "!!!", "")
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("lists base names in order", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir,
			"000003_add_coupons.up.sql", "000003_add_coupons.down.sql",
			"000001_init_ledger.up.sql", "000001_init_ledger.down.sql",
			"000002_add_tills.up.sql", "000002_add_tills.down.sql",
			"README.md", ".gitkeep",
		)
		require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0755))

		got, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_init_ledger", "000002_add_tills", "000003_add_coupons"}, got)
	})

	t.Run("missing directory is empty", func(t *testing.T) {
		got, err := ListMigrations("/nonexistent/path/to/migrations")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestListEmbedded(t *testing.T) {
	got, err := ListEmbedded()
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "000001_init_ledger", got[0])
}
