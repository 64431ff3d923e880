package inventory

import (
	"errors"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockKey(t *testing.T) {
	product, wh := uuid.New(), uuid.New()
	variant := uuid.New()

	k := NewStockKey(product, wh, &variant, nil)
	assert.True(t, k.HasVariant())
	assert.False(t, k.HasBatch())
	assert.Equal(t, uuid.Nil, k.BatchID)

	batch := uuid.New()
	withBatch := k.WithBatch(batch)
	assert.True(t, withBatch.HasBatch())
	assert.False(t, k.HasBatch(), "WithBatch returns a copy")

	other := uuid.New()
	assert.Equal(t, other, k.WithWarehouse(other).WarehouseID)

	assert.NoError(t, k.Validate())
	assert.True(t, errors.Is(StockKey{ProductID: product}.Validate(), shared.ErrValidation))
}

func TestStockLevel_Apply(t *testing.T) {
	key := NewStockKey(uuid.New(), uuid.New(), nil, nil)

	t.Run("positive and negative deltas", func(t *testing.T) {
		level := NewStockLevel(key)
		require.NoError(t, level.Apply(dec("5"), false))
		require.NoError(t, level.Apply(dec("-3"), false))
		assert.True(t, level.Quantity.Equal(dec("2")))
		assert.Equal(t, 3, level.GetVersion())
	})

	t.Run("going below zero is rejected with the shortage", func(t *testing.T) {
		level := NewStockLevel(key)
		require.NoError(t, level.Apply(dec("2"), false))

		err := level.Apply(dec("-3"), false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

		ise, ok := AsInsufficientStock(err)
		require.True(t, ok)
		require.Len(t, ise.Shortages, 1)
		assert.True(t, ise.Shortages[0].Requested.Equal(dec("3")))
		assert.True(t, ise.Shortages[0].Available.Equal(dec("2")))
		assert.True(t, level.Quantity.Equal(dec("2")), "rejected delta leaves the row untouched")
		assert.Equal(t, 2, level.GetVersion())
	})

	t.Run("overselling allows negative", func(t *testing.T) {
		level := NewStockLevel(key)
		require.NoError(t, level.Apply(dec("-4"), true))
		assert.True(t, level.Quantity.Equal(dec("-4")))
	})
}

func TestInsufficientStockError(t *testing.T) {
	lineA, lineB := uuid.New(), uuid.New()
	a := NewInsufficientStockError(Shortage{ProductID: uuid.New(), Requested: dec("2"), Available: dec("1")}).ForLine(lineA)
	b := NewInsufficientStockError(Shortage{ProductID: uuid.New(), Requested: dec("5"), Available: dec("0")}).ForLine(lineB)

	combined := CombineShortages([]*InsufficientStockError{a, b})
	require.Len(t, combined.Shortages, 2)
	assert.Equal(t, lineA, *combined.Shortages[0].LineID)
	assert.Equal(t, lineB, *combined.Shortages[1].LineID)
	assert.Contains(t, combined.Error(), "2 item(s)")
	assert.Contains(t, combined.Error(), lineB.String())

	var de *shared.DomainError
	require.True(t, errors.As(combined, &de))
	assert.Equal(t, shared.CodeInsufficientStock, de.Code)
}
