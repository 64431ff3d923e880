package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReversalOf(t *testing.T) {
	product, from, to := uuid.New(), uuid.New(), uuid.New()
	batchA, batchB := uuid.New(), uuid.New()
	line := uuid.New()
	doc := uuid.New()
	ref := DocumentRef{DocumentID: &doc, LineID: &line}

	move := func(wh, batch uuid.UUID, delta string) StockMovement {
		level := NewStockLevel(NewStockKey(product, wh, nil, &batch))
		return *NewStockMovement(level, dec(delta), ReasonTransferOut, ref)
	}

	movements := []StockMovement{
		move(from, batchA, "-3"),
		move(from, batchB, "-2"),
		move(to, batchA, "3"),
		move(to, batchB, "2"),
		// a partial earlier reversal nets out
		move(from, batchB, "2"),
		move(to, batchB, "-2"),
	}

	got := ReversalOf(movements)
	require.Len(t, got, 2)

	assert.Equal(t, to, got[0].Key.WarehouseID, "stock taken back from the destination first")
	assert.Equal(t, batchA, got[0].Key.BatchID)
	assert.True(t, got[0].Delta.Equal(dec("-3")))
	assert.Equal(t, line, *got[0].LineID)

	assert.Equal(t, from, got[1].Key.WarehouseID)
	assert.True(t, got[1].Delta.Equal(dec("3")))

	assert.Empty(t, ReversalOf(nil))
}
