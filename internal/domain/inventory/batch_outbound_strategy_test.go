package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func candidate(no string, qty string, expiry *time.Time, received time.Time) BatchCandidate {
	return BatchCandidate{
		BatchID:     uuid.New(),
		BatchNo:     no,
		ExpiredDate: expiry,
		ReceivedAt:  received,
		Available:   dec(qty),
	}
}

func TestBatchOutboundStrategyType(t *testing.T) {
	assert.True(t, BatchOutboundStrategyTypeFIFO.IsValid())
	assert.True(t, BatchOutboundStrategyTypeFEFO.IsValid())
	assert.True(t, BatchOutboundStrategyTypeCustom.IsValid())
	assert.False(t, BatchOutboundStrategyType("LIFO").IsValid())

	s, err := NewBatchOutboundStrategy(BatchOutboundStrategyTypeFEFO)
	require.NoError(t, err)
	assert.Equal(t, "fefo_batch_outbound", s.Name())
	assert.Equal(t, BatchOutboundStrategyTypeFEFO, s.StrategyType())

	_, err = NewBatchOutboundStrategy(BatchOutboundStrategyTypeCustom)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestFEFO_SelectBatches(t *testing.T) {
	now := time.Now()
	soon := candidate("B-SOON", "3", timePtr(now.AddDate(0, 0, 5)), now)
	later := candidate("B-LATER", "10", timePtr(now.AddDate(0, 1, 0)), now.AddDate(0, 0, -30))
	undated := candidate("B-NONE", "10", nil, now.AddDate(0, 0, -60))
	empty := candidate("B-EMPTY", "0", timePtr(now.AddDate(0, 0, 1)), now)

	s := NewFEFOBatchOutboundStrategy()

	t.Run("nearest expiry first, undated last", func(t *testing.T) {
		res, err := s.SelectBatches(dec("15"), []BatchCandidate{undated, later, empty, soon})
		require.NoError(t, err)
		require.Len(t, res.Deductions, 3)
		assert.Equal(t, "B-SOON", res.Deductions[0].BatchNo)
		assert.True(t, res.Deductions[0].Quantity.Equal(dec("3")))
		assert.Equal(t, "B-LATER", res.Deductions[1].BatchNo)
		assert.True(t, res.Deductions[1].Quantity.Equal(dec("10")))
		assert.Equal(t, "B-NONE", res.Deductions[2].BatchNo)
		assert.True(t, res.Deductions[2].Quantity.Equal(dec("2")))
		assert.True(t, res.Deductions[2].RemainingInBatch.Equal(dec("8")))
		assert.True(t, res.FullyFulfilled)
		assert.True(t, res.TotalDeducted.Equal(dec("15")))
	})

	t.Run("shortfall is reported", func(t *testing.T) {
		res, err := s.SelectBatches(dec("30"), []BatchCandidate{soon, later})
		require.NoError(t, err)
		assert.False(t, res.FullyFulfilled)
		assert.True(t, res.RemainingQuantity.Equal(dec("17")))
	})

	t.Run("quantity must be positive", func(t *testing.T) {
		_, err := s.SelectBatches(decimal.Zero, []BatchCandidate{soon})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestFIFO_SelectBatches(t *testing.T) {
	now := time.Now()
	newer := candidate("B-NEW", "5", timePtr(now.AddDate(0, 0, 1)), now)
	older := candidate("B-OLD", "5", timePtr(now.AddDate(1, 0, 0)), now.AddDate(0, -1, 0))

	res, err := NewFIFOBatchOutboundStrategy().SelectBatches(dec("6"), []BatchCandidate{newer, older})
	require.NoError(t, err)
	require.Len(t, res.Deductions, 2)
	assert.Equal(t, "B-OLD", res.Deductions[0].BatchNo)
	assert.Equal(t, "B-NEW", res.Deductions[1].BatchNo)
}

func TestCustom_SelectBatches(t *testing.T) {
	now := time.Now()
	small := candidate("B-SMALL", "2", nil, now)
	big := candidate("B-BIG", "9", nil, now)

	largestFirst := func(a, b BatchCandidate) bool { return a.Available.GreaterThan(b.Available) }
	s := NewCustomBatchOutboundStrategy("largest_first", largestFirst)

	res, err := s.SelectBatches(dec("4"), []BatchCandidate{small, big})
	require.NoError(t, err)
	require.Len(t, res.Deductions, 1)
	assert.Equal(t, "B-BIG", res.Deductions[0].BatchNo)
	assert.Equal(t, BatchOutboundStrategyTypeCustom, s.StrategyType())
}
