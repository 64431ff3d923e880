package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitService_Convert(t *testing.T) {
	store := testutil.NewStore(t)
	svc := NewUnitService(store.UoW, catalog.DefaultQuantityPrecision)
	ctx := context.Background()

	pcs := store.BaseUnit(t, "pcs")
	dozen := store.DerivedUnit(t, "dozen", pcs.ID, catalog.UnitOperatorMultiply, "12")
	carton := store.DerivedUnit(t, "carton", dozen.ID, catalog.UnitOperatorMultiply, "10")
	kg := store.BaseUnit(t, "kg")
	gram := store.DerivedUnit(t, "g", kg.ID, catalog.UnitOperatorDivide, "1000")

	tests := []struct {
		name     string
		qty      string
		from, to uuid.UUID
		want     string
	}{
		{"multiply to base", "2", dozen.ID, pcs.ID, "24"},
		{"base to multiply", "30", pcs.ID, dozen.ID, "2.5"},
		{"chained units", "1", carton.ID, pcs.ID, "120"},
		{"between derived units", "3", carton.ID, dozen.ID, "30"},
		{"divide to base", "250", gram.ID, kg.ID, "0.25"},
		{"base to divide", "1.5", kg.ID, gram.ID, "1500"},
		{"same unit", "7", kg.ID, kg.ID, "7"},
		{"repeating fraction keeps precision", "1", pcs.ID, dozen.ID, "0.083333"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Convert(ctx, testutil.Dec(tt.qty), tt.from, tt.to)
			require.NoError(t, err)
			assert.True(t, got.Equal(testutil.Dec(tt.want)), "got %s, want %s", got, tt.want)
		})
	}

	t.Run("units without a common base", func(t *testing.T) {
		_, err := svc.Convert(ctx, testutil.Dec("1"), dozen.ID, gram.ID)
		assert.True(t, errors.Is(err, shared.ErrIncompatibleUnits))
	})

	t.Run("unknown unit", func(t *testing.T) {
		_, err := svc.Convert(ctx, testutil.Dec("1"), uuid.New(), pcs.ID)
		assert.True(t, shared.IsNotFound(err))
	})
}
