package catalog

import (
	"errors"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type unitFixture struct {
	piece, dozen, box, gram, kg, mg *Unit
}

func newUnitFixture(t *testing.T) unitFixture {
	t.Helper()
	piece, err := NewBaseUnit("pc", "Piece")
	require.NoError(t, err)
	dozen, err := NewDerivedUnit("dz", "Dozen", piece.ID, UnitOperatorMultiply, dec("12"))
	require.NoError(t, err)
	box, err := NewDerivedUnit("box", "Box of 10 dozen", dozen.ID, UnitOperatorMultiply, dec("10"))
	require.NoError(t, err)
	gram, err := NewBaseUnit("g", "Gram")
	require.NoError(t, err)
	kg, err := NewDerivedUnit("kg", "Kilogram", gram.ID, UnitOperatorMultiply, dec("1000"))
	require.NoError(t, err)
	mg, err := NewDerivedUnit("mg", "Milligram", gram.ID, UnitOperatorDivide, dec("1000"))
	require.NoError(t, err)
	return unitFixture{piece, dozen, box, gram, kg, mg}
}

func (f unitFixture) all() []Unit {
	return []Unit{*f.piece, *f.dozen, *f.box, *f.gram, *f.kg, *f.mg}
}

func TestUnitResolver_Convert(t *testing.T) {
	f := newUnitFixture(t)
	r := NewUnitResolver(f.all(), DefaultQuantityPrecision)

	tests := []struct {
		name     string
		qty      string
		from, to *Unit
		want     string
	}{
		{"dozen to piece", "2", f.dozen, f.piece, "24"},
		{"piece to dozen", "30", f.piece, f.dozen, "2.5"},
		{"box to piece walks two links", "1", f.box, f.piece, "120"},
		{"kg to mg", "1.5", f.kg, f.mg, "1500000"},
		{"mg to kg", "250", f.mg, f.kg, "0.00025"},
		{"same unit", "7", f.kg, f.kg, "7"},
		{"piece to dozen rounds to precision", "1", f.piece, f.dozen, "0.083333"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Convert(dec(tt.qty), tt.from.ID, tt.to.ID)
			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestUnitResolver_RoundTrip(t *testing.T) {
	f := newUnitFixture(t)
	r := NewUnitResolver(f.all(), DefaultQuantityPrecision)
	step := decimal.New(1, -DefaultQuantityPrecision)

	pairs := [][2]*Unit{{f.piece, f.dozen}, {f.box, f.piece}, {f.kg, f.mg}, {f.mg, f.gram}}
	for _, q := range []string{"1", "3.333333", "17", "0.5"} {
		for _, p := range pairs {
			there, err := r.Convert(dec(q), p[0].ID, p[1].ID)
			require.NoError(t, err)
			back, err := r.Convert(there, p[1].ID, p[0].ID)
			require.NoError(t, err)

			// rounding in the target unit is worth at most one step of it
			size, err := r.Convert(decimal.NewFromInt(1), p[1].ID, p[0].ID)
			require.NoError(t, err)
			tolerance := step.Mul(decimal.Max(size, decimal.NewFromInt(1)))
			assert.True(t, back.Sub(dec(q)).Abs().LessThanOrEqual(tolerance),
				"%s %s -> %s -> %s", q, p[0].Code, p[1].Code, back)
		}
	}
}

func TestUnitResolver_Errors(t *testing.T) {
	f := newUnitFixture(t)

	t.Run("incompatible units", func(t *testing.T) {
		r := NewUnitResolver(f.all(), DefaultQuantityPrecision)
		_, err := r.Convert(dec("1"), f.kg.ID, f.dozen.ID)
		assert.True(t, errors.Is(err, shared.ErrIncompatibleUnits))
	})

	t.Run("unknown unit", func(t *testing.T) {
		r := NewUnitResolver(f.all(), DefaultQuantityPrecision)
		_, err := r.Convert(dec("1"), uuid.New(), f.piece.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("cycle is detected", func(t *testing.T) {
		a, err := NewBaseUnit("a", "A")
		require.NoError(t, err)
		b, err := NewDerivedUnit("b", "B", a.ID, UnitOperatorMultiply, dec("2"))
		require.NoError(t, err)
		require.NoError(t, a.Rebase(b.ID, UnitOperatorMultiply, dec("3")))

		r := NewUnitResolver([]Unit{*a, *b}, DefaultQuantityPrecision)
		_, err = r.Convert(dec("1"), a.ID, b.ID)
		assert.True(t, errors.Is(err, shared.ErrCyclicUnitGraph))

		assert.True(t, errors.Is(ValidateGraph([]Unit{*a, *b}), shared.ErrCyclicUnitGraph))
	})

	t.Run("valid graph passes", func(t *testing.T) {
		assert.NoError(t, ValidateGraph(f.all()))
	})
}

func TestUnitResolver_ToBase(t *testing.T) {
	f := newUnitFixture(t)
	r := NewUnitResolver(f.all(), DefaultQuantityPrecision)

	qty, root, err := r.ToBase(dec("2"), f.box.ID)
	require.NoError(t, err)
	assert.Equal(t, f.piece.ID, root)
	assert.True(t, qty.Equal(dec("240")))
}
