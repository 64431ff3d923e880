package catalog

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultQuantityPrecision is the minimum fractional precision of conversions
const DefaultQuantityPrecision int32 = 6

// ratio keeps the factor of a unit walk as num/den so the only division
// happens once, at the end of a conversion.
type ratio struct {
	num decimal.Decimal
	den decimal.Decimal
}

func unitRatio() ratio {
	return ratio{num: decimal.NewFromInt(1), den: decimal.NewFromInt(1)}
}

func (r ratio) mul(o ratio) ratio {
	return ratio{num: r.num.Mul(o.num), den: r.den.Mul(o.den)}
}

// UnitResolver converts quantities across an arena of units keyed by id.
// Units are resolved iteratively; revisiting a unit on a walk is a cycle.
type UnitResolver struct {
	units     map[uuid.UUID]*Unit
	precision int32
}

// NewUnitResolver creates a resolver over the given units
func NewUnitResolver(units []Unit, precision int32) *UnitResolver {
	if precision < DefaultQuantityPrecision {
		precision = DefaultQuantityPrecision
	}
	arena := make(map[uuid.UUID]*Unit, len(units))
	for i := range units {
		arena[units[i].ID] = &units[i]
	}
	return &UnitResolver{units: arena, precision: precision}
}

// Convert converts quantity from one unit into another unit sharing the same base
func (r *UnitResolver) Convert(quantity decimal.Decimal, fromUnitID, toUnitID uuid.UUID) (decimal.Decimal, error) {
	if fromUnitID == toUnitID {
		if _, ok := r.units[fromUnitID]; !ok {
			return decimal.Zero, shared.NewDomainErrorf(shared.CodeNotFound, "Unit %s not found", fromUnitID)
		}
		return quantity, nil
	}

	fromRoot, fromRatio, err := r.resolve(fromUnitID)
	if err != nil {
		return decimal.Zero, err
	}
	toRoot, toRatio, err := r.resolve(toUnitID)
	if err != nil {
		return decimal.Zero, err
	}
	if fromRoot != toRoot {
		return decimal.Zero, shared.NewDomainErrorf(shared.CodeIncompatibleUnits,
			"Unit %s and unit %s do not share a base unit", r.code(fromUnitID), r.code(toUnitID))
	}

	// base = q * from.num / from.den ; target = base * to.den / to.num
	numerator := quantity.Mul(fromRatio.num).Mul(toRatio.den)
	denominator := fromRatio.den.Mul(toRatio.num)
	return numerator.DivRound(denominator, r.precision), nil
}

// ToBase converts a quantity into its root unit and returns the root id
func (r *UnitResolver) ToBase(quantity decimal.Decimal, unitID uuid.UUID) (decimal.Decimal, uuid.UUID, error) {
	root, f, err := r.resolve(unitID)
	if err != nil {
		return decimal.Zero, uuid.Nil, err
	}
	return quantity.Mul(f.num).DivRound(f.den, r.precision), root, nil
}

// BaseOf returns the root unit id of the given unit
func (r *UnitResolver) BaseOf(unitID uuid.UUID) (uuid.UUID, error) {
	root, _, err := r.resolve(unitID)
	return root, err
}

// resolve walks base_unit links until a root is reached
func (r *UnitResolver) resolve(unitID uuid.UUID) (uuid.UUID, ratio, error) {
	visited := make(map[uuid.UUID]struct{})
	acc := unitRatio()
	current := unitID

	for {
		if _, seen := visited[current]; seen {
			return uuid.Nil, ratio{}, shared.NewDomainErrorf(shared.CodeCyclicUnitGraph,
				"Unit %s resolves back to itself through %s", r.code(unitID), r.code(current))
		}
		visited[current] = struct{}{}

		u, ok := r.units[current]
		if !ok {
			return uuid.Nil, ratio{}, shared.NewDomainErrorf(shared.CodeNotFound, "Unit %s not found", current)
		}
		acc = acc.mul(u.step())
		if u.IsBase() {
			return u.ID, acc, nil
		}
		current = *u.BaseUnitID
	}
}

func (r *UnitResolver) code(id uuid.UUID) string {
	if u, ok := r.units[id]; ok {
		return u.Code
	}
	return id.String()
}

// ValidateGraph checks that every unit resolves to exactly one root
func ValidateGraph(units []Unit) error {
	r := NewUnitResolver(units, DefaultQuantityPrecision)
	for _, u := range units {
		if _, _, err := r.resolve(u.ID); err != nil {
			return err
		}
	}
	return nil
}
