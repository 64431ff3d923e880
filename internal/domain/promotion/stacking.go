package promotion

import (
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// StackingStrategy decides which competing discounts survive
type StackingStrategy interface {
	strategy.Strategy
	Mode() setting.StackingMode
	// SelectLine returns the indexes of the line discount amounts to apply
	SelectLine(amounts []decimal.Decimal) []int
	// KeepCoupon decides between plan discounts and the coupon
	KeepCoupon(planTotal, couponAmount decimal.Decimal) (keepPlans, keepCoupon bool)
}

// AdditiveStacking applies every applicable discount and the coupon
type AdditiveStacking struct {
	strategy.BaseStrategy
}

// NewAdditiveStacking creates the additive stacking strategy
func NewAdditiveStacking() *AdditiveStacking {
	return &AdditiveStacking{
		BaseStrategy: strategy.NewBaseStrategy("additive_stacking", strategy.StrategyTypeDiscount,
			"Sums every applicable discount and the coupon"),
	}
}

// Mode returns the stacking mode
func (s *AdditiveStacking) Mode() setting.StackingMode {
	return setting.StackingAdditive
}

// SelectLine keeps every amount
func (s *AdditiveStacking) SelectLine(amounts []decimal.Decimal) []int {
	idx := make([]int, len(amounts))
	for i := range amounts {
		idx[i] = i
	}
	return idx
}

// KeepCoupon keeps both
func (s *AdditiveStacking) KeepCoupon(_, _ decimal.Decimal) (bool, bool) {
	return true, true
}

// BestOfStacking applies only the largest discount per line, and either
// the plan discounts or the coupon, whichever saves more. Ties keep the
// plan discounts so the coupon use is not spent.
type BestOfStacking struct {
	strategy.BaseStrategy
}

// NewBestOfStacking creates the best-of stacking strategy
func NewBestOfStacking() *BestOfStacking {
	return &BestOfStacking{
		BaseStrategy: strategy.NewBaseStrategy("best_of_stacking", strategy.StrategyTypeDiscount,
			"Keeps only the most favourable discount"),
	}
}

// Mode returns the stacking mode
func (s *BestOfStacking) Mode() setting.StackingMode {
	return setting.StackingBestOf
}

// SelectLine keeps the largest amount, first one on ties
func (s *BestOfStacking) SelectLine(amounts []decimal.Decimal) []int {
	if len(amounts) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(amounts); i++ {
		if amounts[i].GreaterThan(amounts[best]) {
			best = i
		}
	}
	return []int{best}
}

// KeepCoupon keeps the larger side
func (s *BestOfStacking) KeepCoupon(planTotal, couponAmount decimal.Decimal) (bool, bool) {
	if couponAmount.GreaterThan(planTotal) {
		return false, true
	}
	return true, false
}

// NewStackingStrategy returns the strategy for the mode
func NewStackingStrategy(mode setting.StackingMode) (StackingStrategy, error) {
	switch mode {
	case setting.StackingAdditive, "":
		return NewAdditiveStacking(), nil
	case setting.StackingBestOf:
		return NewBestOfStacking(), nil
	}
	return nil, shared.NewValidationError("Unknown stacking mode %q", mode)
}
