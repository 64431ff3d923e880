// Package strategy holds the common identity of pluggable policies such as
// batch selection and discount stacking.
package strategy

// StrategyType groups strategies by the decision they make
type StrategyType string

const (
	// StrategyTypeBatch picks which stock batches an outgoing quantity consumes
	StrategyTypeBatch StrategyType = "batch_outbound"
	// StrategyTypeDiscount decides which competing discounts survive
	StrategyTypeDiscount StrategyType = "discount_stacking"
)

func (t StrategyType) String() string {
	return string(t)
}

// Strategy is implemented by every named policy
type Strategy interface {
	Name() string
	Type() StrategyType
	Description() string
}

// BaseStrategy is embedded by concrete strategies to satisfy Strategy
type BaseStrategy struct {
	name         string
	strategyType StrategyType
	description  string
}

// NewBaseStrategy creates a BaseStrategy
func NewBaseStrategy(name string, strategyType StrategyType, description string) BaseStrategy {
	return BaseStrategy{name: name, strategyType: strategyType, description: description}
}

func (s BaseStrategy) Name() string        { return s.name }
func (s BaseStrategy) Type() StrategyType  { return s.strategyType }
func (s BaseStrategy) Description() string { return s.description }
