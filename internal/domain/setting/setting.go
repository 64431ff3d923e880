// Package setting holds the explicitly loaded store configuration that the
// ledger, calculators and settlement engine are parameterised with.
package setting

import (
	"time"

	"github.com/shopspring/decimal"
)

// StackingMode decides how several discounts on the same line, and the
// coupon against plan discounts, combine.
type StackingMode string

const (
	StackingAdditive StackingMode = "additive"
	StackingBestOf   StackingMode = "best_of"
)

// IsValid checks if the stacking mode is valid
func (m StackingMode) IsValid() bool {
	return m == StackingAdditive || m == StackingBestOf
}

// BatchStrategy selects the comparator used when an outgoing delta has no batch.
type BatchStrategy string

const (
	BatchStrategyFEFO BatchStrategy = "FEFO"
	BatchStrategyFIFO BatchStrategy = "FIFO"
)

// IsValid checks if the batch strategy is valid
func (s BatchStrategy) IsValid() bool {
	return s == BatchStrategyFEFO || s == BatchStrategyFIFO
}

// GeneralSetting mirrors the store-wide general settings.
type GeneralSetting struct {
	// Decimals is the number of fractional digits money is rounded to per line.
	Decimals int32
	// QuantityPrecision is the fractional precision of unit conversions.
	QuantityPrecision int32
	// WithoutStock permits overselling for every product.
	WithoutStock bool
	// PaymentEpsilon absorbs rounding when comparing paid and grand totals.
	PaymentEpsilon decimal.Decimal
	BatchStrategy  BatchStrategy
}

// StackingPolicy is the configurable discount conflict rule.
type StackingPolicy struct {
	Mode StackingMode
	// CapPercent caps the total discount at a percentage of the gross
	// amount. Zero disables the cap.
	CapPercent decimal.Decimal
}

// PosSetting holds point-of-sale behaviour.
type PosSetting struct {
	// RequireOpenRegister rejects POS sales without an open cash register.
	RequireOpenRegister bool
}

// RewardPointSetting configures earning and redeeming reward points.
type RewardPointSetting struct {
	IsActive bool
	// PerPointAmount is the spend needed to earn one point.
	PerPointAmount decimal.Decimal
	// MinimumAmount is the smallest grand total that earns points.
	MinimumAmount decimal.Decimal
	// RedeemValue is the currency value of one redeemed point.
	RedeemValue decimal.Decimal
	// Expiry is how long earned points stay valid. Zero means no expiry.
	Expiry time.Duration
}

// Settings bundles every setting group the engine consumes.
type Settings struct {
	General     GeneralSetting
	Stacking    StackingPolicy
	Pos         PosSetting
	RewardPoint RewardPointSetting
}

// Default returns settings suitable for tests and development
func Default() Settings {
	return Settings{
		General: GeneralSetting{
			Decimals:          2,
			QuantityPrecision: 6,
			PaymentEpsilon:    decimal.NewFromFloat(0.005),
			BatchStrategy:     BatchStrategyFEFO,
		},
		Stacking: StackingPolicy{
			Mode:       StackingAdditive,
			CapPercent: decimal.Zero,
		},
		RewardPoint: RewardPointSetting{
			PerPointAmount: decimal.NewFromInt(100),
			RedeemValue:    decimal.NewFromInt(1),
		},
	}
}

// RoundMoney rounds a money amount to the configured decimals
func (g GeneralSetting) RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(g.Decimals)
}
