package risk

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDegenerateRisk is returned when the stop is not strictly below the entry, so a
// per-unit risk cannot be derived. Callers skip the trade.
var ErrDegenerateRisk = errors.New("degenerate risk: stop price must be below entry price")

// ErrInvalidRiskInput covers non-positive capital, fraction or entry price.
var ErrInvalidRiskInput = errors.New("invalid risk input")

// ----- public API -----

// SizePosition returns a fixed-fractional quantity: the loss from entry to stop equals
// riskFraction of availableCapital. The result is capped by maxAffordableQuantity so the
// trade never needs more cash than is available, before fees.
func SizePosition(
	availableCapital decimal.Decimal,
	riskFraction decimal.Decimal,
	entryPrice decimal.Decimal,
	stopPrice decimal.Decimal,
	maxAffordableQuantity decimal.Decimal,
) (decimal.Decimal, error) {
	if !availableCapital.IsPositive() || !riskFraction.IsPositive() || !entryPrice.IsPositive() {
		return decimal.Zero, ErrInvalidRiskInput
	}

	riskPerUnit := entryPrice.Sub(stopPrice)
	if !riskPerUnit.IsPositive() {
		return decimal.Zero, ErrDegenerateRisk
	}

	riskAmount := availableCapital.Mul(riskFraction)
	qty := riskAmount.Div(riskPerUnit)

	if maxAffordableQuantity.IsNegative() {
		maxAffordableQuantity = decimal.Zero
	}
	return decimal.Min(qty, maxAffordableQuantity), nil
}

// MaxAffordableQuantity is how many units availableCapital buys at entryPrice.
func MaxAffordableQuantity(availableCapital, entryPrice decimal.Decimal) decimal.Decimal {
	if !entryPrice.IsPositive() || !availableCapital.IsPositive() {
		return decimal.Zero
	}
	return availableCapital.Div(entryPrice)
}

// MaxPositions is the global cap on simultaneous positions:
// floor(maxGlobalRisk / riskPerTrade).
func MaxPositions(maxGlobalRisk, riskPerTrade decimal.Decimal) int {
	if !riskPerTrade.IsPositive() || maxGlobalRisk.IsNegative() {
		return 0
	}
	return int(maxGlobalRisk.Div(riskPerTrade).Floor().IntPart())
}
