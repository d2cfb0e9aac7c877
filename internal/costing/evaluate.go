// Package costing implements the composable transaction-cost model: a pure
// evaluator that maps one cost component and a transaction amount to a fee
// or credit value, and an aggregator that reduces a provider's ordered
// component set into a single net cost.
//
// All monetary values use shopspring/decimal — never float64 for money.
// Everything in this package is stateless and side-effect free; results
// depend only on the arguments.
package costing

import (
	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/model"
)

// Evaluate computes a component's base cost against the transaction amount
// and applies min/max clamping:
//
//	FixedOnly                    → fixed
//	PercentageOnly               → amount × rate
//	FixedPlusPercentage          → fixed + amount × rate
//	PercentageWithMinMax         → amount × rate, clamped
//	MonthlyPercentageOfPortfolio → portfolio value × rate
//
// Clamping applies to every method, not only PercentageWithMinMax: a
// positive minimum raises the result, a positive maximum caps it. A bound
// of exactly zero is the "unset" sentinel and imposes no clamp.
func Evaluate(c model.CostComponent, transactionAmount decimal.Decimal) decimal.Decimal {
	var cost decimal.Decimal

	switch c.Method {
	case model.FixedOnly:
		cost = c.FixedAmount
	case model.PercentageOnly, model.MonthlyPercentageOfPortfolio:
		cost = transactionAmount.Mul(c.PercentageRate)
	case model.FixedPlusPercentage:
		cost = c.FixedAmount.Add(transactionAmount.Mul(c.PercentageRate))
	case model.PercentageWithMinMax:
		cost = transactionAmount.Mul(c.PercentageRate)
	default:
		// Unknown methods evaluate to zero; validation reports them.
		return decimal.Zero
	}

	return clamp(cost, c.MinimumAmount, c.MaximumAmount)
}

// clamp raises cost to min and caps it at max, treating a zero bound as
// unset on that side.
func clamp(cost, min, max decimal.Decimal) decimal.Decimal {
	if min.IsPositive() && cost.LessThan(min) {
		cost = min
	}
	if max.IsPositive() && cost.GreaterThan(max) {
		cost = max
	}
	return cost
}

// creditValue computes what a credit-partition component contributes to
// total credits. Refundable fees carry a fixed credit amount; credit-kind
// components run through the regular evaluation formula (a percentage
// cashback, for instance).
func creditValue(c model.CostComponent, transactionAmount decimal.Decimal) decimal.Decimal {
	if c.Refundable {
		return c.CreditAmount
	}
	return Evaluate(c, transactionAmount)
}
