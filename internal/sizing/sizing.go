// Package sizing computes how many whole units of an asset the available
// capital can buy once the net transaction cost and currency conversion
// are accounted for.
//
// All monetary values use shopspring/decimal — never float64 for money.
// The calculator is pure: degenerate inputs (zero price, zero rate) yield
// explicit zero results, never faults.
package sizing

import (
	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/dec"
)

// Input gathers the values of one sizing calculation. It is assembled per
// call and never persisted.
type Input struct {
	AvailableAmount decimal.Decimal `json:"available_amount"` // base currency
	NetCost         decimal.Decimal `json:"net_cost"`         // base currency
	CurrencyRate    decimal.Decimal `json:"currency_rate"`    // transaction units per base unit
	UnitPrice       decimal.Decimal `json:"unit_price"`       // transaction currency
}

// Result is the outcome of a sizing calculation. InvestableAmount may be
// negative: that is the insufficient-funds signal, not an error.
type Result struct {
	InvestableAmount decimal.Decimal `json:"investable_amount"`
	UnitsPurchasable int64           `json:"units_purchasable"`
	InvestedAmount   decimal.Decimal `json:"invested_amount"`
	RemainingAmount  decimal.Decimal `json:"remaining_amount"`
}

// Size computes the purchasable whole units and the leftover capital:
//
//	investable = (available − netCost) × rate   (rate 0 → 0)
//	units      = floor(investable / price)      (price ≤ 0 → 0, never negative)
//	invested   = units × price
//	remaining  = investable − invested
//
// The floor division is exact: the quotient is computed with an exact
// remainder, so ratios a hair off an integer boundary from intermediate
// rounding can never land on the wrong unit count.
func Size(in Input) Result {
	investableBase := in.AvailableAmount.Sub(in.NetCost)

	investable := decimal.Zero
	if !in.CurrencyRate.IsZero() {
		investable = investableBase.Mul(in.CurrencyRate)
	}

	var units int64
	if in.UnitPrice.IsPositive() && investable.IsPositive() {
		units = dec.FloorDiv(investable, in.UnitPrice).IntPart()
	}

	invested := in.UnitPrice.Mul(decimal.NewFromInt(units))

	return Result{
		InvestableAmount: investable,
		UnitsPurchasable: units,
		InvestedAmount:   invested,
		RemainingAmount:  investable.Sub(invested),
	}
}
