package costing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/model"
	"github.com/finsizer/sizing-engine/internal/money"
)

// DefaultMinimumCost is the historical floor applied to a provider's total
// cost. It originates from the early single-provider model and is kept as
// a named, overridable parameter pending product confirmation; pass zero
// to NewAggregator to disable the floor entirely.
var DefaultMinimumCost = decimal.NewFromInt(150)

// ComponentCost is one line of a quote breakdown.
type ComponentCost struct {
	ComponentID string          `json:"component_id"`
	DisplayName string          `json:"display_name"`
	Credit      bool            `json:"credit"`
	Amount      decimal.Decimal `json:"amount"`

	// CreditExpiry is set for refundable components: the transaction
	// date plus the component's validity days.
	CreditExpiry *time.Time `json:"credit_expiry,omitempty"`
}

// Quote is the aggregate cost of executing a transaction with a provider.
type Quote struct {
	CalculationAmount decimal.Decimal `json:"calculation_amount"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	AdjustedCost      decimal.Decimal `json:"adjusted_cost"` // total cost after the minimum floor
	TotalCredits      decimal.Decimal `json:"total_credits"`
	NetCost           decimal.Decimal `json:"net_cost"`
	Breakdown         []ComponentCost `json:"breakdown"`
}

// Aggregator reduces a provider's components into a Quote. It is stateless
// apart from its configured minimum-cost floor.
type Aggregator struct {
	minimumCost decimal.Decimal
}

// NewAggregator creates an aggregator with the given minimum-cost floor.
// A zero or negative floor disables it.
func NewAggregator(minimumCost decimal.Decimal) *Aggregator {
	return &Aggregator{minimumCost: minimumCost}
}

// MinimumCost returns the configured floor.
func (a *Aggregator) MinimumCost() decimal.Decimal {
	return a.minimumCost
}

// Aggregate evaluates every component of the provider against the
// transaction amount and reduces them to a net cost:
//
//  1. The calculation amount follows the provider's currency basis: the
//     transaction amount as-is, or its base-currency equivalent
//     (amount × rate, the legacy basis-selection rule).
//  2. Components partition into fees and credits via IsCredit.
//  3. adjustedCost = max(sum of fees, minimum-cost floor).
//  4. NetCost = max(0, adjustedCost − sum of credits) — never negative.
//
// The breakdown lists fee components first, then credit components, each
// group in original provider order. asOf anchors credit expiry dates.
func (a *Aggregator) Aggregate(
	p model.Provider,
	transactionAmount decimal.Decimal,
	rate decimal.Decimal,
	asOf time.Time,
) Quote {
	calcAmount := transactionAmount
	if p.Basis == money.BasisBase {
		calcAmount = transactionAmount.Mul(rate)
	}

	totalCost := decimal.Zero
	totalCredits := decimal.Zero
	var fees, credits []ComponentCost

	for _, c := range p.Components {
		if c.IsCredit() {
			value := creditValue(c, calcAmount)
			totalCredits = totalCredits.Add(value)
			credits = append(credits, ComponentCost{
				ComponentID:  c.ID,
				DisplayName:  c.DisplayName,
				Credit:       true,
				Amount:       value,
				CreditExpiry: creditExpiry(c, asOf),
			})
			continue
		}

		value := Evaluate(c, calcAmount)
		totalCost = totalCost.Add(value)
		fees = append(fees, ComponentCost{
			ComponentID: c.ID,
			DisplayName: c.DisplayName,
			Amount:      value,
		})
	}

	adjustedCost := totalCost
	if a.minimumCost.IsPositive() && adjustedCost.LessThan(a.minimumCost) {
		adjustedCost = a.minimumCost
	}

	netCost := adjustedCost.Sub(totalCredits)
	if netCost.IsNegative() {
		netCost = decimal.Zero
	}

	return Quote{
		CalculationAmount: calcAmount,
		TotalCost:         totalCost,
		AdjustedCost:      adjustedCost,
		TotalCredits:      totalCredits,
		NetCost:           netCost,
		Breakdown:         append(fees, credits...),
	}
}

// creditExpiry returns the last day a refundable component's credit can be
// claimed, counted from the transaction date.
func creditExpiry(c model.CostComponent, asOf time.Time) *time.Time {
	if !c.Refundable || c.CreditValidDays <= 0 {
		return nil
	}
	expiry := asOf.AddDate(0, 0, c.CreditValidDays)
	return &expiry
}
