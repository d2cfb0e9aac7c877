// Package model defines the core domain types shared across the sizing
// engine. All monetary values use shopspring/decimal — never float64 for
// money; persisted decimal fields round-trip through canonical strings.
package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/money"
)

// CalculationMethod selects the base-cost formula of a cost component.
type CalculationMethod string

const (
	// FixedOnly charges the fixed amount, independent of volume.
	FixedOnly CalculationMethod = "fixed_only"

	// PercentageOnly charges amount × rate.
	PercentageOnly CalculationMethod = "percentage_only"

	// FixedPlusPercentage charges fixed + amount × rate.
	FixedPlusPercentage CalculationMethod = "fixed_plus_percentage"

	// PercentageWithMinMax charges amount × rate clamped to [min, max].
	PercentageWithMinMax CalculationMethod = "percentage_min_max"

	// MonthlyPercentageOfPortfolio charges portfolio value × rate.
	MonthlyPercentageOfPortfolio CalculationMethod = "monthly_portfolio_percentage"
)

// ValidMethod reports whether m is a known calculation method.
func ValidMethod(m CalculationMethod) bool {
	switch m {
	case FixedOnly, PercentageOnly, FixedPlusPercentage,
		PercentageWithMinMax, MonthlyPercentageOfPortfolio:
		return true
	}
	return false
}

// ComponentKind partitions components into fees and credits.
type ComponentKind string

const (
	KindFee    ComponentKind = "fee"
	KindCredit ComponentKind = "credit"
)

// CostComponent is one fee or credit rule within a provider. For a given
// calculation method only the parameters that method uses are meaningful;
// the evaluator never applies an unused parameter. A minimum or maximum of
// exactly zero means "unset" — no clamp on that side.
type CostComponent struct {
	ID          string            `json:"id" db:"id"`
	DisplayName string            `json:"display_name" db:"display_name"`
	Kind        ComponentKind     `json:"kind" db:"kind"`
	Method      CalculationMethod `json:"method" db:"method"`

	FixedAmount    decimal.Decimal `json:"fixed_amount" db:"fixed_amount"`
	PercentageRate decimal.Decimal `json:"percentage_rate" db:"percentage_rate"` // fraction: 0.001 = 0.1%
	MinimumAmount  decimal.Decimal `json:"minimum_amount" db:"minimum_amount"`
	MaximumAmount  decimal.Decimal `json:"maximum_amount" db:"maximum_amount"`

	Refundable      bool            `json:"refundable" db:"refundable"`
	CreditAmount    decimal.Decimal `json:"credit_amount" db:"credit_amount"`
	CreditValidDays int             `json:"credit_valid_days" db:"credit_valid_days"`
}

// IsCredit reports whether the component reduces rather than increases the
// transaction cost: credit-kind components and refundable fees.
func (c CostComponent) IsCredit() bool {
	return c.Kind == KindCredit || c.Refundable
}

// UsesFixed reports whether the component's method reads FixedAmount.
func (c CostComponent) UsesFixed() bool {
	return c.Method == FixedOnly || c.Method == FixedPlusPercentage
}

// UsesPercentage reports whether the component's method reads PercentageRate.
func (c CostComponent) UsesPercentage() bool {
	return c.Method == PercentageOnly || c.Method == FixedPlusPercentage ||
		c.Method == PercentageWithMinMax || c.Method == MonthlyPercentageOfPortfolio
}

// Validate reports component problems as human-readable messages. Callers
// decide whether to block saving; calculation proceeds best-effort either
// way, so nothing here is an error value.
func (c CostComponent) Validate() []string {
	var problems []string

	if c.DisplayName == "" {
		problems = append(problems, "component name must not be empty")
	}
	if !ValidMethod(c.Method) {
		problems = append(problems, "unknown calculation method "+string(c.Method))
		return problems
	}

	switch c.Method {
	case FixedOnly:
		if !c.FixedAmount.IsPositive() {
			problems = append(problems, c.DisplayName+": fixed amount must be positive")
		}
	case FixedPlusPercentage:
		if !c.FixedAmount.IsPositive() && !c.PercentageRate.IsPositive() {
			problems = append(problems, c.DisplayName+": fixed amount or percentage rate must be positive")
		}
	case PercentageWithMinMax:
		// A positive minimum alone still yields a meaningful cost.
		if !c.PercentageRate.IsPositive() && !c.MinimumAmount.IsPositive() {
			problems = append(problems, c.DisplayName+": percentage rate or minimum amount must be positive")
		}
	case PercentageOnly, MonthlyPercentageOfPortfolio:
		if !c.PercentageRate.IsPositive() {
			problems = append(problems, c.DisplayName+": percentage rate must be positive")
		}
	}

	if c.MinimumAmount.IsPositive() && c.MaximumAmount.IsPositive() &&
		c.MinimumAmount.GreaterThan(c.MaximumAmount) {
		problems = append(problems, c.DisplayName+": minimum amount exceeds maximum amount")
	}
	if c.Refundable && !c.CreditAmount.IsPositive() {
		problems = append(problems, c.DisplayName+": refundable component needs a positive credit amount")
	}
	if c.CreditValidDays < 0 {
		problems = append(problems, c.DisplayName+": credit validity days must not be negative")
	}

	return problems
}

// Provider is a bank/broker fee profile active over a date range. It
// exclusively owns its components: their lifetime is bound to the provider
// and they are stored and deleted with it, in order.
type Provider struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	AccountTier string          `json:"account_tier" db:"account_tier"`
	ActiveFrom  time.Time       `json:"active_from" db:"active_from"`
	ActiveTo    *time.Time      `json:"active_to,omitempty" db:"active_to"`
	Basis       money.Basis     `json:"calculation_currency_basis" db:"calculation_currency_basis"`
	Components  []CostComponent `json:"components"`
}

// IsActive reports whether the provider applies on the given date:
// date ≥ ActiveFrom and, when an end is set, date ≤ ActiveTo.
func (p Provider) IsActive(date time.Time) bool {
	if date.Before(p.ActiveFrom) {
		return false
	}
	return p.ActiveTo == nil || !date.After(*p.ActiveTo)
}

// Validate reports provider problems as human-readable messages, including
// those of every owned component.
func (p Provider) Validate() []string {
	var problems []string

	if p.Name == "" {
		problems = append(problems, "provider name must not be empty")
	}
	if _, err := money.ParseBasis(string(p.Basis)); err != nil {
		problems = append(problems, "unknown currency basis "+string(p.Basis))
	}
	if p.ActiveTo != nil && p.ActiveTo.Before(p.ActiveFrom) {
		problems = append(problems, "active-to date precedes active-from date")
	}
	for _, c := range p.Components {
		problems = append(problems, c.Validate()...)
	}

	return problems
}
