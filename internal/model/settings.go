package model

import (
	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/money"
)

// Settings holds the calculation defaults a client pre-populates new
// calculations with. The engine consumes settings as plain input and never
// fetches them itself.
type Settings struct {
	BaseCurrency        string          `json:"base_currency" db:"base_currency"`
	TransactionCurrency string          `json:"transaction_currency" db:"transaction_currency"`
	DoubleCurrency      bool            `json:"double_currency" db:"double_currency"`
	ApplyCost           bool            `json:"apply_cost" db:"apply_cost"`
	CurrencyRate        decimal.Decimal `json:"currency_rate" db:"currency_rate"`
	DefaultFixedCost    decimal.Decimal `json:"default_fixed_cost" db:"default_fixed_cost"`
	DefaultVariableRate decimal.Decimal `json:"default_variable_rate" db:"default_variable_rate"`
	DefaultMaximumCost  decimal.Decimal `json:"default_maximum_cost" db:"default_maximum_cost"`
}

// DefaultSettings returns the settings used before any have been saved.
func DefaultSettings() Settings {
	return Settings{
		BaseCurrency:        "USD",
		TransactionCurrency: "USD",
		DoubleCurrency:      false,
		ApplyCost:           true,
		CurrencyRate:        decimal.New(1, 0),
	}.Normalize()
}

// Normalize derives the consistent form of raw settings. Turning double
// currency off snaps the transaction currency back to the base currency,
// and the rate is forced to 1 whenever conversion cannot apply. Invoked
// explicitly after every settings change; there are no hidden property
// side effects.
func (s Settings) Normalize() Settings {
	out := s
	if !out.DoubleCurrency {
		out.TransactionCurrency = out.BaseCurrency
	}
	out.CurrencyRate = money.EffectiveRate(
		out.BaseCurrency, out.TransactionCurrency, out.DoubleCurrency, out.CurrencyRate)
	return out
}

// Validate reports settings problems as human-readable messages.
func (s Settings) Validate() []string {
	var problems []string
	if !money.ValidCode(s.BaseCurrency) {
		problems = append(problems, "unknown base currency "+s.BaseCurrency)
	}
	if s.DoubleCurrency && !money.ValidCode(s.TransactionCurrency) {
		problems = append(problems, "unknown transaction currency "+s.TransactionCurrency)
	}
	if s.CurrencyRate.IsNegative() {
		problems = append(problems, "currency rate must not be negative")
	}
	if s.DefaultFixedCost.IsNegative() || s.DefaultVariableRate.IsNegative() || s.DefaultMaximumCost.IsNegative() {
		problems = append(problems, "default cost values must not be negative")
	}
	return problems
}
