// Package money pairs exact-decimal amounts with ISO 4217 currency codes
// and converts amounts between the base and transaction currency bases.
//
// "Rate" throughout the engine means transaction-currency units per one
// base-currency unit.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/dec"
)

var (
	// ErrInvalidCurrency is returned for codes outside ISO 4217.
	ErrInvalidCurrency = errors.New("money: invalid currency code")

	// ErrCurrencyMismatch is returned when arithmetic is attempted
	// between amounts of different currencies without a rate.
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
)

// Basis selects which currency a provider's fees are computed against.
type Basis string

const (
	// BasisTransaction computes fees against the transaction-currency
	// amount as entered.
	BasisTransaction Basis = "transaction"

	// BasisBase computes fees against the base-currency equivalent.
	BasisBase Basis = "base"
)

// ParseBasis validates a basis string.
func ParseBasis(s string) (Basis, error) {
	switch Basis(s) {
	case BasisTransaction, BasisBase:
		return Basis(s), nil
	}
	return "", fmt.Errorf("money: invalid currency basis %q", s)
}

// Amount is an exact decimal value in a single currency. No arithmetic is
// defined between amounts of different currencies without an explicit rate.
type Amount struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

// NewAmount validates the currency code and builds an Amount.
func NewAmount(value decimal.Decimal, currency string) (Amount, error) {
	if !ValidCode(currency) {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	return Amount{Value: value, Currency: currency}, nil
}

// Add sums two amounts of the same currency.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.Currency != b.Currency {
		return Amount{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.Currency, b.Currency)
	}
	return Amount{Value: a.Value.Add(b.Value), Currency: a.Currency}, nil
}

// Convert moves an amount between bases using the given rate
// (transaction units per base unit): base→transaction multiplies,
// transaction→base divides. A zero rate on the dividing path collapses
// to zero rather than faulting.
func Convert(amount decimal.Decimal, from, to Basis, rate decimal.Decimal) decimal.Decimal {
	if from == to {
		return amount
	}
	if from == BasisBase && to == BasisTransaction {
		return amount.Mul(rate)
	}
	return dec.SafeDiv(amount, rate)
}

// EffectiveRate resolves the rate actually used for a calculation. It is
// exactly 1 whenever double-currency mode is off or the two codes are
// equal, regardless of any stored rate — a hard override, not a default.
func EffectiveRate(baseCurrency, transactionCurrency string, doubleCurrencyEnabled bool, storedRate decimal.Decimal) decimal.Decimal {
	if !doubleCurrencyEnabled || baseCurrency == transactionCurrency {
		return decimal.New(1, 0)
	}
	return storedRate
}
