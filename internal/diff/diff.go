// Package diff compares two independently entered decimal values as
// absolute and relative differences, plus a relative mode where the second
// operand is itself a fraction.
//
// Relative results are stored as plain fractions (1.5 means +150%); the
// ×100 happens only at presentation time in FormatPercent.
package diff

import (
	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/dec"
)

// Result carries both differences. Relative is absent (ok=false in the
// computing functions, nil here) when the "from" operand is zero.
type Result struct {
	AbsoluteDifference decimal.Decimal  `json:"absolute_difference"`
	RelativeDifference *decimal.Decimal `json:"relative_difference,omitempty"`
}

// Absolute returns to − from.
func Absolute(from, to decimal.Decimal) decimal.Decimal {
	return to.Sub(from)
}

// Relative returns (to − from) / from as a fraction. The second return is
// false when from is zero: the relative difference is undefined there,
// never a fault or a propagated NaN.
func Relative(from, to decimal.Decimal) (decimal.Decimal, bool) {
	if from.IsZero() {
		return decimal.Zero, false
	}
	return to.Sub(from).Div(from), true
}

// Compare computes both differences in absolute mode.
func Compare(from, to decimal.Decimal) Result {
	res := Result{AbsoluteDifference: Absolute(from, to)}
	if rel, ok := Relative(from, to); ok {
		res.RelativeDifference = &rel
	}
	return res
}

// Cumulative treats to as an already-entered relative fraction and returns
// from × (1 + to): the value after applying the relative change.
func Cumulative(from, to decimal.Decimal) decimal.Decimal {
	return from.Mul(decimal.New(1, 0).Add(to))
}

// ProductDifference treats to as a relative fraction and returns from × to:
// the absolute change the fraction represents.
func ProductDifference(from, to decimal.Decimal) decimal.Decimal {
	return from.Mul(to)
}

// FormatPercent renders a stored fraction for display: multiplied by 100,
// fixed fraction digits, and a percent sign. A fraction of 1.5 renders as
// "150%" at zero digits.
func FormatPercent(fraction decimal.Decimal, fractionDigits int, loc dec.Locale) string {
	return dec.Format(fraction.Mul(decimal.New(100, 0)), fractionDigits, false, loc) + "%"
}
