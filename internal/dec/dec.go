// Package dec provides the exact-decimal arithmetic layer for the sizing
// engine: canonical string round-tripping, locale-aware parsing and
// formatting, and floor-semantics helpers.
//
// All monetary values use shopspring/decimal — never float64 for money.
// Every decimal persisted by the engine goes through Canonical / Parse so
// that a store/reload cycle reproduces the value bit for bit.
package dec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmpty is returned when parsing empty or whitespace-only text.
	ErrEmpty = errors.New("dec: empty decimal text")

	// ErrMalformed is returned when text cannot be interpreted as a
	// decimal number under any separator interpretation.
	ErrMalformed = errors.New("dec: malformed decimal text")
)

// floorDivScale is the quotient precision used by FloorDiv. The remainder
// returned by QuoRem is exact, so scale 0 yields the true integer quotient.
const floorDivScale = 0

// Locale describes the decimal and grouping separators of a display locale.
// Only the separators matter to the engine; everything else about a locale
// is a presentation concern.
type Locale struct {
	DecimalSep rune
	GroupSep   rune
}

var (
	// LocaleDot uses "." as decimal separator and "," for grouping (en).
	LocaleDot = Locale{DecimalSep: '.', GroupSep: ','}

	// LocaleComma uses "," as decimal separator and "." for grouping
	// (most of continental Europe).
	LocaleComma = Locale{DecimalSep: ',', GroupSep: '.'}
)

// Canonical returns the canonical string form of d. Parsing the result
// with Parse under any locale yields a value equal to d. This is the one
// serialization shared by every persisted decimal field.
func Canonical(d decimal.Decimal) string {
	return d.String()
}

// Parse interprets user or storage text as an exact decimal under the
// given locale. The locale's own separators are tried first; if the text
// uses the "wrong" separators (for example "1.234,56" typed under a
// dot-decimal locale) the alternate interpretation is accepted as a
// normalization fallback.
func Parse(text string, loc Locale) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, ErrEmpty
	}

	if d, err := parseWith(s, loc); err == nil {
		return d, nil
	}
	if d, err := parseWith(s, swapped(loc)); err == nil {
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformed, text)
}

// ParseOrZero is the recoverable form of Parse: unparseable text resolves
// to zero rather than an error. Callers in non-optional contexts treat
// "no value" as zero.
func ParseOrZero(text string, loc Locale) decimal.Decimal {
	d, err := Parse(text, loc)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseWith normalizes text written with loc's separators into canonical
// dot-decimal form and parses it exactly. Grouping is validated: once a
// group separator appears, every following group before the decimal point
// must hold exactly three digits.
func parseWith(s string, loc Locale) (decimal.Decimal, error) {
	var b strings.Builder
	b.Grow(len(s))
	seenDecimal := false
	grouped := false
	run := 0 // digits in the current integer-part group
	for _, r := range s {
		switch {
		case r == loc.GroupSep:
			if seenDecimal || run < 1 || run > 3 || (grouped && run != 3) {
				return decimal.Zero, ErrMalformed
			}
			grouped = true
			run = 0
		case r == loc.DecimalSep:
			if seenDecimal || (grouped && run != 3) {
				return decimal.Zero, ErrMalformed
			}
			seenDecimal = true
			b.WriteByte('.')
		case r >= '0' && r <= '9':
			if !seenDecimal {
				run++
			}
			b.WriteRune(r)
		case (r == '-' || r == '+') && b.Len() == 0 && run == 0:
			b.WriteRune(r)
		default:
			return decimal.Zero, ErrMalformed
		}
	}
	if grouped && !seenDecimal && run != 3 {
		return decimal.Zero, ErrMalformed
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, ErrMalformed
	}
	return d, nil
}

func swapped(loc Locale) Locale {
	return Locale{DecimalSep: loc.GroupSep, GroupSep: loc.DecimalSep}
}

// Format renders d for display under loc with a fixed number of fraction
// digits (banker-free half-up rounding, matching StringFixed) and optional
// thousands grouping. fractionDigits < 0 keeps the value's own scale.
func Format(d decimal.Decimal, fractionDigits int, useGrouping bool, loc Locale) string {
	var s string
	if fractionDigits < 0 {
		s = d.String()
	} else {
		s = d.StringFixed(int32(fractionDigits))
	}

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if useGrouping {
		writeGrouped(&b, intPart, loc.GroupSep)
	} else {
		b.WriteString(intPart)
	}
	if fracPart != "" {
		b.WriteRune(loc.DecimalSep)
		b.WriteString(fracPart)
	}
	return b.String()
}

func writeGrouped(b *strings.Builder, digits string, sep rune) {
	n := len(digits)
	for i, c := range digits {
		if i > 0 && (n-i)%3 == 0 {
			b.WriteRune(sep)
		}
		b.WriteRune(c)
	}
}

// FloorToScale truncates d toward negative infinity at the given number of
// fraction digits. True floor, not truncation toward zero: -1.5 at scale 0
// floors to -2.
func FloorToScale(d decimal.Decimal, scale int32) decimal.Decimal {
	return d.RoundFloor(scale)
}

// SafeDiv divides a by b, returning zero when b is zero. Division by zero
// is policy-defined at call sites in this engine; every caller treats it
// as "no result", never as a fault.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// FloorDiv returns floor(a / b) as an exact integer-valued decimal, and
// zero when b is zero. QuoRem carries an exact remainder, so quotients a
// hair above or below an integer boundary never floor to the wrong side.
func FloorDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	q, r := a.QuoRem(b, floorDivScale)
	// QuoRem truncates toward zero; step down when the truncated quotient
	// overshot a negative exact ratio.
	if !r.IsZero() && (a.Sign() < 0) != (b.Sign() < 0) {
		q = q.Sub(decimal.New(1, 0))
	}
	return q
}
