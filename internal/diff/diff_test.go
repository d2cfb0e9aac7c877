package diff

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/dec"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Scenario: from=1, to=2.5 → absolute 1.5, relative 1.5, displayed "150%".
func TestCompare_ReferenceScenario(t *testing.T) {
	res := Compare(d(1), d(2.5))

	if !res.AbsoluteDifference.Equal(d(1.5)) {
		t.Errorf("absolute = %s, want 1.5", res.AbsoluteDifference)
	}
	if res.RelativeDifference == nil {
		t.Fatal("relative difference should be present")
	}
	if !res.RelativeDifference.Equal(d(1.5)) {
		t.Errorf("relative = %s, want 1.5", res.RelativeDifference)
	}
	if got := FormatPercent(*res.RelativeDifference, 0, dec.LocaleDot); got != "150%" {
		t.Errorf("formatted = %q, want \"150%%\"", got)
	}
}

func TestCompare_Decrease(t *testing.T) {
	res := Compare(d(200), d(150))
	if !res.AbsoluteDifference.Equal(d(-50)) {
		t.Errorf("absolute = %s, want -50", res.AbsoluteDifference)
	}
	if res.RelativeDifference == nil || !res.RelativeDifference.Equal(d(-0.25)) {
		t.Errorf("relative = %v, want -0.25", res.RelativeDifference)
	}
}

// Relative is undefined when from is zero — absent, never NaN or a panic.
func TestRelative_UndefinedAtZero(t *testing.T) {
	if _, ok := Relative(decimal.Zero, d(42)); ok {
		t.Error("relative difference from zero should be undefined")
	}
	res := Compare(decimal.Zero, d(42))
	if res.RelativeDifference != nil {
		t.Errorf("relative should be absent, got %s", res.RelativeDifference)
	}
	if !res.AbsoluteDifference.Equal(d(42)) {
		t.Errorf("absolute = %s, want 42", res.AbsoluteDifference)
	}
}

// --- Relative mode: second operand is itself a fraction ---

func TestCumulative(t *testing.T) {
	// 200 grown by 15% → 230.
	got := Cumulative(d(200), d(0.15))
	if !got.Equal(d(230)) {
		t.Errorf("cumulative = %s, want 230", got)
	}
	// Negative fraction shrinks.
	got = Cumulative(d(200), d(-0.5))
	if !got.Equal(d(100)) {
		t.Errorf("cumulative = %s, want 100", got)
	}
}

func TestProductDifference(t *testing.T) {
	got := ProductDifference(d(200), d(0.15))
	if !got.Equal(d(30)) {
		t.Errorf("product difference = %s, want 30", got)
	}
}

// Cumulative and product difference reconcile: from + from×to = from×(1+to).
func TestRelativeMode_Reconciles(t *testing.T) {
	from, to := d(173.21), d(0.0842)
	if !Cumulative(from, to).Equal(from.Add(ProductDifference(from, to))) {
		t.Error("cumulative should equal from + product difference")
	}
}

func TestFormatPercent_Digits(t *testing.T) {
	if got := FormatPercent(d(0.0425), 2, dec.LocaleDot); got != "4.25%" {
		t.Errorf("formatted = %q, want \"4.25%%\"", got)
	}
	if got := FormatPercent(d(-0.1), 1, dec.LocaleComma); got != "-10,0%" {
		t.Errorf("formatted = %q, want \"-10,0%%\"", got)
	}
}
