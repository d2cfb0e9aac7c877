package dec

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// --- Canonical round-trip ---

func TestCanonical_RoundTrip(t *testing.T) {
	values := []string{
		"0", "1", "-1", "0.1", "-0.1",
		"150", "0.001", "1234567.89",
		"100.000000003", "33.333333333",
		"0.000000000000000000000000000001",
		"99999999999999999999999999999999999999",
		"-42.000000000000000001",
	}
	for _, s := range values {
		v := d(s)
		got, err := Parse(Canonical(v), LocaleDot)
		if err != nil {
			t.Fatalf("Parse(Canonical(%s)): %v", s, err)
		}
		if !got.Equal(v) {
			t.Errorf("round-trip changed value: in=%s out=%s", v, got)
		}
	}
}

func TestCanonical_RoundTripCommaLocale(t *testing.T) {
	// The canonical form must survive reparsing under a comma-decimal
	// locale via the normalization fallback.
	v := d("1234.56")
	got, err := Parse(Canonical(v), LocaleComma)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(v) {
		t.Errorf("expected %s, got %s", v, got)
	}
}

// --- Parse ---

func TestParse_LocaleSeparators(t *testing.T) {
	tests := []struct {
		name string
		text string
		loc  Locale
		want string
	}{
		{"dot plain", "1234.56", LocaleDot, "1234.56"},
		{"dot grouped", "1,234.56", LocaleDot, "1234.56"},
		{"comma plain", "1234,56", LocaleComma, "1234.56"},
		{"comma grouped", "1.234,56", LocaleComma, "1234.56"},
		{"wrong separators under dot locale", "1.234,56", LocaleDot, "1234.56"},
		{"wrong separators under comma locale", "1,234.56", LocaleComma, "1234.56"},
		{"negative", "-42,5", LocaleComma, "-42.5"},
		{"integer", "1000000", LocaleDot, "1000000"},
		{"leading dot", ".5", LocaleDot, "0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text, tt.loc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("Parse(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, text := range []string{"", "   ", "abc", "1..2", "1,2,3.4.5", "12x"} {
		if _, err := Parse(text, LocaleDot); err == nil {
			t.Errorf("Parse(%q) should fail", text)
		}
	}
}

func TestParseOrZero_RecoversToZero(t *testing.T) {
	if got := ParseOrZero("not a number", LocaleDot); !got.IsZero() {
		t.Errorf("expected zero, got %s", got)
	}
	if got := ParseOrZero("2,5", LocaleComma); !got.Equal(d("2.5")) {
		t.Errorf("expected 2.5, got %s", got)
	}
}

// --- Format ---

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		digits   int
		grouping bool
		loc      Locale
		want     string
	}{
		{"dot grouped", "1234567.891", 2, true, LocaleDot, "1,234,567.89"},
		{"comma grouped", "1234567.891", 2, true, LocaleComma, "1.234.567,89"},
		{"no grouping", "1234.5", 2, false, LocaleDot, "1234.50"},
		{"exact scale kept", "0.125", -1, false, LocaleDot, "0.125"},
		{"negative grouped", "-9876543.21", 2, true, LocaleDot, "-9,876,543.21"},
		{"zero digits", "99.99", 0, false, LocaleDot, "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(d(tt.value), tt.digits, tt.grouping, tt.loc)
			if got != tt.want {
				t.Errorf("Format(%s) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

// --- Floor helpers ---

func TestFloorToScale_TrueFloor(t *testing.T) {
	tests := []struct {
		value string
		scale int32
		want  string
	}{
		{"2.9", 0, "2"},
		{"2.999999999", 0, "2"},
		{"3.0000000001", 0, "3"},
		{"-1.5", 0, "-2"},
		{"1.2345", 2, "1.23"},
		{"-1.2345", 2, "-1.24"},
	}
	for _, tt := range tests {
		got := FloorToScale(d(tt.value), tt.scale)
		if !got.Equal(d(tt.want)) {
			t.Errorf("FloorToScale(%s, %d) = %s, want %s", tt.value, tt.scale, got, tt.want)
		}
	}
}

func TestSafeDiv_ZeroDivisor(t *testing.T) {
	if got := SafeDiv(d("10"), decimal.Zero); !got.IsZero() {
		t.Errorf("expected zero for zero divisor, got %s", got)
	}
	if got := SafeDiv(d("10"), d("4")); !got.Equal(d("2.5")) {
		t.Errorf("expected 2.5, got %s", got)
	}
}

func TestFloorDiv_ExactBoundaries(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"10000", "150", "66"},
		{"100.000000003", "33.333333333", "3"},
		{"99.999999999", "33.333333333", "3"},
		{"9", "3", "3"},
		{"8.9999999999999999999999", "3", "2"},
		{"0", "7", "0"},
		{"-10", "3", "-4"},
		{"5", "0", "0"},
	}
	for _, tt := range tests {
		got := FloorDiv(d(tt.a), d(tt.b))
		if !got.Equal(d(tt.want)) {
			t.Errorf("FloorDiv(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}
