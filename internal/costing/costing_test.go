package costing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/model"
	"github.com/finsizer/sizing-engine/internal/money"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

var asOf = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// --- Evaluate: base-cost formula per method ---

func TestEvaluate_Methods(t *testing.T) {
	amount := d(1000)
	tests := []struct {
		name string
		c    model.CostComponent
		want float64
	}{
		{
			"fixed only",
			model.CostComponent{Method: model.FixedOnly, FixedAmount: d(5)},
			5,
		},
		{
			"percentage only",
			model.CostComponent{Method: model.PercentageOnly, PercentageRate: d(0.001)},
			1,
		},
		{
			"fixed plus percentage",
			model.CostComponent{Method: model.FixedPlusPercentage, FixedAmount: d(5), PercentageRate: d(0.001)},
			6,
		},
		{
			"percentage with min max inside bounds",
			model.CostComponent{Method: model.PercentageWithMinMax, PercentageRate: d(0.002),
				MinimumAmount: d(1), MaximumAmount: d(10)},
			2,
		},
		{
			"monthly portfolio percentage",
			model.CostComponent{Method: model.MonthlyPercentageOfPortfolio, PercentageRate: d(0.0005)},
			0.5,
		},
		{
			"unknown method evaluates to zero",
			model.CostComponent{Method: "tiered", FixedAmount: d(99)},
			0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.c, amount)
			if !got.Equal(d(tt.want)) {
				t.Errorf("Evaluate = %s, want %v", got, tt.want)
			}
		})
	}
}

// Clamping applies to every method, and a bound of exactly zero is the
// "unset" sentinel, never a real bound.
func TestEvaluate_Clamping(t *testing.T) {
	tests := []struct {
		name string
		c    model.CostComponent
		amt  float64
		want float64
	}{
		{
			"minimum raises percentage result",
			model.CostComponent{Method: model.PercentageWithMinMax, PercentageRate: d(0.001), MinimumAmount: d(3)},
			1000, 3,
		},
		{
			"maximum caps percentage result",
			model.CostComponent{Method: model.PercentageWithMinMax, PercentageRate: d(0.01), MaximumAmount: d(5)},
			1000, 5,
		},
		{
			"minimum applies to fixed method too",
			model.CostComponent{Method: model.FixedOnly, FixedAmount: d(2), MinimumAmount: d(4)},
			1000, 4,
		},
		{
			"maximum applies to fixed-plus-percentage too",
			model.CostComponent{Method: model.FixedPlusPercentage, FixedAmount: d(5), PercentageRate: d(0.01), MaximumAmount: d(8)},
			1000, 8,
		},
		{
			"zero minimum is unset",
			model.CostComponent{Method: model.PercentageOnly, PercentageRate: d(0.001)},
			100, 0.1,
		},
		{
			"zero maximum is unset",
			model.CostComponent{Method: model.PercentageOnly, PercentageRate: d(0.01)},
			1000000, 10000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.c, d(tt.amt))
			if !got.Equal(d(tt.want)) {
				t.Errorf("Evaluate = %s, want %v", got, tt.want)
			}
		})
	}
}

// Evaluate is pure: applying it twice yields the same result.
func TestEvaluate_Idempotent(t *testing.T) {
	c := model.CostComponent{Method: model.PercentageWithMinMax,
		PercentageRate: d(0.0015), MinimumAmount: d(2), MaximumAmount: d(40)}
	amount := d(12345.67)
	first := Evaluate(c, amount)
	second := Evaluate(c, amount)
	if !first.Equal(second) {
		t.Errorf("expected identical results, got %s then %s", first, second)
	}
}

// --- Aggregate ---

func provider(basis money.Basis, components ...model.CostComponent) model.Provider {
	return model.Provider{
		ID:         "p1",
		Name:       "Test Broker",
		ActiveFrom: asOf.AddDate(-1, 0, 0),
		Basis:      basis,
		Components: components,
	}
}

// Scenario from the legacy single-provider model: 5 fixed + 0.1% of 1000
// = 6 total, floored to 150.
func TestAggregate_LegacyMinimumFloor(t *testing.T) {
	p := provider(money.BasisTransaction,
		model.CostComponent{ID: "c1", DisplayName: "order fee", Kind: model.KindFee,
			Method: model.FixedOnly, FixedAmount: d(5)},
		model.CostComponent{ID: "c2", DisplayName: "volume fee", Kind: model.KindFee,
			Method: model.PercentageOnly, PercentageRate: d(0.001)},
	)

	q := NewAggregator(DefaultMinimumCost).Aggregate(p, d(1000), d(1), asOf)

	if !q.TotalCost.Equal(d(6)) {
		t.Errorf("total cost = %s, want 6", q.TotalCost)
	}
	if !q.AdjustedCost.Equal(d(150)) {
		t.Errorf("adjusted cost = %s, want 150", q.AdjustedCost)
	}
	if !q.NetCost.Equal(d(150)) {
		t.Errorf("net cost = %s, want 150", q.NetCost)
	}
}

func TestAggregate_FloorDisabled(t *testing.T) {
	p := provider(money.BasisTransaction,
		model.CostComponent{ID: "c1", DisplayName: "order fee", Kind: model.KindFee,
			Method: model.FixedOnly, FixedAmount: d(5)},
	)

	q := NewAggregator(decimal.Zero).Aggregate(p, d(1000), d(1), asOf)
	if !q.NetCost.Equal(d(5)) {
		t.Errorf("net cost with floor disabled = %s, want 5", q.NetCost)
	}
}

func TestAggregate_CreditsReduceNetCost(t *testing.T) {
	p := provider(money.BasisTransaction,
		model.CostComponent{ID: "c1", DisplayName: "order fee", Kind: model.KindFee,
			Method: model.FixedOnly, FixedAmount: d(200)},
		model.CostComponent{ID: "c2", DisplayName: "welcome credit", Kind: model.KindCredit,
			Method: model.FixedOnly, FixedAmount: d(30)},
	)

	q := NewAggregator(DefaultMinimumCost).Aggregate(p, d(1000), d(1), asOf)
	if !q.TotalCost.Equal(d(200)) {
		t.Errorf("total cost = %s, want 200", q.TotalCost)
	}
	if !q.TotalCredits.Equal(d(30)) {
		t.Errorf("total credits = %s, want 30", q.TotalCredits)
	}
	if !q.NetCost.Equal(d(170)) {
		t.Errorf("net cost = %s, want 170", q.NetCost)
	}
}

// Net cost is floored at zero, never negative.
func TestAggregate_NetCostNeverNegative(t *testing.T) {
	p := provider(money.BasisTransaction,
		model.CostComponent{ID: "c1", DisplayName: "small fee", Kind: model.KindFee,
			Method: model.FixedOnly, FixedAmount: d(5)},
		model.CostComponent{ID: "c2", DisplayName: "huge credit", Kind: model.KindCredit,
			Method: model.FixedOnly, FixedAmount: d(10000)},
	)

	q := NewAggregator(DefaultMinimumCost).Aggregate(p, d(1000), d(1), asOf)
	if q.NetCost.IsNegative() {
		t.Errorf("net cost must never be negative, got %s", q.NetCost)
	}
	if !q.NetCost.IsZero() {
		t.Errorf("net cost = %s, want 0", q.NetCost)
	}
}

// Refundable fees land in the credit partition with their fixed credit
// amount and carry an expiry date.
func TestAggregate_RefundableComponent(t *testing.T) {
	p := provider(money.BasisTransaction,
		model.CostComponent{ID: "c1", DisplayName: "intro fee", Kind: model.KindFee,
			Method: model.FixedOnly, FixedAmount: d(300),
			Refundable: true, CreditAmount: d(25), CreditValidDays: 90},
	)

	q := NewAggregator(decimal.Zero).Aggregate(p, d(1000), d(1), asOf)

	if !q.TotalCost.IsZero() {
		t.Errorf("refundable component should not add to cost, got %s", q.TotalCost)
	}
	if !q.TotalCredits.Equal(d(25)) {
		t.Errorf("total credits = %s, want 25", q.TotalCredits)
	}
	if len(q.Breakdown) != 1 {
		t.Fatalf("expected one breakdown line, got %d", len(q.Breakdown))
	}
	line := q.Breakdown[0]
	if !line.Credit {
		t.Error("breakdown line should be marked as credit")
	}
	wantExpiry := asOf.AddDate(0, 0, 90)
	if line.CreditExpiry == nil || !line.CreditExpiry.Equal(wantExpiry) {
		t.Errorf("credit expiry = %v, want %s", line.CreditExpiry, wantExpiry)
	}
}

// Base-currency basis multiplies the transaction amount by the rate
// before any component is evaluated.
func TestAggregate_BaseCurrencyBasis(t *testing.T) {
	c := model.CostComponent{ID: "c1", DisplayName: "volume fee", Kind: model.KindFee,
		Method: model.PercentageOnly, PercentageRate: d(0.001)}

	txBased := NewAggregator(decimal.Zero).
		Aggregate(provider(money.BasisTransaction, c), d(1000), d(2), asOf)
	baseBased := NewAggregator(decimal.Zero).
		Aggregate(provider(money.BasisBase, c), d(1000), d(2), asOf)

	if !txBased.CalculationAmount.Equal(d(1000)) {
		t.Errorf("transaction basis amount = %s, want 1000", txBased.CalculationAmount)
	}
	if !baseBased.CalculationAmount.Equal(d(2000)) {
		t.Errorf("base basis amount = %s, want 2000", baseBased.CalculationAmount)
	}
	if !baseBased.TotalCost.Equal(d(2)) {
		t.Errorf("base basis total cost = %s, want 2", baseBased.TotalCost)
	}
}

// Breakdown lists fee components first, then credits, each group in
// original provider order.
func TestAggregate_BreakdownOrdering(t *testing.T) {
	p := provider(money.BasisTransaction,
		model.CostComponent{ID: "credit1", DisplayName: "credit one", Kind: model.KindCredit,
			Method: model.FixedOnly, FixedAmount: d(1)},
		model.CostComponent{ID: "fee1", DisplayName: "fee one", Kind: model.KindFee,
			Method: model.FixedOnly, FixedAmount: d(2)},
		model.CostComponent{ID: "fee2", DisplayName: "fee two", Kind: model.KindFee,
			Method: model.FixedOnly, FixedAmount: d(3)},
		model.CostComponent{ID: "credit2", DisplayName: "credit two", Kind: model.KindCredit,
			Method: model.FixedOnly, FixedAmount: d(4)},
	)

	q := NewAggregator(decimal.Zero).Aggregate(p, d(1000), d(1), asOf)

	wantOrder := []string{"fee1", "fee2", "credit1", "credit2"}
	if len(q.Breakdown) != len(wantOrder) {
		t.Fatalf("expected %d lines, got %d", len(wantOrder), len(q.Breakdown))
	}
	for i, want := range wantOrder {
		if q.Breakdown[i].ComponentID != want {
			t.Errorf("breakdown[%d] = %s, want %s", i, q.Breakdown[i].ComponentID, want)
		}
	}
}

func TestAggregate_EmptyProvider(t *testing.T) {
	q := NewAggregator(decimal.Zero).Aggregate(provider(money.BasisTransaction), d(1000), d(1), asOf)
	if !q.TotalCost.IsZero() || !q.TotalCredits.IsZero() || !q.NetCost.IsZero() {
		t.Errorf("empty provider should quote zero, got %+v", q)
	}
	if len(q.Breakdown) != 0 {
		t.Errorf("expected empty breakdown, got %d lines", len(q.Breakdown))
	}
}
