package mining

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/itemset"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// sampleTable has four baskets: {A,B} {A,B,C} {A} {B,C}.
func sampleTable() txn.Table {
	tx := func(c, p string, q int) txn.Transaction {
		return txn.Transaction{CustomerID: c, Product: p, SKU: "1", Quantity: q}
	}
	return txn.NewTable([]txn.Transaction{
		tx("C1", "A", 1), tx("C1", "B", 2),
		tx("C2", "A", 1), tx("C2", "B", 1), tx("C2", "C", 1),
		tx("C3", "A", 3), tx("C3", "D", 0),
		tx("C4", "B", 1), tx("C4", "C", 1),
	})
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCounterPresence(t *testing.T) {
	c := CountBaskets(sampleTable())
	if c.TotalBaskets() != 4 {
		t.Fatalf("expected 4 baskets, got %d", c.TotalBaskets())
	}
	if c.ItemCount("D") != 0 {
		t.Errorf("zero quantity must not count as presence")
	}
	if got := c.Count("A", "B"); got != 2 {
		t.Errorf("Count(A,B) = %d, want 2", got)
	}
	if got := c.Support("B", "C"); !approx(got, 0.5) {
		t.Errorf("Support(B,C) = %v, want 0.5", got)
	}
}

func TestCounterManyBaskets(t *testing.T) {
	c := NewCounter()
	for i := 0; i < 130; i++ {
		if i%2 == 0 {
			c.AddBasket([]string{"x", "y"})
		} else {
			c.AddBasket([]string{"x"})
		}
	}
	if c.Count("x") != 130 || c.Count("x", "y") != 65 {
		t.Fatalf("counts across words wrong: x=%d xy=%d", c.Count("x"), c.Count("x", "y"))
	}
}

func TestMineFrequentItemsets(t *testing.T) {
	got, err := Mine(context.Background(), sampleTable(), Options{MinSupport: 0.3})
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	want := []struct {
		items   []string
		support float64
	}{
		{[]string{"A"}, 0.75},
		{[]string{"B"}, 0.75},
		{[]string{"C"}, 0.5},
		{[]string{"A", "B"}, 0.5},
		{[]string{"B", "C"}, 0.5},
	}
	if got.Len() != len(want) {
		t.Fatalf("expected %d itemsets, got %d: %+v", len(want), got.Len(), got.Itemsets)
	}
	for i, w := range want {
		it := got.Itemsets[i]
		if !it.Items.Equal(itemset.New(w.items...)) || !approx(it.Support, w.support) {
			t.Errorf("itemset %d = %v (%v), want %v (%v)", i, it.Items, it.Support, w.items, w.support)
		}
	}
}

func TestMineZeroSupportAndMaxLength(t *testing.T) {
	all, err := Mine(context.Background(), sampleTable(), Options{})
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if all.Len() != 7 {
		t.Fatalf("expected every occurring itemset (7), got %d", all.Len())
	}

	capped, err := Mine(context.Background(), sampleTable(), Options{MaxLength: 2})
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	lengths, _ := capped.Column(ColLength)
	for _, l := range lengths {
		if l > 2 {
			t.Fatalf("itemset longer than max length: %v", lengths)
		}
	}
	if capped.Len() != 6 {
		t.Fatalf("expected 6 itemsets, got %d", capped.Len())
	}
}

func TestMineRejectsBadOptions(t *testing.T) {
	if _, err := Mine(context.Background(), sampleTable(), Options{MinSupport: 1.5}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := Mine(context.Background(), sampleTable(), Options{MaxLength: -1}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMineHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Mine(ctx, sampleTable(), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type fakeFinder struct {
	sets []Itemset
	err  error
}

func (f fakeFinder) FrequentItemsets(ctx context.Context, c *Counter, minSupport float64, maxLength int) ([]Itemset, error) {
	return f.sets, f.err
}

func TestMineUsesFinder(t *testing.T) {
	finder := fakeFinder{sets: []Itemset{{Items: itemset.New("Z"), Support: 1}}}
	got, err := Mine(context.Background(), sampleTable(), Options{Finder: finder})
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if got.Len() != 1 || !got.Itemsets[0].Items.Equal(itemset.New("Z")) {
		t.Fatalf("finder result not used: %+v", got)
	}

	if _, err := Mine(context.Background(), sampleTable(), Options{Finder: fakeFinder{err: errors.New("down")}}); err == nil {
		t.Fatal("expected finder error")
	}
}

func TestAssociationRulesMetrics(t *testing.T) {
	sets, err := Mine(context.Background(), sampleTable(), Options{MinSupport: 0.3})
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	rules, err := AssociationRules(sets, Thresholds{Metric: "confidence", MinThreshold: 0})
	if err != nil {
		t.Fatalf("AssociationRules: %v", err)
	}
	if rules.Len() != 4 {
		t.Fatalf("expected 4 rules, got %d", rules.Len())
	}
	if rules.Warning != "" {
		t.Fatalf("unexpected warning %q", rules.Warning)
	}

	var cToB *Rule
	for i, r := range rules.Rules {
		if !r.Antecedents.Disjoint(r.Consequents) || r.Antecedents.Empty() || r.Consequents.Empty() {
			t.Fatalf("rule %d violates disjoint non-empty sides: %v -> %v", i, r.Antecedents, r.Consequents)
		}
		if r.Antecedents.Equal(itemset.New("C")) {
			cToB = &rules.Rules[i]
		}
	}
	if cToB == nil {
		t.Fatal("missing rule C -> B")
	}
	if !approx(cToB.Confidence, 1) || !approx(cToB.Lift, 1/0.75) || !approx(cToB.Leverage, 0.5-0.5*0.75) {
		t.Errorf("C -> B scores %+v", cToB.Scores)
	}
	if !math.IsInf(cToB.Conviction, 1) {
		t.Errorf("conviction with confidence 1 should be +Inf, got %v", cToB.Conviction)
	}
}

func TestAssociationRulesThreshold(t *testing.T) {
	sets, _ := Mine(context.Background(), sampleTable(), Options{MinSupport: 0.3})
	rules, err := AssociationRules(sets, Thresholds{Metric: "lift", MinThreshold: 1})
	if err != nil {
		t.Fatalf("AssociationRules: %v", err)
	}
	if rules.Len() != 2 {
		t.Fatalf("expected 2 rules with lift >= 1, got %d", rules.Len())
	}
	for _, r := range rules.Rules {
		if r.Lift < 1 {
			t.Errorf("rule below threshold kept: %+v", r)
		}
	}
}

func TestAssociationRulesAntecedentOrder(t *testing.T) {
	sets := ItemsetTable{Itemsets: []Itemset{
		{Items: itemset.New("A"), Support: 0.5},
		{Items: itemset.New("B"), Support: 0.5},
		{Items: itemset.New("C"), Support: 0.5},
		{Items: itemset.New("A", "B"), Support: 0.5},
		{Items: itemset.New("A", "C"), Support: 0.5},
		{Items: itemset.New("B", "C"), Support: 0.5},
		{Items: itemset.New("A", "B", "C"), Support: 0.5},
	}}
	rules, err := AssociationRules(sets, Thresholds{Metric: "support"})
	if err != nil {
		t.Fatalf("AssociationRules: %v", err)
	}
	// 2 rules per pair and 6 for the triple
	if rules.Len() != 12 {
		t.Fatalf("expected 12 rules, got %d", rules.Len())
	}
	first := rules.Rules[6]
	if first.Antecedents.Len() != 2 || !first.Antecedents.Equal(itemset.New("A", "B")) {
		t.Fatalf("larger antecedents should come first, got %v", first.Antecedents)
	}
}

func TestAssociationRulesInvalidMetric(t *testing.T) {
	_, err := AssociationRules(ItemsetTable{}, Thresholds{Metric: "jaccard"})
	if !errors.Is(err, internalerr.ErrInvalidMetric) {
		t.Fatalf("expected ErrInvalidMetric, got %v", err)
	}
}

func TestAssociationRulesEmptyItemsets(t *testing.T) {
	rules, err := AssociationRules(ItemsetTable{}, Thresholds{Metric: "lift", MinThreshold: 1})
	if err != nil {
		t.Fatalf("empty itemsets must not fail: %v", err)
	}
	if rules.Len() != 0 || rules.Warning != WarningSupportTooLarge {
		t.Fatalf("expected empty table with warning, got %+v", rules)
	}
}

func TestRuleFieldAliases(t *testing.T) {
	r := Rule{
		Antecedents: itemset.New("A", "B"),
		Consequents: itemset.New("C"),
		Scores:      Scores{AntecedentSupport: 0.4, ConsequentSupport: 0.3},
	}
	for name, want := range map[string]float64{
		"ant_support":        0.4,
		"antecedent support": 0.4,
		"Con_Support":        0.3,
		"antecedent_length":  2,
		"consequent_length":  1,
	} {
		got, err := r.Field(name)
		if err != nil || got != want {
			t.Errorf("Field(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := r.Field("nope"); !errors.Is(err, internalerr.ErrInvalidMetric) {
		t.Errorf("expected ErrInvalidMetric, got %v", err)
	}
}

func TestRangeFor(t *testing.T) {
	if r := RangeFor(MetricLeverage); r.Min != -1 || r.Default != 0.001 {
		t.Fatalf("leverage range %+v", r)
	}
	if _, err := ParseMetric("LIFT"); err != nil {
		t.Fatalf("ParseMetric should be case insensitive: %v", err)
	}
}
