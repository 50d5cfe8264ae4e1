package predicate

import (
	"errors"
	"reflect"
	"testing"

	"github.com/goccy/go-json"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/itemset"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
)

func ptr(s string) *string { return &s }

func TestCompileDuplicateKeepsLaterOccurrence(t *testing.T) {
	got, err := Compile(
		Strings("lift", "lift"),
		Floats(1.0, 2.0),
		Strings("==", "<"),
		[]*string{nil, ptr("&")},
	)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !reflect.DeepEqual(got.Clauses(), map[string]float64{"lift": 2.0}) {
		t.Errorf("clauses = %v", got.Clauses())
	}
	if !reflect.DeepEqual(got.Ops, []string{"<"}) {
		t.Errorf("ops = %v", got.Ops)
	}
	if len(got.Connectors) != 0 {
		t.Errorf("connectors = %v", got.Connectors)
	}
	if !reflect.DeepEqual(got.Dropped, []int{0}) {
		t.Errorf("dropped = %v", got.Dropped)
	}
}

func TestCompileDropsClauseWithoutValue(t *testing.T) {
	got, err := Compile(
		Strings("support", "lift"),
		[]*float64{Floats(0.1)[0], nil},
		[]*string{ptr(">"), nil},
		[]*string{ptr("&"), nil},
	)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !reflect.DeepEqual(got.Metrics, []string{"support"}) || got.Values[0] != 0.1 {
		t.Errorf("clauses = %v %v", got.Metrics, got.Values)
	}
	if !reflect.DeepEqual(got.Ops, []string{">"}) || len(got.Connectors) != 0 {
		t.Errorf("ops = %v connectors = %v", got.Ops, got.Connectors)
	}
	if !reflect.DeepEqual(got.Dropped, []int{1}) {
		t.Errorf("dropped = %v", got.Dropped)
	}
}

func TestCompileCompleteInput(t *testing.T) {
	got, err := Compile(
		Strings("Support", "LIFT", "confidence"),
		Floats(0.1, 1, 0.2),
		Strings(">", ">=", "<"),
		[]*string{ptr("&"), ptr("|"), nil},
	)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !reflect.DeepEqual(got.Metrics, []string{"support", "lift", "confidence"}) {
		t.Errorf("metrics = %v", got.Metrics)
	}
	if !reflect.DeepEqual(got.Connectors, []string{"&", "|"}) {
		t.Errorf("connectors = %v", got.Connectors)
	}
	if len(got.Dropped) != 0 {
		t.Errorf("nothing should be dropped, got %v", got.Dropped)
	}
}

func TestCompileDropsClauseWithoutOperator(t *testing.T) {
	got, err := Compile(
		Strings("support", "lift", "confidence"),
		Floats(0.1, 1, 0.2),
		[]*string{ptr(">"), nil, ptr("<")},
		[]*string{ptr("&"), ptr("|"), nil},
	)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !reflect.DeepEqual(got.Metrics, []string{"support", "confidence"}) {
		t.Errorf("metrics = %v", got.Metrics)
	}
	if !reflect.DeepEqual(got.Ops, []string{">", "<"}) {
		t.Errorf("ops = %v", got.Ops)
	}
	if !reflect.DeepEqual(got.Connectors, []string{"&"}) {
		t.Errorf("connectors = %v", got.Connectors)
	}
}

func TestCompileDropsClauseWithoutConnector(t *testing.T) {
	got, err := Compile(
		Strings("support", "lift", "confidence"),
		Floats(0.1, 1, 0.2),
		Strings(">", ">=", "<"),
		[]*string{nil, ptr("&"), nil},
	)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !reflect.DeepEqual(got.Metrics, []string{"lift", "confidence"}) {
		t.Errorf("metrics = %v", got.Metrics)
	}
	if !reflect.DeepEqual(got.Ops, []string{">=", "<"}) {
		t.Errorf("ops = %v", got.Ops)
	}
	if !reflect.DeepEqual(got.Connectors, []string{"&"}) {
		t.Errorf("connectors = %v", got.Connectors)
	}
	if !reflect.DeepEqual(got.Dropped, []int{0}) {
		t.Errorf("dropped = %v", got.Dropped)
	}
}

func TestCompileWithoutConnectors(t *testing.T) {
	for _, conns := range [][]*string{nil, {nil}} {
		got, err := Compile(Strings("lift"), Floats(1), Strings(">"), conns)
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		q, err := got.Query()
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(q.Clauses) != 1 || q.Clauses[0].Op != OpGT || len(q.Connectors) != 0 {
			t.Fatalf("unexpected query %+v", q)
		}
	}
}

func TestCompileMetricAliases(t *testing.T) {
	got, err := Compile(Strings("Ant_Support"), Floats(0.2), Strings("<="), nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	q, err := got.Query()
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if q.Clauses[0].Metric != mining.ColAntecedentSupport {
		t.Fatalf("alias not resolved: %q", q.Clauses[0].Metric)
	}
}

func TestCompileRejectsMissingMetricName(t *testing.T) {
	_, err := Compile([]*string{nil}, Floats(1), Strings(">"), nil)
	if !errors.Is(err, internalerr.ErrTypeConstraint) {
		t.Fatalf("expected ErrTypeConstraint, got %v", err)
	}
}

func TestCompileMismatchedLengths(t *testing.T) {
	_, err := Compile(Strings("lift", "support"), Floats(1), Strings(">", "<"), nil)
	if !errors.Is(err, internalerr.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestCompileTripleDuplicateLeavesInconsistentQuery(t *testing.T) {
	got, err := Compile(
		Strings("lift", "lift", "lift"),
		Floats(1, 2, 3),
		Strings(">", ">", ">"),
		[]*string{ptr("&"), ptr("&"), nil},
	)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !reflect.DeepEqual(got.Clauses(), map[string]float64{"lift": 3}) {
		t.Fatalf("clauses = %v", got.Clauses())
	}
	if _, err := got.Query(); !errors.Is(err, internalerr.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch from Query, got %v", err)
	}
}

func TestInputRejectsNonLists(t *testing.T) {
	cases := []string{
		`{"metrics": "lift", "values": [1], "comp_ops": [">"]}`,
		`{"metrics": ["lift"], "values": 1, "comp_ops": [">"]}`,
		`{"metrics": ["lift"], "values": [1], "comp_ops": [">"], "bool_ops": "&"}`,
		`{"metrics": ["lift"], "values": ["high"], "comp_ops": [">"]}`,
		`[1, 2]`,
	}
	for _, c := range cases {
		var in Input
		if err := json.Unmarshal([]byte(c), &in); !errors.Is(err, internalerr.ErrTypeConstraint) {
			t.Errorf("%s: expected ErrTypeConstraint, got %v", c, err)
		}
	}
}

func TestInputCompile(t *testing.T) {
	var in Input
	payload := `{"metrics": ["lift", "lift"], "values": [1.0, 2.0], "comp_ops": ["==", "<"], "bool_ops": [null, "&"]}`
	if err := json.Unmarshal([]byte(payload), &in); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, err := in.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !reflect.DeepEqual(got.Clauses(), map[string]float64{"lift": 2.0}) {
		t.Fatalf("clauses = %v", got.Clauses())
	}
}

func TestNewQueryValidation(t *testing.T) {
	if _, err := NewQuery([]string{"lift"}, []float64{1}, []string{"=>"}, nil); !errors.Is(err, internalerr.ErrInvalidOperator) {
		t.Errorf("expected ErrInvalidOperator, got %v", err)
	}
	if _, err := NewQuery([]string{"lift", "support"}, []float64{1, 0.1}, []string{">", ">"}, []string{"xor"}); !errors.Is(err, internalerr.ErrInvalidConnector) {
		t.Errorf("expected ErrInvalidConnector, got %v", err)
	}
	if _, err := NewQuery([]string{"lift", "support"}, []float64{1, 0.1}, []string{">", ">"}, nil); !errors.Is(err, internalerr.ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
	if _, err := NewQuery([]string{"zhangs"}, []float64{1}, []string{">"}, nil); !errors.Is(err, internalerr.ErrInvalidMetric) {
		t.Errorf("expected ErrInvalidMetric, got %v", err)
	}
}

func rule(lift, support float64) mining.Rule {
	return mining.Rule{
		Antecedents: itemset.New("A"),
		Consequents: itemset.New("B"),
		Scores:      mining.Scores{Lift: lift, Support: support},
	}
}

func TestTreeAndBindsTighterThanOr(t *testing.T) {
	// lift > 2 | lift < 1 & support > 0.5  ==  (lift > 2) | (lift < 1 & support > 0.5)
	q, err := NewQuery(
		[]string{"lift", "lift", "support"},
		[]float64{2, 1, 0.5},
		[]string{">", "<", ">"},
		[]string{"|", "&"},
	)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	tree := q.Tree()
	cases := []struct {
		r    mining.Rule
		want bool
	}{
		{rule(3, 0.1), true},
		{rule(0.5, 0.9), true},
		{rule(0.5, 0.1), false},
		{rule(1.5, 0.9), false},
	}
	for _, c := range cases {
		if got := tree.Eval(c.r); got != c.want {
			t.Errorf("Eval(lift=%v support=%v) = %v, want %v", c.r.Lift, c.r.Support, got, c.want)
		}
	}
	if q.String() != "(lift > 2) | (lift < 1) & (support > 0.5)" {
		t.Errorf("String() = %q", q.String())
	}
}

func TestEmptyTreeMatchesEverything(t *testing.T) {
	if !(Query{}).Tree().Eval(rule(0, 0)) {
		t.Fatal("empty query should match")
	}
}
