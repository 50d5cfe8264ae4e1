// Package describe summarizes rule and itemset tables.
package describe

import (
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
)

// Kind selects the summarized table shape.
type Kind int

const (
	// Rules summarizes an association rule table.
	Rules Kind = iota
	// SupLen summarizes a frequent itemset table.
	SupLen
)

// ParseKind accepts "rules" and "sup_len" (or "itemsets").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rules":
		return Rules, nil
	case "sup_len", "itemsets":
		return SupLen, nil
	}
	return 0, fmt.Errorf("summary kind %q, use rules or sup_len: %w", s, internalerr.ErrInvalidArgument)
}

func (k Kind) String() string {
	switch k {
	case Rules:
		return "rules"
	case SupLen:
		return "sup_len"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) countKey() string {
	if k == SupLen {
		return "n_itemsets"
	}
	return "n_rules"
}

// RuleMetrics are the rule columns summarized by kind Rules.
var RuleMetrics = []string{mining.ColSupport, mining.ColConfidence, mining.ColLift, mining.ColLeverage, mining.ColConviction}

// ItemsetMetrics are the itemset columns summarized by kind SupLen.
var ItemsetMetrics = []string{mining.ColSupport, mining.ColLength}

// Range is the observed [Min, Max] of a column.
type Range struct {
	Min float64
	Max float64
}

// MarshalJSON writes the range as a two element array. Infinite bounds are
// written as "inf".
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{jsonFloat(r.Min), jsonFloat(r.Max)})
}

func jsonFloat(v float64) any {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return v
}

// Summary is the row count plus the range of each metric. An empty table
// has no ranges.
type Summary struct {
	Kind    Kind
	Count   int
	Metrics []string
	Ranges  map[string]Range
}

// Describe summarizes a rule table.
func Describe(rules mining.RuleTable) Summary {
	s := Summary{Kind: Rules, Count: rules.Len(), Metrics: RuleMetrics, Ranges: map[string]Range{}}
	if rules.Len() == 0 {
		return s
	}
	for _, m := range RuleMetrics {
		col, _ := rules.Column(m)
		s.Ranges[m] = rangeOf(col)
	}
	return s
}

// DescribeItemsets summarizes a frequent itemset table.
func DescribeItemsets(sets mining.ItemsetTable) Summary {
	s := Summary{Kind: SupLen, Count: sets.Len(), Metrics: ItemsetMetrics, Ranges: map[string]Range{}}
	if sets.Len() == 0 {
		return s
	}
	for _, m := range ItemsetMetrics {
		col, _ := sets.Column(m)
		s.Ranges[m] = rangeOf(col)
	}
	return s
}

func rangeOf(col []float64) Range {
	r := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range col {
		r.Min = math.Min(r.Min, v)
		r.Max = math.Max(r.Max, v)
	}
	return r
}

// MarshalJSON writes {"n_rules"|"n_itemsets": count, metric: [min, max], ...}.
func (s Summary) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Ranges)+1)
	out[s.Kind.countKey()] = s.Count
	for m, r := range s.Ranges {
		out[m] = r
	}
	return json.Marshal(out)
}

// Markdown renders the summary as a short paragraph and a table. name
// labels the source of the table, e.g. "Analysis" or "Filtered Data".
func (s Summary) Markdown(name string) string {
	var b strings.Builder
	if s.Kind == SupLen {
		fmt.Fprintf(&b, "%s returned %s unique itemset.\n\n", name, thousands(s.Count))
		b.WriteString("|  | Minimum | Maximum |\n| --- | --- | --- |\n")
	} else {
		fmt.Fprintf(&b, "%s returned **%s** rules.\n\n", name, thousands(s.Count))
		b.WriteString("| Metric | Minimum | Maximum |\n| --- | --- | --- |\n")
	}
	for _, m := range s.Metrics {
		r, ok := s.Ranges[m]
		if !ok {
			continue
		}
		if m == mining.ColLength {
			fmt.Fprintf(&b, "| Number of products in an itemset | %d | %d |\n", int(r.Min), int(r.Max))
			continue
		}
		fmt.Fprintf(&b, "| %s | %.5f | %.5f |\n", strings.ToUpper(m[:1])+m[1:], r.Min, r.Max)
	}
	return b.String()
}

// thousands formats n with comma separators.
func thousands(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
