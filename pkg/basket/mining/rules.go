package mining

import (
	"fmt"
	"strings"

	"github.com/akins11/market-basket-analysis-web-app/internal/logging"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/itemset"
)

// WarningSupportTooLarge accompanies an empty rule table produced from an
// empty itemset table.
const WarningSupportTooLarge = "Minimum support value is too large"

// Rule table column names.
const (
	ColAntecedents       = "antecedents"
	ColConsequents       = "consequents"
	ColAntecedentSupport = "antecedent support"
	ColConsequentSupport = "consequent support"
	ColSupport           = "support"
	ColConfidence        = "confidence"
	ColLift              = "lift"
	ColLeverage          = "leverage"
	ColConviction        = "conviction"
	ColAntecedentLength  = "antecedent_length"
	ColConsequentLength  = "consequent_length"
)

// RuleColumns is the canonical rule table schema.
var RuleColumns = []string{
	ColAntecedents, ColConsequents, ColAntecedentSupport, ColConsequentSupport,
	ColSupport, ColConfidence, ColLift, ColLeverage, ColConviction,
}

var columnAliases = map[string]string{
	"antecedent_support": ColAntecedentSupport,
	"ant_support":        ColAntecedentSupport,
	"consequent_support": ColConsequentSupport,
	"con_support":        ColConsequentSupport,
	"antecedents_len":    ColAntecedentLength,
	"antecedent_len":     ColAntecedentLength,
	"consequents_len":    ColConsequentLength,
	"consequent_len":     ColConsequentLength,
}

// CanonicalColumn resolves a numeric rule column name or alias.
func CanonicalColumn(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := columnAliases[n]; ok {
		return alias, true
	}
	switch n {
	case ColAntecedentSupport, ColConsequentSupport, ColSupport, ColConfidence,
		ColLift, ColLeverage, ColConviction, ColAntecedentLength, ColConsequentLength:
		return n, true
	}
	return "", false
}

// Side names one of the two product sets of a rule.
type Side string

const (
	Antecedents Side = ColAntecedents
	Consequents Side = ColConsequents
)

// ParseSide accepts "antecedents" or "consequents", singular or plural.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "antecedents", "antecedent":
		return Antecedents, nil
	case "consequents", "consequent":
		return Consequents, nil
	}
	return "", fmt.Errorf("rule type %q, use antecedents or consequents: %w", s, internalerr.ErrInvalidArgument)
}

// Rule is a directional association antecedent -> consequent.
type Rule struct {
	Antecedents itemset.Set
	Consequents itemset.Set
	Scores
}

// SideOf returns the product set on the given side of the rule.
func (r Rule) SideOf(s Side) itemset.Set {
	if s == Consequents {
		return r.Consequents
	}
	return r.Antecedents
}

// Field returns a numeric column of the rule by name or alias.
func (r Rule) Field(name string) (float64, error) {
	col, ok := CanonicalColumn(name)
	if !ok {
		return 0, fmt.Errorf("rule column %q: %w", name, internalerr.ErrInvalidMetric)
	}
	switch col {
	case ColAntecedentSupport:
		return r.AntecedentSupport, nil
	case ColConsequentSupport:
		return r.ConsequentSupport, nil
	case ColSupport:
		return r.Support, nil
	case ColConfidence:
		return r.Confidence, nil
	case ColLift:
		return r.Lift, nil
	case ColLeverage:
		return r.Leverage, nil
	case ColConviction:
		return r.Conviction, nil
	case ColAntecedentLength:
		return float64(r.Antecedents.Len()), nil
	default:
		return float64(r.Consequents.Len()), nil
	}
}

// RuleTable is an ordered collection of rules. Warning is set when the table
// is empty because mining found nothing to build rules from.
type RuleTable struct {
	Rules   []Rule
	Warning string
}

// Len returns the number of rules.
func (t RuleTable) Len() int { return len(t.Rules) }

// Column returns a numeric column by name or alias.
func (t RuleTable) Column(name string) ([]float64, error) {
	if _, ok := CanonicalColumn(name); !ok {
		return nil, fmt.Errorf("rule column %q: %w", name, internalerr.ErrInvalidMetric)
	}
	out := make([]float64, len(t.Rules))
	for i, r := range t.Rules {
		v, err := r.Field(name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Where returns the rules for which keep returns true. The warning is not
// carried over.
func (t RuleTable) Where(keep func(Rule) bool) RuleTable {
	out := RuleTable{Rules: make([]Rule, 0, len(t.Rules))}
	for _, r := range t.Rules {
		if keep(r) {
			out.Rules = append(out.Rules, r)
		}
	}
	return out
}

// Thresholds select which rules are of interest.
type Thresholds struct {
	Metric       string
	MinThreshold float64
}

func (th Thresholds) metricOrDefault() string {
	if th.Metric == "" {
		return string(MetricLift)
	}
	return th.Metric
}

// AssociationRules splits every frequent itemset of two or more items into
// all antecedent -> consequent pairs and keeps the ones whose metric is at
// least MinThreshold. An empty itemset table yields an empty rule table
// carrying WarningSupportTooLarge.
func AssociationRules(itemsets ItemsetTable, th Thresholds) (RuleTable, error) {
	metric, err := ParseMetric(th.metricOrDefault())
	if err != nil {
		return RuleTable{}, err
	}
	if itemsets.Len() == 0 {
		logging.Warn().Str("metric", string(metric)).Msg(WarningSupportTooLarge)
		return RuleTable{Warning: WarningSupportTooLarge}, nil
	}

	support := make(map[string]float64, itemsets.Len())
	for _, it := range itemsets.Itemsets {
		support[it.Items.Key()] = it.Support
	}

	calc := NewCalculator()
	out := RuleTable{Rules: []Rule{}}
	for _, it := range itemsets.Itemsets {
		if it.Length() < 2 {
			continue
		}
		items := it.Items.Items()
		for size := len(items) - 1; size >= 1; size-- {
			for _, combo := range combinations(items, size) {
				ante := itemset.New(combo...)
				cons := it.Items.Minus(ante)
				sA, okA := support[ante.Key()]
				sC, okC := support[cons.Key()]
				if !okA || !okC {
					return RuleTable{}, fmt.Errorf("itemset %s is missing subset supports: %w", it.Items, internalerr.ErrInvalidInput)
				}
				scores := calc.Score(sA, sC, it.Support)
				if scores.Value(metric) >= th.MinThreshold {
					out.Rules = append(out.Rules, Rule{Antecedents: ante, Consequents: cons, Scores: scores})
				}
			}
		}
	}
	return out, nil
}

// combinations returns the size-k combinations of items in lexicographic
// index order.
func combinations(items []string, k int) [][]string {
	n := len(items)
	if k <= 0 || k > n {
		return nil
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	var out [][]string
	for {
		combo := make([]string, k)
		for i, x := range idx {
			combo[i] = items[x]
		}
		out = append(out, combo)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
