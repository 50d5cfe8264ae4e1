package project

import (
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
)

// Selection picks the rules a projection is built from.
type Selection struct {
	Range           int  `json:"range"`  // leading rules to use; 0 uses the first rule only
	ByRow           bool `json:"by_row"` // one pair per rule instead of one merged pair
	CustomerIDsOnly bool `json:"customer_ids_only"`
}

// Extract collects the products on one side of the leading rules. Without
// a range it returns the first rule's products. With ByRow each rule is its
// own group, otherwise the products of all selected rules are merged into a
// single group in order of first appearance. An empty table yields nil.
func Extract(rules mining.RuleTable, side mining.Side, rangeN int, byRow bool) [][]string {
	if rules.Len() == 0 {
		return nil
	}
	if rangeN <= 0 {
		return [][]string{rules.Rules[0].SideOf(side).Items()}
	}
	n := min(rangeN, rules.Len())
	if byRow {
		out := make([][]string, n)
		for i := range n {
			out[i] = rules.Rules[i].SideOf(side).Items()
		}
		return out
	}

	seen := make(map[string]struct{})
	var merged []string
	for _, r := range rules.Rules[:n] {
		for _, p := range r.SideOf(side).Items() {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			merged = append(merged, p)
		}
	}
	return [][]string{merged}
}

// FromRules builds a projection request from the leading rules of a table.
func FromRules(rules mining.RuleTable, sel Selection) Request {
	ants := Extract(rules, mining.Antecedents, sel.Range, sel.ByRow)
	cons := Extract(rules, mining.Consequents, sel.Range, sel.ByRow)

	req := Request{CustomerIDsOnly: sel.CustomerIDsOnly, DistinctGroups: sel.ByRow}
	for i := range min(len(ants), len(cons)) {
		req.Pairs = append(req.Pairs, Pair{Antecedent: ants[i], Consequent: cons[i]})
	}
	return req
}
