package filter

import (
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/predicate"
)

// ByLength keeps rules whose side holds a number of products satisfying
// op against n.
func ByLength(rules mining.RuleTable, side, op string, n int) (mining.RuleTable, error) {
	s, err := mining.ParseSide(side)
	if err != nil {
		return mining.RuleTable{}, err
	}
	cmp, err := predicate.ParseOp(op)
	if err != nil {
		return mining.RuleTable{}, err
	}
	return rules.Where(func(r mining.Rule) bool {
		return cmp.Compare(float64(r.SideOf(s).Len()), float64(n))
	}), nil
}
