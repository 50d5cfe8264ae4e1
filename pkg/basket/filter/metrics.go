// Package filter narrows rule tables. Every filter is pure and returns a new
// table, so filters can be chained.
package filter

import (
	"fmt"
	"math"

	"github.com/akins11/market-basket-analysis-web-app/internal/logging"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/predicate"
)

// ByMetrics keeps the rules matching q. Every clause value must lie within
// the observed range of its column; an empty query returns rules unchanged.
func ByMetrics(rules mining.RuleTable, q predicate.Query) (mining.RuleTable, error) {
	if err := q.Validate(); err != nil {
		return mining.RuleTable{}, err
	}
	if q.Empty() {
		return rules, nil
	}
	if err := withinRange(rules, q.Clauses); err != nil {
		return mining.RuleTable{}, err
	}

	out := rules.Where(q.Tree().Eval)
	logging.Debug().
		Str("query", q.String()).
		Int("rules", rules.Len()).
		Int("kept", out.Len()).
		Msg("filtered rules by metrics")
	return out, nil
}

// withinRange rejects clause values outside [min, max] of their column. An
// empty table has no range and accepts any value.
func withinRange(rules mining.RuleTable, clauses []predicate.Clause) error {
	if rules.Len() == 0 {
		return nil
	}
	for _, c := range clauses {
		col, err := rules.Column(c.Metric)
		if err != nil {
			return err
		}
		lo, hi := bounds(col)
		if c.Value < lo || c.Value > hi {
			return fmt.Errorf("%s values (%v) is out of range. valid range is %v - %v: %w",
				c.Metric, c.Value, lo, hi, internalerr.ErrRange)
		}
	}
	return nil
}

func bounds(col []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range col {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
