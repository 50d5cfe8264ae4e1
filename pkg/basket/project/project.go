// Package project turns association rules into per-customer purchase
// recommendations.
package project

import (
	"fmt"
	"strings"

	"github.com/akins11/market-basket-analysis-web-app/internal/logging"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/filter"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/result"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// Pair is one antecedent -> consequent product selection.
type Pair struct {
	Antecedent []string `json:"antecedent"`
	Consequent []string `json:"consequent"`
}

// Request configures a projection. Without DistinctGroups only the first
// pair is projected.
type Request struct {
	Pairs           []Pair `json:"pairs"`
	CustomerIDsOnly bool   `json:"customer_ids_only"`
	DistinctGroups  bool   `json:"distinct_groups"`
}

// Recommendation names a customer likely to buy LikelyPurchase, with the
// transactions that qualified them.
type Recommendation struct {
	CustomerID     string
	LikelyPurchase string
	Rows           []txn.Transaction
}

// Projection is the outcome of Project. With CustomerIDsOnly every
// recommendation carries only a customer id, and each id appears once.
type Projection struct {
	Recommendations []Recommendation
	CustomerIDsOnly bool
}

// Len returns the number of recommendations.
func (p Projection) Len() int { return len(p.Recommendations) }

// CustomerIDs returns the recommended customers in order of first
// appearance.
func (p Projection) CustomerIDs() []string {
	seen := make(map[string]struct{}, len(p.Recommendations))
	var out []string
	for _, r := range p.Recommendations {
		if _, ok := seen[r.CustomerID]; ok {
			continue
		}
		seen[r.CustomerID] = struct{}{}
		out = append(out, r.CustomerID)
	}
	return out
}

// EmptySideReason explains an empty selection caused by an empty side.
func EmptySideReason(side mining.Side) string {
	return fmt.Sprintf("%s returned empty products, make sure all avaliable options have valid inputs", side)
}

// Project finds the customers whose purchases match each pair's antecedent
// and recommends its consequent.
//
// Rows qualify when their product contains any antecedent product. With a
// single antecedent product every such customer is recommended. With
// several, a customer needs at least two qualifying rows and no qualifying
// product bought more often than the antecedent lists it.
func Project(t txn.Table, req Request) result.Result[Projection] {
	pairs := req.Pairs
	if !req.DistinctGroups && len(pairs) > 1 {
		pairs = pairs[:1]
	}
	if len(pairs) == 0 {
		return result.EmptySelection[Projection](EmptySideReason(mining.Antecedents))
	}
	for _, p := range pairs {
		if len(p.Antecedent) == 0 {
			return result.EmptySelection[Projection](EmptySideReason(mining.Antecedents))
		}
		if len(p.Consequent) == 0 {
			return result.EmptySelection[Projection](EmptySideReason(mining.Consequents))
		}
	}

	out := Projection{CustomerIDsOnly: req.CustomerIDsOnly}
	for _, p := range pairs {
		out.Recommendations = append(out.Recommendations, projectPair(t, p)...)
	}
	if req.CustomerIDsOnly {
		ids := out.CustomerIDs()
		out.Recommendations = make([]Recommendation, len(ids))
		for i, id := range ids {
			out.Recommendations[i] = Recommendation{CustomerID: id}
		}
	}

	logging.Debug().
		Int("pairs", len(pairs)).
		Int("recommendations", out.Len()).
		Bool("customer_ids_only", req.CustomerIDsOnly).
		Msg("projected rules onto customers")
	return result.Ok(out)
}

func projectPair(t txn.Table, p Pair) []Recommendation {
	re := filter.Alternation(p.Antecedent)
	likely := strings.Join(p.Consequent, ", ")

	var order []string
	matched := make(map[string][]txn.Transaction)
	for _, row := range t.Rows() {
		if !re.MatchString(t.ProductOf(row)) {
			continue
		}
		if _, ok := matched[row.CustomerID]; !ok {
			order = append(order, row.CustomerID)
		}
		matched[row.CustomerID] = append(matched[row.CustomerID], row)
	}

	var out []Recommendation
	for _, id := range order {
		rows := matched[id]
		if len(p.Antecedent) > 1 && !coveredBy(t, rows, p.Antecedent) {
			continue
		}
		out = append(out, Recommendation{CustomerID: id, LikelyPurchase: likely, Rows: rows})
	}
	return out
}

// coveredBy reports whether a customer with more than one qualifying row
// bought no product more often than the antecedent lists it.
func coveredBy(t txn.Table, rows []txn.Transaction, antecedent []string) bool {
	if len(rows) < 2 {
		return false
	}
	remaining := make(map[string]int, len(antecedent))
	for _, a := range antecedent {
		remaining[a]++
	}
	for _, row := range rows {
		p := t.ProductOf(row)
		if remaining[p] == 0 {
			return false
		}
		remaining[p]--
	}
	return true
}
