package table

import (
	"fmt"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
)

// FromRules exports a rule table. Product sets become plain arrays.
func FromRules(rules mining.RuleTable) Split {
	s := NewSplit(mining.RuleColumns...)
	for _, r := range rules.Rules {
		s.Append(
			r.Antecedents.Items(),
			r.Consequents.Items(),
			encodeFloat(r.AntecedentSupport),
			encodeFloat(r.ConsequentSupport),
			encodeFloat(r.Support),
			encodeFloat(r.Confidence),
			encodeFloat(r.Lift),
			encodeFloat(r.Leverage),
			encodeFloat(r.Conviction),
		)
	}
	return s
}

// ToRules rebuilds a rule table, freezing product arrays back into sets.
// Column names may use the underscore aliases.
func ToRules(s Split) (mining.RuleTable, error) {
	if err := s.validate(); err != nil {
		return mining.RuleTable{}, err
	}
	idx := make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		if canon, ok := mining.CanonicalColumn(c); ok {
			idx[canon] = i
			continue
		}
		idx[c] = i
	}
	for _, c := range mining.RuleColumns {
		if _, ok := idx[c]; !ok {
			return mining.RuleTable{}, fmt.Errorf("rule table missing column %q: %w", c, internalerr.ErrInvalidInput)
		}
	}

	out := mining.RuleTable{Rules: make([]mining.Rule, 0, len(s.Data))}
	for i, row := range s.Data {
		var r mining.Rule
		var err error
		if r.Antecedents, err = decodeSet(row[idx[mining.ColAntecedents]]); err != nil {
			return mining.RuleTable{}, fmt.Errorf("row %d antecedents: %w", i, err)
		}
		if r.Consequents, err = decodeSet(row[idx[mining.ColConsequents]]); err != nil {
			return mining.RuleTable{}, fmt.Errorf("row %d consequents: %w", i, err)
		}
		fields := []struct {
			col string
			dst *float64
		}{
			{mining.ColAntecedentSupport, &r.AntecedentSupport},
			{mining.ColConsequentSupport, &r.ConsequentSupport},
			{mining.ColSupport, &r.Support},
			{mining.ColConfidence, &r.Confidence},
			{mining.ColLift, &r.Lift},
			{mining.ColLeverage, &r.Leverage},
			{mining.ColConviction, &r.Conviction},
		}
		for _, f := range fields {
			if *f.dst, err = decodeFloat(row[idx[f.col]]); err != nil {
				return mining.RuleTable{}, fmt.Errorf("row %d %s: %w", i, f.col, err)
			}
		}
		out.Rules = append(out.Rules, r)
	}
	return out, nil
}

// FromItemsets exports a frequent itemset table.
func FromItemsets(sets mining.ItemsetTable) Split {
	s := NewSplit(mining.ItemsetColumns...)
	for _, it := range sets.Itemsets {
		s.Append(encodeFloat(it.Support), it.Items.Items(), it.Length())
	}
	return s
}

// ToItemsets rebuilds a frequent itemset table. The length column is
// derived from the itemsets and ignored on input.
func ToItemsets(s Split) (mining.ItemsetTable, error) {
	idx, err := requireColumns(s, mining.ColSupport, mining.ColItemsets)
	if err != nil {
		return mining.ItemsetTable{}, err
	}
	out := mining.ItemsetTable{Itemsets: make([]mining.Itemset, 0, len(s.Data))}
	for i, row := range s.Data {
		items, err := decodeSet(row[idx[mining.ColItemsets]])
		if err != nil {
			return mining.ItemsetTable{}, fmt.Errorf("row %d itemsets: %w", i, err)
		}
		support, err := decodeFloat(row[idx[mining.ColSupport]])
		if err != nil {
			return mining.ItemsetTable{}, fmt.Errorf("row %d support: %w", i, err)
		}
		out.Itemsets = append(out.Itemsets, mining.Itemset{Items: items, Support: support})
	}
	return out, nil
}
