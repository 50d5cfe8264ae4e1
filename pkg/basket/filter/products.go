package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/itemset"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/predicate"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/result"
)

// SearchType selects how product names are matched against a rule side.
type SearchType string

const (
	// SearchAny matches a side naming any of the products.
	SearchAny SearchType = "any"
	// SearchAll matches a side holding exactly the products.
	SearchAll SearchType = "all"
)

// ParseSearchType accepts "any" and "all". Empty means any.
func ParseSearchType(s string) (SearchType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "any", "":
		return SearchAny, nil
	case "all":
		return SearchAll, nil
	}
	return "", fmt.Errorf("search type %q, use any or all: %w", s, internalerr.ErrInvalidArgument)
}

// ReasonIncompleteSelection is reported when no rule side or no products
// were chosen.
const ReasonIncompleteSelection = "select a rule type and at least one product to filter by"

// ProductQuery selects rules by the products on their sides. The second
// pair applies only when Side2, Products2 and Connector are all set.
type ProductQuery struct {
	Search    string   `json:"search_type" yaml:"search_type"`
	Side      string   `json:"rule_type" yaml:"rule_type"`
	Products  []string `json:"products" yaml:"products"`
	Side2     string   `json:"second_rule_type,omitempty" yaml:"second_rule_type"`
	Products2 []string `json:"second_products,omitempty" yaml:"second_products"`
	Connector string   `json:"bool_op,omitempty" yaml:"bool_op"`
}

// sanitized drops a partially specified second pair.
func (q ProductQuery) sanitized() ProductQuery {
	if q.Side2 == "" || len(q.Products2) == 0 || q.Connector == "" {
		q.Side2, q.Products2, q.Connector = "", nil, ""
	}
	return q
}

// ByProducts keeps the rules whose sides contain the requested products.
// An incomplete first pair is an empty selection rather than an error.
func ByProducts(rules mining.RuleTable, q ProductQuery) (result.Result[mining.RuleTable], error) {
	search, err := ParseSearchType(q.Search)
	if err != nil {
		return result.Result[mining.RuleTable]{}, err
	}
	q = q.sanitized()
	if q.Side == "" || len(q.Products) == 0 {
		return result.EmptySelection[mining.RuleTable](ReasonIncompleteSelection), nil
	}

	first, err := sideMatcher(search, q.Side, q.Products)
	if err != nil {
		return result.Result[mining.RuleTable]{}, err
	}
	keep := first
	if q.Side2 != "" {
		second, err := sideMatcher(search, q.Side2, q.Products2)
		if err != nil {
			return result.Result[mining.RuleTable]{}, err
		}
		conn, err := predicate.ParseConnector(q.Connector)
		if err != nil {
			return result.Result[mining.RuleTable]{}, err
		}
		if conn == predicate.Or {
			keep = func(r mining.Rule) bool { return first(r) || second(r) }
		} else {
			keep = func(r mining.Rule) bool { return first(r) && second(r) }
		}
	}
	return result.Ok(rules.Where(keep)), nil
}

func sideMatcher(search SearchType, side string, products []string) (func(mining.Rule) bool, error) {
	s, err := mining.ParseSide(side)
	if err != nil {
		return nil, err
	}
	if search == SearchAll {
		want := itemset.New(products...)
		return func(r mining.Rule) bool { return r.SideOf(s).Equal(want) }, nil
	}
	re := Alternation(products)
	return func(r mining.Rule) bool { return re.MatchString(r.SideOf(s).String()) }, nil
}

// Alternation compiles a pattern matching any of the names as a substring.
func Alternation(names []string) *regexp.Regexp {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return regexp.MustCompile(strings.Join(quoted, "|"))
}
