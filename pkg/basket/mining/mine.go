package mining

import (
	"context"
	"fmt"
	"strings"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/itemset"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// DefaultMinSupport is the support floor used when none is configured.
const DefaultMinSupport = 0.005

// Output selects what a mining run returns.
type Output int

const (
	// OutputRules returns association rules.
	OutputRules Output = iota
	// OutputSupLen returns frequent itemsets with their support and length.
	OutputSupLen
)

// ParseOutput accepts "rules" or "sup_len".
func ParseOutput(s string) (Output, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rules", "":
		return OutputRules, nil
	case "sup_len", "itemsets":
		return OutputSupLen, nil
	}
	return 0, fmt.Errorf("output %q, use rules or sup_len: %w", s, internalerr.ErrInvalidInput)
}

func (o Output) String() string {
	switch o {
	case OutputRules:
		return "rules"
	case OutputSupLen:
		return "sup_len"
	}
	return fmt.Sprintf("Output(%d)", int(o))
}

// Itemset is a frequent product set with its support.
type Itemset struct {
	Items   itemset.Set
	Support float64
}

// Length returns the cardinality of the itemset.
func (i Itemset) Length() int { return i.Items.Len() }

// ItemsetTable is the result of a frequent itemset search.
type ItemsetTable struct {
	Itemsets []Itemset
}

// Itemset table column names.
const (
	ColItemsets = "itemsets"
	ColLength   = "length"
)

// ItemsetColumns lists the itemset table columns in export order.
var ItemsetColumns = []string{ColSupport, ColItemsets, ColLength}

// Len returns the number of itemsets.
func (t ItemsetTable) Len() int { return len(t.Itemsets) }

// Column returns the numeric support or length column.
func (t ItemsetTable) Column(name string) ([]float64, error) {
	out := make([]float64, len(t.Itemsets))
	switch strings.ToLower(name) {
	case ColSupport:
		for i, it := range t.Itemsets {
			out[i] = it.Support
		}
	case ColLength:
		for i, it := range t.Itemsets {
			out[i] = float64(it.Length())
		}
	default:
		return nil, fmt.Errorf("itemset column %q: %w", name, internalerr.ErrInvalidMetric)
	}
	return out, nil
}

// Options configures a mining run.
type Options struct {
	MinSupport float64       // 0..1
	MaxLength  int           // 0 means unbounded
	Finder     ItemsetFinder // defaults to Apriori
}

// DefaultOptions returns the default mining options.
func DefaultOptions() Options {
	return Options{MinSupport: DefaultMinSupport}
}

// Mine builds the customer x product presence matrix of t and returns its
// frequent itemsets.
func Mine(ctx context.Context, t txn.Table, opts Options) (ItemsetTable, error) {
	if opts.MinSupport < 0 || opts.MinSupport > 1 {
		return ItemsetTable{}, fmt.Errorf("min support %v must be within 0 - 1: %w", opts.MinSupport, internalerr.ErrInvalidInput)
	}
	if opts.MaxLength < 0 {
		return ItemsetTable{}, fmt.Errorf("max length %d: %w", opts.MaxLength, internalerr.ErrInvalidInput)
	}
	finder := opts.Finder
	if finder == nil {
		finder = Apriori{}
	}

	sets, err := finder.FrequentItemsets(ctx, CountBaskets(t), opts.MinSupport, opts.MaxLength)
	if err != nil {
		return ItemsetTable{}, fmt.Errorf("frequent itemsets: %w", err)
	}
	return ItemsetTable{Itemsets: sets}, nil
}
