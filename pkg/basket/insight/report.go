package insight

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// DefaultTopN is the number of products charted when none is given.
const DefaultTopN = 10

// Output selects the shape of a report.
type Output int

const (
	// Table lists every product, largest value first.
	Table Output = iota
	// Chart lists the top products in ascending order, ready for a
	// horizontal bar chart.
	Chart
)

// ParseOutput accepts "table" and "plot" (or "chart").
func ParseOutput(s string) (Output, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table":
		return Table, nil
	case "plot", "chart":
		return Chart, nil
	}
	return 0, fmt.Errorf("'%s' is not a valid value. use any of : plot, table: %w", s, internalerr.ErrInvalidArgument)
}

func (o Output) String() string {
	switch o {
	case Table:
		return "table"
	case Chart:
		return "plot"
	}
	return fmt.Sprintf("Output(%d)", int(o))
}

// Agg is a per-product aggregate.
type Agg string

const (
	Sum    Agg = "sum"
	Mean   Agg = "mean"
	Median Agg = "median"
	Min    Agg = "min"
	Max    Agg = "max"
)

// ParseAgg validates an aggregate name.
func ParseAgg(s string) (Agg, error) {
	a := Agg(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case Sum, Mean, Median, Min, Max:
		return a, nil
	}
	return "", fmt.Errorf("'%s' is not a valid value. use any of : sum, mean, median, min, max: %w", s, internalerr.ErrInvalidArgument)
}

// Label names the aggregate in report columns and titles.
func (a Agg) Label() string {
	switch a {
	case Sum:
		return "Total"
	case Mean:
		return "Average"
	case Median:
		return "Median"
	case Min:
		return "Minimum"
	case Max:
		return "Maximum"
	}
	return string(a)
}

func (a Agg) apply(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	switch a {
	case Mean:
		return sum(values) / float64(len(values))
	case Median:
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			return sorted[mid]
		}
		return (sorted[mid-1] + sorted[mid]) / 2
	case Min:
		out := values[0]
		for _, v := range values[1:] {
			out = math.Min(out, v)
		}
		return out
	case Max:
		out := values[0]
		for _, v := range values[1:] {
			out = math.Max(out, v)
		}
		return out
	}
	return sum(values)
}

func sum(values []float64) float64 {
	var out float64
	for _, v := range values {
		out += v
	}
	return out
}

// Row is one product of a report. Proportion is the product's share of the
// column total in percent, rounded to three places.
type Row struct {
	Product    string  `json:"product"`
	Value      float64 `json:"value"`
	Proportion float64 `json:"proportion"`
}

// Report is a per-product ranking.
type Report struct {
	Output        Output `json:"-"`
	Title         string `json:"title,omitempty"`
	ProductColumn string `json:"product_column"`
	ValueColumn   string `json:"value_column"`
	Rows          []Row  `json:"rows"`
}

// MostPurchased ranks products by their number of transactions.
func MostPurchased(t txn.Table, out Output, topN int) Report {
	stats := Analyze(t).Snapshot()
	rows := make([]Row, len(stats.Products))
	for i, p := range stats.Products {
		rows[i] = Row{Product: p.Product, Value: float64(p.Transactions)}
	}
	topN = topNOrDefault(topN)
	return build(t, out, topN, "Count", rows,
		fmt.Sprintf("Top %d Products Purchased By Customers Using Number Of Transactions", topN))
}

// MostProfitable ranks products by an aggregate of their sales amounts.
func MostProfitable(t txn.Table, agg Agg, out Output, topN int) (Report, error) {
	agg, err := ParseAgg(string(agg))
	if err != nil {
		return Report{}, err
	}
	stats := Analyze(t).Snapshot()
	rows := make([]Row, len(stats.Products))
	for i, p := range stats.Products {
		rows[i] = Row{Product: p.Product, Value: agg.apply(p.Sales)}
	}
	topN = topNOrDefault(topN)
	return build(t, out, topN, agg.Label()+"_Sales_Amount", rows,
		fmt.Sprintf("Top %d Products By %s Amount Of Sales", topN, agg.Label())), nil
}

// Quantity ranks products by an aggregate of their ordered quantities.
func Quantity(t txn.Table, agg Agg, out Output, topN int) (Report, error) {
	agg, err := ParseAgg(string(agg))
	if err != nil {
		return Report{}, err
	}
	stats := Analyze(t).Snapshot()
	rows := make([]Row, len(stats.Products))
	for i, p := range stats.Products {
		rows[i] = Row{Product: p.Product, Value: agg.apply(p.Quantity)}
	}
	topN = topNOrDefault(topN)
	return build(t, out, topN, agg.Label()+"_Quantity", rows,
		fmt.Sprintf("Top %d %s Quantity Ordered For Each Product", topN, agg.Label())), nil
}

// ProductList returns the distinct products of the table's product column.
func ProductList(t txn.Table) []string {
	return t.Products()
}

func topNOrDefault(n int) int {
	if n <= 0 {
		return DefaultTopN
	}
	return n
}

// build sorts rows largest first, fills in proportions and shapes the
// report. Ties keep first appearance order.
func build(t txn.Table, out Output, topN int, column string, rows []Row, title string) Report {
	total := 0.0
	for _, r := range rows {
		total += r.Value
	}
	if total != 0 {
		for i := range rows {
			rows[i].Proportion = round(rows[i].Value/total*100, 3)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value > rows[j].Value })

	rep := Report{Output: out, ProductColumn: t.ProductColumn(), ValueColumn: column, Rows: rows}
	if out == Chart {
		top := rows[:min(topN, len(rows))]
		chart := make([]Row, len(top))
		for i, r := range top {
			chart[len(top)-1-i] = r
		}
		rep.Rows = chart
		rep.Title = title
	}
	return rep
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
