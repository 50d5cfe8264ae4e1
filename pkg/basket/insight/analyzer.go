// Package insight reports descriptive statistics of a transaction table:
// headline figures, top products by purchases, sales and quantity, and
// metric relationships across rules.
package insight

import (
	"github.com/shopspring/decimal"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// ProductStats holds the per-row observations of one product.
type ProductStats struct {
	Product      string
	Transactions int
	Sales        []float64
	Quantity     []float64
}

// Analyzer aggregates transaction rows per product.
type Analyzer struct {
	rows      int
	sales     decimal.Decimal
	customers map[string]struct{}
	index     map[string]int
	products  []ProductStats
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		customers: make(map[string]struct{}),
		index:     make(map[string]int),
	}
}

// Analyze runs every row of t through a new analyzer, keyed by the table's
// product column.
func Analyze(t txn.Table) *Analyzer {
	a := NewAnalyzer()
	for _, r := range t.Rows() {
		a.Process(t.ProductOf(r), r)
	}
	return a
}

// Process consumes one transaction row.
func (a *Analyzer) Process(product string, r txn.Transaction) {
	a.rows++
	a.sales = a.sales.Add(r.SalesAmount)
	a.customers[r.CustomerID] = struct{}{}

	i, ok := a.index[product]
	if !ok {
		i = len(a.products)
		a.index[product] = i
		a.products = append(a.products, ProductStats{Product: product})
	}
	p := &a.products[i]
	p.Transactions++
	p.Sales = append(p.Sales, r.SalesAmount.InexactFloat64())
	p.Quantity = append(p.Quantity, float64(r.Quantity))
}

// Stats is a snapshot of the aggregated figures. Products keep their first
// appearance order.
type Stats struct {
	Rows      int
	Customers int
	Sales     decimal.Decimal
	Products  []ProductStats
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	products := make([]ProductStats, len(a.products))
	for i, p := range a.products {
		products[i] = ProductStats{
			Product:      p.Product,
			Transactions: p.Transactions,
			Sales:        append([]float64(nil), p.Sales...),
			Quantity:     append([]float64(nil), p.Quantity...),
		}
	}
	return Stats{
		Rows:      a.rows,
		Customers: len(a.customers),
		Sales:     a.sales,
		Products:  products,
	}
}
