// Package txn holds the read-only transaction table the rule engine works on.
package txn

import (
	"time"

	"github.com/shopspring/decimal"
)

// Column names of the transaction table.
const (
	ColCustomerID    = "Customer_ID"
	ColProduct       = "Product"
	ColSKU           = "SKU"
	ColQuantity      = "Quantity"
	ColSalesAmount   = "Sales_Amount"
	ColDate          = "Date"
	ColUniqueProduct = "Unique_Product"
	ColTaxonomy      = "Product_Taxonomy"
)

// Transaction is one (customer, product, purchase event) row.
type Transaction struct {
	CustomerID    string
	Product       string
	SKU           string
	Quantity      int
	SalesAmount   decimal.Decimal
	Date          time.Time // zero when the source has no date column
	UniqueProduct string    // Product + "_" + SKU, set by the taxonomy builder
	Taxonomy      string    // collapsed product identifier
}

// Table is an immutable set of transactions. Operations that derive new
// columns return a new Table.
type Table struct {
	rows        []Transaction
	hasTaxonomy bool
	hasDate     bool
}

// NewTable copies rows into a table.
func NewTable(rows []Transaction) Table {
	t := Table{rows: make([]Transaction, len(rows))}
	copy(t.rows, rows)
	for _, r := range rows {
		if r.Taxonomy != "" {
			t.hasTaxonomy = true
		}
		if !r.Date.IsZero() {
			t.hasDate = true
		}
	}
	return t
}

// WithTaxonomy returns a table that reports a Product_Taxonomy column.
func WithTaxonomy(rows []Transaction) Table {
	t := NewTable(rows)
	t.hasTaxonomy = true
	return t
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.rows) }

// Rows returns a copy of the rows.
func (t Table) Rows() []Transaction {
	out := make([]Transaction, len(t.rows))
	copy(out, t.rows)
	return out
}

// Row returns the i-th row.
func (t Table) Row(i int) Transaction { return t.rows[i] }

// HasTaxonomy reports whether the Product_Taxonomy column is present.
func (t Table) HasTaxonomy() bool { return t.hasTaxonomy }

// HasDate reports whether any row carries a date.
func (t Table) HasDate() bool { return t.hasDate }

// ProductColumn names the column used as the product identifier: the
// collapsed taxonomy when present, otherwise the raw product.
func (t Table) ProductColumn() string {
	if t.hasTaxonomy {
		return ColTaxonomy
	}
	return ColProduct
}

// ProductOf returns the product identifier of r under ProductColumn.
func (t Table) ProductOf(r Transaction) string {
	if t.hasTaxonomy {
		return r.Taxonomy
	}
	return r.Product
}

// Columns lists the table columns in export order.
func (t Table) Columns() []string {
	cols := []string{ColCustomerID, ColProduct, ColSKU, ColQuantity, ColSalesAmount}
	if t.hasDate {
		cols = append(cols, ColDate)
	}
	if t.hasTaxonomy {
		cols = append(cols, ColUniqueProduct, ColTaxonomy)
	}
	return cols
}

// Products returns the distinct product identifiers in first-appearance order.
func (t Table) Products() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.rows {
		p := t.ProductOf(r)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Customers returns the distinct customer ids in first-appearance order.
func (t Table) Customers() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.rows {
		if _, ok := seen[r.CustomerID]; ok {
			continue
		}
		seen[r.CustomerID] = struct{}{}
		out = append(out, r.CustomerID)
	}
	return out
}

// Basket is the multiset of products bought by one customer.
type Basket struct {
	CustomerID string
	Products   []string       // distinct, first-appearance order
	Quantity   map[string]int // summed quantity per product
}

// Has reports whether the basket contains the product with a positive
// summed quantity.
func (b Basket) Has(product string) bool {
	return b.Quantity[product] > 0
}

// Baskets groups the table per customer, in first-appearance order.
func (t Table) Baskets() []Basket {
	index := make(map[string]int)
	var out []Basket
	for _, r := range t.rows {
		i, ok := index[r.CustomerID]
		if !ok {
			i = len(out)
			index[r.CustomerID] = i
			out = append(out, Basket{CustomerID: r.CustomerID, Quantity: make(map[string]int)})
		}
		p := t.ProductOf(r)
		if _, seen := out[i].Quantity[p]; !seen {
			out[i].Products = append(out[i].Products, p)
		}
		out[i].Quantity[p] += r.Quantity
	}
	return out
}
