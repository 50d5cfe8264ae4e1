package table

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/project"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// ColLikelyPurchase holds the recommended products of a projection row.
const ColLikelyPurchase = "Likely_Product_Purchase"

// isoDate is the date layout of exported tables.
const isoDate = "2006-01-02T15:04:05.000"

// FromTransactions exports a transaction table. Dates are written in ISO
// format.
func FromTransactions(t txn.Table) Split {
	cols := t.Columns()
	s := NewSplit(cols...)
	for _, r := range t.Rows() {
		s.Append(transactionRow(cols, r)...)
	}
	return s
}

func transactionRow(cols []string, r txn.Transaction) []any {
	row := make([]any, len(cols))
	for i, c := range cols {
		switch c {
		case txn.ColCustomerID:
			row[i] = r.CustomerID
		case txn.ColProduct:
			row[i] = r.Product
		case txn.ColSKU:
			row[i] = r.SKU
		case txn.ColQuantity:
			row[i] = r.Quantity
		case txn.ColSalesAmount:
			row[i] = r.SalesAmount.InexactFloat64()
		case txn.ColDate:
			if r.Date.IsZero() {
				row[i] = nil
			} else {
				row[i] = r.Date.Format(isoDate)
			}
		case txn.ColUniqueProduct:
			row[i] = r.UniqueProduct
		case txn.ColTaxonomy:
			row[i] = r.Taxonomy
		}
	}
	return row
}

// ToTransactions rebuilds a transaction table. Customer_ID, Product and
// Quantity are required; a Product_Taxonomy column marks the table as
// collapsed.
func ToTransactions(s Split) (txn.Table, error) {
	idx, err := requireColumns(s, txn.ColCustomerID, txn.ColProduct, txn.ColQuantity)
	if err != nil {
		return txn.Table{}, err
	}
	str := func(row []any, col string) (string, error) {
		i, ok := idx[col]
		if !ok {
			return "", nil
		}
		return decodeString(row[i])
	}

	rows := make([]txn.Transaction, 0, len(s.Data))
	for n, row := range s.Data {
		var r txn.Transaction
		for _, f := range []struct {
			col string
			dst *string
		}{
			{txn.ColCustomerID, &r.CustomerID},
			{txn.ColProduct, &r.Product},
			{txn.ColSKU, &r.SKU},
			{txn.ColUniqueProduct, &r.UniqueProduct},
			{txn.ColTaxonomy, &r.Taxonomy},
		} {
			if *f.dst, err = str(row, f.col); err != nil {
				return txn.Table{}, fmt.Errorf("row %d %s: %w", n, f.col, err)
			}
		}

		qty, err := decodeFloat(row[idx[txn.ColQuantity]])
		if err != nil {
			return txn.Table{}, fmt.Errorf("row %d quantity: %w", n, err)
		}
		if r.Quantity, err = txn.QuantityOf(qty); err != nil {
			return txn.Table{}, fmt.Errorf("row %d: %w", n, err)
		}

		if i, ok := idx[txn.ColSalesAmount]; ok && row[i] != nil {
			amount, err := decodeFloat(row[i])
			if err != nil {
				return txn.Table{}, fmt.Errorf("row %d sales amount: %w", n, err)
			}
			r.SalesAmount = decimal.NewFromFloat(amount)
		}
		if raw, err := str(row, txn.ColDate); err != nil {
			return txn.Table{}, fmt.Errorf("row %d date: %w", n, err)
		} else if raw != "" {
			if r.Date, err = txn.ParseDate(raw); err != nil {
				return txn.Table{}, fmt.Errorf("row %d: %w", n, err)
			}
		}
		rows = append(rows, r)
	}

	if _, ok := idx[txn.ColTaxonomy]; ok {
		return txn.WithTaxonomy(rows), nil
	}
	return txn.NewTable(rows), nil
}

// FromProjection exports recommendations: one row per qualifying
// transaction, or one Customer_ID row per customer when the projection
// holds ids only. t supplies the transaction columns.
func FromProjection(p project.Projection, t txn.Table) Split {
	if p.CustomerIDsOnly {
		s := NewSplit(txn.ColCustomerID)
		for _, id := range p.CustomerIDs() {
			s.Append(id)
		}
		return s
	}
	cols := t.Columns()
	s := NewSplit(append(append([]string{}, cols...), ColLikelyPurchase)...)
	for _, rec := range p.Recommendations {
		for _, r := range rec.Rows {
			s.Append(append(transactionRow(cols, r), rec.LikelyPurchase)...)
		}
	}
	return s
}

// ToCustomerIDs reads the Customer_ID column of a projection table.
func ToCustomerIDs(s Split) ([]string, error) {
	idx, err := requireColumns(s, txn.ColCustomerID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(s.Data))
	for n, row := range s.Data {
		id, err := decodeString(row[idx[txn.ColCustomerID]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %v: %w", n, err, internalerr.ErrInvalidInput)
		}
		out = append(out, id)
	}
	return out, nil
}
