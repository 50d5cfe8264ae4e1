package taxonomy

import (
	"fmt"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// DefaultThreshold is the minimum row count a SKU variant needs to keep its
// own identity.
const DefaultThreshold = 60

// OthersSuffix is appended to a product name to form its lumped bucket.
const OthersSuffix = "_Others"

// Decision records how one product's SKU variants were mapped.
type Decision struct {
	Product string
	Kept    []string // unique products that kept their own identity
	Lumped  []string // unique products merged into the Others bucket
	Value   string   // taxonomy value when the whole product maps to one value
}

// Builder collapses SKU-level variants into a bounded product vocabulary.
type Builder struct {
	Threshold int
}

// Collapse is a convenience wrapper around Builder.Collapse.
func Collapse(t txn.Table, threshold int) (txn.Table, error) {
	if threshold < 1 {
		return txn.Table{}, fmt.Errorf("taxonomy threshold %d: %w", threshold, internalerr.ErrInvalidArgument)
	}
	out, _, err := Builder{Threshold: threshold}.Collapse(t)
	return out, err
}

// UniqueProduct joins a product and its SKU.
func UniqueProduct(product, sku string) string {
	return product + "_" + sku
}

// Collapse returns a copy of t with Unique_Product and Product_Taxonomy set.
// For each product, variants are split into two count classes around the
// threshold: when both classes exist the rare variants become
// "{Product}_Others" and the frequent ones keep their Unique_Product. When
// every variant is frequent the product keeps its name; when every variant
// is rare the product collapses to "{Product}_Others".
func (b Builder) Collapse(t txn.Table) (txn.Table, []Decision, error) {
	th := b.thresholdOrDefault()
	if th < 1 {
		return txn.Table{}, nil, fmt.Errorf("taxonomy threshold %d: %w", th, internalerr.ErrInvalidArgument)
	}

	rows := t.Rows()
	var products []string
	variants := make(map[string][]string)
	counts := make(map[string]int)
	for i := range rows {
		r := &rows[i]
		r.UniqueProduct = UniqueProduct(r.Product, r.SKU)
		if _, ok := variants[r.Product]; !ok {
			products = append(products, r.Product)
		}
		if counts[r.UniqueProduct] == 0 {
			variants[r.Product] = append(variants[r.Product], r.UniqueProduct)
		}
		counts[r.UniqueProduct]++
	}

	mapping := make(map[string]string, len(counts))
	decisions := make([]Decision, 0, len(products))
	for _, product := range products {
		d := Decision{Product: product}
		for _, up := range variants[product] {
			if counts[up] < th {
				d.Lumped = append(d.Lumped, up)
			} else {
				d.Kept = append(d.Kept, up)
			}
		}

		switch {
		case len(d.Kept) > 0 && len(d.Lumped) > 0:
			for _, up := range d.Lumped {
				mapping[up] = product + OthersSuffix
			}
			for _, up := range d.Kept {
				mapping[up] = up
			}
		case len(d.Lumped) == 0:
			d.Value = product
			for _, up := range d.Kept {
				mapping[up] = product
			}
		default:
			d.Value = product + OthersSuffix
			for _, up := range d.Lumped {
				mapping[up] = d.Value
			}
		}
		decisions = append(decisions, d)
	}

	for i := range rows {
		rows[i].Taxonomy = mapping[rows[i].UniqueProduct]
	}
	return txn.WithTaxonomy(rows), decisions, nil
}

func (b Builder) thresholdOrDefault() int {
	if b.Threshold == 0 {
		return DefaultThreshold
	}
	return b.Threshold
}
