package mining

import (
	"math/bits"
	"sort"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/txn"
)

// Counter maintains the customer x product presence matrix as one bitset
// per product.
type Counter struct {
	n     int            // total number of baskets
	index map[string]int // product -> column
	items []string       // column -> product
	cols  [][]uint64     // presence bits per column
}

// NewCounter creates an empty presence counter.
func NewCounter() *Counter {
	return &Counter{index: make(map[string]int)}
}

// CountBaskets builds a counter from a transaction table. A product is
// present in a basket when its summed quantity is positive.
func CountBaskets(t txn.Table) *Counter {
	c := NewCounter()
	for _, b := range t.Baskets() {
		present := make([]string, 0, len(b.Products))
		for _, p := range b.Products {
			if b.Has(p) {
				present = append(present, p)
			}
		}
		c.AddBasket(present)
	}
	return c
}

// AddBasket records one basket of distinct present products.
func (c *Counter) AddBasket(products []string) {
	pos := c.n
	c.n++
	word, bit := pos/64, uint(pos%64)
	for _, p := range products {
		col, ok := c.index[p]
		if !ok {
			col = len(c.items)
			c.index[p] = col
			c.items = append(c.items, p)
			c.cols = append(c.cols, nil)
		}
		for len(c.cols[col]) <= word {
			c.cols[col] = append(c.cols[col], 0)
		}
		c.cols[col][word] |= 1 << bit
	}
}

// TotalBaskets returns the number of baskets processed.
func (c *Counter) TotalBaskets() int { return c.n }

// UniqueItems returns the number of distinct products seen.
func (c *Counter) UniqueItems() int { return len(c.items) }

// SortedItems returns the product vocabulary in lexical order, matching the
// column order of a pivoted presence table.
func (c *Counter) SortedItems() []string {
	out := make([]string, len(c.items))
	copy(out, c.items)
	sort.Strings(out)
	return out
}

// ItemCount returns the number of baskets containing the product.
func (c *Counter) ItemCount(product string) int {
	return c.Count(product)
}

// Count returns the number of baskets containing every given product.
func (c *Counter) Count(products ...string) int {
	if len(products) == 0 {
		return c.n
	}
	cols := make([][]uint64, 0, len(products))
	for _, p := range products {
		col, ok := c.index[p]
		if !ok {
			return 0
		}
		cols = append(cols, c.cols[col])
	}
	return intersect(cols)
}

// Support returns Count / TotalBaskets.
func (c *Counter) Support(products ...string) float64 {
	if c.n == 0 {
		return 0
	}
	return float64(c.Count(products...)) / float64(c.n)
}

func intersect(cols [][]uint64) int {
	shortest := len(cols[0])
	for _, col := range cols[1:] {
		if len(col) < shortest {
			shortest = len(col)
		}
	}
	total := 0
	for w := 0; w < shortest; w++ {
		word := cols[0][w]
		for _, col := range cols[1:] {
			word &= col[w]
		}
		total += bits.OnesCount64(word)
	}
	return total
}
