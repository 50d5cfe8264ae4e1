package mining

import (
	"context"
	"strconv"
	"strings"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/itemset"
)

// ItemsetFinder finds frequent itemsets in a presence matrix.
type ItemsetFinder interface {
	FrequentItemsets(ctx context.Context, c *Counter, minSupport float64, maxLength int) ([]Itemset, error)
}

// Apriori is the level-wise frequent itemset search. Candidates of length k
// are joined from frequent (k-1)-itemsets sharing a prefix and pruned when
// any subset is infrequent. An itemset must occur in at least one basket.
type Apriori struct{}

// FrequentItemsets returns every itemset with support >= minSupport and at
// most maxLength items (0 = unbounded), shortest first and lexically ordered
// within a length.
func (Apriori) FrequentItemsets(ctx context.Context, c *Counter, minSupport float64, maxLength int) ([]Itemset, error) {
	n := c.TotalBaskets()
	if n == 0 {
		return nil, nil
	}

	items := c.SortedItems()
	cols := make([][]uint64, len(items))
	for r, it := range items {
		cols[r] = c.cols[c.index[it]]
	}
	frequent := func(count int) bool {
		return count > 0 && float64(count)/float64(n) >= minSupport
	}

	var out []Itemset
	var level [][]int
	for r := range items {
		count := intersect([][]uint64{cols[r]})
		if frequent(count) {
			level = append(level, []int{r})
			out = append(out, newItemset(items, []int{r}, count, n))
		}
	}

	for k := 2; len(level) > 1 && (maxLength <= 0 || k <= maxLength); k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		known := make(map[string]struct{}, len(level))
		for _, s := range level {
			known[rankKey(s)] = struct{}{}
		}

		var next [][]int
		for i := 0; i < len(level); i++ {
			for j := i + 1; j < len(level); j++ {
				a, b := level[i], level[j]
				if !samePrefix(a, b) {
					break
				}
				cand := make([]int, 0, k)
				cand = append(cand, a...)
				cand = append(cand, b[len(b)-1])
				if !subsetsKnown(cand, known) {
					continue
				}

				sets := make([][]uint64, len(cand))
				for x, r := range cand {
					sets[x] = cols[r]
				}
				count := intersect(sets)
				if frequent(count) {
					next = append(next, cand)
					out = append(out, newItemset(items, cand, count, n))
				}
			}
		}
		level = next
	}
	return out, nil
}

func newItemset(items []string, ranks []int, count, n int) Itemset {
	names := make([]string, len(ranks))
	for i, r := range ranks {
		names[i] = items[r]
	}
	return Itemset{Items: itemset.New(names...), Support: float64(count) / float64(n)}
}

func samePrefix(a, b []int) bool {
	for i := 0; i < len(a)-1; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func subsetsKnown(cand []int, known map[string]struct{}) bool {
	sub := make([]int, 0, len(cand)-1)
	for drop := range cand {
		sub = sub[:0]
		for i, r := range cand {
			if i != drop {
				sub = append(sub, r)
			}
		}
		if _, ok := known[rankKey(sub)]; !ok {
			return false
		}
	}
	return true
}

func rankKey(ranks []int) string {
	var b strings.Builder
	for i, r := range ranks {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(r))
	}
	return b.String()
}
