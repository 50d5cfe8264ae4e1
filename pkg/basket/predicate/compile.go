package predicate

import (
	"fmt"
	"strings"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
)

// Compiled is the sanitized form of a clause builder's raw input.
// Metrics and Values form an insertion-ordered mapping: a metric keeps the
// position of its first surviving occurrence and the value of its last.
type Compiled struct {
	Metrics    []string
	Values     []float64
	Ops        []string
	Connectors []string
	Dropped    []int // input positions that did not survive
}

// Clauses returns the metric -> value mapping.
func (c Compiled) Clauses() map[string]float64 {
	out := make(map[string]float64, len(c.Metrics))
	for i, m := range c.Metrics {
		out[m] = c.Values[i]
	}
	return out
}

// Query validates the compiled lists and builds a Query.
func (c Compiled) Query() (Query, error) {
	return NewQuery(c.Metrics, c.Values, c.Ops, c.Connectors)
}

// Compile sanitizes the parallel lists produced by the interactive clause
// builder. A nil entry is an unset field. The connector list carries one
// slot per clause; the last slot never joins anything and is discarded. A
// nil connector list, or one holding a single unset slot, means no
// connectors were offered.
//
// Steps, in order:
//   - metric names are lower-cased
//   - for every metric name used more than once the earliest occurrence is
//     removed, together with its value, operator and the connector before it
//   - the trailing connector slot is dropped
//   - clauses without a value are removed
//   - clauses without an operator are removed when operators are missing
//   - clauses with an unset connector are removed when connectors don't
//     line up with the clauses
func Compile(metrics []*string, values []*float64, comps []*string, conns []*string) (Compiled, error) {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		if m == nil {
			return Compiled{}, fmt.Errorf("metric %d is not a string: %w", i, internalerr.ErrTypeConstraint)
		}
		names[i] = strings.ToLower(*m)
	}
	origin := make([]int, len(names))
	for i := range origin {
		origin[i] = i
	}

	hasConn := conns != nil
	if len(conns) == 1 && conns[0] == nil {
		hasConn = false
		conns = nil
	}

	var err error
	if invalid := duplicateIndex(names); len(invalid) > 0 {
		if names, err = removeAt(invalid, names, "metrics"); err != nil {
			return Compiled{}, err
		}
		origin, _ = removeAt(invalid, origin, "metrics")
		if values, err = removeAt(invalid, values, "values"); err != nil {
			return Compiled{}, err
		}
		if comps, err = removeAt(invalid, comps, "comparison operators"); err != nil {
			return Compiled{}, err
		}
		if hasConn {
			before := make([]int, len(invalid))
			for i, x := range invalid {
				before[i] = x - 1
			}
			if conns, err = removeAt(before, conns, "connectors"); err != nil {
				return Compiled{}, err
			}
		}
	}

	if hasConn && len(conns) > 0 {
		conns = conns[:len(conns)-1]
	}

	present := setValues(values)
	if len(names) != len(present) {
		unset := unsetIndex(values)
		if len(unset) == 0 {
			return Compiled{}, fmt.Errorf("%d metrics but %d values: %w", len(names), len(present), internalerr.ErrLengthMismatch)
		}
		if names, err = removeAt(unset, names, "metrics"); err != nil {
			return Compiled{}, err
		}
		origin, _ = removeAt(unset, origin, "metrics")
		if comps, err = removeAt(unset, comps, "comparison operators"); err != nil {
			return Compiled{}, err
		}
		if hasConn && inRange(unset, len(conns)) {
			if conns, err = removeAt(unset, conns, "connectors"); err != nil {
				return Compiled{}, err
			}
		}
	}

	ops := setValues(comps)
	if len(ops) != len(names) {
		if unset := unsetIndex(comps); len(unset) > 0 {
			if names, err = removeAt(unset, names, "metrics"); err != nil {
				return Compiled{}, err
			}
			origin, _ = removeAt(unset, origin, "metrics")
			if present, err = removeAt(unset, present, "values"); err != nil {
				return Compiled{}, err
			}
			if hasConn && inRange(unset, len(conns)) {
				if conns, err = removeAt(unset, conns, "connectors"); err != nil {
					return Compiled{}, err
				}
			}
		}
	}

	connectors := []string{}
	if hasConn {
		connectors = setValues(conns)
		if len(names) == 1 {
			connectors = []string{}
		} else if len(connectors) != len(names)-1 {
			if unset := unsetIndex(conns); len(unset) > 0 {
				if names, err = removeAt(unset, names, "metrics"); err != nil {
					return Compiled{}, err
				}
				origin, _ = removeAt(unset, origin, "metrics")
				if present, err = removeAt(unset, present, "values"); err != nil {
					return Compiled{}, err
				}
				if ops, err = removeAt(unset, ops, "comparison operators"); err != nil {
					return Compiled{}, err
				}
			}
		}
	}

	out := Compiled{Ops: ops, Connectors: connectors}
	if out.Ops == nil {
		out.Ops = []string{}
	}
	n := len(names)
	if len(present) < n {
		n = len(present)
	}
	position := make(map[string]int, n)
	kept := make(map[int]struct{}, n)
	for i := 0; i < n; i++ {
		kept[origin[i]] = struct{}{}
		if p, ok := position[names[i]]; ok {
			out.Values[p] = present[i]
			continue
		}
		position[names[i]] = len(out.Metrics)
		out.Metrics = append(out.Metrics, names[i])
		out.Values = append(out.Values, present[i])
	}
	for i := range metrics {
		if _, ok := kept[i]; !ok {
			out.Dropped = append(out.Dropped, i)
		}
	}
	return out, nil
}

// duplicateIndex returns, for every name used more than once, the index of
// its earliest occurrence. Names are visited in first-appearance order.
func duplicateIndex(names []string) []int {
	counts := make(map[string]int, len(names))
	first := make(map[string]int, len(names))
	var order []string
	for i, n := range names {
		if _, ok := counts[n]; !ok {
			first[n] = i
			order = append(order, n)
		}
		counts[n]++
	}
	var out []int
	for _, n := range order {
		if counts[n] > 1 {
			out = append(out, first[n])
		}
	}
	return out
}

// removeAt removes positions from list. A single position is popped and may
// be negative, counting from the end; it must exist. Several positions are
// filtered out, ignoring those that do not exist.
func removeAt[T any](idx []int, list []T, what string) ([]T, error) {
	switch len(idx) {
	case 0:
		return append([]T(nil), list...), nil
	case 1:
		i := idx[0]
		if i < 0 {
			i += len(list)
		}
		if i < 0 || i >= len(list) {
			return nil, fmt.Errorf("remove index %d from %d %s: %w", idx[0], len(list), what, internalerr.ErrLengthMismatch)
		}
		out := make([]T, 0, len(list)-1)
		out = append(out, list[:i]...)
		return append(out, list[i+1:]...), nil
	}
	drop := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		drop[i] = struct{}{}
	}
	out := make([]T, 0, len(list))
	for i, v := range list {
		if _, ok := drop[i]; !ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// inRange reports whether every index addresses an element of a list of
// length n.
func inRange(idx []int, n int) bool {
	for _, i := range idx {
		if i < 0 || i >= n {
			return false
		}
	}
	return true
}

func unsetIndex[T any](list []*T) []int {
	var out []int
	for i, v := range list {
		if v == nil {
			out = append(out, i)
		}
	}
	return out
}

func setValues[T any](list []*T) []T {
	out := make([]T, 0, len(list))
	for _, v := range list {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}
