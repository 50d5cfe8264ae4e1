// Package itemset provides the product set value used for itemsets,
// antecedents and consequents.
package itemset

import (
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Set is an ordered, deduplicated collection of product identifiers.
// Order is the order of first insertion; equality ignores order.
type Set struct {
	items []string
}

// New builds a set from items, dropping duplicates.
func New(items ...string) Set {
	if len(items) == 0 {
		return Set{}
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return Set{items: out}
}

// Len returns the cardinality of the set.
func (s Set) Len() int { return len(s.items) }

// Empty reports whether the set has no members.
func (s Set) Empty() bool { return len(s.items) == 0 }

// Items returns a copy of the members in insertion order.
func (s Set) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Contains reports membership.
func (s Set) Contains(item string) bool {
	for _, it := range s.items {
		if it == item {
			return true
		}
	}
	return false
}

// Equal compares two sets ignoring order.
func (s Set) Equal(o Set) bool {
	if len(s.items) != len(o.items) {
		return false
	}
	for _, it := range s.items {
		if !o.Contains(it) {
			return false
		}
	}
	return true
}

// Union returns s followed by the members of o not already in s.
func (s Set) Union(o Set) Set {
	return New(append(s.Items(), o.items...)...)
}

// Minus returns the members of s that are not in o.
func (s Set) Minus(o Set) Set {
	var out []string
	for _, it := range s.items {
		if !o.Contains(it) {
			out = append(out, it)
		}
	}
	return Set{items: out}
}

// Disjoint reports whether s and o share no members.
func (s Set) Disjoint(o Set) bool {
	for _, it := range s.items {
		if o.Contains(it) {
			return false
		}
	}
	return true
}

// Key is a canonical, order independent representation usable as a map key.
func (s Set) Key() string {
	sorted := s.Items()
	sort.Strings(sorted)
	return strings.Join(sorted, "\x1f")
}

// String renders the set as "{a, b}". Product containment searches match
// against this form.
func (s Set) String() string {
	return "{" + strings.Join(s.items, ", ") + "}"
}

// MarshalJSON exports the set as a plain array.
func (s Set) MarshalJSON() ([]byte, error) {
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

// UnmarshalJSON rebuilds a set from a plain array.
func (s *Set) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = New(items...)
	return nil
}
