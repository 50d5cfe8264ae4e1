// Package table converts engine values to and from split-orientation
// tables: {"columns": [...], "index": [...], "data": [[...], ...]}.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/itemset"
)

// ColProblem is the single column of a diagnostic table.
const ColProblem = "Problem"

// Split is a column-labelled table in split orientation.
type Split struct {
	Columns []string `json:"columns"`
	Index   []int    `json:"index"`
	Data    [][]any  `json:"data"`
}

// NewSplit returns an empty table with the given columns.
func NewSplit(columns ...string) Split {
	return Split{Columns: columns, Index: []int{}, Data: [][]any{}}
}

// Append adds a row. The row must have one value per column.
func (s *Split) Append(row ...any) {
	s.Index = append(s.Index, len(s.Data))
	s.Data = append(s.Data, row)
}

// Len returns the number of rows.
func (s Split) Len() int { return len(s.Data) }

// Problem returns a one-row diagnostic table.
func Problem(reason string) Split {
	s := NewSplit(ColProblem)
	s.Append(reason)
	return s
}

// Problem reports the reason of a diagnostic table.
func (s Split) Problem() (string, bool) {
	if len(s.Columns) != 1 || s.Columns[0] != ColProblem || len(s.Data) != 1 || len(s.Data[0]) != 1 {
		return "", false
	}
	reason, ok := s.Data[0][0].(string)
	return reason, ok
}

// Decode reads a split table from JSON.
func Decode(data []byte) (Split, error) {
	var s Split
	if err := json.Unmarshal(data, &s); err != nil {
		return Split{}, fmt.Errorf("decode table: %v: %w", err, internalerr.ErrInvalidInput)
	}
	if err := s.validate(); err != nil {
		return Split{}, err
	}
	return s, nil
}

func (s Split) validate() error {
	for i, row := range s.Data {
		if len(row) != len(s.Columns) {
			return fmt.Errorf("row %d has %d values for %d columns: %w", i, len(row), len(s.Columns), internalerr.ErrLengthMismatch)
		}
	}
	return nil
}

// Encode writes the table as JSON.
func (s Split) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// columnIndex maps column names to positions.
func (s Split) columnIndex() map[string]int {
	out := make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		out[c] = i
	}
	return out
}

// encodeFloat writes infinities as strings, which JSON cannot carry as
// numbers.
func encodeFloat(v float64) any {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return nil
	}
	return v
}

func decodeFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case nil:
		return math.NaN(), nil
	case string:
		switch strings.ToLower(x) {
		case "inf", "infinity", "+inf":
			return math.Inf(1), nil
		case "-inf", "-infinity":
			return math.Inf(-1), nil
		}
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("number %q: %w", x, internalerr.ErrTypeConstraint)
		}
		return f, nil
	}
	return 0, fmt.Errorf("number %v (%T): %w", v, v, internalerr.ErrTypeConstraint)
}

func decodeString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("string %v (%T): %w", v, v, internalerr.ErrTypeConstraint)
}

// decodeSet freezes an exported product list back into a set.
func decodeSet(v any) (itemset.Set, error) {
	switch x := v.(type) {
	case []any:
		items := make([]string, len(x))
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return itemset.Set{}, fmt.Errorf("set member %v (%T): %w", item, item, internalerr.ErrTypeConstraint)
			}
			items[i] = s
		}
		return itemset.New(items...), nil
	case []string:
		return itemset.New(x...), nil
	case itemset.Set:
		return x, nil
	}
	return itemset.Set{}, fmt.Errorf("set %v (%T): %w", v, v, internalerr.ErrTypeConstraint)
}

// requireColumns checks that every name is a column of s.
func requireColumns(s Split, names ...string) (map[string]int, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	idx := s.columnIndex()
	for _, n := range names {
		if _, ok := idx[n]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", n, internalerr.ErrInvalidInput)
		}
	}
	return idx, nil
}
