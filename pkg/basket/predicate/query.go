package predicate

import (
	"fmt"
	"strings"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
)

// Clause compares one rule column against a value.
type Clause struct {
	Metric string // canonical rule column
	Op     Op
	Value  float64
}

func (c Clause) String() string {
	return fmt.Sprintf("(%s %s %v)", c.Metric, c.Op, c.Value)
}

// Eval applies the clause to a rule.
func (c Clause) Eval(r mining.Rule) bool {
	v, err := r.Field(c.Metric)
	if err != nil {
		return false
	}
	return c.Op.Compare(v, c.Value)
}

// Query is an ordered list of clauses joined by connectors.
// len(Connectors) == len(Clauses)-1 whenever Clauses is non-empty.
type Query struct {
	Clauses    []Clause
	Connectors []Connector
}

// NewQuery validates raw metric names, operators and connectors.
func NewQuery(metrics []string, values []float64, ops []string, connectors []string) (Query, error) {
	if len(ops) != len(metrics) || len(values) != len(metrics) {
		return Query{}, fmt.Errorf("comparison operators and query values must be the same length: %w", internalerr.ErrLengthMismatch)
	}
	if len(metrics) > 0 && len(connectors) != len(metrics)-1 {
		return Query{}, fmt.Errorf("connectors must have %d values: %w", len(metrics)-1, internalerr.ErrLengthMismatch)
	}
	if len(metrics) == 0 && len(connectors) != 0 {
		return Query{}, fmt.Errorf("connectors without clauses: %w", internalerr.ErrLengthMismatch)
	}

	q := Query{Clauses: make([]Clause, len(metrics))}
	for i, m := range metrics {
		col, ok := mining.CanonicalColumn(m)
		if !ok {
			return Query{}, fmt.Errorf("query metric %q: %w", m, internalerr.ErrInvalidMetric)
		}
		op, err := ParseOp(ops[i])
		if err != nil {
			return Query{}, err
		}
		q.Clauses[i] = Clause{Metric: col, Op: op, Value: values[i]}
	}
	for _, raw := range connectors {
		c, err := ParseConnector(raw)
		if err != nil {
			return Query{}, err
		}
		q.Connectors = append(q.Connectors, c)
	}
	return q, nil
}

// Empty reports whether the query has no clauses.
func (q Query) Empty() bool { return len(q.Clauses) == 0 }

// Validate checks the connector length invariant.
func (q Query) Validate() error {
	if len(q.Clauses) == 0 {
		if len(q.Connectors) != 0 {
			return fmt.Errorf("connectors without clauses: %w", internalerr.ErrLengthMismatch)
		}
		return nil
	}
	if len(q.Connectors) != len(q.Clauses)-1 {
		return fmt.Errorf("connectors must have %d values: %w", len(q.Clauses)-1, internalerr.ErrLengthMismatch)
	}
	for _, c := range q.Clauses {
		if _, ok := mining.CanonicalColumn(c.Metric); !ok {
			return fmt.Errorf("query metric %q: %w", c.Metric, internalerr.ErrInvalidMetric)
		}
		if _, err := ParseOp(string(c.Op)); err != nil {
			return err
		}
	}
	return nil
}

func (q Query) String() string {
	var b strings.Builder
	for i, c := range q.Clauses {
		if i > 0 {
			b.WriteString(" " + q.Connectors[i-1].String() + " ")
		}
		b.WriteString(c.String())
	}
	return b.String()
}

// Expr is a node of a boolean expression over rules.
type Expr interface {
	Eval(r mining.Rule) bool
}

// AllOf is true when every term is true.
type AllOf []Expr

func (a AllOf) Eval(r mining.Rule) bool {
	for _, e := range a {
		if !e.Eval(r) {
			return false
		}
	}
	return true
}

// AnyOf is true when at least one term is true.
type AnyOf []Expr

func (a AnyOf) Eval(r mining.Rule) bool {
	for _, e := range a {
		if e.Eval(r) {
			return true
		}
	}
	return false
}

// Tree builds the expression for the query: runs of clauses joined by AND
// become AllOf groups and the groups are joined by OR. An empty query
// matches every rule.
func (q Query) Tree() Expr {
	if len(q.Clauses) == 0 {
		return AllOf{}
	}
	var groups AnyOf
	current := AllOf{q.Clauses[0]}
	for i, conn := range q.Connectors {
		next := q.Clauses[i+1]
		if conn == Or {
			groups = append(groups, current)
			current = AllOf{next}
			continue
		}
		current = append(current, next)
	}
	groups = append(groups, current)
	if len(groups) == 1 {
		return groups[0]
	}
	return groups
}
