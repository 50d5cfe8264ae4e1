package predicate

import (
	"fmt"
	"strings"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
)

// Op is a comparison operator.
type Op string

const (
	OpLT Op = "<"
	OpGT Op = ">"
	OpLE Op = "<="
	OpGE Op = ">="
	OpEQ Op = "=="
	OpNE Op = "!="
)

// Ops lists the valid comparison operators.
var Ops = []Op{OpLT, OpGT, OpGE, OpLE, OpEQ, OpNE}

// ParseOp validates a comparison operator.
func ParseOp(s string) (Op, error) {
	op := Op(strings.TrimSpace(s))
	for _, valid := range Ops {
		if op == valid {
			return op, nil
		}
	}
	return "", fmt.Errorf("'%s' is not a valid value, use any of: <, >, >=, <=, ==, !=: %w", s, internalerr.ErrInvalidOperator)
}

// Compare applies the operator to a and b.
func (o Op) Compare(a, b float64) bool {
	switch o {
	case OpLT:
		return a < b
	case OpGT:
		return a > b
	case OpLE:
		return a <= b
	case OpGE:
		return a >= b
	case OpEQ:
		return a == b
	case OpNE:
		return a != b
	}
	return false
}

// Connector joins two clauses.
type Connector int

const (
	And Connector = iota
	Or
)

// ParseConnector accepts "&", "and", "|" and "or" in any case.
func ParseConnector(s string) (Connector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "&", "and":
		return And, nil
	case "|", "or":
		return Or, nil
	}
	return 0, fmt.Errorf("'%s' is not a valid value, use any of: &, |: %w", s, internalerr.ErrInvalidConnector)
}

func (c Connector) String() string {
	switch c {
	case And:
		return "&"
	case Or:
		return "|"
	}
	return fmt.Sprintf("Connector(%d)", int(c))
}
