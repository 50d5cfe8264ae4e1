package insight

import (
	"fmt"
	"strings"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/mining"
)

// RelationshipVariables are the rule columns that can be plotted against
// each other.
var RelationshipVariables = []string{
	mining.ColSupport, mining.ColConfidence, mining.ColLift, mining.ColLeverage,
	mining.ColConviction, mining.ColAntecedentSupport, mining.ColConsequentSupport,
}

// Point is one rule in a relationship scatter. Z is zero without a third
// variable.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Scatter relates two or three rule metrics across a rule table.
type Scatter struct {
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Points []Point  `json:"points"`
}

// Relationship builds scatter data for x against y, optionally colored by
// z. The variables must be distinct rule metrics; pass "" to omit z.
func Relationship(rules mining.RuleTable, x, y, z string) (Scatter, error) {
	vars := []string{x, y}
	if z != "" {
		vars = append(vars, z)
	}
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
	}
	if len(seen) < len(vars) {
		if z == "" {
			return Scatter{}, fmt.Errorf("argument `x_var` and `y_var` must be unique and not empty: %w", internalerr.ErrInvalidArgument)
		}
		return Scatter{}, fmt.Errorf("argument `x_var`, `y_var` and `z_var` must be unique and not empty: %w", internalerr.ErrInvalidArgument)
	}
	for _, v := range vars {
		if !validVariable(v) {
			return Scatter{}, fmt.Errorf("an invalid variable argument was supplied: %q: %w", v, internalerr.ErrInvalidArgument)
		}
	}

	cols := make([][]float64, len(vars))
	labels := make([]string, len(vars))
	for i, v := range vars {
		col, err := rules.Column(v)
		if err != nil {
			return Scatter{}, err
		}
		cols[i] = col
		labels[i] = titleCase(v)
	}

	points := make([]Point, rules.Len())
	for i := range points {
		points[i] = Point{X: cols[0][i], Y: cols[1][i]}
		if len(cols) == 3 {
			points[i].Z = cols[2][i]
		}
	}

	var title string
	if len(labels) == 3 {
		title = fmt.Sprintf("Relationship between %s, %s & %s For %s Rules", labels[0], labels[1], labels[2], groupThousands(fmt.Sprint(rules.Len())))
	} else {
		title = fmt.Sprintf("Relationship between %s & %s For %s Rules", labels[0], labels[1], groupThousands(fmt.Sprint(rules.Len())))
	}
	return Scatter{Title: title, Labels: labels, Points: points}, nil
}

func validVariable(v string) bool {
	for _, valid := range RelationshipVariables {
		if v == valid {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
