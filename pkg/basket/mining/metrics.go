package mining

import (
	"fmt"
	"math"
	"strings"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/internalerr"
)

// Metric names a rule interestingness measure.
type Metric string

const (
	MetricSupport    Metric = "support"
	MetricConfidence Metric = "confidence"
	MetricLift       Metric = "lift"
	MetricLeverage   Metric = "leverage"
	MetricConviction Metric = "conviction"
)

// Metrics lists the rule metrics in table order.
var Metrics = []Metric{MetricSupport, MetricConfidence, MetricLift, MetricLeverage, MetricConviction}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Metrics {
		if m == valid {
			return m, nil
		}
	}
	return "", fmt.Errorf("%q is not a valid metric, use any of: support, confidence, lift, leverage, conviction: %w",
		s, internalerr.ErrInvalidMetric)
}

// ThresholdRange is the interactive range offered for a metric threshold.
type ThresholdRange struct {
	Min     float64
	Max     float64
	Default float64
}

// RangeFor returns the threshold range used by the dashboard for m.
func RangeFor(m Metric) ThresholdRange {
	switch m {
	case MetricSupport:
		return ThresholdRange{Min: 0, Max: 1, Default: 0.005}
	case MetricConfidence:
		return ThresholdRange{Min: 0, Max: 1, Default: 0.01}
	case MetricLift:
		return ThresholdRange{Min: 0, Max: 10, Default: 1}
	case MetricLeverage:
		return ThresholdRange{Min: -1, Max: 1, Default: 0.001}
	case MetricConviction:
		return ThresholdRange{Min: 0, Max: 10, Default: 1}
	}
	return ThresholdRange{}
}

// Calculator computes rule metrics from supports.
type Calculator struct{}

// NewCalculator creates a rule metric calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Confidence = s(AC) / s(A)
func (c *Calculator) Confidence(sAC, sA float64) float64 {
	if sA == 0 {
		return 0
	}
	return sAC / sA
}

// Lift = confidence / s(C)
func (c *Calculator) Lift(sAC, sA, sC float64) float64 {
	if sC == 0 {
		return 0
	}
	return c.Confidence(sAC, sA) / sC
}

// Leverage = s(AC) - s(A)s(C)
func (c *Calculator) Leverage(sAC, sA, sC float64) float64 {
	return sAC - sA*sC
}

// Conviction = (1 - s(C)) / (1 - confidence), +Inf when confidence is 1.
func (c *Calculator) Conviction(sAC, sA, sC float64) float64 {
	conf := c.Confidence(sAC, sA)
	if conf >= 1 {
		return math.Inf(1)
	}
	return (1 - sC) / (1 - conf)
}

// Scores holds every metric of one directional rule.
type Scores struct {
	AntecedentSupport float64
	ConsequentSupport float64
	Support           float64
	Confidence        float64
	Lift              float64
	Leverage          float64
	Conviction        float64
}

// Score evaluates all metrics for antecedent support sA, consequent support
// sC and joint support sAC.
func (c *Calculator) Score(sA, sC, sAC float64) Scores {
	return Scores{
		AntecedentSupport: sA,
		ConsequentSupport: sC,
		Support:           sAC,
		Confidence:        c.Confidence(sAC, sA),
		Lift:              c.Lift(sAC, sA, sC),
		Leverage:          c.Leverage(sAC, sA, sC),
		Conviction:        c.Conviction(sAC, sA, sC),
	}
}

// Value returns the score for m.
func (s Scores) Value(m Metric) float64 {
	switch m {
	case MetricSupport:
		return s.Support
	case MetricConfidence:
		return s.Confidence
	case MetricLift:
		return s.Lift
	case MetricLeverage:
		return s.Leverage
	case MetricConviction:
		return s.Conviction
	}
	return math.NaN()
}
