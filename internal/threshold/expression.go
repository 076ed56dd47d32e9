package threshold

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/giantswarm/load-testing/internal/metrics"
)

var expressionPattern = regexp.MustCompile(
	`^\s*(count|rate|avg|min|max|med|p\(\s*(\d+(?:\.\d+)?)\s*\))\s*(<=|>=|===|==|!=|<|>)\s*(-?\d+(?:\.\d+)?)\s*$`,
)

// Expression is a parsed threshold condition such as p(95)<300 or rate>=0.99.
type Expression struct {
	Raw         string
	Aggregation string
	Percentile  float64
	Operator    string
	Value       float64
}

// ParseExpression parses a threshold condition.
func ParseExpression(s string) (Expression, error) {
	m := expressionPattern.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("invalid threshold expression %q", s)
	}

	expr := Expression{Raw: s, Aggregation: m[1], Operator: m[3]}
	if m[2] != "" {
		p, err := strconv.ParseFloat(m[2], 64)
		if err != nil || p < 0 || p > 100 {
			return Expression{}, fmt.Errorf("invalid percentile in %q", s)
		}
		expr.Aggregation = "p"
		expr.Percentile = p
	}
	if expr.Operator == "===" {
		expr.Operator = "=="
	}

	v, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Expression{}, fmt.Errorf("invalid threshold value in %q: %w", s, err)
	}
	expr.Value = v
	return expr, nil
}

// Holds reports whether the observed value satisfies the condition.
func (e Expression) Holds(observed float64) bool {
	switch e.Operator {
	case "<":
		return observed < e.Value
	case "<=":
		return observed <= e.Value
	case ">":
		return observed > e.Value
	case ">=":
		return observed >= e.Value
	case "==":
		return observed == e.Value
	case "!=":
		return observed != e.Value
	default:
		return false
	}
}

// supports reports whether the aggregation applies to the metric kind.
func (e Expression) supports(kind metrics.Kind) bool {
	switch kind {
	case metrics.Rate:
		return e.Aggregation == "rate"
	case metrics.Counter:
		return e.Aggregation == "count"
	case metrics.Trend:
		switch e.Aggregation {
		case "avg", "min", "max", "med", "p", "count":
			return true
		}
	}
	return false
}

func (e Expression) String() string {
	return e.Raw
}
