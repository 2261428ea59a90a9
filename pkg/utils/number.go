package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FiniteOrZero is the single coercion point for numeric comparisons: nil,
// NaN and ±Inf all become 0.
func FiniteOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return Finite(*v)
}

// Finite maps NaN and ±Inf to 0.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Float returns a pointer to v, or nil when v is not finite.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseNumber parses a threshold that may arrive as a JSON number, a numeric
// string, or a Go numeric type. Anything else is an error.
func ParseNumber(raw interface{}) (float64, error) {
	var (
		v   float64
		err error
	)
	switch t := raw.(type) {
	case float64:
		v = t
	case float32:
		v = float64(t)
	case int:
		v = float64(t)
	case int64:
		v = float64(t)
	case json.Number:
		v, err = t.Float64()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, fmt.Errorf("empty numeric value")
		}
		v, err = strconv.ParseFloat(s, 64)
	case nil:
		return 0, fmt.Errorf("missing numeric value")
	default:
		return 0, fmt.Errorf("unsupported numeric value %v (%T)", raw, raw)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value %v: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("numeric value %v is not finite", raw)
	}
	return v, nil
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
