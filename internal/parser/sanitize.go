package parser

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// placeholders the upstream extractors use for "no value".
var numericPlaceholders = map[string]struct{}{
	"":     {},
	"nan":  {},
	"null": {},
	"n/a":  {},
	"none": {},
}

// SanitizeNumber coerces a loosely typed scalar into a finite float64.
// Strings may carry currency symbols ("$", "₹", "Rs"), thousands commas, or
// placeholder text; anything unparseable degrades to 0.0. The function is
// total: there is no error path.
func SanitizeNumber(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0.0
	case float64:
		return finiteOrZero(t)
	case float32:
		return finiteOrZero(float64(t))
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		return sanitizeNumericString(t.String())
	case string:
		return sanitizeNumericString(t)
	default:
		return 0.0
	}
}

func sanitizeNumericString(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "₹", "")
	s = strings.ReplaceAll(s, "Rs", "")
	s = strings.ReplaceAll(s, "RS", "")
	s = strings.ReplaceAll(s, "rs", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if _, ok := numericPlaceholders[strings.ToLower(s)]; ok {
		return 0.0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return finiteOrZero(f)
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0.0
	}
	return f
}
