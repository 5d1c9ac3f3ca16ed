package grading

import (
	"strconv"

	"github.com/volatiletech/null/v8"
)

// Placeholder is rendered in place of an absent average.
const Placeholder = "--"

// Format renders an optional average with two decimals, or Placeholder when absent.
func Format(v null.Float64) string {
	if !v.Valid {
		return Placeholder
	}
	return FormatValue(v.Float64)
}

// FormatValue renders a value with two decimals.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
