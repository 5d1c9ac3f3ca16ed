package grading

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	// MinScore is the lower bound of the grading scale.
	MinScore = 0.0
	// MaxScore is the upper bound of the grading scale.
	MaxScore = 20.0
	// DefaultCoefficient applies whenever a coefficient is missing or unusable.
	DefaultCoefficient = 1.0
)

// ClampScore bounds a score to [MinScore, MaxScore].
func ClampScore(v float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, v))
}

// NormalizeCoefficient returns v when it is a usable positive weight and DefaultCoefficient otherwise.
func NormalizeCoefficient(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return DefaultCoefficient
	}
	return v
}

// ParseCoefficient coerces user input into a coefficient. Empty or non-numeric input
// yields DefaultCoefficient rather than an error.
func ParseCoefficient(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultCoefficient
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return DefaultCoefficient
	}
	return NormalizeCoefficient(v)
}

// CoefficientFromJSON accepts a JSON number, a JSON string or null.
func CoefficientFromJSON(raw json.RawMessage) float64 {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return DefaultCoefficient
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return ParseCoefficient(text)
	}
	return ParseCoefficient(trimmed)
}
