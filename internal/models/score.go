package models

import (
	"fmt"
	"math"
)

// Range is the inclusive bound of a score scale.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Canonical ranges scores are stored on.
var (
	StanceRange = Range{Min: 0, Max: 100}
	StateRange  = Range{Min: 0, Max: 10}
	HeroRange   = Range{Min: 0, Max: 5}
)

func (r Range) Mid() int { return r.Min + (r.Max-r.Min)/2 }

func (r Range) Contains(v float64) bool {
	return v >= float64(r.Min) && v <= float64(r.Max)
}

// WithMax returns the range a caller declared by sending only a maximum.
// A non-positive max keeps r.
func (r Range) WithMax(hi int) Range {
	if hi <= 0 {
		return r
	}
	return Range{Min: r.Min, Max: hi}
}

// ScoreRangeError reports a value outside the range it was declared on.
type ScoreRangeError struct {
	Field string
	Value float64
	Range Range
}

func (e *ScoreRangeError) Error() string {
	return fmt.Sprintf("%s: %g outside %d..%d", e.Field, e.Value, e.Range.Min, e.Range.Max)
}

// Normalize validates v against from and rescales it linearly onto r.
func (r Range) Normalize(field string, v float64, from Range) (int, error) {
	if math.IsNaN(v) || !from.Contains(v) {
		return 0, &ScoreRangeError{Field: field, Value: v, Range: from}
	}
	if from == r {
		return int(math.Round(v)), nil
	}
	span := float64(from.Max - from.Min)
	if span <= 0 {
		return 0, &ScoreRangeError{Field: field, Value: v, Range: from}
	}
	scaled := float64(r.Min) + (v-float64(from.Min))*float64(r.Max-r.Min)/span
	return int(math.Round(scaled)), nil
}
