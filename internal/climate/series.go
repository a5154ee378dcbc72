package climate

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Series is an append-only history of one scalar state variable, indexed
// by time step.
type Series []float64

// NewSeries returns a series seeded with its initial condition.
func NewSeries(initial float64) Series {
	return Series{initial}
}

// Last returns the most recent value. ok is false for an empty series.
func (s Series) Last() (v float64, ok bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

func (s Series) Clone() Series {
	c := make(Series, len(s))
	copy(c, s)
	return c
}

// Floats returns a copy as a plain slice for presentation layers.
func (s Series) Floats() []float64 {
	return []float64(s.Clone())
}

func (s Series) Max() float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	return floats.Max(s)
}

func (s Series) Min() float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	return floats.Min(s)
}

func (s Series) Sum() float64 {
	return floats.Sum(s)
}

// IsValid reports whether every value is finite.
func (s Series) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
