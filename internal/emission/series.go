package emission

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Series is a yearly emission trajectory in GtC/yr.
type Series struct {
	Years  []int     `json:"years" yaml:"years"`
	Values []float64 `json:"values" yaml:"values"`
}

// FromValues labels values with consecutive years from startYear.
func FromValues(startYear int, values []float64) Series {
	s := Series{Years: make([]int, len(values)), Values: make([]float64, len(values))}
	copy(s.Values, values)
	for i := range values {
		s.Years[i] = startYear + i
	}
	return s
}

// Constant returns n years of a fixed emission rate.
func Constant(startYear, n int, value float64) Series {
	values := make([]float64, n)
	for i := range values {
		values[i] = value
	}
	return FromValues(startYear, values)
}

func (s Series) Len() int { return len(s.Values) }

// Cumulative returns total emissions over the series (GtC).
func (s Series) Cumulative() float64 {
	return floats.Sum(s.Values)
}

// Peak returns the largest emission and the year it occurs.
func (s Series) Peak() (year int, value float64, err error) {
	if len(s.Values) == 0 {
		return 0, 0, fmt.Errorf("emission: empty series")
	}
	i := floats.MaxIdx(s.Values)
	return s.Years[i], s.Values[i], nil
}
