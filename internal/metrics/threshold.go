package metrics

import (
	"fmt"

	"github.com/san-kum/climemu/internal/sim"
)

// YearsAbove counts simulated years with the atmospheric anomaly above a
// threshold, e.g. the 1.5 and 2 degree Paris targets.
type YearsAbove struct {
	name      string
	threshold float64
	years     float64
}

func NewYearsAbove(threshold float64) *YearsAbove {
	return &YearsAbove{
		name:      fmt.Sprintf("years_above_%g", threshold),
		threshold: threshold,
	}
}

func (y *YearsAbove) Name() string { return y.name }

func (y *YearsAbove) Observe(s sim.Step) {
	if s.Tatm > y.threshold {
		y.years += s.Dt
	}
}

func (y *YearsAbove) Value() float64 { return y.years }
func (y *YearsAbove) Reset()         { y.years = 0 }

// Defaults returns a fresh set of the standard run metrics.
func Defaults() []sim.Metric {
	return []sim.Metric{
		NewPeakWarming(),
		NewFinalWarming(),
		NewCumulativeEmissions(),
		NewPeakForcing(),
		NewAirborneFraction(),
		NewYearsAbove(1.5),
		NewYearsAbove(2),
	}
}
