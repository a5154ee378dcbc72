// Package emission shapes yearly carbon emission trajectories for the
// emulator from a handful of anchor points.
package emission

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

const (
	DefaultStartYear     = 2020
	DefaultStartEmission = 10.0 // GtC/yr

	// MaxYears bounds the span a scenario may sample.
	MaxYears = 100000
)

// Scenario describes a peak-and-decline pathway. Factors are relative to
// StartEmission.
type Scenario struct {
	StartYear     int     `yaml:"start_year" json:"start_year"`
	StartEmission float64 `yaml:"start_emission" json:"start_emission"`
	PeakFactor    float64 `yaml:"peak_factor" json:"peak_factor"`
	PeakYear      int     `yaml:"peak_year" json:"peak_year"`
	HalveYear     int     `yaml:"halve_year" json:"halve_year"`
	EndYear       int     `yaml:"end_year" json:"end_year"`
	EndFactor     float64 `yaml:"end_factor" json:"end_factor"`
}

func DefaultScenario() Scenario {
	return Scenario{
		StartYear:     DefaultStartYear,
		StartEmission: DefaultStartEmission,
		PeakFactor:    1.4,
		PeakYear:      2035,
		HalveYear:     2065,
		EndYear:       2100,
		EndFactor:     0.1,
	}
}

func (s Scenario) Validate() error {
	if !(s.StartYear < s.PeakYear && s.PeakYear < s.HalveYear && s.HalveYear < s.EndYear) {
		return fmt.Errorf("emission: anchor years must increase: start %d, peak %d, halve %d, end %d",
			s.StartYear, s.PeakYear, s.HalveYear, s.EndYear)
	}
	if span := s.Years(); span > MaxYears {
		return fmt.Errorf("emission: scenario spans %.0f years, limit %d", span, MaxYears)
	}
	for name, v := range map[string]float64{
		"start_emission": s.StartEmission,
		"peak_factor":    s.PeakFactor,
		"end_factor":     s.EndFactor,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("emission: %s must be finite", name)
		}
	}
	return nil
}

// Years is the number of yearly samples Series would produce. It is
// computed in floating point so extreme anchor years cannot overflow.
func (s Scenario) Years() float64 {
	return float64(s.EndYear) - float64(s.StartYear) + 1
}

// Anchors returns the four interpolation knots. The peak is lifted to the
// largest anchor value so the curve never overshoots above it.
func (s Scenario) Anchors() (years, values []float64) {
	start := s.StartEmission
	peak := start * s.PeakFactor
	end := start * s.EndFactor

	years = []float64{float64(s.StartYear), float64(s.PeakYear), float64(s.HalveYear), float64(s.EndYear)}
	values = []float64{start, floats.Max([]float64{start, peak, end}), end, end}
	return years, values
}

// Series samples the scenario once per year from StartYear to EndYear
// inclusive using monotone piecewise cubic interpolation.
func (s Scenario) Series() (Series, error) {
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	xs, ys := s.Anchors()

	var fb interp.FritschButland
	if err := fb.Fit(xs, ys); err != nil {
		return Series{}, fmt.Errorf("emission: fit curve: %w", err)
	}

	n := s.EndYear - s.StartYear + 1
	out := Series{Years: make([]int, n), Values: make([]float64, n)}
	for i := 0; i < n; i++ {
		year := s.StartYear + i
		out.Years[i] = year
		out.Values[i] = fb.Predict(float64(year))
	}
	return out, nil
}

// Presets are named scenarios.
var Presets = map[string]Scenario{
	"baseline": DefaultScenario(),
	"paris": {
		StartYear: DefaultStartYear, StartEmission: DefaultStartEmission,
		PeakFactor: 1.1, PeakYear: 2025, HalveYear: 2050, EndYear: 2100, EndFactor: 0.05,
	},
	"net-zero": {
		StartYear: DefaultStartYear, StartEmission: DefaultStartEmission,
		PeakFactor: 1.0, PeakYear: 2023, HalveYear: 2045, EndYear: 2100, EndFactor: 0,
	},
	"delayed": {
		StartYear: DefaultStartYear, StartEmission: DefaultStartEmission,
		PeakFactor: 1.8, PeakYear: 2050, HalveYear: 2080, EndYear: 2100, EndFactor: 0.3,
	},
}

// Preset returns a named scenario.
func Preset(name string) (Scenario, bool) {
	s, ok := Presets[name]
	return s, ok
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
