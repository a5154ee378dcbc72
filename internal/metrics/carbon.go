package metrics

import "github.com/san-kum/climemu/internal/sim"

// CumulativeEmissions sums the carbon added over the run, in GtC.
type CumulativeEmissions struct {
	name string
	sum  float64
}

func NewCumulativeEmissions() *CumulativeEmissions {
	return &CumulativeEmissions{name: "cumulative_emissions"}
}

func (c *CumulativeEmissions) Name() string       { return c.name }
func (c *CumulativeEmissions) Observe(s sim.Step) { c.sum += s.Emission }
func (c *CumulativeEmissions) Value() float64     { return c.sum }
func (c *CumulativeEmissions) Reset()             { c.sum = 0 }

// AirborneFraction is the share of emitted carbon still in the atmosphere
// at the end of the run: (M_at final - M_at initial) / cumulative emissions.
// It is zero while nothing has been emitted.
type AirborneFraction struct {
	name      string
	initialAt float64
	lastAt    float64
	emitted   float64
	samples   int
}

func NewAirborneFraction() *AirborneFraction {
	return &AirborneFraction{name: "airborne_fraction"}
}

func (a *AirborneFraction) Name() string { return a.name }

func (a *AirborneFraction) Observe(s sim.Step) {
	if a.samples == 0 {
		a.initialAt = s.PreMAt
	}
	a.lastAt = s.MAt
	a.emitted += s.Emission
	a.samples++
}

func (a *AirborneFraction) Value() float64 {
	if a.samples == 0 || a.emitted == 0 {
		return 0
	}
	return (a.lastAt - a.initialAt) / a.emitted
}

func (a *AirborneFraction) Reset() {
	a.initialAt = 0
	a.lastAt = 0
	a.emitted = 0
	a.samples = 0
}
