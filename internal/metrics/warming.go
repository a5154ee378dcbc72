package metrics

import (
	"math"

	"github.com/san-kum/climemu/internal/sim"
)

// PeakWarming is the largest atmospheric anomaly reached by any step.
type PeakWarming struct {
	name    string
	peak    float64
	samples int
}

func NewPeakWarming() *PeakWarming {
	return &PeakWarming{name: "peak_warming"}
}

func (p *PeakWarming) Name() string { return p.name }

func (p *PeakWarming) Observe(s sim.Step) {
	if p.samples == 0 {
		p.peak = s.Tatm
	} else {
		p.peak = math.Max(p.peak, s.Tatm)
	}
	p.samples++
}

func (p *PeakWarming) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return p.peak
}

func (p *PeakWarming) Reset() {
	p.peak = 0
	p.samples = 0
}

// FinalWarming is the atmospheric anomaly after the last step.
type FinalWarming struct {
	name string
	last float64
}

func NewFinalWarming() *FinalWarming {
	return &FinalWarming{name: "final_warming"}
}

func (f *FinalWarming) Name() string       { return f.name }
func (f *FinalWarming) Observe(s sim.Step) { f.last = s.Tatm }
func (f *FinalWarming) Value() float64     { return f.last }
func (f *FinalWarming) Reset()             { f.last = 0 }

// PeakForcing is the largest radiative forcing applied in the run.
type PeakForcing struct {
	name    string
	peak    float64
	samples int
}

func NewPeakForcing() *PeakForcing {
	return &PeakForcing{name: "peak_forcing"}
}

func (p *PeakForcing) Name() string { return p.name }

func (p *PeakForcing) Observe(s sim.Step) {
	if p.samples == 0 || s.Forcing > p.peak {
		p.peak = s.Forcing
	}
	p.samples++
}

func (p *PeakForcing) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return p.peak
}

func (p *PeakForcing) Reset() {
	p.peak = 0
	p.samples = 0
}
