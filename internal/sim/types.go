package sim

import "time"

// Step is the coupled state after one completed time step.
type Step struct {
	Index    int
	Year     float64
	Dt       float64
	Emission float64 // carbon added over the step, already scaled by dt
	Forcing  float64 // forcing that drove this step

	Tatm   float64
	Tocean float64

	PreMAt float64 // atmospheric mass before the step
	MAt    float64
	MUp    float64
	MLo    float64
}

// Metric summarises a run from its steps.
type Metric interface {
	Name() string
	Observe(s Step)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Step)
}

// Recorder is notified once per completed or failed run.
type Recorder interface {
	RecordRun(model string, steps int, elapsed time.Duration, err error)
}

// Temperatures is the pair of anomaly series a run returns, each N+1 long.
type Temperatures struct {
	Tatm   []float64 `json:"tatm"`
	Tocean []float64 `json:"tocean"`
}

// Result is the full trajectory of one run, ready for presentation.
// Per-step series (Emissions, Forcing) are N long; state series are N+1.
type Result struct {
	Model     string             `json:"model"`
	StartYear int                `json:"start_year"`
	Dt        float64            `json:"dt"`
	Years     []float64          `json:"years"`
	Emissions []float64          `json:"emissions"`
	Forcing   []float64          `json:"forcing"`
	Tatm      []float64          `json:"tatm"`
	Tocean    []float64          `json:"tocean"`
	MAt       []float64          `json:"m_at"`
	MUp       []float64          `json:"m_up"`
	MLo       []float64          `json:"m_lo"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Steps returns the number of completed steps.
func (r *Result) Steps() int {
	return len(r.Forcing)
}

// Temperatures returns the anomaly pair.
func (r *Result) Temperatures() Temperatures {
	return Temperatures{Tatm: r.Tatm, Tocean: r.Tocean}
}
