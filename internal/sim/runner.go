// Package sim couples the carbon cycle and temperature engines and steps
// them in lock-step over an emissions series.
package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/climemu/internal/carbon"
	"github.com/san-kum/climemu/internal/climate"
	"github.com/san-kum/climemu/internal/logging"
	"github.com/san-kum/climemu/internal/params"
	"github.com/san-kum/climemu/internal/temperature"
)

const (
	DefaultStartYear = 2020
	DefaultDt        = 1.0
)

// Runner owns one carbon cycle and one temperature engine and drives them
// across the full emissions series. A Runner is not safe for concurrent
// use; parallel callers construct one per goroutine.
type Runner struct {
	provider      params.Provider
	model         string
	emissions     []float64
	exogenous     []float64
	dt            float64
	startYear     int
	forcingFactor float64

	cal    params.Calibration
	carbon *carbon.Cycle
	temp   *temperature.DICE

	metrics   []Metric
	observers []Observer
	recorder  Recorder
	log       logging.Logger

	tatmMax, tatmMin float64
	runs             int
}

type Option func(*Runner)

// WithModel selects the initial calibration. Defaults to params.DICE2016.
func WithModel(name string) Option {
	return func(r *Runner) { r.model = name }
}

func WithDt(dt float64) Option {
	return func(r *Runner) { r.dt = dt }
}

func WithStartYear(year int) Option {
	return func(r *Runner) { r.startYear = year }
}

// WithForcingFactor overrides the CO2 forcing scale (default 1.1).
func WithForcingFactor(f float64) Option {
	return func(r *Runner) { r.forcingFactor = f }
}

// WithExogenousForcing adds series[i] to the forcing of step i. Steps
// beyond the series use the forcing factor alone.
func WithExogenousForcing(series []float64) Option {
	return func(r *Runner) {
		r.exogenous = append([]float64(nil), series...)
	}
}

func WithMetrics(metrics ...Metric) Option {
	return func(r *Runner) { r.metrics = append(r.metrics, metrics...) }
}

func WithObservers(observers ...Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, observers...) }
}

func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func WithLogger(l logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRunner resolves the selected model and builds both engines. The
// emissions series is copied; values are GtC per year.
func NewRunner(provider params.Provider, emissions []float64, opts ...Option) (*Runner, error) {
	r := &Runner{
		provider:      provider,
		model:         params.DICE2016,
		emissions:     append([]float64(nil), emissions...),
		dt:            DefaultDt,
		startYear:     DefaultStartYear,
		forcingFactor: temperature.DefaultForcingFactor,
		log:           logging.Noop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if provider == nil {
		return nil, &climate.ConfigError{Key: "parameter provider", Err: climate.ErrMissingParameter}
	}
	if !(r.dt > 0) || math.IsInf(r.dt, 0) {
		return nil, &climate.ConfigError{Key: "dt", Err: climate.ErrInvalidParameter}
	}
	if !(r.forcingFactor > 0) || math.IsInf(r.forcingFactor, 0) {
		return nil, &climate.ConfigError{Key: "forcing_factor", Err: climate.ErrInvalidParameter}
	}
	if err := r.Reset(); err != nil {
		return nil, err
	}
	return r, nil
}

// Model returns the active model name.
func (r *Runner) Model() string { return r.model }

// Calibration returns the parameters of the active model.
func (r *Runner) Calibration() params.Calibration { return r.cal }

func (r *Runner) Dt() float64    { return r.dt }
func (r *Runner) StartYear() int { return r.startYear }

// EndYear is StartYear plus the simulated span.
func (r *Runner) EndYear() float64 {
	return float64(r.startYear) + float64(len(r.emissions))*r.dt
}

// Steps is the number of steps a run performs: one per emission value.
func (r *Runner) Steps() int {
	return len(r.emissions)
}

// Emissions returns a copy of the input series.
func (r *Runner) Emissions() []float64 {
	return append([]float64(nil), r.emissions...)
}

// SetEmissions replaces the input series for subsequent runs.
func (r *Runner) SetEmissions(emissions []float64) {
	r.emissions = append([]float64(nil), emissions...)
}

// Carbon exposes the carbon engine for read access to its histories.
func (r *Runner) Carbon() *carbon.Cycle { return r.carbon }

// Temperature exposes the temperature engine for read access.
func (r *Runner) Temperature() *temperature.DICE { return r.temp }

// TatmRange is the running max/min of atmospheric temperature over every
// run this runner has performed, anchored at zero. It is meant for axis
// ranges and plays no part in the computation.
func (r *Runner) TatmRange() (lo, hi float64) {
	return r.tatmMin, r.tatmMax
}

// Runs counts completed runs.
func (r *Runner) Runs() int { return r.runs }

// Reset re-derives the parameters of the active model and returns both
// engines to their initial conditions.
func (r *Runner) Reset() error {
	cal, err := r.provider.Lookup(r.model)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	r.cal = cal

	r.carbon = carbon.New(cal.Carbon, cal.Mass0, r.dt)
	r.temp = temperature.New(cal.Temp, cal.Temp0, temperature.ForcingParams{
		F2xCO2:        cal.F2xCO2,
		MeqAt:         cal.Carbon.MeqAt,
		ForcingFactor: r.forcingFactor,
	}, r.dt)
	r.carbon.Reset()
	r.temp.Reset()

	for _, m := range r.metrics {
		m.Reset()
	}
	return nil
}

// Run resets and integrates the full emissions series. It returns copies
// of the atmosphere and ocean temperature histories, each Steps()+1 long
// including the initial condition.
func (r *Runner) Run() (tatm, tocean []float64, err error) {
	start := time.Now()
	ctx := context.Background()
	log := r.log.With(logging.String("model", r.model))
	done := 0

	defer func() {
		if r.recorder != nil {
			r.recorder.RecordRun(r.model, done, time.Since(start), err)
		}
	}()

	if err := validateEmissions(r.emissions); err != nil {
		return nil, nil, err
	}
	if err := r.Reset(); err != nil {
		return nil, nil, err
	}

	n := r.Steps()
	log.Debug(ctx, "run started", logging.Int("steps", n), logging.Float64("dt", r.dt))

	for i := 0; i < n; i++ {
		emission := r.emissions[i] * r.dt
		mAt, mUp, mLo := r.carbon.Last()

		if _, err := r.temp.UpdateForcing(mAt, r.exogenousAt(i)); err != nil {
			log.Warn(ctx, "run failed", logging.Int("step", i), logging.Err(err))
			return nil, nil, fmt.Errorf("model %s: %w", r.model, err)
		}

		// Both temperature updates read the same pre-step snapshot.
		ta, to, forcing, _ := r.temp.Last()
		newTa := r.temp.UpdateSurfaceTemp(ta, to, forcing)
		newTo := r.temp.UpdateOceanTemp(to, ta)

		at, up, lo := r.carbon.Step(emission, mAt, mUp, mLo)

		if len(r.metrics) > 0 || len(r.observers) > 0 {
			s := Step{
				Index:    i,
				Year:     float64(r.startYear) + float64(i+1)*r.dt,
				Dt:       r.dt,
				Emission: emission,
				Forcing:  forcing,
				Tatm:     newTa,
				Tocean:   newTo,
				PreMAt:   mAt,
				MAt:      at,
				MUp:      up,
				MLo:      lo,
			}
			for _, m := range r.metrics {
				m.Observe(s)
			}
			for _, o := range r.observers {
				o.OnStep(s)
			}
		}
		done++
	}

	ta, to, _ := r.temp.Values()
	if hi := ta.Max(); hi > r.tatmMax {
		r.tatmMax = hi
	}
	if lo := ta.Min(); lo < r.tatmMin {
		r.tatmMin = lo
	}
	r.runs++

	log.Debug(ctx, "run finished", logging.Float64("tatm_final", ta[len(ta)-1]))
	return ta.Floats()[:n+1], to.Floats()[:n+1], nil
}

// SwitchModel makes name the active calibration and runs it. An unknown
// name leaves the previous selection in place.
func (r *Runner) SwitchModel(name string) (tatm, tocean []float64, err error) {
	if _, err := r.provider.Lookup(name); err != nil {
		return nil, nil, fmt.Errorf("switch model: %w", err)
	}
	r.model = name
	return r.Run()
}

// Result assembles the trajectory of the most recent run.
func (r *Runner) Result() *Result {
	at, up, lo := r.carbon.Values()
	ta, to, forcing := r.temp.Values()
	n := len(forcing)

	years := make([]float64, len(ta))
	for i := range years {
		years[i] = float64(r.startYear) + float64(i)*r.dt
	}

	res := &Result{
		Model:     r.model,
		StartYear: r.startYear,
		Dt:        r.dt,
		Years:     years,
		Emissions: append([]float64(nil), r.emissions[:min(n, len(r.emissions))]...),
		Forcing:   forcing.Floats(),
		Tatm:      ta.Floats(),
		Tocean:    to.Floats(),
		MAt:       at.Floats(),
		MUp:       up.Floats(),
		MLo:       lo.Floats(),
	}
	if len(r.metrics) > 0 {
		res.Metrics = make(map[string]float64, len(r.metrics))
		for _, m := range r.metrics {
			res.Metrics[m.Name()] = m.Value()
		}
	}
	return res
}

// RunMany runs each named model once, in order, from a fresh runner that
// shares this runner's settings. The active model of r is left unchanged;
// only its display range absorbs the new runs.
func (r *Runner) RunMany(names []string) (map[string]Temperatures, error) {
	out := make(map[string]Temperatures, len(names))
	for _, name := range names {
		w, err := r.clone(name)
		if err != nil {
			return nil, err
		}
		tatm, tocean, err := w.Run()
		if err != nil {
			return nil, err
		}
		out[name] = Temperatures{Tatm: tatm, Tocean: tocean}

		lo, hi := w.TatmRange()
		r.tatmMin = math.Min(r.tatmMin, lo)
		r.tatmMax = math.Max(r.tatmMax, hi)
	}
	return out, nil
}

// clone returns an independent runner for model with the same settings.
// Metrics and observers are not shared.
func (r *Runner) clone(model string) (*Runner, error) {
	return NewRunner(r.provider, r.emissions,
		WithModel(model),
		WithDt(r.dt),
		WithStartYear(r.startYear),
		WithForcingFactor(r.forcingFactor),
		WithExogenousForcing(r.exogenous),
		WithRecorder(r.recorder),
		WithLogger(r.log),
	)
}

// RunMany runs every named model against the same emissions and returns
// the temperature series keyed by model. Each model gets its own runner.
func RunMany(provider params.Provider, emissions []float64, names []string, opts ...Option) (map[string]Temperatures, error) {
	out := make(map[string]Temperatures, len(names))
	for _, name := range names {
		runOpts := append(append([]Option(nil), opts...), WithModel(name))
		r, err := NewRunner(provider, emissions, runOpts...)
		if err != nil {
			return nil, err
		}
		tatm, tocean, err := r.Run()
		if err != nil {
			return nil, err
		}
		out[name] = Temperatures{Tatm: tatm, Tocean: tocean}
	}
	return out, nil
}

func (r *Runner) exogenousAt(i int) *float64 {
	if i < len(r.exogenous) {
		v := r.exogenous[i]
		return &v
	}
	return nil
}

func validateEmissions(emissions []float64) error {
	if len(emissions) == 0 {
		return &climate.DomainError{Step: -1, Err: climate.ErrEmptyEmissions}
	}
	for i, v := range emissions {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &climate.DomainError{Step: i, Value: v, Err: climate.ErrInvalidEmission}
		}
	}
	return nil
}
