// Package temperature integrates the two-box DICE temperature response:
// an atmosphere/upper-ocean layer driven by radiative forcing and a deep
// ocean layer that exchanges heat with it.
package temperature

import (
	"math"

	"github.com/san-kum/climemu/internal/climate"
)

// DefaultForcingFactor scales CO2 forcing to stand in for non-CO2 agents.
const DefaultForcingFactor = 1.1

// Params holds the response coefficients of one climate model.
type Params struct {
	C1     float64 `yaml:"c1" json:"c1"`
	C3     float64 `yaml:"c3" json:"c3"`
	C4     float64 `yaml:"c4" json:"c4"`
	Lambda float64 `yaml:"lambda" json:"lambda"`
	// ECS is carried for reporting; the recurrence uses Lambda.
	ECS float64 `yaml:"ecs,omitempty" json:"ecs,omitempty"`
}

// ForcingParams converts atmospheric carbon mass into forcing.
type ForcingParams struct {
	F2xCO2        float64 `yaml:"f2xco2" json:"f2xco2"`
	MeqAt         float64 `yaml:"meq_at" json:"meq_at"`
	ForcingFactor float64 `yaml:"forcing_factor" json:"forcing_factor"`
}

// Initial seeds both temperature anomalies (degC).
type Initial struct {
	Tatm   float64 `yaml:"tatm0" json:"tatm0"`
	Tocean float64 `yaml:"tocean0" json:"tocean0"`
}

// DICE owns the temperature and forcing histories. Not safe for
// concurrent use.
type DICE struct {
	params  Params
	fp      ForcingParams
	initial Initial
	dt      float64

	tatm   climate.Series
	tocean climate.Series
	forc   climate.Series
}

// New returns an engine seeded with init. A zero dt means one year and a
// zero forcing factor means [DefaultForcingFactor].
func New(p Params, init Initial, fp ForcingParams, dt float64) *DICE {
	if dt == 0 {
		dt = 1
	}
	if fp.ForcingFactor == 0 {
		fp.ForcingFactor = DefaultForcingFactor
	}
	d := &DICE{params: p, fp: fp, initial: init, dt: dt}
	d.Reset()
	return d
}

func (d *DICE) Params() Params               { return d.params }
func (d *DICE) ForcingParams() ForcingParams { return d.fp }
func (d *DICE) Dt() float64                  { return d.dt }

// Forcing returns the radiative forcing (W/m2) for atmospheric mass mAt
// without recording it. exogenous, when non-nil, is added on top of the
// scaled CO2 term.
func (d *DICE) Forcing(mAt float64, exogenous *float64) (float64, error) {
	if !(mAt > 0) || math.IsInf(mAt, 0) {
		return 0, &climate.DomainError{Step: d.Steps(), Value: mAt, Err: climate.ErrNonPositiveMass}
	}
	f := d.fp.F2xCO2 * math.Log(mAt/d.fp.MeqAt) / math.Ln2 * d.fp.ForcingFactor
	if exogenous != nil {
		f += *exogenous
	}
	return f, nil
}

// UpdateForcing computes the forcing for mAt and appends it. Nothing is
// recorded on error.
func (d *DICE) UpdateForcing(mAt float64, exogenous *float64) (float64, error) {
	f, err := d.Forcing(mAt, exogenous)
	if err != nil {
		return 0, err
	}
	d.forc = append(d.forc, f)
	return f, nil
}

// UpdateSurfaceTemp advances the atmospheric anomaly and appends it.
func (d *DICE) UpdateSurfaceTemp(tatm, tocean, forcing float64) float64 {
	p := d.params
	next := tatm + d.dt*p.C1*(forcing-p.Lambda*tatm-p.C3*(tatm-tocean))
	d.tatm = append(d.tatm, next)
	return next
}

// UpdateOceanTemp advances the deep-ocean anomaly and appends it. tatm
// must be the atmospheric anomaly from before this step's surface update.
// The argument order follows the published two-box formula. Ports that
// pass (tatm, tocean) here relax the atmosphere instead of the ocean.
func (d *DICE) UpdateOceanTemp(tocean, tatm float64) float64 {
	next := tocean + d.dt*d.params.C4*(tatm-tocean)
	d.tocean = append(d.tocean, next)
	return next
}

// Last returns the most recent anomalies and forcing. hasForcing is false
// until the first forcing update after a reset.
func (d *DICE) Last() (tatm, tocean, forcing float64, hasForcing bool) {
	tatm, _ = d.tatm.Last()
	tocean, _ = d.tocean.Last()
	forcing, hasForcing = d.forc.Last()
	return tatm, tocean, forcing, hasForcing
}

// Values returns copies of the full histories.
func (d *DICE) Values() (tatm, tocean, forcing climate.Series) {
	return d.tatm.Clone(), d.tocean.Clone(), d.forc.Clone()
}

// Steps reports the number of completed forcing updates.
func (d *DICE) Steps() int {
	return len(d.forc)
}

// Reset restores the seeded temperatures and empties the forcing history.
func (d *DICE) Reset() {
	d.tatm = climate.NewSeries(d.initial.Tatm)
	d.tocean = climate.NewSeries(d.initial.Tocean)
	d.forc = climate.Series{}
}
