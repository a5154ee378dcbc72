// Package carbon integrates the three-reservoir carbon cycle: atmosphere,
// upper ocean and lower ocean exchange mass through a linear diffusion
// operator, and emissions enter the atmosphere box only.
package carbon

import (
	"fmt"

	"github.com/san-kum/climemu/internal/climate"
	"gonum.org/v1/gonum/mat"
)

// Params is a carbon-cycle calibration. Diffusion coefficients are per
// year; equilibrium masses are in GtC.
type Params struct {
	B12   float64 `yaml:"b12" json:"b12"`
	B23   float64 `yaml:"b23" json:"b23"`
	MeqAt float64 `yaml:"meq_at" json:"meq_at"`
	MeqUp float64 `yaml:"meq_up" json:"meq_up"`
	MeqLo float64 `yaml:"meq_lo" json:"meq_lo"`
}

func (p Params) Validate() error {
	for _, f := range []struct {
		key string
		v   float64
	}{
		{"meq_at", p.MeqAt},
		{"meq_up", p.MeqUp},
		{"meq_lo", p.MeqLo},
	} {
		if f.v <= 0 {
			return &climate.ConfigError{Key: f.key, Err: climate.ErrInvalidParameter}
		}
	}
	if p.B12 < 0 {
		return &climate.ConfigError{Key: "b12", Err: climate.ErrInvalidParameter}
	}
	if p.B23 < 0 {
		return &climate.ConfigError{Key: "b23", Err: climate.ErrInvalidParameter}
	}
	return nil
}

// InitialMass seeds the three reservoirs.
type InitialMass struct {
	At float64 `yaml:"m0_at" json:"m0_at"`
	Up float64 `yaml:"m0_up" json:"m0_up"`
	Lo float64 `yaml:"m0_lo" json:"m0_lo"`
}

// Cycle owns the mass history of the three reservoirs. Not safe for
// concurrent use.
type Cycle struct {
	params  Params
	initial InitialMass
	dt      float64

	at, up, lo climate.Series
}

// New returns a cycle seeded with m0. A zero dt means one year.
func New(p Params, m0 InitialMass, dt float64) *Cycle {
	if dt == 0 {
		dt = 1
	}
	c := &Cycle{params: p, initial: m0, dt: dt}
	c.Reset()
	return c
}

func (c *Cycle) Params() Params { return c.params }
func (c *Cycle) Dt() float64    { return c.dt }

// DiffusionMatrix builds the step-scaled transition matrix I + dt*B.
//
// Rows and columns are ordered atmosphere, upper ocean, lower ocean. The
// atmosphere/upper-ocean and upper/lower-ocean couplings are scaled by the
// equilibrium mass ratios and there is no direct atmosphere/lower-ocean
// link. Every column of B sums to zero.
func (c *Cycle) DiffusionMatrix() *mat.Dense {
	r1 := c.params.MeqAt / c.params.MeqUp
	r2 := c.params.MeqUp / c.params.MeqLo

	b12 := c.params.B12
	b23 := c.params.B23
	b11 := -b12
	b21 := b12 * r1
	b22 := -b21 - b23
	b32 := b23 * r2
	b33 := -b32

	b := mat.NewDense(3, 3, []float64{
		b11, b21, 0,
		b12, b22, b32,
		0, b23, b33,
	})

	bb := mat.NewDense(3, 3, nil)
	bb.Scale(c.dt, b)
	bb.Add(mat.NewDiagDense(3, []float64{1, 1, 1}), bb)
	return bb
}

// Step advances the reservoirs by one time step and records the result.
// emission is the total carbon added over the step, already multiplied
// by dt.
//
// The update is sequential: the upper ocean reads the freshly updated
// atmosphere and the lower ocean reads the freshly updated upper ocean.
// This ordering is part of the calibrated model and must not be turned
// into a simultaneous matrix-vector product.
func (c *Cycle) Step(emission, mAt, mUp, mLo float64) (at, up, lo float64) {
	bb := c.DiffusionMatrix()
	b11, b21 := bb.At(0, 0), bb.At(0, 1)
	b12, b22, b32 := bb.At(1, 0), bb.At(1, 1), bb.At(1, 2)
	b23, b33 := bb.At(2, 1), bb.At(2, 2)

	at = mAt*b11 + mUp*b21 + emission
	up = at*b12 + mUp*b22 + mLo*b32
	lo = mLo*b33 + up*b23

	c.at = append(c.at, at)
	c.up = append(c.up, up)
	c.lo = append(c.lo, lo)
	return at, up, lo
}

// Last returns the most recent mass of each reservoir.
func (c *Cycle) Last() (at, up, lo float64) {
	at, _ = c.at.Last()
	up, _ = c.up.Last()
	lo, _ = c.lo.Last()
	return at, up, lo
}

// Values returns copies of the full mass histories.
func (c *Cycle) Values() (at, up, lo climate.Series) {
	return c.at.Clone(), c.up.Clone(), c.lo.Clone()
}

// Steps reports how many steps have been recorded since the last reset.
func (c *Cycle) Steps() int {
	return len(c.at) - 1
}

// Reset restores the single-entry initial state.
func (c *Cycle) Reset() {
	c.at = climate.NewSeries(c.initial.At)
	c.up = climate.NewSeries(c.initial.Up)
	c.lo = climate.NewSeries(c.initial.Lo)
}

// ConservedMass returns the quantity the sequential update preserves
// exactly when no carbon is emitted:
//
//	M_at*(1 - dt*b12) + M_up*(1 - dt*b23) + M_lo
//
// At equilibrium masses this differs from the plain total by a constant.
func (c *Cycle) ConservedMass(at, up, lo float64) float64 {
	return at*(1-c.dt*c.params.B12) + up*(1-c.dt*c.params.B23) + lo
}

func (c *Cycle) String() string {
	at, up, lo := c.Last()
	return fmt.Sprintf("carbon{at=%.3f up=%.3f lo=%.3f steps=%d}", at, up, lo, c.Steps())
}
