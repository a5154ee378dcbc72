// Package automation scripts many emulator runs: YAML run plans, one-way
// parameter sweeps and Monte Carlo sampling of climate sensitivity.
package automation

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/san-kum/climemu/internal/climate"
	"github.com/san-kum/climemu/internal/config"
	"github.com/san-kum/climemu/internal/params"
	"github.com/san-kum/climemu/internal/sim"
	"gopkg.in/yaml.v3"
)

// Plan is a scripted sequence of runs.
type Plan struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Runs        []PlanRun `yaml:"runs"`
}

// PlanRun is one entry of a plan: a run config, optionally starting from
// a named preset.
type PlanRun struct {
	Name   string
	Preset string
	Config *config.Config
}

func (r *PlanRun) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Name   string `yaml:"name"`
		Preset string `yaml:"preset"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	base := config.DefaultConfig()
	if head.Preset != "" {
		base = config.GetPreset(head.Preset)
		if base == nil {
			return fmt.Errorf("run %q: unknown preset %q", head.Name, head.Preset)
		}
	}
	if err := node.Decode(base); err != nil {
		return fmt.Errorf("run %q: %w", head.Name, err)
	}
	r.Name, r.Preset, r.Config = head.Name, head.Preset, base
	return nil
}

// LoadPlan loads a plan from a YAML file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	if len(plan.Runs) == 0 {
		return nil, fmt.Errorf("plan %s: no runs", path)
	}
	return &plan, nil
}

// RunPlan executes the runs of plan in order. extra options are appended
// to every run. On failure the results completed so far are returned with
// the error.
func RunPlan(ctx context.Context, plan *Plan, provider params.Provider, extra ...sim.Option) ([]*sim.Result, error) {
	results := make([]*sim.Result, 0, len(plan.Runs))

	for i, run := range plan.Runs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := runConfig(run.Config, provider, extra...)
		if err != nil {
			return results, fmt.Errorf("run %d (%s): %w", i+1, run.Name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func runConfig(cfg *config.Config, provider params.Provider, extra ...sim.Option) (*sim.Result, error) {
	series, err := cfg.EmissionSeries()
	if err != nil {
		return nil, err
	}
	opts := append(cfg.RunnerOptions(series), extra...)
	r, err := sim.NewRunner(provider, series.Values, opts...)
	if err != nil {
		return nil, err
	}
	if _, _, err := r.Run(); err != nil {
		return nil, err
	}
	return r.Result(), nil
}

// Sweepable run parameters.
const (
	ParamForcingFactor = "forcing_factor"
	ParamDt            = "dt"
	ParamECS           = "ecs"
	ParamEmissionScale = "emission_scale"
)

// Params lists the parameters Apply understands.
func Params() []string {
	return []string{ParamForcingFactor, ParamDt, ParamECS, ParamEmissionScale}
}

// Setting is a run ready to execute: a config and the provider that
// resolves its model.
type Setting struct {
	Config   *config.Config
	Provider params.Provider
}

// Apply returns a copy of s with name set to value. ECS is applied by
// overriding lambda = F2x/ECS on the selected model; emission_scale
// multiplies the resolved emissions series.
func Apply(s Setting, name string, value float64) (Setting, error) {
	cfg := *s.Config
	out := Setting{Config: &cfg, Provider: s.Provider}

	switch name {
	case ParamForcingFactor:
		cfg.ForcingFactor = value
	case ParamDt:
		cfg.Dt = value
	case ParamECS:
		if !(value > 0) || math.IsInf(value, 0) {
			return Setting{}, &climate.ConfigError{Key: ParamECS, Err: climate.ErrInvalidParameter}
		}
		cal, err := s.Provider.Lookup(cfg.Model)
		if err != nil {
			return Setting{}, err
		}
		cal.Temp.ECS = value
		cal.Temp.Lambda = cal.F2xCO2 / value
		out.Provider = Override(s.Provider, cal)
	case ParamEmissionScale:
		series, err := cfg.EmissionSeries()
		if err != nil {
			return Setting{}, err
		}
		scaled := make([]float64, series.Len())
		for i, v := range series.Values {
			scaled[i] = v * value
		}
		cfg.Emissions = scaled
		if len(series.Years) > 0 {
			cfg.StartYear = series.Years[0]
		}
	default:
		return Setting{}, &climate.ConfigError{Key: name, Err: fmt.Errorf("%w: unknown sweep parameter", climate.ErrInvalidParameter)}
	}
	return out, nil
}

// Override serves cal for its model and defers everything else to base.
func Override(base params.Provider, cal params.Calibration) params.Provider {
	return override{Provider: base, cal: cal}
}

type override struct {
	params.Provider
	cal params.Calibration
}

func (o override) Lookup(model string) (params.Calibration, error) {
	if model == o.cal.Model {
		return o.cal, nil
	}
	return o.Provider.Lookup(model)
}
