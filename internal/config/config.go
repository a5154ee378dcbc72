// Package config loads run configuration from YAML files, named presets
// and the process environment.
package config

import (
	"fmt"
	"os"

	"github.com/san-kum/climemu/internal/emission"
	"github.com/san-kum/climemu/internal/params"
	"github.com/san-kum/climemu/internal/sim"
	"github.com/san-kum/climemu/internal/temperature"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = sim.DefaultDt
	DefaultStartYear = sim.DefaultStartYear
)

// Config describes one run or batch.
type Config struct {
	Model         string    `yaml:"model"`
	Models        []string  `yaml:"models,omitempty"`
	Ensemble      string    `yaml:"ensemble,omitempty"`
	Dt            float64   `yaml:"dt"`
	StartYear     int       `yaml:"start_year"`
	ForcingFactor float64   `yaml:"forcing_factor"`
	Exogenous     []float64 `yaml:"exogenous_forcing,omitempty"`
	Params        string    `yaml:"params,omitempty"`

	// Emissions are explicit per-step values in GtC/yr. When empty the
	// series comes from Scenario, then from the named preset Pathway.
	Emissions []float64          `yaml:"emissions,omitempty"`
	Scenario  *emission.Scenario `yaml:"scenario,omitempty"`
	Pathway   string             `yaml:"pathway,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:         params.DICE2016,
		Dt:            DefaultDt,
		StartYear:     DefaultStartYear,
		ForcingFactor: temperature.DefaultForcingFactor,
		Pathway:       "baseline",
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base, so keys absent from the file keep
// the base values. base is not modified.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EmissionSeries resolves the emissions input. Explicit values win over a
// scenario, which wins over a named pathway. Explicit values are labelled
// from StartYear.
func (c *Config) EmissionSeries() (emission.Series, error) {
	switch {
	case len(c.Emissions) > 0:
		return emission.FromValues(c.StartYear, c.Emissions), nil
	case c.Scenario != nil:
		return c.Scenario.Series()
	case c.Pathway != "":
		s, ok := emission.Preset(c.Pathway)
		if !ok {
			return emission.Series{}, fmt.Errorf("config: unknown pathway %q", c.Pathway)
		}
		return s.Series()
	default:
		return emission.DefaultScenario().Series()
	}
}

// ModelNames returns the models a batch should run: the named ensemble,
// else Models, else the single Model.
func (c *Config) ModelNames() ([]string, error) {
	if c.Ensemble != "" {
		return params.Ensemble(c.Ensemble)
	}
	if len(c.Models) > 0 {
		return append([]string(nil), c.Models...), nil
	}
	return []string{c.Model}, nil
}

// Provider returns the built-in table, overlaid with the Params file when
// one is set.
func (c *Config) Provider() (params.Provider, error) {
	t := params.Builtin()
	if c.Params == "" {
		return t, nil
	}
	user, err := params.LoadTable(c.Params)
	if err != nil {
		return nil, err
	}
	return t.Merge(user), nil
}

// RunnerOptions translates the config into runner options. The start year
// follows the emission series when it carries one.
func (c *Config) RunnerOptions(series emission.Series) []sim.Option {
	start := c.StartYear
	if len(series.Years) > 0 {
		start = series.Years[0]
	}
	opts := []sim.Option{
		sim.WithModel(c.Model),
		sim.WithDt(c.Dt),
		sim.WithStartYear(start),
		sim.WithForcingFactor(c.ForcingFactor),
	}
	if len(c.Exogenous) > 0 {
		opts = append(opts, sim.WithExogenousForcing(c.Exogenous))
	}
	return opts
}
