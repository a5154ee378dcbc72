package config

import (
	"sort"

	"github.com/san-kum/climemu/internal/params"
	"github.com/san-kum/climemu/internal/temperature"
)

var Presets = map[string]*Config{
	"dice-baseline": {
		Model: params.DICE2016, Dt: 1, StartYear: 2020,
		ForcingFactor: temperature.DefaultForcingFactor, Pathway: "baseline",
	},
	"dice-paris": {
		Model: params.DICE2016, Dt: 1, StartYear: 2020,
		ForcingFactor: temperature.DefaultForcingFactor, Pathway: "paris",
	},
	"dice-net-zero": {
		Model: params.DICE2016, Dt: 1, StartYear: 2020,
		ForcingFactor: temperature.DefaultForcingFactor, Pathway: "net-zero",
	},
	"dice-delayed": {
		Model: params.DICE2016, Dt: 1, StartYear: 2020,
		ForcingFactor: temperature.DefaultForcingFactor, Pathway: "delayed",
	},
	"co2-only": {
		Model: params.DICE2016, Dt: 1, StartYear: 2020,
		ForcingFactor: 1, Pathway: "baseline",
	},
	"cmip5": {
		Model: params.DICE2016, Ensemble: "CMIP5", Dt: 1, StartYear: 2020,
		ForcingFactor: temperature.DefaultForcingFactor, Pathway: "baseline",
	},
	"cmip6": {
		Model: params.DICE2016, Ensemble: "CMIP6", Dt: 1, StartYear: 2020,
		ForcingFactor: temperature.DefaultForcingFactor, Pathway: "baseline",
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
