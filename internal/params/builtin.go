package params

import (
	"fmt"

	"github.com/san-kum/climemu/internal/climate"
)

// DICE2016 is the DICE-2016R2 calibration (Nordhaus 2017): carbon cycle,
// initial reservoirs for 2015 and the two-box temperature response.
const DICE2016 = "DICE2016"

// Builtin returns a table holding the DICE-2016R2 calibration so the
// emulator can run without an external parameter file. The DICE carbon
// cycle is also registered as the default carbon set.
func Builtin() *Table {
	t := NewTable()
	cal := Calibration{
		Model:     DICE2016,
		CarbonSet: DICE2016,
	}
	cal.Carbon.B12, cal.Carbon.B23 = 0.12, 0.007
	cal.Carbon.MeqAt, cal.Carbon.MeqUp, cal.Carbon.MeqLo = 588, 360, 1720
	cal.Mass0.At, cal.Mass0.Up, cal.Mass0.Lo = 851, 460, 1740
	cal.Temp.C1, cal.Temp.C3, cal.Temp.C4 = 0.1005, 0.088, 0.025
	cal.Temp.ECS = 3.1
	cal.F2xCO2 = 3.6813
	cal.Temp.Lambda = cal.F2xCO2 / cal.Temp.ECS
	cal.Temp0.Tatm, cal.Temp0.Tocean = 0.85, 0.0068
	t.SetModel(cal)

	t.CarbonSets[DefaultCarbonSet] = t.CarbonSets[DICE2016]
	return t
}

// Named multi-model ensembles, in the order the reference dashboard
// plotted them.
var ensembles = map[string][]string{
	"CMIP5": {
		"HadGEM2-ES", "FGOALS-s2", "CSIRO-Mk3.6.0", "IPSL-CM5A-LR", "BNU-ESM",
		"CanESM2", "MPI-ESM-LR", "MMM_CMIP5", "CNRM-CM5", "CCSM4",
		"BCC-CSM1-1", "NorESM1-M", "MIROC5", "MRI-CGCM3", "GFDL-ESM2M",
		"GISS-E2-R", "INM-CM4",
	},
	"CMIP6": {
		"CNRM-CM6-1", "CNRM-ESM2-1", "ACCESS-ESM1-5", "CNRM-CM6-1-HR", "SAM0-UNICON",
		"CMCC-CM2-SR5", "BCC-ESM1", "MMM_CMIP6", "AWI-CM-1-1-MR", "MRI-ESM2-0",
		"NorCPM1", "GISS-E2-1-H", "MPI-ESM1-2-HR", "BCC-CSM2-MR", "MPI-ESM1-2-LR",
		"FGOALS-g3", "MIROC6", "MIROC-ES2L", "GISS-E2-1-G", "CAMS-CSM1-0",
		"GISS-E2-2-G",
	},
}

// Ensemble returns a copy of the model list of a named ensemble.
func Ensemble(name string) ([]string, error) {
	models, ok := ensembles[name]
	if !ok {
		return nil, fmt.Errorf("ensemble: %w", &climate.ConfigError{Model: name, Err: climate.ErrUnknownModel})
	}
	out := make([]string, len(models))
	copy(out, models)
	return out, nil
}

// Ensembles lists the known ensemble names.
func Ensembles() []string {
	return []string{"CMIP5", "CMIP6"}
}

// Missing returns the members of models that p cannot resolve.
func Missing(p Provider, models []string) []string {
	var missing []string
	for _, m := range models {
		if _, err := p.Lookup(m); err != nil {
			missing = append(missing, m)
		}
	}
	return missing
}
