// Package params maps climate model names to emulator calibrations.
//
// A [Table] mirrors the two-sheet layout the calibrations are published
// in: carbon-cycle sets shared between models, and per-model temperature
// response rows that reference a carbon set by name. Tables load from YAML:
//
//	carbon:
//	  MMM: {b12: 0.12, b23: 0.007, meq_at: 588, meq_up: 360, meq_lo: 1720,
//	        m0_at: 851, m0_up: 460, m0_lo: 1740}
//	models:
//	  HadGEM2-ES: {carbon: MMM, c1: 0.1, c3: 0.09, c4: 0.03, lambda: 0.6,
//	               f2xco2: 3.45, tatm0: 0.9, tocean0: 0.1}
package params

import (
	"fmt"
	"os"
	"sort"

	"github.com/san-kum/climemu/internal/carbon"
	"github.com/san-kum/climemu/internal/climate"
	"github.com/san-kum/climemu/internal/temperature"
	"gopkg.in/yaml.v3"
)

// DefaultCarbonSet is used by model rows that do not name a carbon set.
const DefaultCarbonSet = "MMM"

// Calibration is everything the emulator needs to run one model.
type Calibration struct {
	Model     string              `json:"model"`
	CarbonSet string              `json:"carbon_set"`
	Carbon    carbon.Params       `json:"carbon"`
	Mass0     carbon.InitialMass  `json:"mass0"`
	Temp      temperature.Params  `json:"temperature"`
	Temp0     temperature.Initial `json:"temperature0"`
	F2xCO2    float64             `json:"f2xco2"`
}

// Provider resolves model names to calibrations.
type Provider interface {
	Lookup(model string) (Calibration, error)
	Models() []string
}

// CarbonRecord is one carbon-cycle row. Pointer fields distinguish a
// missing key from an explicit zero.
type CarbonRecord struct {
	B12   *float64 `yaml:"b12"`
	B23   *float64 `yaml:"b23"`
	MeqAt *float64 `yaml:"meq_at"`
	MeqUp *float64 `yaml:"meq_up"`
	MeqLo *float64 `yaml:"meq_lo"`
	M0At  *float64 `yaml:"m0_at"`
	M0Up  *float64 `yaml:"m0_up"`
	M0Lo  *float64 `yaml:"m0_lo"`
}

// ModelRecord is one temperature-response row.
type ModelRecord struct {
	Carbon  string   `yaml:"carbon,omitempty"`
	C1      *float64 `yaml:"c1"`
	C3      *float64 `yaml:"c3"`
	C4      *float64 `yaml:"c4"`
	Lambda  *float64 `yaml:"lambda"`
	ECS     *float64 `yaml:"ecs,omitempty"`
	F2xCO2  *float64 `yaml:"f2xco2"`
	Tatm0   *float64 `yaml:"tatm0"`
	Tocean0 *float64 `yaml:"tocean0"`
}

// Table is an in-memory parameter table. It implements [Provider].
type Table struct {
	CarbonSets map[string]CarbonRecord `yaml:"carbon"`
	Rows       map[string]ModelRecord  `yaml:"models"`
}

func NewTable() *Table {
	return &Table{
		CarbonSets: make(map[string]CarbonRecord),
		Rows:       make(map[string]ModelRecord),
	}
}

// ParseTable decodes a YAML table.
func ParseTable(data []byte) (*Table, error) {
	t := NewTable()
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parse parameter table: %w", err)
	}
	if t.CarbonSets == nil {
		t.CarbonSets = make(map[string]CarbonRecord)
	}
	if t.Rows == nil {
		t.Rows = make(map[string]ModelRecord)
	}
	return t, nil
}

// LoadTable reads a YAML table from path.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTable(data)
}

// Save writes the table as YAML.
func (t *Table) Save(path string) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Merge overlays other onto t and returns t. Rows in other win.
func (t *Table) Merge(other *Table) *Table {
	if other == nil {
		return t
	}
	for k, v := range other.CarbonSets {
		t.CarbonSets[k] = v
	}
	for k, v := range other.Rows {
		t.Rows[k] = v
	}
	return t
}

// Models returns the model names in sorted order.
func (t *Table) Models() []string {
	names := make([]string, 0, len(t.Rows))
	for name := range t.Rows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves model to a full calibration. Unknown models and absent
// keys are reported as [climate.ConfigError].
func (t *Table) Lookup(model string) (Calibration, error) {
	row, ok := t.Rows[model]
	if !ok {
		return Calibration{}, &climate.ConfigError{Model: model, Err: climate.ErrUnknownModel}
	}

	set := row.Carbon
	if set == "" {
		set = DefaultCarbonSet
	}
	cr, ok := t.CarbonSets[set]
	if !ok {
		return Calibration{}, &climate.ConfigError{Model: model, Key: "carbon set " + set, Err: climate.ErrMissingParameter}
	}

	r := resolver{model: model}
	cal := Calibration{
		Model:     model,
		CarbonSet: set,
		Carbon: carbon.Params{
			B12:   r.get("b12", cr.B12),
			B23:   r.get("b23", cr.B23),
			MeqAt: r.get("meq_at", cr.MeqAt),
			MeqUp: r.get("meq_up", cr.MeqUp),
			MeqLo: r.get("meq_lo", cr.MeqLo),
		},
		Mass0: carbon.InitialMass{
			At: r.get("m0_at", cr.M0At),
			Up: r.get("m0_up", cr.M0Up),
			Lo: r.get("m0_lo", cr.M0Lo),
		},
		Temp: temperature.Params{
			C1:     r.get("c1", row.C1),
			C3:     r.get("c3", row.C3),
			C4:     r.get("c4", row.C4),
			Lambda: r.get("lambda", row.Lambda),
		},
		Temp0: temperature.Initial{
			Tatm:   r.get("tatm0", row.Tatm0),
			Tocean: r.get("tocean0", row.Tocean0),
		},
		F2xCO2: r.get("f2xco2", row.F2xCO2),
	}
	if row.ECS != nil {
		cal.Temp.ECS = *row.ECS
	}
	if r.err != nil {
		return Calibration{}, r.err
	}

	if err := cal.Carbon.Validate(); err != nil {
		if ce, ok := err.(*climate.ConfigError); ok {
			ce.Model = model
		}
		return Calibration{}, err
	}
	return cal, nil
}

// resolver records the first missing key.
type resolver struct {
	model string
	err   error
}

func (r *resolver) get(key string, v *float64) float64 {
	if v == nil {
		if r.err == nil {
			r.err = &climate.ConfigError{Model: r.model, Key: key, Err: climate.ErrMissingParameter}
		}
		return 0
	}
	return *v
}

// SetModel adds or replaces a model row from a calibration. The carbon
// set is stored under cal.CarbonSet (or [DefaultCarbonSet]).
func (t *Table) SetModel(cal Calibration) {
	set := cal.CarbonSet
	if set == "" {
		set = DefaultCarbonSet
	}
	t.CarbonSets[set] = CarbonRecord{
		B12: ptr(cal.Carbon.B12), B23: ptr(cal.Carbon.B23),
		MeqAt: ptr(cal.Carbon.MeqAt), MeqUp: ptr(cal.Carbon.MeqUp), MeqLo: ptr(cal.Carbon.MeqLo),
		M0At: ptr(cal.Mass0.At), M0Up: ptr(cal.Mass0.Up), M0Lo: ptr(cal.Mass0.Lo),
	}
	row := ModelRecord{
		Carbon: set,
		C1:     ptr(cal.Temp.C1), C3: ptr(cal.Temp.C3), C4: ptr(cal.Temp.C4),
		Lambda: ptr(cal.Temp.Lambda),
		F2xCO2: ptr(cal.F2xCO2),
		Tatm0:  ptr(cal.Temp0.Tatm), Tocean0: ptr(cal.Temp0.Tocean),
	}
	if cal.Temp.ECS != 0 {
		row.ECS = ptr(cal.Temp.ECS)
	}
	t.Rows[cal.Model] = row
}

func ptr(v float64) *float64 { return &v }
