package params

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/san-kum/climemu/internal/climate"
)

const sampleTable = `
carbon:
  MMM:
    b12: 0.05
    b23: 0.005
    meq_at: 588
    meq_up: 360
    meq_lo: 1720
    m0_at: 588
    m0_up: 360
    m0_lo: 1720
models:
  ModelA:
    c1: 0.1
    c3: 0.09
    c4: 0.025
    lambda: 1.2
    ecs: 3.0
    f2xco2: 3.45
    tatm0: 1.1
    tocean0: 0.1
  ModelB:
    carbon: Other
    c1: 0.1
    c3: 0.09
    c4: 0.025
    lambda: 1.2
    f2xco2: 3.45
    tatm0: 1.1
    tocean0: 0.1
  Partial:
    c1: 0.1
    c3: 0.09
    lambda: 1.2
    f2xco2: 3.45
    tatm0: 1.1
    tocean0: 0.1
`

func TestParseTableLookup(t *testing.T) {
	tbl, err := ParseTable([]byte(sampleTable))
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}

	cal, err := tbl.Lookup("ModelA")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	if cal.CarbonSet != DefaultCarbonSet {
		t.Errorf("carbon set = %q, want %q", cal.CarbonSet, DefaultCarbonSet)
	}
	if cal.Carbon.B12 != 0.05 || cal.Carbon.MeqLo != 1720 {
		t.Errorf("unexpected carbon params: %+v", cal.Carbon)
	}
	if cal.Mass0.At != 588 {
		t.Errorf("M0_at = %v, want 588", cal.Mass0.At)
	}
	if cal.Temp.C4 != 0.025 || cal.Temp.ECS != 3.0 {
		t.Errorf("unexpected temperature params: %+v", cal.Temp)
	}
	if cal.Temp0.Tatm != 1.1 || cal.F2xCO2 != 3.45 {
		t.Errorf("unexpected initial temps/forcing: %+v %v", cal.Temp0, cal.F2xCO2)
	}
}

func TestLookupErrors(t *testing.T) {
	tbl, err := ParseTable([]byte(sampleTable))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		model   string
		want    error
		wantKey string
	}{
		{"nonexistent-model", climate.ErrUnknownModel, ""},
		{"ModelB", climate.ErrMissingParameter, "carbon set Other"},
		{"Partial", climate.ErrMissingParameter, "c4"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			_, err := tbl.Lookup(tt.model)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var ce *climate.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %T", err)
			}
			if ce.Model != tt.model {
				t.Errorf("model = %q, want %q", ce.Model, tt.model)
			}
			if ce.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", ce.Key, tt.wantKey)
			}
		})
	}
}

func TestLookupRejectsInvalidCarbon(t *testing.T) {
	tbl := Builtin()
	rec := tbl.CarbonSets[DICE2016]
	rec.MeqUp = ptr(0)
	tbl.CarbonSets[DICE2016] = rec

	_, err := tbl.Lookup(DICE2016)
	if !errors.Is(err, climate.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestModelsSorted(t *testing.T) {
	tbl, _ := ParseTable([]byte(sampleTable))
	got := tbl.Models()
	want := []string{"ModelA", "ModelB", "Partial"}
	if len(got) != len(want) {
		t.Fatalf("Models() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Models()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuiltinDICE(t *testing.T) {
	cal, err := Builtin().Lookup(DICE2016)
	if err != nil {
		t.Fatalf("Lookup(DICE2016): %v", err)
	}
	if cal.Carbon.B12 != 0.12 || cal.Mass0.At != 851 {
		t.Errorf("unexpected DICE carbon calibration: %+v %+v", cal.Carbon, cal.Mass0)
	}
	if math.Abs(cal.Temp.Lambda*cal.Temp.ECS-cal.F2xCO2) > 1e-12 {
		t.Errorf("lambda*ECS = %v, want F2xCO2 %v", cal.Temp.Lambda*cal.Temp.ECS, cal.F2xCO2)
	}
}

func TestMergeOverlaysRows(t *testing.T) {
	file, _ := ParseTable([]byte(sampleTable))
	tbl := Builtin().Merge(file)

	if _, err := tbl.Lookup(DICE2016); err != nil {
		t.Errorf("builtin model lost after merge: %v", err)
	}
	cal, err := tbl.Lookup("ModelA")
	if err != nil {
		t.Fatal(err)
	}
	// The file's MMM set replaces the builtin default set.
	if cal.Carbon.B12 != 0.05 {
		t.Errorf("b12 = %v, want file value 0.05", cal.Carbon.B12)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := Builtin().Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	tbl, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	want, _ := Builtin().Lookup(DICE2016)
	got, err := tbl.Lookup(DICE2016)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("round trip changed calibration:\n got %+v\nwant %+v", got, want)
	}
}

func TestEnsembles(t *testing.T) {
	cmip5, err := Ensemble("CMIP5")
	if err != nil {
		t.Fatal(err)
	}
	if len(cmip5) != 17 {
		t.Errorf("CMIP5 has %d models, want 17", len(cmip5))
	}
	cmip6, err := Ensemble("CMIP6")
	if err != nil {
		t.Fatal(err)
	}
	if len(cmip6) != 21 {
		t.Errorf("CMIP6 has %d models, want 21", len(cmip6))
	}

	cmip5[0] = "mutated"
	again, _ := Ensemble("CMIP5")
	if again[0] != "HadGEM2-ES" {
		t.Error("Ensemble returned shared backing storage")
	}

	if _, err := Ensemble("CMIP7"); !climate.IsConfig(err) {
		t.Errorf("expected config error for unknown ensemble, got %v", err)
	}
}

func TestMissing(t *testing.T) {
	tbl, _ := ParseTable([]byte(sampleTable))
	got := Missing(tbl, []string{"ModelA", "ModelB", "Nope"})
	if len(got) != 2 || got[0] != "ModelB" || got[1] != "Nope" {
		t.Errorf("Missing() = %v, want [ModelB Nope]", got)
	}
}
