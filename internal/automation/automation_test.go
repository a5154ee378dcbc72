package automation

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/climemu/internal/config"
	"github.com/san-kum/climemu/internal/params"
)

func baseSetting(emissions ...float64) Setting {
	cfg := config.DefaultConfig()
	cfg.Emissions = emissions
	return Setting{Config: cfg, Provider: params.Builtin()}
}

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndRunPlan(t *testing.T) {
	path := writePlan(t, `
name: compare
description: forcing factor comparison
runs:
  - name: co2
    preset: co2-only
    emissions: [10, 10]
  - name: paris
    pathway: paris
`)
	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if plan.Name != "compare" || len(plan.Runs) != 2 {
		t.Fatalf("plan = %+v", plan)
	}
	if plan.Runs[0].Config.ForcingFactor != 1 {
		t.Errorf("preset forcing factor lost: %v", plan.Runs[0].Config.ForcingFactor)
	}
	if plan.Runs[1].Config.Dt != 1 || plan.Runs[1].Config.ForcingFactor != 1.1 {
		t.Errorf("defaults lost: %+v", plan.Runs[1].Config)
	}

	results, err := RunPlan(context.Background(), plan, params.Builtin())
	if err != nil {
		t.Fatalf("RunPlan: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	if len(results[0].Tatm) != 3 {
		t.Errorf("first run tatm len = %d, want 3", len(results[0].Tatm))
	}
}

func TestLoadPlanErrors(t *testing.T) {
	if _, err := LoadPlan(writePlan(t, "name: empty\n")); err == nil {
		t.Error("expected error for plan without runs")
	}
	if _, err := LoadPlan(writePlan(t, "runs:\n  - name: x\n    preset: nope\n")); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestRunPlanStopsOnError(t *testing.T) {
	path := writePlan(t, `
runs:
  - name: ok
    emissions: [1]
  - name: bad
    model: Nope
    emissions: [1]
`)
	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatal(err)
	}
	results, err := RunPlan(context.Background(), plan, params.Builtin())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(results) != 1 {
		t.Errorf("completed results = %d, want 1", len(results))
	}
}

func TestApplyECS(t *testing.T) {
	base := baseSetting(10)
	s, err := Apply(base, ParamECS, 4.5)
	if err != nil {
		t.Fatal(err)
	}
	cal, err := s.Provider.Lookup(params.DICE2016)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(cal.Temp.Lambda-cal.F2xCO2/4.5) > 1e-12 || cal.Temp.ECS != 4.5 {
		t.Errorf("lambda = %v, ecs = %v", cal.Temp.Lambda, cal.Temp.ECS)
	}

	orig, _ := base.Provider.Lookup(params.DICE2016)
	if orig.Temp.ECS == 4.5 {
		t.Error("Apply modified the base provider")
	}

	if _, err := Apply(base, ParamECS, 0); err == nil {
		t.Error("expected error for zero ecs")
	}
	if _, err := Apply(base, "albedo", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestApplyEmissionScale(t *testing.T) {
	s, err := Apply(baseSetting(10, 20), ParamEmissionScale, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Config.Emissions; len(got) != 2 || got[0] != 5 || got[1] != 10 {
		t.Errorf("emissions = %v", got)
	}
}

func TestRunSweep(t *testing.T) {
	sweep := &ParameterSweep{
		Base:    baseSetting(10, 10, 10, 10, 10),
		Param:   ParamForcingFactor,
		Values:  Span(1.0, 1.2, 3),
		Workers: 2,
	}
	results, err := RunSweep(context.Background(), sweep)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Value <= results[i-1].Value {
			t.Errorf("values out of order: %v", results)
		}
		if results[i].Result.Metrics["peak_forcing"] <= results[i-1].Result.Metrics["peak_forcing"] {
			t.Errorf("peak forcing not increasing with forcing factor at %d", i)
		}
	}
}

func TestRunSweepError(t *testing.T) {
	sweep := &ParameterSweep{Base: baseSetting(10), Param: ParamDt, Values: []float64{1, -1}}
	if _, err := RunSweep(context.Background(), sweep); err == nil {
		t.Error("expected error for negative dt")
	}
	if _, err := RunSweep(context.Background(), &ParameterSweep{Base: baseSetting(10), Param: ParamDt}); err == nil {
		t.Error("expected error for empty sweep")
	}
}

func TestSpan(t *testing.T) {
	got := Span(2, 4, 5)
	want := []float64{2, 2.5, 3, 3.5, 4}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("Span = %v, want %v", got, want)
		}
	}
	if got := Span(3, 9, 1); len(got) != 1 || got[0] != 3 {
		t.Errorf("Span n=1 = %v", got)
	}
}

func TestRunMonteCarloDeterministic(t *testing.T) {
	cfg := &MonteCarloConfig{
		Base:      baseSetting(10, 10, 10, 10, 10, 10, 10, 10, 10, 10),
		ECSStdDev: 0.8,
		Min:       1.5,
		Max:       6,
		NumTrials: 20,
		Seed:      42,
	}
	a, err := RunMonteCarlo(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := RunMonteCarlo(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 20 {
		t.Fatalf("trials = %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("trial %d differs between equal seeds", i)
		}
		if a[i].ECS < 1.5 || a[i].ECS > 6 {
			t.Errorf("trial %d ecs %v outside bounds", i, a[i].ECS)
		}
	}

	s := Summarize(a, 0)
	if s.Trials != 20 || !(s.P5 <= s.P50 && s.P50 <= s.P95) {
		t.Errorf("summary = %+v", s)
	}
}

func TestRunMonteCarloBadMean(t *testing.T) {
	cfg := &MonteCarloConfig{Base: baseSetting(10), ECSMean: 20, ECSStdDev: 1, Min: 1, Max: 6, NumTrials: 1}
	if _, err := RunMonteCarlo(context.Background(), cfg); err == nil {
		t.Error("expected error for mean outside bounds")
	}
}

func TestSummarize(t *testing.T) {
	var trials []MonteCarloTrial
	for i, p := range []float64{5, 1, 4, 2, 3} {
		trials = append(trials, MonteCarloTrial{TrialID: i, PeakWarming: p})
	}
	s := Summarize(trials, 2.5)
	if s.Mean != 3 || s.P50 != 3 || s.P5 != 1 || s.P95 != 5 {
		t.Errorf("summary = %+v", s)
	}
	if s.AboveThreshold != 3 {
		t.Errorf("above = %d, want 3", s.AboveThreshold)
	}
	if got := Summarize(nil, 0); got.Trials != 0 {
		t.Errorf("empty summary = %+v", got)
	}
}
