package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/climemu/internal/params"
	"github.com/spf13/cobra"
)

func subcommand(t *testing.T, name string, args ...string) *cobra.Command {
	t.Helper()
	root := newRootCmd()
	cmd, _, err := root.Find([]string{name})
	if err != nil {
		t.Fatalf("find %s: %v", name, err)
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestResolveConfigDefaults(t *testing.T) {
	cmd := subcommand(t, "run")
	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != params.DICE2016 || cfg.Pathway != "baseline" || cfg.Dt != 1 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestResolveConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("pathway: net-zero\ndt: 0.5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := subcommand(t, "run", "--preset", "co2-only", "--config", path, "--dt", "2")
	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	// preset supplies the forcing factor, the file the pathway, the flag dt
	if cfg.ForcingFactor != 1 {
		t.Errorf("forcing factor = %v, want 1 from preset", cfg.ForcingFactor)
	}
	if cfg.Pathway != "net-zero" {
		t.Errorf("pathway = %q, want net-zero from file", cfg.Pathway)
	}
	if cfg.Dt != 2 {
		t.Errorf("dt = %v, want 2 from flag", cfg.Dt)
	}
}

func TestResolveConfigEmissions(t *testing.T) {
	cmd := subcommand(t, "run", "--emissions", "10,11,12", "--start-year", "2030")
	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	series, err := cfg.EmissionSeries()
	if err != nil {
		t.Fatal(err)
	}
	if series.Len() != 3 || series.Years[0] != 2030 || series.Values[2] != 12 {
		t.Errorf("series = %+v", series)
	}
}

func TestResolveConfigBatchModels(t *testing.T) {
	cmd := subcommand(t, "batch", "--preset", "cmip6", "--models", "A,B")
	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	names, err := cfg.ModelNames()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "A" || names[1] != "B" {
		t.Errorf("names = %v, want [A B]", names)
	}
}

func TestResolveConfigUnknownPreset(t *testing.T) {
	cmd := subcommand(t, "run", "--preset", "nope")
	if _, err := resolveConfig(cmd); err == nil {
		t.Error("expected error for unknown preset")
	}
}
