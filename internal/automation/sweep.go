package automation

import (
	"context"
	"fmt"
	"runtime"

	"github.com/san-kum/climemu/internal/metrics"
	"github.com/san-kum/climemu/internal/sim"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// ParameterSweep runs one setting across a range of values of a single
// parameter.
type ParameterSweep struct {
	Base    Setting
	Param   string
	Values  []float64
	Workers int
}

// SweepResult pairs a parameter value with its run.
type SweepResult struct {
	Value  float64
	Result *sim.Result
}

// Span returns n evenly spaced values from lo to hi inclusive.
func Span(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// RunSweep runs every value in parallel and returns the results in value
// order. Every run carries the default metrics.
func RunSweep(ctx context.Context, sweep *ParameterSweep, extra ...sim.Option) ([]SweepResult, error) {
	if len(sweep.Values) == 0 {
		return nil, fmt.Errorf("sweep %s: no values", sweep.Param)
	}
	workers := sweep.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]SweepResult, len(sweep.Values))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, v := range sweep.Values {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := Apply(sweep.Base, sweep.Param, v)
			if err != nil {
				return err
			}
			opts := append([]sim.Option{sim.WithMetrics(metrics.Defaults()...)}, extra...)
			res, err := runConfig(s.Config, s.Provider, opts...)
			if err != nil {
				return fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
			}
			results[i] = SweepResult{Value: v, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
