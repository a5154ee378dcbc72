package sim

import (
	"context"
	"fmt"
	"runtime"

	"github.com/san-kum/climemu/internal/params"
	"golang.org/x/sync/errgroup"
)

// Ensemble runs several calibrations against one emissions series in
// parallel. Every model gets its own Runner, so no engine state is shared
// between goroutines.
type Ensemble struct {
	provider  params.Provider
	emissions []float64
	opts      []Option
	workers   int
	metrics   func() []Metric
}

// NewEnsemble prepares an ensemble. workers <= 0 means GOMAXPROCS.
func NewEnsemble(provider params.Provider, emissions []float64, workers int, opts ...Option) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{
		provider:  provider,
		emissions: append([]float64(nil), emissions...),
		opts:      append([]Option(nil), opts...),
		workers:   workers,
	}
}

// WithMetrics installs a factory called once per member. Metric values are
// stateful, so each runner needs its own set.
func (e *Ensemble) WithMetrics(factory func() []Metric) *Ensemble {
	e.metrics = factory
	return e
}

// Run executes one run per name and returns the results in input order.
// When several models fail, the error of the earliest name is returned.
// Cancelling ctx skips models that have not started yet.
func (e *Ensemble) Run(ctx context.Context, names []string) ([]*Result, error) {
	results := make([]*Result, len(names))
	errs := make([]error, len(names))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = e.runOne(name)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("ensemble member %s: %w", names[i], err)
		}
	}
	return results, nil
}

// Temperatures runs the ensemble and keys the anomaly pairs by model, the
// same shape RunMany returns.
func (e *Ensemble) Temperatures(ctx context.Context, names []string) (map[string]Temperatures, error) {
	results, err := e.Run(ctx, names)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Temperatures, len(results))
	for _, r := range results {
		out[r.Model] = r.Temperatures()
	}
	return out, nil
}

func (e *Ensemble) runOne(name string) (*Result, error) {
	opts := append(append([]Option(nil), e.opts...), WithModel(name))
	if e.metrics != nil {
		opts = append(opts, WithMetrics(e.metrics()...))
	}
	r, err := NewRunner(e.provider, e.emissions, opts...)
	if err != nil {
		return nil, err
	}
	if _, _, err := r.Run(); err != nil {
		return nil, err
	}
	return r.Result(), nil
}
