// Package optim searches run settings, typically the emission scale, for
// the point where a run metric meets a target.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/climemu/internal/automation"
	"github.com/san-kum/climemu/internal/metrics"
	"github.com/san-kum/climemu/internal/sim"
)

// GridSearch evaluates every combination of the parameter grids and keeps
// the one whose metric lands closest to Target.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

// Fit is the best grid point found.
type Fit struct {
	Params map[string]float64
	Value  float64 // metric value at Params
	Error  float64 // |Value - target|
	Evals  int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search runs base with every grid point applied and returns the point
// minimizing |metric - target|. Points whose run fails are skipped; an
// error is returned only when none succeeds.
func (g *GridSearch) Search(ctx context.Context, base automation.Setting, metricName string, target float64) (Fit, error) {
	if len(g.paramNames) != len(g.ranges) {
		return Fit{}, fmt.Errorf("grid search: %d names for %d ranges", len(g.paramNames), len(g.ranges))
	}

	best := Fit{Error: math.Inf(1)}
	var lastErr error
	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(point map[string]float64) {
		value, err := evaluate(base, point, metricName)
		best.Evals++
		if err != nil {
			lastErr = err
			return
		}
		if e := math.Abs(value - target); e < best.Error {
			best = Fit{Params: point, Value: value, Error: e, Evals: best.Evals}
		}
	})
	if err != nil {
		return Fit{}, err
	}
	if best.Params == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("empty grid")
		}
		return Fit{}, fmt.Errorf("grid search: no successful run: %w", lastErr)
	}
	return best, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		visit(current)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}

// evaluate applies point in name order so emission_scale composes
// predictably with the others.
func evaluate(base automation.Setting, point map[string]float64, metricName string) (float64, error) {
	names := make([]string, 0, len(point))
	for name := range point {
		names = append(names, name)
	}
	sort.Strings(names)

	s := base
	for _, name := range names {
		var err error
		if s, err = automation.Apply(s, name, point[name]); err != nil {
			return 0, err
		}
	}

	series, err := s.Config.EmissionSeries()
	if err != nil {
		return 0, err
	}
	opts := append(s.Config.RunnerOptions(series), sim.WithMetrics(metrics.Defaults()...))
	r, err := sim.NewRunner(s.Provider, series.Values, opts...)
	if err != nil {
		return 0, err
	}
	if _, _, err := r.Run(); err != nil {
		return 0, err
	}
	value, ok := r.Result().Metrics[metricName]
	if !ok {
		return 0, fmt.Errorf("unknown metric %q", metricName)
	}
	return value, nil
}
