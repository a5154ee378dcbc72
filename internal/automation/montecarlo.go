package automation

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/san-kum/climemu/internal/metrics"
	"github.com/san-kum/climemu/internal/sim"
	"gonum.org/v1/gonum/stat"
)

// MonteCarloConfig samples the equilibrium climate sensitivity of the
// selected model from a normal distribution truncated to [Min, Max].
type MonteCarloConfig struct {
	Base      Setting
	ECSMean   float64 // defaults to the model's own ECS
	ECSStdDev float64
	Min, Max  float64
	NumTrials int
	Seed      int64
}

// MonteCarloTrial is one sampled run.
type MonteCarloTrial struct {
	TrialID      int
	ECS          float64
	PeakWarming  float64
	FinalWarming float64
}

// MonteCarloSummary describes the distribution of peak warming.
type MonteCarloSummary struct {
	Trials         int
	Mean, StdDev   float64
	P5, P50, P95   float64
	AboveThreshold int
}

// RunMonteCarlo executes the trials sequentially from a seeded source, so
// equal seeds give equal samples.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, extra ...sim.Option) ([]MonteCarloTrial, error) {
	if cfg.NumTrials <= 0 {
		return nil, fmt.Errorf("monte carlo: trials must be positive")
	}
	mean := cfg.ECSMean
	if mean == 0 {
		cal, err := cfg.Base.Provider.Lookup(cfg.Base.Config.Model)
		if err != nil {
			return nil, err
		}
		mean = cal.Temp.ECS
		if mean == 0 {
			mean = cal.F2xCO2 / cal.Temp.Lambda
		}
	}
	lo, hi := cfg.Min, cfg.Max
	if lo <= 0 {
		lo = 0.5
	}
	if hi <= lo {
		hi = 10
	}
	if mean < lo || mean > hi {
		return nil, fmt.Errorf("monte carlo: mean ecs %.3f outside [%g, %g]", mean, lo, hi)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	trials := make([]MonteCarloTrial, 0, cfg.NumTrials)
	for trial := 0; trial < cfg.NumTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return trials, err
		}

		ecs := mean + rng.NormFloat64()*cfg.ECSStdDev
		for ecs < lo || ecs > hi {
			// rejection sampling
			ecs = mean + rng.NormFloat64()*cfg.ECSStdDev
		}

		s, err := Apply(cfg.Base, ParamECS, ecs)
		if err != nil {
			return trials, err
		}
		opts := append([]sim.Option{sim.WithMetrics(metrics.NewPeakWarming(), metrics.NewFinalWarming())}, extra...)
		res, err := runConfig(s.Config, s.Provider, opts...)
		if err != nil {
			return trials, fmt.Errorf("trial %d (ecs %.3f): %w", trial, ecs, err)
		}

		trials = append(trials, MonteCarloTrial{
			TrialID:      trial,
			ECS:          ecs,
			PeakWarming:  res.Metrics["peak_warming"],
			FinalWarming: res.Metrics["final_warming"],
		})
	}
	return trials, nil
}

// Summarize computes the peak-warming distribution of trials.
func Summarize(trials []MonteCarloTrial, threshold float64) MonteCarloSummary {
	if len(trials) == 0 {
		return MonteCarloSummary{}
	}
	peaks := make([]float64, len(trials))
	s := MonteCarloSummary{Trials: len(trials)}
	for i, t := range trials {
		peaks[i] = t.PeakWarming
		if t.PeakWarming > threshold {
			s.AboveThreshold++
		}
	}
	sort.Float64s(peaks)

	s.Mean, s.StdDev = stat.MeanStdDev(peaks, nil)
	s.P5 = stat.Quantile(0.05, stat.Empirical, peaks, nil)
	s.P50 = stat.Quantile(0.5, stat.Empirical, peaks, nil)
	s.P95 = stat.Quantile(0.95, stat.Empirical, peaks, nil)
	return s
}
