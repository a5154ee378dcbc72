// Package observability exposes Prometheus metrics for emulator runs and
// the HTTP API.
package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/san-kum/climemu/internal/climate"
)

// Run outcomes used as the "outcome" label.
const (
	OutcomeOK          = "ok"
	OutcomeConfigError = "config_error"
	OutcomeDomainError = "domain_error"
	OutcomeError       = "error"
)

// RunCollector bundles the run and API metrics. It implements
// sim.Recorder and is safe for concurrent use.
type RunCollector struct {
	gatherer prometheus.Gatherer

	Runs           *prometheus.CounterVec
	RunDurations   *prometheus.HistogramVec
	SimulatedSteps *prometheus.CounterVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewRunCollector registers the metrics against reg, defaulting to the
// global Prometheus registry when nil. Registering twice against the same
// registry reuses the existing collectors.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "climemu_runs_total",
		Help: "Completed emulator runs, labeled by model and outcome.",
	}, []string{"model", "outcome"}), "climemu_runs_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "climemu_run_duration_seconds",
		Help:    "Wall time of one emulator run in seconds.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"model"}), "climemu_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	steps, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "climemu_simulated_steps_total",
		Help: "Time steps integrated, labeled by model.",
	}, []string{"model"}), "climemu_simulated_steps_total")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "climemu_http_requests_total",
		Help: "Handled API requests, labeled by route and status code.",
	}, []string{"route", "code"}), "climemu_http_requests_total")
	if err != nil {
		return nil, err
	}

	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "climemu_http_request_duration_seconds",
		Help:    "API request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"route"}), "climemu_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:       gatherer,
		Runs:           runs,
		RunDurations:   durations,
		SimulatedSteps: steps,
		HTTPRequests:   requests,
		HTTPDurations:  httpDurations,
	}, nil
}

// RecordRun implements sim.Recorder.
func (c *RunCollector) RecordRun(model string, steps int, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(model, Outcome(err)).Inc()
	c.RunDurations.WithLabelValues(model).Observe(elapsed.Seconds())
	if steps > 0 {
		c.SimulatedSteps.WithLabelValues(model).Add(float64(steps))
	}
}

// Middleware records request counts and latency under route.
func (c *RunCollector) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		if c == nil {
			return
		}
		c.HTTPRequests.WithLabelValues(route, strconv.Itoa(sw.code)).Inc()
		c.HTTPDurations.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RunCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Outcome classifies a run error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case climate.IsConfig(err):
		return OutcomeConfigError
	case climate.IsDomain(err):
		return OutcomeDomainError
	default:
		return OutcomeError
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
