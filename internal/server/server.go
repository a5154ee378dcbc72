// Package server exposes the emulator as a small JSON-over-HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/san-kum/climemu/internal/climate"
	"github.com/san-kum/climemu/internal/config"
	"github.com/san-kum/climemu/internal/emission"
	"github.com/san-kum/climemu/internal/logging"
	"github.com/san-kum/climemu/internal/metrics"
	"github.com/san-kum/climemu/internal/observability"
	"github.com/san-kum/climemu/internal/params"
	"github.com/san-kum/climemu/internal/sim"
	"github.com/san-kum/climemu/internal/storage"
)

const (
	maxBodyBytes = 1 << 20
	// MaxSteps bounds the work a single request can ask for.
	MaxSteps = 10000
)

// Server handles API requests. Every request builds its own runners, so
// handlers share no engine state.
type Server struct {
	provider  params.Provider
	collector *observability.RunCollector
	store     *storage.Store
	log       logging.Logger
	workers   int
}

type Option func(*Server)

func WithCollector(c *observability.RunCollector) Option {
	return func(s *Server) { s.collector = c }
}

// WithStore persists runs whose request sets "save".
func WithStore(st *storage.Store) Option {
	return func(s *Server) { s.store = st }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func WithWorkers(n int) Option {
	return func(s *Server) { s.workers = n }
}

func New(provider params.Provider, opts ...Option) *Server {
	s := &Server{provider: provider, log: logging.Noop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /healthz", "/healthz", s.handleHealth)
	s.route(mux, "GET /v1/models", "/v1/models", s.handleModels)
	s.route(mux, "GET /v1/ensembles", "/v1/ensembles", s.handleEnsembles)
	s.route(mux, "GET /v1/ensembles/{name}", "/v1/ensembles/{name}", s.handleEnsemble)
	s.route(mux, "POST /v1/run", "/v1/run", s.handleRun)
	s.route(mux, "POST /v1/ensemble", "/v1/ensemble", s.handleRunEnsemble)
	if s.collector != nil {
		mux.Handle("GET /metrics", s.collector.Handler())
	}
	return mux
}

func (s *Server) route(mux *http.ServeMux, pattern, label string, h http.HandlerFunc) {
	var handler http.Handler = h
	if s.collector != nil {
		handler = s.collector.Middleware(label, handler)
	}
	mux.Handle(pattern, handler)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "api listening", logging.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info(ctx, "api shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// RunRequest is the body of POST /v1/run. Emissions win over Scenario,
// which wins over Pathway; with none set the baseline pathway is used.
type RunRequest struct {
	Model         string             `json:"model"`
	Emissions     []float64          `json:"emissions,omitempty"`
	Scenario      *emission.Scenario `json:"scenario,omitempty"`
	Pathway       string             `json:"pathway,omitempty"`
	Dt            float64            `json:"dt,omitempty"`
	StartYear     int                `json:"start_year,omitempty"`
	ForcingFactor float64            `json:"forcing_factor,omitempty"`
	Exogenous     []float64          `json:"exogenous_forcing,omitempty"`
	Save          bool               `json:"save,omitempty"`
}

// EnsembleRequest is the body of POST /v1/ensemble.
type EnsembleRequest struct {
	RunRequest
	Ensemble string   `json:"ensemble,omitempty"`
	Models   []string `json:"models,omitempty"`
}

type RunResponse struct {
	ID     string      `json:"id,omitempty"`
	Result *sim.Result `json:"result"`
}

type EnsembleResponse struct {
	Models  []string           `json:"models"`
	Results []*sim.Result      `json:"results"`
	Range   map[string]float64 `json:"tatm_range"`
}

func (r RunRequest) config() *config.Config {
	cfg := config.DefaultConfig()
	if r.Model != "" {
		cfg.Model = r.Model
	}
	if r.Dt != 0 {
		cfg.Dt = r.Dt
	}
	if r.StartYear != 0 {
		cfg.StartYear = r.StartYear
	}
	if r.ForcingFactor != 0 {
		cfg.ForcingFactor = r.ForcingFactor
	}
	if r.Pathway != "" {
		cfg.Pathway = r.Pathway
	}
	cfg.Emissions = r.Emissions
	cfg.Scenario = r.Scenario
	cfg.Exogenous = r.Exogenous
	return cfg
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"models": s.provider.Models()})
}

func (s *Server) handleEnsembles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"ensembles": params.Ensembles()})
}

func (s *Server) handleEnsemble(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	models, err := params.Ensemble(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    name,
		"models":  models,
		"missing": params.Missing(s.provider, models),
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decode(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg := req.config()
	series, err := s.series(cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	runner, err := sim.NewRunner(s.provider, series.Values, s.runnerOptions(cfg, series)...)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, _, err := runner.Run(); err != nil {
		writeError(w, err)
		return
	}
	res := runner.Result()

	resp := RunResponse{Result: res}
	if req.Save && s.store != nil {
		id, err := s.store.Save(res, storage.SaveOptions{ForcingFactor: cfg.ForcingFactor, Scenario: cfg.Pathway})
		if err != nil {
			s.log.Error(r.Context(), "save run", logging.Err(err))
			writeJSONError(w, http.StatusInternalServerError, "could not save run")
			return
		}
		resp.ID = id
	}
	s.log.Info(r.Context(), "run served", logging.String("model", res.Model), logging.Int("steps", res.Steps()))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRunEnsemble(w http.ResponseWriter, r *http.Request) {
	var req EnsembleRequest
	if err := decode(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg := req.config()
	cfg.Ensemble = req.Ensemble
	cfg.Models = req.Models
	names, err := cfg.ModelNames()
	if err != nil {
		writeError(w, err)
		return
	}
	series, err := s.series(cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	ens := sim.NewEnsemble(s.provider, series.Values, s.workers, s.runnerOptions(cfg, series)...).
		WithMetrics(metrics.Defaults)
	results, err := ens.Run(r.Context(), names)
	if err != nil {
		writeError(w, err)
		return
	}

	lo, hi := 0.0, 0.0
	for _, res := range results {
		for _, v := range res.Tatm {
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	writeJSON(w, http.StatusOK, EnsembleResponse{
		Models:  names,
		Results: results,
		Range:   map[string]float64{"min": lo, "max": hi},
	})
}

func (s *Server) series(cfg *config.Config) (emission.Series, error) {
	// Bound the scenario span before sampling it.
	if len(cfg.Emissions) == 0 && cfg.Scenario != nil {
		if n := cfg.Scenario.Years(); n > MaxSteps {
			return emission.Series{}, &climate.ConfigError{
				Key: "scenario",
				Err: fmt.Errorf("%w: %.0f steps exceeds limit %d", climate.ErrInvalidParameter, n, MaxSteps),
			}
		}
	}
	series, err := cfg.EmissionSeries()
	if err != nil {
		return emission.Series{}, &climate.ConfigError{Key: "emissions", Err: err}
	}
	if series.Len() > MaxSteps {
		return emission.Series{}, &climate.ConfigError{
			Key: "emissions",
			Err: fmt.Errorf("%w: %d steps exceeds limit %d", climate.ErrInvalidParameter, series.Len(), MaxSteps),
		}
	}
	return series, nil
}

func (s *Server) runnerOptions(cfg *config.Config, series emission.Series) []sim.Option {
	opts := cfg.RunnerOptions(series)
	opts = append(opts, sim.WithMetrics(metrics.Defaults()...), sim.WithLogger(s.log))
	if s.collector != nil {
		opts = append(opts, sim.WithRecorder(s.collector))
	}
	return opts
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// statusFor maps the error classes to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, climate.ErrUnknownModel):
		return http.StatusNotFound
	case climate.IsConfig(err):
		return http.StatusBadRequest
	case climate.IsDomain(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{
		"error": err.Error(),
		"class": observability.Outcome(err),
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
