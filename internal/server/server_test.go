package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/san-kum/climemu/internal/observability"
	"github.com/san-kum/climemu/internal/params"
	"github.com/san-kum/climemu/internal/storage"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, http.Handler) {
	t.Helper()
	s := New(params.Builtin(), opts...)
	return s, s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestModels(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/v1/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body["models"]) != 1 || body["models"][0] != params.DICE2016 {
		t.Errorf("models = %v", body["models"])
	}
}

func TestEnsembleListing(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/v1/ensembles/CMIP6", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Name    string   `json:"name"`
		Models  []string `json:"models"`
		Missing []string `json:"missing"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Models) != 21 || len(body.Missing) != 21 {
		t.Errorf("models=%d missing=%d, want 21 and 21", len(body.Models), len(body.Missing))
	}

	rec = do(t, h, http.MethodGet, "/v1/ensembles/CMIP7", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown ensemble status = %d, want 404", rec.Code)
	}
}

func TestRun(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/v1/run", `{"emissions":[10,10,10,10,10],"start_year":2030}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var resp RunResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	res := resp.Result
	if res.Model != params.DICE2016 {
		t.Errorf("model = %q", res.Model)
	}
	if len(res.Tatm) != 6 || len(res.Forcing) != 5 {
		t.Errorf("len tatm=%d forcing=%d, want 6 and 5", len(res.Tatm), len(res.Forcing))
	}
	if res.Years[0] != 2030 {
		t.Errorf("first year = %v, want 2030", res.Years[0])
	}
	if res.Metrics["cumulative_emissions"] != 50 {
		t.Errorf("cumulative = %v, want 50", res.Metrics["cumulative_emissions"])
	}
	if resp.ID != "" {
		t.Errorf("unexpected id %q without a store", resp.ID)
	}
}

func TestRunPathwayDefault(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/v1/run", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp RunResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Result.Steps() == 0 {
		t.Error("baseline pathway produced no steps")
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"emissions":`, http.StatusBadRequest},
		{"unknown field", `{"emission":[1]}`, http.StatusBadRequest},
		{"unknown model", `{"model":"Nope","emissions":[1]}`, http.StatusNotFound},
		{"unknown pathway", `{"pathway":"nope"}`, http.StatusBadRequest},
		{"bad dt", `{"dt":-1,"emissions":[1]}`, http.StatusBadRequest},
		{"drained atmosphere", `{"emissions":[-1000000,1]}`, http.StatusUnprocessableEntity},
	}
	_, h := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/run", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestRunTooLong(t *testing.T) {
	_, h := newTestServer(t)
	var b bytes.Buffer
	b.WriteString(`{"emissions":[`)
	for i := 0; i <= MaxSteps; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("1")
	}
	b.WriteString(`]}`)
	rec := do(t, h, http.MethodPost, "/v1/run", b.String())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRunScenarioTooLong(t *testing.T) {
	_, h := newTestServer(t)
	for _, end := range []string{"20000000", "4611686018427387904"} {
		t.Run(end, func(t *testing.T) {
			body := `{"scenario":{"start_year":2020,"start_emission":10,"peak_factor":1.2,` +
				`"peak_year":2030,"halve_year":2050,"end_year":` + end + `,"end_factor":0.1}}`
			rec := do(t, h, http.MethodPost, "/v1/run", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(resp["error"], "exceeds limit") {
				t.Errorf("error = %q", resp["error"])
			}
		})
	}
}

func TestRunSave(t *testing.T) {
	st := storage.New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	_, h := newTestServer(t, WithStore(st))

	rec := do(t, h, http.MethodPost, "/v1/run", `{"emissions":[5,5,5],"save":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp RunResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID == "" {
		t.Fatal("expected a run id")
	}
	loaded, err := st.LoadResult(resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Tatm) != 4 {
		t.Errorf("stored tatm len = %d, want 4", len(loaded.Tatm))
	}
}

func TestRunEnsemble(t *testing.T) {
	_, h := newTestServer(t, WithWorkers(2))
	rec := do(t, h, http.MethodPost, "/v1/ensemble",
		`{"models":["DICE2016","DICE2016"],"emissions":[10,10,10]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp EnsembleResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	for i, v := range resp.Results[0].Tatm {
		if resp.Results[1].Tatm[i] != v {
			t.Fatalf("members differ at %d", i)
		}
	}
	if resp.Range["min"] > 0 || resp.Range["max"] < resp.Results[0].Tatm[3] {
		t.Errorf("range = %v", resp.Range)
	}

	rec = do(t, h, http.MethodPost, "/v1/ensemble", `{"ensemble":"CMIP6","emissions":[10]}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("uncalibrated ensemble status = %d, want 404", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/v1/run", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewRunCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	_, h := newTestServer(t, WithCollector(collector))

	do(t, h, http.MethodPost, "/v1/run", `{"emissions":[1,2,3]}`)
	do(t, h, http.MethodPost, "/v1/run", `{"model":"Nope","emissions":[1]}`)

	if got := testutil.ToFloat64(collector.Runs.WithLabelValues(params.DICE2016, observability.OutcomeOK)); got != 1 {
		t.Errorf("ok runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.SimulatedSteps.WithLabelValues(params.DICE2016)); got != 3 {
		t.Errorf("steps = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("/v1/run", "404")); got != 1 {
		t.Errorf("404 requests = %v, want 1", got)
	}

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "climemu_runs_total") {
		t.Error("metrics output lacks climemu_runs_total")
	}
}
