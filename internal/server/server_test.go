package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/metaxime/pathview/pkg/backend"
	"github.com/metaxime/pathview/pkg/errors"
	"github.com/metaxime/pathview/pkg/pathway"
	"github.com/metaxime/pathview/pkg/pipeline"
)

type fakeBackend struct {
	mu      sync.Mutex
	jobs    []backend.JobSummary
	details map[string]*backend.Job
	results []backend.Result
	graph   pathway.Graph
	err     error
	fetches int
}

func (f *fakeBackend) ListJobs(context.Context) ([]backend.JobSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.jobs, nil
}

func (f *fakeBackend) GetJob(_ context.Context, id string) (*backend.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	j, ok := f.details[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "job %s", id)
	}
	return j, nil
}

func (f *fakeBackend) ListResults(context.Context, string) ([]backend.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeBackend) BaseURL() string { return "http://backend.test/" }

func (f *fakeBackend) GetResult(context.Context, string, string) (pathway.Graph, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()
	if f.err != nil {
		return pathway.Graph{}, f.err
	}
	return f.graph, nil
}

func score(v float64) *float64 { return &v }

func newFake(t *testing.T) *fakeBackend {
	t.Helper()
	g, err := pathway.ReadFile("../../pkg/pathway/testdata/rp_1_1.json")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	created := backend.Time{Time: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	code := backend.CodeNoResult
	return &fakeBackend{
		jobs: []backend.JobSummary{
			{ID: "0f2c6a1e-aaaa", Status: backend.StateCompleted, CreatedAt: created},
			{ID: "9b7d4c2f-bbbb", Status: backend.StateFailed, CreatedAt: created},
		},
		details: map[string]*backend.Job{
			"0f2c6a1e-aaaa": {
				JobSummary: backend.JobSummary{ID: "0f2c6a1e-aaaa", Status: backend.StateCompleted},
				Payload:    map[string]any{"target_inchi": "InChI=1S/C2H4O2/c1-2(3)4/h1H3,(H,3,4)", "target_smiles": "CC(=O)O"},
			},
			"9b7d4c2f-bbbb": {
				JobSummary: backend.JobSummary{ID: "9b7d4c2f-bbbb", Status: backend.StateFailed},
				ExitCode:   &code,
			},
		},
		results: []backend.Result{
			{ID: "rp_1_1", Steps: 2, MeanScore: score(0.5)},
			{ID: "rp_2_1", Steps: 3, MeanScore: score(0.9), StdScore: score(0.1)},
			{ID: "rp_3_1", Steps: 1},
		},
		graph: g,
	}
}

func newTestServer(t *testing.T, f *fakeBackend, m *Metrics) *httptest.Server {
	t.Helper()
	runner := pipeline.NewRunner(f, nil, nil, nil)
	s, err := New(Config{Backend: f, Runner: runner, Metrics: m})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestNewValidatesConfig(t *testing.T) {
	f := newFake(t)
	runner := pipeline.NewRunner(f, nil, nil, nil)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no backend", Config{Runner: runner}},
		{"no runner", Config{Backend: f}},
		{"bad engine", Config{Backend: f, Runner: runner, Render: pipeline.Options{Engine: "circo"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("New() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestIndex(t *testing.T) {
	srv := newTestServer(t, newFake(t), nil)
	resp, body := get(t, srv.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		`href="/jobs/0f2c6a1e-aaaa"`,
		`<code>0f2c6a1e</code>`,
		`tile failed`,
		`No result produced`,
		`created 2025-03-01 10:00`,
		`<svg`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
}

func TestIndexBackendDown(t *testing.T) {
	f := newFake(t)
	f.err = errors.New(errors.ErrCodeNetwork, "connection refused")
	srv := newTestServer(t, f, nil)

	resp, body := get(t, srv.URL+"/")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if !strings.Contains(body, msgJobs) {
		t.Errorf("body missing %q", msgJobs)
	}
}

func TestJobPageSorting(t *testing.T) {
	srv := newTestServer(t, newFake(t), nil)

	tests := []struct {
		query string
		order []string
	}{
		{"", []string{"rp_1_1", "rp_2_1", "rp_3_1"}},
		{"?sort=mean_score:desc", []string{"rp_2_1", "rp_1_1", "rp_3_1"}},
		{"?sort=mean_score", []string{"rp_3_1", "rp_1_1", "rp_2_1"}},
		{"?sort=steps", []string{"rp_3_1", "rp_1_1", "rp_2_1"}},
		{"?sort=bogus", []string{"rp_1_1", "rp_2_1", "rp_3_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, body := get(t, srv.URL+"/jobs/0f2c6a1e-aaaa"+tt.query)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			last := -1
			for _, id := range tt.order {
				i := strings.Index(body, `data-result="`+id+`"`)
				if i < 0 {
					t.Fatalf("row %s missing", id)
				}
				if i < last {
					t.Errorf("row %s out of order", id)
				}
				last = i
			}
		})
	}
}

func TestJobPageIndicator(t *testing.T) {
	srv := newTestServer(t, newFake(t), nil)
	_, body := get(t, srv.URL+"/jobs/0f2c6a1e-aaaa?sort=steps:desc")
	if !strings.Contains(body, "Steps</a> ▼") {
		t.Error("descending indicator missing")
	}
	if !strings.Contains(body, `href="?sort=steps%3Aasc"`) {
		t.Error("toggle link should flip to ascending")
	}
	if !strings.Contains(body, "Target: <code>InChI=1S/C2H4O2") {
		t.Error("target missing")
	}
}

func TestJobNotFound(t *testing.T) {
	srv := newTestServer(t, newFake(t), nil)
	resp, body := get(t, srv.URL+"/jobs/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if !strings.Contains(body, msgJob) {
		t.Errorf("body missing %q", msgJob)
	}
}

func TestResultPage(t *testing.T) {
	srv := newTestServer(t, newFake(t), nil)

	resp, body := get(t, srv.URL+"/jobs/0f2c6a1e-aaaa/results/rp_1_1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		`id="viewport"`,
		`class="node compound"`,
		`aldehyde dehydrogenase`,
		`Show cofactors`,
		`href="?aux=show"`,
		`/jobs/0f2c6a1e-aaaa/results/rp_1_1/diagram.svg`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("result page missing %q", want)
		}
	}
	if strings.Contains(body, `data-id="MNXM2"`) {
		t.Error("water should be hidden by default")
	}

	_, body = get(t, srv.URL+"/jobs/0f2c6a1e-aaaa/results/rp_1_1?aux=show")
	if !strings.Contains(body, `data-id="MNXM2"`) {
		t.Error("water should be shown with aux=show")
	}
	if !strings.Contains(body, "Hide cofactors") {
		t.Error("toggle should offer hiding")
	}
}

func TestResultFetchFailure(t *testing.T) {
	f := newFake(t)
	f.err = errors.New(errors.ErrCodeTimeout, "deadline exceeded")
	srv := newTestServer(t, f, nil)

	resp, body := get(t, srv.URL+"/jobs/0f2c6a1e-aaaa/results/rp_1_1")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if !strings.Contains(body, msgPathway) || strings.Contains(body, `id="viewport"`) {
		t.Error("failed fetch should show the message instead of a diagram")
	}
}

func TestDownload(t *testing.T) {
	srv := newTestServer(t, newFake(t), nil)
	resp, body := get(t, srv.URL+"/jobs/0f2c6a1e-aaaa/results/rp_1_1/diagram.svg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="rp_1_1.svg"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(body, `xmlns="http://www.w3.org/2000/svg"`) {
		t.Error("download should be a standalone SVG")
	}
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, newFake(t), nil)

	resp, _ := get(t, srv.URL+"/healthz")
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("generated request id %q: %v", resp.Header.Get(RequestIDHeader), err)
	}

	id := uuid.NewString()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, newFake(t), nil)
	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(body) != `{"status":"ok"}` {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := NewMetrics()
	srv := newTestServer(t, newFake(t), m)

	get(t, srv.URL+"/jobs/0f2c6a1e-aaaa")
	m.OnCacheHit(context.Background(), "graph")

	resp, body := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		`pathview_http_requests_total{code="200",route="/jobs/{jobID}`,
		`pathview_cache_events_total{event="hit",key_type="graph"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestNoMetricsRoute(t *testing.T) {
	srv := newTestServer(t, newFake(t), nil)
	resp, _ := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
