package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/metaxime/pathview/pkg/errors"
	"github.com/metaxime/pathview/pkg/pathway"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, WithHTTPClient(srv.Client()), WithRetry(3, time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsInvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8000", "://nope"} {
		if _, err := New(u); !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("New(%q) error = %v, want INVALID_CONFIG", u, err)
		}
	}
}

func TestListJobs(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/jobs" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `[
			{"id":"a","status":"completed","created_at":"2025-03-01T10:00:00.123456","started_at":"2025-03-01T10:00:01","finished_at":"2025-03-01T10:05:01"},
			{"id":"b","status":"running","created_at":"2025-03-01T11:00:00Z","started_at":null}
		]`)
	}))

	jobs, err := c.ListJobs(context.Background())
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "a" || jobs[1].Status != StateRunning {
		t.Fatalf("jobs = %+v", jobs)
	}
	if got := jobs[0].Duration(time.Now()); got != 5*time.Minute {
		t.Errorf("Duration() = %v, want 5m", got)
	}
	if !jobs[1].StartedAt.IsZero() {
		t.Error("null started_at should decode as zero")
	}
}

func TestListJobsByStatus(t *testing.T) {
	var path string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		io.WriteString(w, `[]`)
	}))

	if _, err := c.ListJobsByStatus(context.Background(), StateFailed); err != nil {
		t.Fatal(err)
	}
	if path != "/jobs/failed" {
		t.Errorf("path = %q", path)
	}
	if _, err := c.ListJobsByStatus(context.Background(), StateQueued); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("queued filter error = %v", err)
	}
}

func TestGetJobAndStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/jobs/j1":
			io.WriteString(w, `{"id":"j1","status":"failed","created_at":"2025-03-01T10:00:00","exit_code":31,"payload":{"target_inchi":"InChI=1S/CH4/h1H4"}}`)
		case "/jobs/j1/status":
			io.WriteString(w, `{"id":"j1","status":"failed","rp2_code":30}`)
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()

	job, err := c.GetJob(ctx, "j1")
	if err != nil {
		t.Fatal(err)
	}
	if job.StatusText() != "Source in sink not found" || job.Target() != "InChI=1S/CH4/h1H4" {
		t.Errorf("job = %+v", job)
	}

	st, err := c.JobStatus(ctx, "j1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Message() != "Source in sink" {
		t.Errorf("Message() = %q", st.Message())
	}
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"Job not found"}`)
	}))
	_, err := c.GetJob(context.Background(), "missing")
	if !errors.Is(err, errors.ErrCodeNotFound) || !errors.IsNetwork(err) {
		t.Fatalf("error = %v, want NOT_FOUND", err)
	}
	if !strings.Contains(err.Error(), "Job not found") {
		t.Errorf("error should carry the detail: %v", err)
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `[{"id":"rp_1_1","steps":2,"mean_score":0.5}]`)
	}))

	results, err := c.ListResults(context.Background(), "j1")
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if len(results) != 1 || results[0].MeanScore == nil || *results[0].MeanScore != 0.5 || results[0].StdScore != nil {
		t.Errorf("results = %+v", results)
	}
}

func TestGetGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	_, err := c.ListJobs(context.Background())
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Fatalf("error = %v, want NETWORK_ERROR", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"Cannot delete a queued or running job"}`)
	}))
	_, err := c.DeleteJob(context.Background(), "j1")
	if !errors.Is(err, errors.ErrCodeNetwork) || calls.Load() != 1 {
		t.Errorf("error = %v after %d calls", err, calls.Load())
	}
}

func TestMutationsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, err := c.SubmitJob(context.Background(), JobRequest{ModelFile: "m.xml", TargetInChI: "InChI=1S/H2O/h1H2"})
	if err == nil || calls.Load() != 1 {
		t.Errorf("error = %v after %d calls, want one failed attempt", err, calls.Load())
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := New(url, WithRetry(2, time.Millisecond))
	_, err := c.ListJobs(context.Background())
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("error = %v, want NETWORK_ERROR", err)
	}
	if errors.UserMessage(err) == "" {
		t.Error("UserMessage should not be empty")
	}
}

func TestGetResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/j1/results/rp_1_1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"directed":true,"nodes":[
			{"id":"A","type":"metabolite","annotation":{"smiles":"CCO"}},
			{"id":"R","type":"reaction"}
		],"links":[{"source":"A","target":"R"}]}`)
	}))

	g, err := c.GetResult(context.Background(), "j1", "rp_1_1")
	if err != nil {
		t.Fatal(err)
	}
	if g.ID != "rp_1_1" {
		t.Errorf("ID = %q, want result id fallback", g.ID)
	}
	if len(g.Nodes) != 2 || g.Nodes[0].Kind != pathway.KindCompound || g.Nodes[0].Structure() != "CCO" {
		t.Errorf("graph = %+v", g)
	}
}

func TestEscapesPathSegments(t *testing.T) {
	var raw string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw = r.URL.EscapedPath()
		io.WriteString(w, `{"id":"a/b","status":"queued","created_at":null}`)
	}))
	if _, err := c.GetJob(context.Background(), "a/b"); err != nil {
		t.Fatal(err)
	}
	if raw != "/jobs/a%2Fb" {
		t.Errorf("path = %q", raw)
	}
}

func TestSubmitJob(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("request = %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["max_steps"] != float64(3) {
			t.Errorf("max_steps = %v", body["max_steps"])
		}
		if _, ok := body["rules_file"]; ok {
			t.Error("unset optional fields should be omitted")
		}
		io.WriteString(w, `{"id":"new","status":"queued","created_at":"2025-03-01T10:00:00"}`)
	}))

	job, err := c.SubmitJob(context.Background(), JobRequest{ModelFile: "m.xml", TargetInChI: "InChI=1S/CH4/h1H4", MaxSteps: 3})
	if err != nil {
		t.Fatal(err)
	}
	if job.ID != "new" || job.Status != StateQueued {
		t.Errorf("job = %+v", job)
	}

	if _, err := c.SubmitJob(context.Background(), JobRequest{ModelFile: "m.xml"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing target error = %v", err)
	}
}

func TestUpload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile(UploadField)
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		data, _ := io.ReadAll(f)
		json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path + "/" + hdr.Filename + ":" + string(data)})
	}))
	ctx := context.Background()

	up, err := c.UploadModel(ctx, "model.xml", strings.NewReader("<sbml/>"))
	if err != nil {
		t.Fatal(err)
	}
	if up.Path != "/upload_model/model.xml:<sbml/>" || up.Filename != "model.xml" {
		t.Errorf("upload = %+v", up)
	}

	up, err = c.UploadRules(ctx, "rules.csv", strings.NewReader("rule"))
	if err != nil {
		t.Fatal(err)
	}
	if up.Path != "/upload_rules/rules.csv:rule" {
		t.Errorf("upload = %+v", up)
	}

	if _, err := c.UploadFile(ctx, false, t.TempDir()+"/missing.xml"); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.ListJobs(ctx); !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("error = %v, want TIMEOUT", err)
	}
}
