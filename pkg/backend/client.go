package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/metaxime/pathview/pkg/errors"
	"github.com/metaxime/pathview/pkg/httputil"
	"github.com/metaxime/pathview/pkg/observability"
	"github.com/metaxime/pathview/pkg/pathway"
)

// UploadField is the multipart form field carrying uploaded files.
const UploadField = "file"

// Client talks to the prediction service. It is safe for concurrent use.
type Client struct {
	base     *url.URL
	http     *http.Client
	attempts int
	delay    time.Duration
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = httputil.NewClient(d) }
}

// WithRetry sets the number of attempts and initial backoff for GET
// requests.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) { c.attempts, c.delay = attempts, delay }
}

// New returns a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "invalid backend url %q", baseURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	c := &Client{
		base:     u,
		http:     httputil.NewClient(0),
		attempts: 3,
		delay:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string { return c.base.String() }

// ListJobs returns every job known to the service.
func (c *Client) ListJobs(ctx context.Context) ([]JobSummary, error) {
	var jobs []JobSummary
	err := c.get(ctx, c.endpoint("jobs"), &jobs)
	return jobs, err
}

// ListJobsByStatus returns the jobs in one of the running, completed or
// failed states.
func (c *Client) ListJobsByStatus(ctx context.Context, s State) ([]JobSummary, error) {
	switch s {
	case StateRunning, StateCompleted, StateFailed:
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot list jobs by state %q", s)
	}
	var jobs []JobSummary
	err := c.get(ctx, c.endpoint("jobs", string(s)), &jobs)
	return jobs, err
}

// GetJob returns the full record of a job.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := c.get(ctx, c.endpoint("jobs", id), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// JobStatus returns the state of a job and its exit code once finished.
func (c *Client) JobStatus(ctx context.Context, id string) (*Status, error) {
	var st Status
	if err := c.get(ctx, c.endpoint("jobs", id, "status"), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// DeleteJob removes a finished job. The service refuses queued and running
// jobs.
func (c *Client) DeleteJob(ctx context.Context, id string) (*JobSummary, error) {
	var job JobSummary
	if err := c.do(ctx, http.MethodDelete, c.endpoint("jobs", id), nil, "", &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListResults returns the predicted pathways of a job.
func (c *Client) ListResults(ctx context.Context, jobID string) ([]Result, error) {
	var results []Result
	err := c.get(ctx, c.endpoint("jobs", jobID, "results"), &results)
	return results, err
}

// GetResult returns one predicted pathway graph.
func (c *Client) GetResult(ctx context.Context, jobID, resultID string) (pathway.Graph, error) {
	var g pathway.Graph
	if err := c.get(ctx, c.endpoint("jobs", jobID, "results", resultID), &g); err != nil {
		return pathway.Graph{}, err
	}
	if g.ID == "" {
		g.ID = resultID
	}
	return g, nil
}

// SubmitJob queues a new job.
func (c *Client) SubmitJob(ctx context.Context, req JobRequest) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "submit job")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode job request")
	}
	var job Job
	if err := c.do(ctx, http.MethodPost, c.endpoint("jobs"), body, "application/json", &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UploadModel sends a metabolic model file.
func (c *Client) UploadModel(ctx context.Context, name string, r io.Reader) (*Upload, error) {
	return c.upload(ctx, "upload_model", name, r)
}

// UploadRules sends a reaction rules file.
func (c *Client) UploadRules(ctx context.Context, name string, r io.Reader) (*Upload, error) {
	return c.upload(ctx, "upload_rules", name, r)
}

// UploadFile opens path and sends it to the model or rules endpoint.
func (c *Client) UploadFile(ctx context.Context, rules bool, path string) (*Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()
	if rules {
		return c.UploadRules(ctx, filepath.Base(path), f)
	}
	return c.UploadModel(ctx, filepath.Base(path), f)
}

func (c *Client) upload(ctx context.Context, endpoint, name string, r io.Reader) (*Upload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(UploadField, name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "build upload")
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", name)
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "build upload")
	}

	var up Upload
	if err := c.do(ctx, http.MethodPost, c.endpoint(endpoint), buf.Bytes(), mw.FormDataContentType(), &up); err != nil {
		return nil, err
	}
	if up.Filename == "" {
		up.Filename = name
	}
	return &up, nil
}

// endpoint joins escaped path segments onto the base URL.
func (c *Client) endpoint(segments ...string) *url.URL {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.base.JoinPath(escaped...)
}

func (c *Client) get(ctx context.Context, u *url.URL, v any) error {
	return c.do(ctx, http.MethodGet, u, nil, "", v)
}

// do sends one request, retrying GETs on retryable failures, and decodes
// the JSON response into v.
func (c *Client) do(ctx context.Context, method string, u *url.URL, body []byte, contentType string, v any) error {
	attempts := 1
	if method == http.MethodGet {
		attempts = c.attempts
	}
	err := httputil.Retry(ctx, attempts, c.delay, func() error {
		return c.once(ctx, method, u, body, contentType, v)
	})
	if err != nil && errors.GetCode(err) == "" {
		err = errors.Wrap(errors.ErrCodeTimeout, err, "%s %s", method, u.Path)
	}
	return err
}

func (c *Client) once(ctx context.Context, method string, u *url.URL, body []byte, contentType string, v any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, u.Host, u.Path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, u.Host, u.Path, err)
		if ctx.Err() != nil {
			return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "%s %s", method, u.Path)
		}
		return errors.Wrap(errors.ErrCodeNetwork, httputil.Retryable(err), "%s %s", method, u.Path)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if err := httputil.CheckStatus(resp.StatusCode); err != nil {
		detail := readDetail(resp.Body)
		if err == httputil.ErrNotFound {
			return errors.Wrap(errors.ErrCodeNotFound, err, "%s %s%s", method, u.Path, detail)
		}
		return errors.Wrap(errors.ErrCodeNetwork, err, "%s %s%s", method, u.Path, detail)
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "decode %s", u.Path)
	}
	return nil
}

// readDetail extracts the error detail of a failed response, formatted for
// appending to a message.
func readDetail(r io.Reader) string {
	var body struct {
		Detail any `json:"detail"`
	}
	data, _ := io.ReadAll(io.LimitReader(r, 4<<10))
	if json.Unmarshal(data, &body) != nil || body.Detail == nil {
		return ""
	}
	if s, ok := body.Detail.(string); ok {
		return ": " + s
	}
	return fmt.Sprintf(": %v", body.Detail)
}
