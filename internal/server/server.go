// Package server implements the pathview dashboard: job tiles, job detail
// pages with sortable result tables and the interactive pathway viewer.
package server

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/metaxime/pathview/pkg/backend"
	"github.com/metaxime/pathview/pkg/errors"
	"github.com/metaxime/pathview/pkg/pipeline"
	"github.com/metaxime/pathview/pkg/structure"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// Messages shown in place of content the backend could not deliver.
const (
	msgJobs    = "Could not load jobs"
	msgJob     = "Could not load job"
	msgResults = "Could not load results"
	msgPathway = "Could not load pathway"
)

// Backend is the part of the prediction service the pages read directly.
// *backend.Client implements it.
type Backend interface {
	ListJobs(ctx context.Context) ([]backend.JobSummary, error)
	GetJob(ctx context.Context, id string) (*backend.Job, error)
	ListResults(ctx context.Context, jobID string) ([]backend.Result, error)
}

// Config configures a [Server].
type Config struct {
	Addr    string
	Backend Backend
	// Runner renders pathway diagrams; its Client fetches the graphs.
	Runner *pipeline.Runner
	// Render holds the diagram options applied to every pathway; job and
	// result ids and the auxiliary toggle are filled in per request.
	Render  pipeline.Options
	Metrics *Metrics
	Logger  *log.Logger
	// TileConcurrency bounds parallel job detail fetches on the index page.
	TileConcurrency int
}

// Server serves the dashboard.
type Server struct {
	cfg      Config
	router   chi.Router
	pages    *template.Template
	renderer *structure.Renderer
	logger   *log.Logger
}

// New validates cfg and builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.Backend == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "server needs a backend")
	}
	if cfg.Runner == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "server needs a pipeline runner")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.TileConcurrency <= 0 {
		cfg.TileConcurrency = 4
	}
	// Validate a copy so per-request runs still pick up the runner logger.
	check := cfg.Render
	if err := check.ValidateForRender(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "render options")
	}

	pages, err := template.New("pages").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse templates")
	}

	s := &Server{
		cfg:      cfg,
		pages:    pages,
		renderer: structure.NewRenderer(),
		logger:   cfg.Logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Instrument(s.logger, s.cfg.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics.Handler())
	}
	r.Route("/jobs/{jobID}", func(r chi.Router) {
		r.Get("/", s.handleJob)
		r.Get("/results/{resultID}", s.handleResult)
		r.Get("/results/{resultID}/diagram.svg", s.handleDownload)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("dashboard listening", "addr", s.cfg.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// render executes a page template. Template errors after the header was
// written can only be logged.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render page", "page", name, "err", err, "request_id", RequestIDFrom(r.Context()))
	}
}

// fetchFailure logs err and returns the status for a page whose backend
// data failed to load.
func (s *Server) fetchFailure(r *http.Request, what string, err error) int {
	s.logger.Warn("backend fetch failed", "what", what, "err", err, "request_id", RequestIDFrom(r.Context()))
	if errors.Is(err, errors.ErrCodeNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, errors.ErrCodeInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"status":"ok"}`)
}
