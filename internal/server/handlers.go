package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/metaxime/pathview/pkg/backend"
	"github.com/metaxime/pathview/pkg/pathway"
	"github.com/metaxime/pathview/pkg/pipeline"
	"github.com/metaxime/pathview/pkg/structure"
)

// Tile structure boxes.
const (
	tileWidth  = 200
	tileHeight = 120
)

type indexPage struct {
	Title string
	Error string
	Tiles []tile
}

type tile struct {
	ID         string
	ShortID    string
	StatusText string
	Failed     bool
	Created    string
	Duration   string
	Structure  template.HTML
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := indexPage{Title: "Jobs"}

	jobs, err := s.cfg.Backend.ListJobs(ctx)
	if err != nil {
		page.Error = msgJobs
		s.render(w, r, s.fetchFailure(r, "jobs", err), "index.html", page)
		return
	}

	// Details carry the payload with the target; a failed detail fetch
	// degrades that tile to the summary.
	page.Tiles = make([]tile, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.TileConcurrency)
	now := time.Now()
	for i, sum := range jobs {
		page.Tiles[i] = s.summaryTile(sum, now)
		g.Go(func() error {
			job, err := s.cfg.Backend.GetJob(gctx, sum.ID)
			if err != nil {
				s.logger.Debug("job detail unavailable", "job", sum.ID, "err", err)
				return nil
			}
			t := &page.Tiles[i]
			t.StatusText = job.StatusText()
			t.Failed = job.Status == backend.StateFailed
			t.Structure = s.targetSVG(job)
			return nil
		})
	}
	_ = g.Wait()
	s.render(w, r, http.StatusOK, "index.html", page)
}

func (s *Server) summaryTile(j backend.JobSummary, now time.Time) tile {
	t := tile{
		ID:         j.ID,
		ShortID:    shortID(j.ID),
		StatusText: string(j.Status),
		Failed:     j.Status == backend.StateFailed,
	}
	if !j.CreatedAt.IsZero() {
		t.Created = j.CreatedAt.Format("2006-01-02 15:04")
	}
	if d := j.Duration(now); d > 0 {
		t.Duration = d.Round(time.Second).String()
	}
	return t
}

// targetSVG depicts the job target, or returns "" when the job has no
// parseable structure.
func (s *Server) targetSVG(job *backend.Job) template.HTML {
	smiles := job.TargetSMILES()
	if smiles == "" {
		return ""
	}
	dep, err := s.renderer.Render(smiles, structure.Box{Width: tileWidth, Height: tileHeight}, structure.Options{})
	if err != nil {
		s.logger.Debug("target not drawn", "job", job.ID, "smiles", smiles, "err", err)
		return ""
	}
	var buf bytes.Buffer
	if err := dep.Standalone(&buf); err != nil {
		return ""
	}
	return template.HTML(buf.String())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type jobPage struct {
	Title        string
	JobID        string
	Job          *backend.Job
	JobError     string
	Columns      []column
	Results      []resultRow
	ResultsError string
}

type column struct {
	Label     string
	Href      string
	Indicator string
}

type resultRow struct {
	ID    string
	Href  string
	Steps int
	Mean  string
	Std   string
}

var resultColumns = []struct {
	label string
	field backend.SortField
}{
	{"ID", backend.SortByID},
	{"Steps", backend.SortBySteps},
	{"Mean score", backend.SortByMeanScore},
	{"Std score", backend.SortByStdScore},
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "jobID")
	page := jobPage{Title: "Job " + shortID(id), JobID: id}
	status := http.StatusOK

	keys, err := backend.ParseSortKeys(r.URL.Query().Get("sort"))
	if err != nil {
		s.logger.Debug("ignoring sort", "sort", r.URL.Query().Get("sort"), "err", err)
		keys = nil
	}

	if job, err := s.cfg.Backend.GetJob(ctx, id); err != nil {
		page.JobError = msgJob
		status = s.fetchFailure(r, "job", err)
	} else {
		page.Job = job
	}

	results, err := s.cfg.Backend.ListResults(ctx, id)
	if err != nil {
		page.ResultsError = msgResults
		if st := s.fetchFailure(r, "results", err); status == http.StatusOK {
			status = st
		}
	}

	for _, c := range resultColumns {
		col := column{
			Label: c.label,
			Href:  "?sort=" + url.QueryEscape(backend.FormatSortKeys(backend.Toggle(keys, c.field))),
		}
		if len(keys) > 0 && keys[0].Field == c.field {
			col.Indicator = " ▲"
			if keys[0].Desc {
				col.Indicator = " ▼"
			}
		}
		page.Columns = append(page.Columns, col)
	}
	for _, res := range backend.SortResults(results, keys...) {
		page.Results = append(page.Results, resultRow{
			ID:    res.ID,
			Href:  "/jobs/" + url.PathEscape(id) + "/results/" + url.PathEscape(res.ID),
			Steps: res.Steps,
			Mean:  formatScore(res.MeanScore),
			Std:   formatScore(res.StdScore),
		})
	}
	s.render(w, r, status, "job.html", page)
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

type resultPage struct {
	Title         string
	JobID         string
	ResultID      string
	Error         string
	ShowAuxiliary bool
	ToggleHref    string
	DownloadHref  string
	Diagram       template.HTML
	Reactions     []pathway.Reaction
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	jobID, resultID := chi.URLParam(r, "jobID"), chi.URLParam(r, "resultID")
	show := r.URL.Query().Get("aux") == "show"
	page := resultPage{
		Title:         resultID,
		JobID:         jobID,
		ResultID:      resultID,
		ShowAuxiliary: show,
		ToggleHref:    "?aux=show",
		DownloadHref:  "/jobs/" + url.PathEscape(jobID) + "/results/" + url.PathEscape(resultID) + "/diagram.svg",
	}
	if show {
		page.ToggleHref = "?aux=hide"
		page.DownloadHref += "?aux=show"
	}

	res, err := s.cfg.Runner.Execute(r.Context(), s.options(jobID, resultID, show))
	if err != nil {
		page.Error = msgPathway
		s.render(w, r, s.fetchFailure(r, "pathway", err), "result.html", page)
		return
	}
	page.Diagram = template.HTML(res.SVG)
	page.Reactions = pathway.Reactions(res.Graph)
	s.render(w, r, http.StatusOK, "result.html", page)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID, resultID := chi.URLParam(r, "jobID"), chi.URLParam(r, "resultID")
	show := r.URL.Query().Get("aux") == "show"

	res, err := s.cfg.Runner.Execute(r.Context(), s.options(jobID, resultID, show))
	if err != nil {
		http.Error(w, msgPathway, s.fetchFailure(r, "pathway", err))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.SVG)))
	_, _ = w.Write(res.SVG)
}

func (s *Server) options(jobID, resultID string, show bool) pipeline.Options {
	opts := s.cfg.Render
	opts.JobID = jobID
	opts.ResultID = resultID
	opts.ShowAuxiliary = show
	return opts
}
