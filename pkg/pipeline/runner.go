package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/metaxime/pathview/pkg/cache"
	"github.com/metaxime/pathview/pkg/diagram"
	"github.com/metaxime/pathview/pkg/errors"
	"github.com/metaxime/pathview/pkg/observability"
	"github.com/metaxime/pathview/pkg/pathway"
)

// Fetcher loads result graphs. *backend.Client implements it.
type Fetcher interface {
	BaseURL() string
	GetResult(ctx context.Context, jobID, resultID string) (pathway.Graph, error)
}

// Runner encapsulates pipeline execution with caching.
// The server, the CLI and the TUI use it so they render identically.
//
// The Runner is stateless except for the client, cache and logger: it
// doesn't store pipeline results. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Client Fetcher
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// The client may be nil for runners that only call [Runner.RenderGraph].
func NewRunner(client Fetcher, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Client: client,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete fetch → compose → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid options")
	}

	// Stage 1: Fetch
	fetchStart := time.Now()
	g, fetchHit, err := r.FetchWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, err
	}
	fetchTime := time.Since(fetchStart)

	r.Logger.Info("fetched pathway",
		"job", opts.JobID,
		"result", opts.ResultID,
		"nodes", len(g.Nodes),
		"cached", fetchHit,
		"duration", fetchTime)

	// Stages 2 and 3: Compose and render
	result, err := r.RenderGraph(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.FetchTime = fetchTime
	result.CacheInfo.FetchHit = fetchHit
	return result, nil
}

// FetchWithCacheInfo loads the result graph with caching and returns cache
// hit info.
func (r *Runner) FetchWithCacheInfo(ctx context.Context, opts Options) (pathway.Graph, bool, error) {
	if err := opts.ValidateForFetch(); err != nil {
		return pathway.Graph{}, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid options")
	}
	if r.Client == nil {
		return pathway.Graph{}, false, errors.New(errors.ErrCodeInvalidConfig, "no backend configured")
	}
	hooks := observability.Cache()
	cacheKey := r.Keyer.GraphKey(r.Client.BaseURL(), opts.JobID, opts.ResultID)

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var g pathway.Graph
			if err := json.Unmarshal(data, &g); err == nil {
				hooks.OnCacheHit(ctx, "graph")
				return g, true, nil
			}
		}
		hooks.OnCacheMiss(ctx, "graph")
	}

	g, err := r.Fetch(ctx, opts.JobID, opts.ResultID)
	if err != nil {
		return pathway.Graph{}, false, err
	}

	if data, err := json.Marshal(g); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLGraph); err != nil {
			r.Logger.Debug("cache write failed", "key", cacheKey, "err", err)
		} else {
			hooks.OnCacheSet(ctx, "graph", len(data))
		}
	}
	return g, false, nil
}

// Fetch loads the result graph from the backend, bypassing the cache.
func (r *Runner) Fetch(ctx context.Context, jobID, resultID string) (pathway.Graph, error) {
	hooks := observability.Pipeline()
	hooks.OnFetchStart(ctx, "pathway")
	start := time.Now()
	g, err := r.Client.GetResult(ctx, jobID, resultID)
	hooks.OnFetchComplete(ctx, "pathway", time.Since(start), err)
	return g, err
}

// RenderGraph composes and renders an already loaded graph with artifact
// caching.
func (r *Runner) RenderGraph(ctx context.Context, g pathway.Graph, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid options")
	}

	result := &Result{Graph: g, Filename: diagram.Filename(g.ID)}
	graphData, err := json.Marshal(g)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "serialize graph")
	}
	result.GraphHash = cache.Hash(graphData)

	hooks := observability.Cache()
	cacheKey := r.Keyer.ArtifactKey(result.GraphHash, opts.ArtifactKeyOpts())
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			hooks.OnCacheHit(ctx, "artifact")
			result.SVG = data
			result.CacheInfo.RenderHit = true
			return result, nil
		}
		hooks.OnCacheMiss(ctx, "artifact")
	}

	renderStart := time.Now()
	d, svg, err := Render(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	result.Diagram = d
	result.SVG = svg
	result.Stats.RenderTime = time.Since(renderStart)
	result.Stats.NodeCount = len(d.Nodes)
	result.Stats.EdgeCount = len(d.Edges)
	result.Stats.SkippedCount = len(d.Skipped)

	r.Logger.Info("rendered diagram",
		"result", g.ID,
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"bytes", len(svg),
		"duration", result.Stats.RenderTime)

	if err := r.Cache.Set(ctx, cacheKey, svg, cache.TTLArtifact); err != nil {
		r.Logger.Debug("cache write failed", "key", cacheKey, "err", err)
	} else {
		hooks.OnCacheSet(ctx, "artifact", len(svg))
	}
	return result, nil
}

// Render composes g in a fresh view without caching and returns the
// diagram and its exported SVG. The view is left open so the diagram keeps
// its structure mounts.
func Render(ctx context.Context, g pathway.Graph, opts Options) (*diagram.Diagram, []byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid options")
	}
	dopts, err := opts.DiagramOptions()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "layout engine")
	}

	view := diagram.NewView(dopts)
	if _, err := view.Complete(ctx, view.Begin(), g, nil); err != nil {
		return nil, nil, err
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, "svg")
	start := time.Now()
	var buf bytes.Buffer
	_, err = view.Export(&buf)
	hooks.OnRenderComplete(ctx, "svg", time.Since(start), err)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInternal, err, "export %s", g.ID)
	}
	return view.Diagram(), buf.Bytes(), nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("%d nodes, %d edges, fetch %s, render %s",
		s.NodeCount, s.EdgeCount, s.FetchTime.Round(time.Millisecond), s.RenderTime.Round(time.Millisecond))
}
