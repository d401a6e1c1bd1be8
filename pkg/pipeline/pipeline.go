// Package pipeline provides the fetch → compose → render pipeline shared
// by the dashboard server, the CLI and the terminal browser.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Fetch: load the pathway graph of one job result from the backend
//  2. Compose: filter, lay out, mount structures and fit the view
//  3. Render: export the interactive standalone SVG
//
// The fetched graph and the rendered SVG are cached separately: the graph
// under the backend, job and result ids, the SVG under the graph's content
// hash and every option that changes the output.
//
// # Usage
//
//	runner := pipeline.NewRunner(client, cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    JobID:    "3f2c...",
//	    ResultID: "rp_1_1",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(result.Filename, result.SVG, 0o644)
//
// Render an already loaded graph without a backend:
//
//	result, err := runner.RenderGraph(ctx, g, opts)
package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/metaxime/pathview/pkg/cache"
	"github.com/metaxime/pathview/pkg/diagram"
	"github.com/metaxime/pathview/pkg/layout"
	"github.com/metaxime/pathview/pkg/pathway"
	"github.com/metaxime/pathview/pkg/structure"
	"github.com/metaxime/pathview/pkg/viewport"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, Server and TUI
// =============================================================================

const (
	// DefaultEngine is the layout engine used when none is configured.
	DefaultEngine = "hierarchical"

	// DefaultTheme is the structure colour theme.
	DefaultTheme = "light"

	// DefaultTransitionMs is the duration of re-fit animations in the
	// exported script.
	DefaultTransitionMs = 300
)

// DefaultWidth and DefaultHeight are the view size the diagram is fitted to.
var (
	DefaultWidth  = diagram.DefaultViewSize.Width
	DefaultHeight = diagram.DefaultViewSize.Height
)

// ValidEngines is the set of supported layout engines.
var ValidEngines = map[string]bool{
	"hierarchical": true,
	"graphviz":     true,
}

// ValidThemes is the set of supported structure themes.
var ValidThemes = map[string]bool{
	"light": true,
	"dark":  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization so it can be logged.
type Options struct {
	// Fetch options
	JobID    string `json:"job_id,omitempty"`
	ResultID string `json:"result_id,omitempty"`
	Refresh  bool   `json:"refresh,omitempty"`

	// Compose options
	ShowAuxiliary     bool     `json:"show_auxiliary,omitempty"`
	Engine            string   `json:"engine,omitempty"`
	NodeSeparation    float64  `json:"node_separation,omitempty"`
	RankSeparation    float64  `json:"rank_separation,omitempty"`
	Width             float64  `json:"width,omitempty"`
	Height            float64  `json:"height,omitempty"`
	Margin            float64  `json:"margin,omitempty"`
	MaxScale          float64  `json:"max_scale,omitempty"`
	Theme             string   `json:"theme,omitempty"`
	ExplicitHydrogens []string `json:"explicit_hydrogens,omitempty"`

	// Render options
	TransitionMs int `json:"transition_ms,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the fetched pathway graph, before filtering.
	Graph pathway.Graph

	// GraphHash is the content hash of the graph.
	GraphHash string

	// Diagram is the composed diagram. It is nil when the SVG came from
	// the cache.
	Diagram *diagram.Diagram

	// SVG is the exported interactive document.
	SVG []byte

	// Filename is the download name of the SVG.
	Filename string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	SkippedCount int
	FetchTime    time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	FetchHit  bool // Whether the graph came from cache
	RenderHit bool // Whether the SVG came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateEngine checks that an engine name is valid.
func ValidateEngine(engine string) error {
	if !ValidEngines[engine] {
		return fmt.Errorf("invalid engine: %q (must be one of: hierarchical, graphviz)", engine)
	}
	return nil
}

// ValidateTheme checks that a theme name is valid.
func ValidateTheme(theme string) error {
	if !ValidThemes[theme] {
		return fmt.Errorf("invalid theme: %q (must be one of: light, dark)", theme)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForFetch(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForFetch checks the result coordinates.
func (o *Options) ValidateForFetch() error {
	if strings.TrimSpace(o.JobID) == "" {
		return fmt.Errorf("job id is required")
	}
	if strings.TrimSpace(o.ResultID) == "" {
		return fmt.Errorf("result id is required")
	}
	return nil
}

// SetRenderDefaults sets default values for composing and rendering.
func (o *Options) SetRenderDefaults() {
	if o.Engine == "" {
		o.Engine = DefaultEngine
	}
	if o.Theme == "" {
		o.Theme = DefaultTheme
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Margin == 0 {
		o.Margin = viewport.DefaultMargin
	}
	if o.MaxScale == 0 {
		o.MaxScale = viewport.DefaultMaxScale
	}
	if o.TransitionMs == 0 {
		o.TransitionMs = DefaultTransitionMs
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for composing and rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateEngine(o.Engine); err != nil {
		return err
	}
	if err := ValidateTheme(o.Theme); err != nil {
		return err
	}
	switch {
	case o.Width < 0 || o.Height < 0:
		return fmt.Errorf("invalid view size %gx%g", o.Width, o.Height)
	case o.NodeSeparation < 0 || o.RankSeparation < 0:
		return fmt.Errorf("separations must not be negative")
	case o.MaxScale < 0:
		return fmt.Errorf("invalid max scale %g", o.MaxScale)
	case o.TransitionMs < 0:
		return fmt.Errorf("invalid transition %dms", o.TransitionMs)
	}
	return nil
}

// DiagramOptions returns the composition options.
func (o *Options) DiagramOptions() (diagram.Options, error) {
	engine, err := layout.New(o.Engine)
	if err != nil {
		return diagram.Options{}, err
	}
	theme, _ := structure.ThemeByName(o.Theme)
	return diagram.Options{
		ShowAuxiliary: o.ShowAuxiliary,
		Engine:        engine,
		Layout: layout.Options{
			NodeSeparation: o.NodeSeparation,
			RankSeparation: o.RankSeparation,
			MarginX:        layout.DefaultMargin,
			MarginY:        layout.DefaultMargin,
		},
		View:               viewport.Size{Width: o.Width, Height: o.Height},
		Margin:             o.Margin,
		MaxScale:           o.MaxScale,
		TransitionDuration: time.Duration(o.TransitionMs) * time.Millisecond,
		Theme:              theme,
		ExplicitHydrogens:  o.ExplicitHydrogens,
		Logger:             o.Logger,
	}, nil
}

// ArtifactKeyOpts returns cache key options for the rendered SVG.
func (o *Options) ArtifactKeyOpts() cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		ShowAuxiliary:  o.ShowAuxiliary,
		Engine:         o.Engine,
		NodeSeparation: o.NodeSeparation,
		RankSeparation: o.RankSeparation,
		Width:          o.Width,
		Height:         o.Height,
		Margin:         o.Margin,
		MaxScale:       o.MaxScale,
		TransitionMs:   o.TransitionMs,
		Theme:          o.Theme,
		Hydrogens:      strings.Join(o.ExplicitHydrogens, ","),
	}
}
