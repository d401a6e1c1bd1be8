package diagram

import (
	"context"
	"io"
	"sync"

	"github.com/metaxime/pathview/pkg/errors"
	"github.com/metaxime/pathview/pkg/pathway"
	"github.com/metaxime/pathview/pkg/viewport"
)

// State is the lifecycle state of a [View].
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Token identifies one load. Completions carrying an older token than the
// latest [View.Begin] are ignored.
type Token uint64

// View owns one displayed pathway: the composed diagram, its mounts and
// the current zoom. Methods are safe for concurrent use so a fetch may
// complete on another goroutine.
type View struct {
	mu      sync.Mutex
	opts    Options
	state   State
	seq     Token
	graph   pathway.Graph
	diagram *Diagram
	zoom    viewport.Zoom
	err     error
	closed  bool
	mounts  *Mounts
}

// NewView returns an idle view.
func NewView(opts Options) *View {
	return &View{opts: opts.withDefaults(), mounts: NewMounts()}
}

// Begin starts a load and returns its token. A closed view returns the
// zero token, which never completes.
func (v *View) Begin() Token {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return 0
	}
	v.seq++
	v.state = StateLoading
	v.err = nil
	return v.seq
}

// Complete applies the outcome of the load identified by tok. It reports
// whether the outcome was applied; stale tokens and closed views are
// ignored. A fetch error moves the view to StateError and is returned.
func (v *View) Complete(ctx context.Context, tok Token, g pathway.Graph, fetchErr error) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || tok == 0 || tok != v.seq {
		return false, nil
	}
	if fetchErr != nil {
		v.state, v.err = StateError, fetchErr
		return true, fetchErr
	}
	if err := v.compose(ctx, g); err != nil {
		return true, err
	}
	v.graph = g
	return true, nil
}

// Load fetches and composes a graph in one step.
func (v *View) Load(ctx context.Context, fetch func(context.Context) (pathway.Graph, error)) error {
	tok := v.Begin()
	g, err := fetch(ctx)
	_, err = v.Complete(ctx, tok, g, err)
	return err
}

// compose rebuilds the diagram and resets the zoom to its fit.
func (v *View) compose(ctx context.Context, g pathway.Graph) error {
	d, err := build(ctx, g, v.opts, v.mounts)
	if err != nil {
		v.state, v.err = StateError, err
		return err
	}
	v.diagram = d
	v.zoom = viewport.NewZoom(d.Fit, v.opts.MaxScale)
	v.state, v.err = StateReady, nil
	return nil
}

// SetShowAuxiliary toggles auxiliary compounds. A ready view is laid out
// and fitted again; the returned transition animates from the transform
// shown before the toggle to the new fit. Views that are not ready only
// record the setting.
func (v *View) SetShowAuxiliary(ctx context.Context, show bool) (viewport.Transition, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts.ShowAuxiliary = show
	if v.closed || v.state != StateReady {
		return viewport.Transition{}, nil
	}
	prev := v.zoom.Current
	if err := v.compose(ctx, v.graph); err != nil {
		return viewport.Transition{}, err
	}
	tr := viewport.NewTransition(prev, v.diagram.Fit)
	tr.Duration = v.opts.TransitionDuration
	return tr, nil
}

// ShowAuxiliary reports the current auxiliary setting.
func (v *View) ShowAuxiliary() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.opts.ShowAuxiliary
}

// ZoomBy zooms about the view point (px, py).
func (v *View) ZoomBy(k, px, py float64) viewport.Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReady {
		return viewport.Identity
	}
	return v.zoom.ScaleBy(k, px, py)
}

// PanBy shifts the view.
func (v *View) PanBy(dx, dy float64) viewport.Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReady {
		return viewport.Identity
	}
	return v.zoom.PanBy(dx, dy)
}

// Transform returns the current transform, or identity when not ready.
func (v *View) Transform() viewport.Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReady {
		return viewport.Identity
	}
	return v.zoom.Current
}

// Zoom returns a copy of the zoom state.
func (v *View) Zoom() viewport.Zoom {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoom
}

// State returns the lifecycle state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Err returns the error that moved the view to StateError.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Diagram returns the composed diagram, or nil before the first
// successful load.
func (v *View) Diagram() *Diagram {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.diagram
}

// Export writes the interactive standalone SVG at the current transform and
// returns its file name.
func (v *View) Export(w io.Writer) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReady || v.diagram == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "no diagram to export (state %s)", v.state)
	}
	err := v.diagram.WriteSVG(w, ExportOptions{
		Transform:    v.zoom.Current,
		TransitionMs: int(v.opts.TransitionDuration.Milliseconds()),
		Interactive:  true,
	})
	return v.diagram.Filename(), err
}

// Close releases the mounts. Later completions are ignored.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.mounts.Close()
}
