// Package diagram composes pathway graphs into laid-out, styled diagrams
// and exports them as standalone SVG documents.
//
// Composition runs in a fixed order: the graph is filtered (auxiliary
// compounds hidden unless requested), pruned of unknown node kinds, laid
// out, turned into shapes, decorated with chemical structure depictions,
// measured and finally fitted into the view. [View] wraps composition in a
// small state machine for callers that fetch graphs asynchronously.
package diagram

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/metaxime/pathview/pkg/errors"
	"github.com/metaxime/pathview/pkg/layout"
	"github.com/metaxime/pathview/pkg/observability"
	"github.com/metaxime/pathview/pkg/pathway"
	"github.com/metaxime/pathview/pkg/structure"
	"github.com/metaxime/pathview/pkg/viewport"
)

// Node box sizes. Compound boxes host a structure depiction; transformation
// boxes are a fraction of it and grow to fit their label.
const (
	CompoundWidth        = 140.0
	CompoundHeight       = 100.0
	TransformationWidth  = CompoundWidth * 0.7
	TransformationHeight = CompoundHeight * 0.4
)

// Drawing constants.
const (
	FontSize         = 11.0
	FontFamily       = "Arial, sans-serif"
	NodeStrokeWidth  = 1.2
	EdgeStrokeWidth  = 1.5
	compoundLabelGap = 10.0
)

// Default view size when none is configured.
var DefaultViewSize = viewport.Size{Width: 960, Height: 500}

// Options configures composition.
type Options struct {
	ShowAuxiliary bool
	// Engine defaults to the hierarchical layout.
	Engine layout.Engine
	Layout layout.Options
	View   viewport.Size
	// Margin of the fit, see viewport.Fit.
	Margin   float64
	MaxScale float64
	// TransitionDuration of re-fit animations; zero selects 300ms.
	TransitionDuration time.Duration
	Theme              structure.Theme
	Renderer           *structure.Renderer
	// ExplicitHydrogens lists compound ids drawn with explicit hydrogens
	// in addition to structure.CellularProtonID.
	ExplicitHydrogens []string
	// Concurrency bounds parallel structure rendering; 0 selects 4.
	Concurrency int
	Logger      *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Engine == nil {
		o.Engine = layout.Hierarchical{}
	}
	if o.Layout.MarginX == 0 {
		o.Layout.MarginX = layout.DefaultMargin
	}
	if o.Layout.MarginY == 0 {
		o.Layout.MarginY = layout.DefaultMargin
	}
	if o.Layout.FontSize == 0 {
		o.Layout.FontSize = FontSize
	}
	o.Layout = o.Layout.WithDefaults()
	if !(o.View.Width > 0) || !(o.View.Height > 0) {
		o.View = DefaultViewSize
	}
	if o.MaxScale <= 0 {
		o.MaxScale = viewport.DefaultMaxScale
	}
	if o.TransitionDuration <= 0 {
		o.TransitionDuration = viewport.DefaultTransitionDuration
	}
	if o.Theme.Name == "" {
		o.Theme = structure.ThemeLight
	}
	if o.Renderer == nil {
		o.Renderer = structure.NewRenderer()
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// NodeShape is a positioned node box.
type NodeShape struct {
	ID    string
	Kind  pathway.Kind
	Box   layout.NodeBox
	Label string
	// Structure is the SMILES of compounds, or "".
	Structure string
}

// EdgeShape is a routed edge drawn with an arrow marker at its target.
type EdgeShape struct {
	ID     string
	Source string
	Target string
	Role   pathway.Role
	Points []layout.Point
	Spline bool
}

// PathData returns the SVG path data of the edge.
func (e EdgeShape) PathData() string {
	if len(e.Points) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "M%s,%s", num(e.Points[0].X), num(e.Points[0].Y))
	if e.Spline && (len(e.Points)-1)%3 == 0 {
		for i := 1; i+2 < len(e.Points); i += 3 {
			c1, c2, p := e.Points[i], e.Points[i+1], e.Points[i+2]
			fmt.Fprintf(&b, "C%s,%s %s,%s %s,%s", num(c1.X), num(c1.Y), num(c2.X), num(c2.Y), num(p.X), num(p.Y))
		}
		return b.String()
	}
	for _, p := range e.Points[1:] {
		fmt.Fprintf(&b, "L%s,%s", num(p.X), num(p.Y))
	}
	return b.String()
}

// Label is free text anchored at its horizontal center.
type Label struct {
	NodeID string
	Text   string
	X, Y   float64
}

// Diagram is a composed pathway ready to be drawn.
type Diagram struct {
	ID      string
	Graph   pathway.Graph
	Skipped []pathway.Node
	Layout  *layout.Result
	Nodes   []NodeShape
	Edges   []EdgeShape
	// Labels are the compound captions drawn above their boxes.
	Labels []Label
	Bounds viewport.BBox
	Fit    viewport.Transform
	View   viewport.Size
	Mounts *Mounts
	Theme  structure.Theme

	maxScale float64
}

// MaxScale returns the zoom upper bound the diagram was built with.
func (d *Diagram) MaxScale() float64 { return d.maxScale }

// Node returns the shape of the node with the given id.
func (d *Diagram) Node(id string) (NodeShape, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeShape{}, false
}

// Filename is the export file name: the graph id with an .svg suffix,
// or pathway.svg for graphs without an id.
func (d *Diagram) Filename() string {
	return Filename(d.ID)
}

// Filename returns the export file name for a result id.
func Filename(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "pathway.svg"
	}
	return id + ".svg"
}

// Build composes g. Unknown node kinds are logged and skipped; structure
// parse failures are logged and leave the compound box empty. Only layout
// failures are returned.
func Build(ctx context.Context, g pathway.Graph, opts Options) (*Diagram, error) {
	return build(ctx, g, opts.withDefaults(), NewMounts())
}

func build(ctx context.Context, g pathway.Graph, opts Options, mounts *Mounts) (*Diagram, error) {
	logger := opts.Logger

	shown := pathway.Filter(g, pathway.FilterOptions{ShowAuxiliary: opts.ShowAuxiliary})
	shown, skipped := pathway.Prune(shown)
	for _, n := range skipped {
		logger.Warn("skipping node", "id", n.ID, "kind", string(n.Kind),
			"err", errors.New(errors.ErrCodeUnknownNodeKind, "unknown node kind %q", n.Kind))
	}

	nodes := make([]layout.Node, len(shown.Nodes))
	for i, n := range shown.Nodes {
		switch n.Kind {
		case pathway.KindCompound:
			nodes[i] = layout.Node{ID: n.ID, Width: CompoundWidth, Height: CompoundHeight, LabelKind: layout.LabelHTML}
		default:
			nodes[i] = layout.Node{ID: n.ID, Width: TransformationWidth, Height: TransformationHeight,
				Label: n.Label(), LabelKind: layout.LabelText}
		}
	}
	edges := make([]layout.Edge, len(shown.Links))
	for i, e := range shown.Links {
		edges[i] = layout.Edge{Source: e.Source, Target: e.Target}
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, opts.Engine.Name(), len(nodes))
	start := time.Now()
	res, err := opts.Engine.Layout(ctx, nodes, edges, opts.Layout)
	hooks.OnLayoutComplete(ctx, opts.Engine.Name(), time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLayoutDegenerate, err, "layout %s with %s", shown.ID, opts.Engine.Name())
	}

	d := &Diagram{
		ID:       g.ID,
		Graph:    shown,
		Skipped:  skipped,
		Layout:   res,
		View:     opts.View,
		Mounts:   mounts,
		Theme:    opts.Theme,
		maxScale: opts.MaxScale,
	}
	d.shape(shown, res)

	var reqs []MountRequest
	for _, n := range d.Nodes {
		if n.Kind != pathway.KindCompound || n.Structure == "" {
			continue
		}
		reqs = append(reqs, MountRequest{
			NodeID:    n.ID,
			Structure: n.Structure,
			Box:       n.Box,
			Options: structure.Options{
				ExplicitHydrogens: structure.ExplicitHydrogensFor(n.ID, opts.ExplicitHydrogens),
				Theme:             opts.Theme,
			},
		})
	}
	for _, m := range mounts.Sync(ctx, reqs, opts.Renderer, opts.Concurrency) {
		if m.Err != nil {
			logger.Debug("structure not drawn", "id", m.NodeID, "smiles", m.Structure, "err", m.Err)
			hooks.OnStructureError(ctx, m.NodeID, m.Err)
		}
	}

	d.Bounds = d.measure()
	d.Fit = viewport.Fit(d.Bounds, opts.View, opts.Margin)
	return d, nil
}

func (d *Diagram) shape(g pathway.Graph, res *layout.Result) {
	for _, n := range g.Nodes {
		shape := NodeShape{ID: n.ID, Kind: n.Kind, Box: res.Nodes[n.ID], Label: n.Label()}
		if n.Kind == pathway.KindCompound {
			shape.Structure = n.Structure()
			b := shape.Box
			d.Labels = append(d.Labels, Label{
				NodeID: n.ID,
				Text:   shape.Label,
				X:      b.X,
				Y:      b.Y - b.Height/3 - compoundLabelGap,
			})
		}
		d.Nodes = append(d.Nodes, shape)
	}
	for i, id := range res.EdgeOrder {
		p := res.Edges[id]
		e := g.Links[i]
		d.Edges = append(d.Edges, EdgeShape{
			ID:     id,
			Source: e.Source,
			Target: e.Target,
			Role:   e.Role,
			Points: p.Points,
			Spline: p.Spline,
		})
	}
}

// measure returns the bounding box of everything drawn: node boxes, edge
// points and label extents. An empty diagram has a zero box.
func (d *Diagram) measure() viewport.BBox {
	var (
		box   viewport.BBox
		first = true
	)
	add := func(b viewport.BBox) {
		if first {
			box, first = b, false
			return
		}
		box = box.Union(b)
	}
	for _, n := range d.Nodes {
		b := n.Box
		add(viewport.BBox{X: b.Left(), Y: b.Top(), Width: b.Width, Height: b.Height})
	}
	for _, e := range d.Edges {
		for _, p := range e.Points {
			add(viewport.BBox{X: p.X, Y: p.Y})
		}
	}
	for _, l := range d.Labels {
		w := float64(utf8.RuneCountInString(l.Text)) * FontSize * 0.6
		add(viewport.BBox{X: l.X - w/2, Y: l.Y - FontSize, Width: w, Height: FontSize * 1.2})
	}
	return box
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
