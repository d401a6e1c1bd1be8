// Package layout assigns positions to the nodes of a directed graph and
// routes its edges.
//
// Two engines implement [Engine]:
//
//   - [Hierarchical]: a native rank-based (Sugiyama style) layout. Nodes are
//     partitioned into ranks by longest path from a source, long edges are
//     split by virtual nodes, ranks are ordered by barycentric sweeps and
//     coordinates are assigned so no two nodes of a rank overlap.
//   - [Graphviz]: delegates to the dot layout of goccy/go-graphviz.
//
// Both engines are deterministic: identical input (including order)
// yields identical output.
//
// # Labels
//
// Nodes carry either an HTML label, whose box is opaque and used as given
// (compound nodes host a structure drawing), or a text label, whose box is
// grown to fit the measured text.
package layout

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrEmptyID is returned when a node has an empty identifier.
	ErrEmptyID = errors.New("node ID must not be empty")

	// ErrDuplicateNode is returned when two nodes share an identifier.
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrUnknownNode is returned when an edge references a node that is not
	// part of the input. Callers prune dangling edges first.
	ErrUnknownNode = errors.New("edge references unknown node")

	// ErrUnknownEngine is returned by [New] for an unrecognised engine name.
	ErrUnknownEngine = errors.New("unknown layout engine")
)

// LabelKind selects how a node's box is sized.
type LabelKind int

const (
	// LabelHTML boxes are pre-measured and used verbatim.
	LabelHTML LabelKind = iota
	// LabelText boxes grow to fit the label text.
	LabelText
)

// Direction is the flow of ranks.
type Direction string

const (
	LeftToRight Direction = "LR"
	TopToBottom Direction = "TB"
)

// Defaults match the pathway viewer.
const (
	DefaultNodeSeparation = 30.0
	DefaultRankSeparation = 150.0
	DefaultEdgeSeparation = 10.0
	DefaultMargin         = 10.0
	DefaultCornerRadius   = 5.0
	DefaultFontSize       = 11.0
	DefaultLabelPadding   = 6.0
	DefaultIterations     = 24
)

// Node is a node to lay out.
type Node struct {
	ID            string
	Width, Height float64
	Label         string
	LabelKind     LabelKind
}

// Edge is a directed edge. Duplicates and self-loops are allowed.
type Edge struct {
	Source, Target string
}

// Options configures a layout pass. Zero fields take the defaults above.
type Options struct {
	NodeSeparation float64
	RankSeparation float64
	// EdgeSeparation is the gap kept next to virtual nodes of long edges.
	EdgeSeparation float64
	Direction      Direction
	MarginX        float64
	MarginY        float64
	CornerRadius   float64
	FontSize       float64
	LabelPadding   float64
	// Iterations bounds the ordering sweeps.
	Iterations int
}

// WithDefaults returns a copy of o with zero fields filled in.
func (o Options) WithDefaults() Options {
	if o.NodeSeparation <= 0 {
		o.NodeSeparation = DefaultNodeSeparation
	}
	if o.RankSeparation <= 0 {
		o.RankSeparation = DefaultRankSeparation
	}
	if o.EdgeSeparation <= 0 {
		o.EdgeSeparation = DefaultEdgeSeparation
	}
	if o.Direction == "" {
		o.Direction = LeftToRight
	}
	if o.MarginX < 0 {
		o.MarginX = 0
	}
	if o.MarginY < 0 {
		o.MarginY = 0
	}
	if o.CornerRadius <= 0 {
		o.CornerRadius = DefaultCornerRadius
	}
	if o.FontSize <= 0 {
		o.FontSize = DefaultFontSize
	}
	if o.LabelPadding <= 0 {
		o.LabelPadding = DefaultLabelPadding
	}
	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
	return o
}

// Point is a 2-D coordinate.
type Point struct{ X, Y float64 }

// NodeBox is a positioned node. X and Y are the center.
type NodeBox struct {
	ID            string
	X, Y          float64
	Width, Height float64
	CornerRadius  float64
	Rank          int
}

func (b NodeBox) Left() float64   { return b.X - b.Width/2 }
func (b NodeBox) Right() float64  { return b.X + b.Width/2 }
func (b NodeBox) Top() float64    { return b.Y - b.Height/2 }
func (b NodeBox) Bottom() float64 { return b.Y + b.Height/2 }

// Overlaps reports whether the interiors of b and o intersect.
func (b NodeBox) Overlaps(o NodeBox) bool {
	return b.Left() < o.Right() && o.Left() < b.Right() &&
		b.Top() < o.Bottom() && o.Top() < b.Bottom()
}

// EdgePath is a routed edge. Points run from the source boundary to the
// target boundary. Reversed marks edges that were flipped to break a cycle;
// their points are still ordered source to target. Spline marks paths whose
// points are cubic Bézier control points (p0 c1 c2 p1 c1 c2 p2 ...).
type EdgePath struct {
	ID       string
	Source   string
	Target   string
	Points   []Point
	Reversed bool
	Spline   bool
}

// Result is the output of a layout pass.
type Result struct {
	Nodes map[string]NodeBox
	// Order lists node ids in input order.
	Order []string
	Edges map[string]EdgePath
	// EdgeOrder lists edge ids in input order.
	EdgeOrder []string
	Width     float64
	Height    float64
	// Crossings is the number of segment crossings of the chosen order.
	Crossings int
}

// Engine lays out a graph.
type Engine interface {
	Name() string
	Layout(ctx context.Context, nodes []Node, edges []Edge, opts Options) (*Result, error)
}

// New returns the engine registered under name. The empty name selects
// the hierarchical engine.
func New(name string) (Engine, error) {
	switch name {
	case "", "hierarchical", "native":
		return Hierarchical{}, nil
	case "graphviz", "dot":
		return Graphviz{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// EdgeID identifies the k-th edge (0-based, input order) from source to
// target.
func EdgeID(source, target string, k int) string {
	return fmt.Sprintf("%s->%s#%d", source, target, k)
}

// edgeIDs assigns ids to edges in input order.
func edgeIDs(edges []Edge) []string {
	seen := make(map[Edge]int, len(edges))
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = EdgeID(e.Source, e.Target, seen[e])
		seen[e]++
	}
	return ids
}

// validate checks identifiers and edge endpoints and returns the index of
// every node id.
func validate(nodes []Node, edges []Edge) (map[string]int, error) {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if n.ID == "" {
			return nil, ErrEmptyID
		}
		if _, dup := index[n.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		index[n.ID] = i
	}
	for _, e := range edges {
		if _, ok := index[e.Source]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, e.Source)
		}
		if _, ok := index[e.Target]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, e.Target)
		}
	}
	return index, nil
}

// measure returns nodes with text label boxes grown to fit their label.
// The estimate assumes an average glyph advance of 0.6em.
func measure(nodes []Node, opts Options) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		n.Width = max(n.Width, 0)
		n.Height = max(n.Height, 0)
		if n.LabelKind == LabelText {
			w := float64(utf8.RuneCountInString(n.Label))*opts.FontSize*0.6 + 2*opts.LabelPadding
			h := opts.FontSize*1.2 + 2*opts.LabelPadding
			n.Width = max(n.Width, w)
			n.Height = max(n.Height, h)
		}
		out[i] = n
	}
	return out
}
