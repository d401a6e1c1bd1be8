package layout

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
)

// pointsPerInch converts between layout units and Graphviz inches.
const pointsPerInch = 72.0

// plainFormat is the Graphviz text output that lists node centers and
// edge control points.
const plainFormat = graphviz.Format("plain")

// Graphviz lays out graphs with the dot engine of goccy/go-graphviz.
// Node boxes are passed as fixed sizes so compound drawings keep their
// dimensions. Edge paths are cubic B-spline control points.
type Graphviz struct{}

// Name implements [Engine].
func (Graphviz) Name() string { return "graphviz" }

// Layout implements [Engine].
func (Graphviz) Layout(ctx context.Context, nodes []Node, edges []Edge, opts Options) (*Result, error) {
	opts = opts.WithDefaults()
	if _, err := validate(nodes, edges); err != nil {
		return nil, err
	}
	sized := measure(nodes, opts)

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(toDOT(sized, edges, opts)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, plainFormat, &buf); err != nil {
		return nil, fmt.Errorf("render plain: %w", err)
	}
	plain, err := parsePlain(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return fromPlain(plain, sized, edges, opts)
}

// toDOT writes a digraph with fixed-size, unlabeled boxes.
func toDOT(nodes []Node, edges []Edge, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", opts.Direction)
	fmt.Fprintf(&buf, "  nodesep=%s;\n", inches(opts.NodeSeparation))
	fmt.Fprintf(&buf, "  ranksep=%s;\n", inches(opts.RankSeparation))
	buf.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n")
	buf.WriteString("\n")
	for _, n := range nodes {
		fmt.Fprintf(&buf, "  %s [width=%s, height=%s];\n", dotQuote(n.ID), inches(n.Width), inches(n.Height))
	}
	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %s -> %s;\n", dotQuote(e.Source), dotQuote(e.Target))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func inches(v float64) string {
	return strconv.FormatFloat(v/pointsPerInch, 'f', 4, 64)
}

func dotQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// =============================================================================
// Plain Output
// =============================================================================

type plainNode struct {
	Name       string
	X, Y, W, H float64
}

type plainEdge struct {
	Tail, Head string
	Points     []Point
}

type plainGraph struct {
	Width, Height float64
	Nodes         []plainNode
	Edges         []plainEdge
}

// parsePlain reads Graphviz "plain" output. Coordinates stay in inches
// with the origin at the bottom left.
func parsePlain(data []byte) (plainGraph, error) {
	var p plainGraph
	for lineNo, line := range strings.Split(string(data), "\n") {
		fields, err := plainFields(line)
		if err != nil {
			return p, fmt.Errorf("plain line %d: %w", lineNo+1, err)
		}
		if len(fields) == 0 {
			continue
		}
		bad := func() error { return fmt.Errorf("plain line %d: malformed %s statement", lineNo+1, fields[0]) }
		switch fields[0] {
		case "graph":
			f, ok := floats(fields, 1, 3)
			if !ok {
				return p, bad()
			}
			p.Width, p.Height = f[1], f[2]
		case "node":
			if len(fields) < 6 {
				return p, bad()
			}
			f, ok := floats(fields, 2, 4)
			if !ok {
				return p, bad()
			}
			p.Nodes = append(p.Nodes, plainNode{Name: fields[1], X: f[0], Y: f[1], W: f[2], H: f[3]})
		case "edge":
			if len(fields) < 4 {
				return p, bad()
			}
			n, err := strconv.Atoi(fields[3])
			if err != nil || n < 0 || len(fields) < 4+2*n {
				return p, bad()
			}
			f, ok := floats(fields, 4, 2*n)
			if !ok {
				return p, bad()
			}
			e := plainEdge{Tail: fields[1], Head: fields[2], Points: make([]Point, n)}
			for i := range n {
				e.Points[i] = Point{X: f[2*i], Y: f[2*i+1]}
			}
			p.Edges = append(p.Edges, e)
		case "stop":
			return p, nil
		}
	}
	return p, nil
}

func floats(fields []string, from, n int) ([]float64, bool) {
	if len(fields) < from+n {
		return nil, false
	}
	out := make([]float64, n)
	for i := range n {
		v, err := strconv.ParseFloat(fields[from+i], 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// plainFields splits a line on spaces, honouring double-quoted tokens.
func plainFields(line string) ([]string, error) {
	var (
		fields []string
		cur    strings.Builder
		quoted bool
		inTok  bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quoted && c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case quoted && c == '"':
			quoted = false
		case quoted:
			cur.WriteByte(c)
		case c == '"':
			quoted, inTok = true, true
		case c == ' ' || c == '\t' || c == '\r':
			if inTok {
				fields = append(fields, cur.String())
				cur.Reset()
				inTok = false
			}
		default:
			cur.WriteByte(c)
			inTok = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inTok {
		fields = append(fields, cur.String())
	}
	return fields, nil
}

// fromPlain maps plain output back onto the input graph. Multi-edges are
// matched by occurrence order.
func fromPlain(p plainGraph, nodes []Node, edges []Edge, opts Options) (*Result, error) {
	conv := func(x, y float64) Point {
		return Point{
			X: x*pointsPerInch + opts.MarginX,
			Y: (p.Height-y)*pointsPerInch + opts.MarginY,
		}
	}

	placed := make(map[string]plainNode, len(p.Nodes))
	for _, n := range p.Nodes {
		placed[n.Name] = n
	}

	res := &Result{
		Nodes:     make(map[string]NodeBox, len(nodes)),
		Order:     make([]string, len(nodes)),
		Edges:     make(map[string]EdgePath, len(edges)),
		EdgeOrder: edgeIDs(edges),
		Width:     p.Width*pointsPerInch + 2*opts.MarginX,
		Height:    p.Height*pointsPerInch + 2*opts.MarginY,
	}

	var along []float64
	for i, n := range nodes {
		pn, ok := placed[n.ID]
		if !ok {
			return nil, fmt.Errorf("graphviz dropped node %s", n.ID)
		}
		c := conv(pn.X, pn.Y)
		res.Nodes[n.ID] = NodeBox{
			ID:           n.ID,
			X:            c.X,
			Y:            c.Y,
			Width:        n.Width,
			Height:       n.Height,
			CornerRadius: opts.CornerRadius,
		}
		res.Order[i] = n.ID
		along = append(along, rankAxis(c, opts.Direction))
	}
	assignPlainRanks(res, along, opts.Direction)

	pending := make(map[[2]string][]plainEdge)
	for _, e := range p.Edges {
		k := [2]string{e.Tail, e.Head}
		pending[k] = append(pending[k], e)
	}
	for i, e := range edges {
		path := EdgePath{ID: res.EdgeOrder[i], Source: e.Source, Target: e.Target}
		k := [2]string{e.Source, e.Target}
		if queue := pending[k]; len(queue) > 0 {
			pending[k] = queue[1:]
			path.Spline = true
			for _, pt := range queue[0].Points {
				path.Points = append(path.Points, conv(pt.X, pt.Y))
			}
		} else {
			s, t := res.Nodes[e.Source], res.Nodes[e.Target]
			path.Points = []Point{clip(s, Point{X: t.X, Y: t.Y}), clip(t, Point{X: s.X, Y: s.Y})}
		}
		res.Edges[path.ID] = path
	}
	return res, nil
}

func rankAxis(p Point, dir Direction) float64 {
	if dir == TopToBottom {
		return p.Y
	}
	return p.X
}

// assignPlainRanks numbers the distinct rank-axis coordinates in
// increasing order.
func assignPlainRanks(res *Result, along []float64, dir Direction) {
	levels := slices.Clone(along)
	for i := range levels {
		levels[i] = math.Round(levels[i])
	}
	slices.Sort(levels)
	levels = slices.Compact(levels)
	for _, id := range res.Order {
		b := res.Nodes[id]
		b.Rank, _ = slices.BinarySearch(levels, math.Round(rankAxis(Point{X: b.X, Y: b.Y}, dir)))
		res.Nodes[id] = b
	}
}
