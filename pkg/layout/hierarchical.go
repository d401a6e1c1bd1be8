package layout

import (
	"context"
)

// Hierarchical is the native rank-based layout engine.
type Hierarchical struct{}

// Name implements [Engine].
func (Hierarchical) Name() string { return "hierarchical" }

// vertex is a real node or a virtual node on a long edge. Sizes are split
// into the extent along the rank axis and across it.
type vertex struct {
	node   int // index into the input nodes, or -1 for virtual vertices
	rank   int
	along  float64
	across float64
	pos    float64 // center on the cross axis
	slot   int     // index within its layer
}

func (v vertex) virtual() bool { return v.node < 0 }

// oriented is an input edge after cycle breaking.
type oriented struct {
	from, to int
	reversed bool
	loop     bool
	chain    []int // vertices from `from` to `to`, including virtual ones
}

// hgraph is the working state of one hierarchical layout pass.
type hgraph struct {
	verts  []vertex
	out    [][]int // segment adjacency between consecutive ranks
	in     [][]int
	edges  []oriented
	layers [][]int
}

// Layout implements [Engine].
func (Hierarchical) Layout(ctx context.Context, nodes []Node, edges []Edge, opts Options) (*Result, error) {
	opts = opts.WithDefaults()
	index, err := validate(nodes, edges)
	if err != nil {
		return nil, err
	}
	sized := measure(nodes, opts)

	g := newHGraph(sized, opts.Direction)
	g.orient(edges, index)
	g.assignRanks()
	g.subdivide()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	crossings := g.order(opts.Iterations)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.position(opts)
	res := g.result(sized, edges, opts)
	res.Crossings = crossings
	return res, nil
}

func newHGraph(nodes []Node, dir Direction) *hgraph {
	g := &hgraph{verts: make([]vertex, len(nodes))}
	for i, n := range nodes {
		along, across := n.Width, n.Height
		if dir == TopToBottom {
			along, across = n.Height, n.Width
		}
		g.verts[i] = vertex{node: i, along: along, across: across}
	}
	g.out = make([][]int, len(nodes))
	g.in = make([][]int, len(nodes))
	return g
}

func (g *hgraph) addVirtual(rank int) int {
	g.verts = append(g.verts, vertex{node: -1, rank: rank})
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return len(g.verts) - 1
}

func (g *hgraph) addSegment(from, to int) {
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
}

// subdivide replaces every edge spanning more than one rank by a chain of
// virtual vertices, one per intermediate rank, and builds the layers.
func (g *hgraph) subdivide() {
	for i := range g.edges {
		e := &g.edges[i]
		if e.loop {
			continue
		}
		e.chain = []int{e.from}
		prev := e.from
		for r := g.verts[e.from].rank + 1; r < g.verts[e.to].rank; r++ {
			v := g.addVirtual(r)
			g.addSegment(prev, v)
			e.chain = append(e.chain, v)
			prev = v
		}
		g.addSegment(prev, e.to)
		e.chain = append(e.chain, e.to)
	}

	maxRank := -1
	for _, v := range g.verts {
		maxRank = max(maxRank, v.rank)
	}
	g.layers = make([][]int, maxRank+1)
	for i, v := range g.verts {
		g.layers[v.rank] = append(g.layers[v.rank], i)
	}
	g.reslot()
}

func (g *hgraph) reslot() {
	for _, layer := range g.layers {
		for i, v := range layer {
			g.verts[v].slot = i
		}
	}
}
