package layout

import "math"

// loopReach is how far a self-loop extends beyond its node.
const loopReach = 20.0

// result converts the working graph to absolute coordinates and routes
// every edge through the virtual vertices of its chain.
func (g *hgraph) result(nodes []Node, edges []Edge, opts Options) *Result {
	centers, depth := g.rankCenters(opts)
	breadth := 0.0
	for _, v := range g.verts {
		breadth = max(breadth, v.pos+v.across/2)
	}

	point := func(v int) Point {
		vx := g.verts[v]
		along := centers[vx.rank]
		if opts.Direction == TopToBottom {
			return Point{X: opts.MarginX + vx.pos, Y: opts.MarginY + along}
		}
		return Point{X: opts.MarginX + along, Y: opts.MarginY + vx.pos}
	}

	res := &Result{
		Nodes:     make(map[string]NodeBox, len(nodes)),
		Order:     make([]string, len(nodes)),
		Edges:     make(map[string]EdgePath, len(edges)),
		EdgeOrder: edgeIDs(edges),
	}
	if opts.Direction == TopToBottom {
		res.Width, res.Height = breadth+2*opts.MarginX, depth+2*opts.MarginY
	} else {
		res.Width, res.Height = depth+2*opts.MarginX, breadth+2*opts.MarginY
	}

	boxes := make([]NodeBox, len(nodes))
	for i, n := range nodes {
		p := point(i)
		boxes[i] = NodeBox{
			ID:           n.ID,
			X:            p.X,
			Y:            p.Y,
			Width:        n.Width,
			Height:       n.Height,
			CornerRadius: opts.CornerRadius,
			Rank:         g.verts[i].rank,
		}
		res.Nodes[n.ID] = boxes[i]
		res.Order[i] = n.ID
	}

	for i, e := range edges {
		o := g.edges[i]
		path := EdgePath{
			ID:       res.EdgeOrder[i],
			Source:   e.Source,
			Target:   e.Target,
			Reversed: o.reversed,
		}
		if o.loop {
			path.Points = selfLoop(boxes[o.from])
		} else {
			pts := make([]Point, len(o.chain))
			for k, v := range o.chain {
				pts[k] = point(v)
			}
			next, prev := pts[1], pts[len(pts)-2]
			pts[0] = clip(boxes[o.from], next)
			pts[len(pts)-1] = clip(boxes[o.to], prev)
			if o.reversed {
				for l, r := 0, len(pts)-1; l < r; l, r = l+1, r-1 {
					pts[l], pts[r] = pts[r], pts[l]
				}
			}
			path.Points = pts
		}
		res.Edges[path.ID] = path
	}
	return res
}

// clip returns the point where the segment from the center of b towards p
// leaves b.
func clip(b NodeBox, p Point) Point {
	dx, dy := p.X-b.X, p.Y-b.Y
	w, h := b.Width/2, b.Height/2
	if dx == 0 && dy == 0 {
		return Point{X: b.X, Y: b.Y}
	}
	var sx, sy float64
	if math.Abs(dy)*w > math.Abs(dx)*h {
		sy = math.Copysign(h, dy)
		sx = sy * dx / dy
	} else {
		sx = math.Copysign(w, dx)
		sy = sx * dy / dx
	}
	return Point{X: b.X + sx, Y: b.Y + sy}
}

func selfLoop(b NodeBox) []Point {
	top, bottom := b.Y-b.Height/4, b.Y+b.Height/4
	right := b.Right()
	return []Point{
		{X: right, Y: top},
		{X: right + loopReach, Y: top},
		{X: right + loopReach, Y: bottom},
		{X: right, Y: bottom},
	}
}
