package layout

// orient converts input edges to vertex pairs and reverses the back edges
// found by a depth-first search, so the remaining graph is acyclic. The
// search starts from sources in input order, then from every node still
// unvisited. Self-loops are kept aside and never ranked.
func (g *hgraph) orient(edges []Edge, index map[string]int) {
	n := len(g.verts)
	children := make([][]int, n)
	inDegree := make([]int, n)
	for _, e := range edges {
		s, t := index[e.Source], index[e.Target]
		if s == t {
			continue
		}
		children[s] = append(children[s], t)
		inDegree[t]++
	}

	const (
		white = iota
		gray
		black
	)
	color := make([]int, n)
	back := make(map[[2]int]bool)

	var dfs func(v int)
	dfs = func(v int) {
		color[v] = gray
		for _, c := range children[v] {
			switch color[c] {
			case white:
				dfs(c)
			case gray:
				back[[2]int{v, c}] = true
			}
		}
		color[v] = black
	}
	for v := range n {
		if inDegree[v] == 0 && color[v] == white {
			dfs(v)
		}
	}
	for v := range n {
		if color[v] == white {
			dfs(v)
		}
	}

	g.edges = make([]oriented, len(edges))
	for i, e := range edges {
		s, t := index[e.Source], index[e.Target]
		switch {
		case s == t:
			g.edges[i] = oriented{from: s, to: t, loop: true}
		case back[[2]int{s, t}]:
			g.edges[i] = oriented{from: t, to: s, reversed: true}
		default:
			g.edges[i] = oriented{from: s, to: t}
		}
	}
}
