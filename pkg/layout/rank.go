package layout

// assignRanks places every real vertex at the length of the longest path
// reaching it from a source (Kahn's algorithm over the oriented edges).
// Sources are at rank 0 and every edge points to a strictly higher rank.
func (g *hgraph) assignRanks() {
	n := len(g.verts)
	children := make([][]int, n)
	inDegree := make([]int, n)
	for _, e := range g.edges {
		if e.loop {
			continue
		}
		children[e.from] = append(children[e.from], e.to)
		inDegree[e.to]++
	}

	queue := make([]int, 0, n)
	for v := range n {
		if inDegree[v] == 0 {
			queue = append(queue, v)
		}
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, c := range children[v] {
			if r := g.verts[v].rank + 1; r > g.verts[c].rank {
				g.verts[c].rank = r
			}
			inDegree[c]--
			if inDegree[c] == 0 {
				queue = append(queue, c)
			}
		}
	}
}
