package layout

import (
	"slices"
)

// order reduces crossings with alternating barycenter sweeps and keeps the
// best layer order seen. Ties keep the current relative order, so the
// input order decides between equivalent placements. Returns the number
// of crossings of the kept order.
func (g *hgraph) order(iterations int) int {
	best := cloneLayers(g.layers)
	bestCrossings := g.crossings()

	for i := 0; i < iterations && bestCrossings > 0; i++ {
		if i%2 == 0 {
			for r := 1; r < len(g.layers); r++ {
				g.sortLayer(r, g.in)
			}
		} else {
			for r := len(g.layers) - 2; r >= 0; r-- {
				g.sortLayer(r, g.out)
			}
		}
		if c := g.crossings(); c < bestCrossings {
			best, bestCrossings = cloneLayers(g.layers), c
		}
	}

	g.layers = best
	g.reslot()
	return bestCrossings
}

// sortLayer reorders layer r by the mean slot of each vertex's neighbours
// in the adjacent layer. Vertices without neighbours keep their slot.
func (g *hgraph) sortLayer(r int, neighbors [][]int) {
	layer := g.layers[r]

	type movable struct {
		v    int
		bary float64
		slot int
	}
	var moving []movable
	var free []int
	for i, v := range layer {
		nb := neighbors[v]
		if len(nb) == 0 {
			continue
		}
		sum := 0.0
		for _, u := range nb {
			sum += float64(g.verts[u].slot)
		}
		moving = append(moving, movable{v: v, bary: sum / float64(len(nb)), slot: i})
		free = append(free, i)
	}
	slices.SortStableFunc(moving, func(a, b movable) int {
		switch {
		case a.bary < b.bary:
			return -1
		case a.bary > b.bary:
			return 1
		default:
			return a.slot - b.slot
		}
	})
	for i, m := range moving {
		layer[free[i]] = m.v
	}
	for i, v := range layer {
		g.verts[v].slot = i
	}
}

// crossings counts segment crossings between all adjacent layer pairs by
// counting inversions with a Fenwick tree.
func (g *hgraph) crossings() int {
	total := 0
	for r := 0; r+1 < len(g.layers); r++ {
		total += g.layerCrossings(g.layers[r], g.layers[r+1])
	}
	return total
}

func (g *hgraph) layerCrossings(upper, lower []int) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}
	pos := make(map[int]int, len(lower))
	for i, v := range lower {
		pos[v] = i
	}

	type seg struct{ upper, lower int }
	var segs []seg
	for i, v := range upper {
		for _, c := range g.out[v] {
			if p, ok := pos[c]; ok {
				segs = append(segs, seg{i, p})
			}
		}
	}
	if len(segs) < 2 {
		return 0
	}
	slices.SortFunc(segs, func(a, b seg) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})

	fenwick := make([]int, len(lower)+1)
	crossings, seen := 0, 0
	for _, s := range segs {
		atMost := 0
		for q := s.lower + 1; q > 0; q -= q & -q {
			atMost += fenwick[q]
		}
		crossings += seen - atMost
		seen++
		for q := s.lower + 1; q < len(fenwick); q += q & -q {
			fenwick[q]++
		}
	}
	return crossings
}

func cloneLayers(layers [][]int) [][]int {
	out := make([][]int, len(layers))
	for i, l := range layers {
		out[i] = slices.Clone(l)
	}
	return out
}
