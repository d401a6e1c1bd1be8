package layout

const positionPasses = 8

// position assigns cross-axis centers. Each layer starts tightly packed;
// alternating passes then pull every vertex towards the mean of its
// neighbours in the previous (or next) layer, subject to the minimum gap
// between consecutive vertices. Finally everything is shifted so the
// smallest coordinate is zero.
func (g *hgraph) position(opts Options) {
	for _, layer := range g.layers {
		p := 0.0
		for i, v := range layer {
			if i > 0 {
				p += g.gap(layer[i-1], v, opts)
			}
			g.verts[v].pos = p
		}
	}

	for pass := range positionPasses {
		if pass%2 == 0 {
			for r := 1; r < len(g.layers); r++ {
				g.align(g.layers[r], g.in, opts)
			}
		} else {
			for r := len(g.layers) - 2; r >= 0; r-- {
				g.align(g.layers[r], g.out, opts)
			}
		}
	}

	lo := 0.0
	for i, v := range g.verts {
		if edge := v.pos - v.across/2; i == 0 || edge < lo {
			lo = edge
		}
	}
	for i := range g.verts {
		g.verts[i].pos -= lo
	}
}

// gap is the minimum center distance between consecutive vertices a, b.
func (g *hgraph) gap(a, b int, opts Options) float64 {
	va, vb := g.verts[a], g.verts[b]
	sep := opts.NodeSeparation
	if va.virtual() || vb.virtual() {
		sep = opts.EdgeSeparation
	}
	return va.across/2 + sep + vb.across/2
}

// align moves the vertices of one layer towards their desired centers
// without violating the gaps. It averages a left-to-right and a
// right-to-left compaction; both satisfy every gap, hence so does the
// average.
func (g *hgraph) align(layer []int, neighbors [][]int, opts Options) {
	n := len(layer)
	if n == 0 {
		return
	}
	desired := make([]float64, n)
	for i, v := range layer {
		nb := neighbors[v]
		if len(nb) == 0 {
			desired[i] = g.verts[v].pos
			continue
		}
		sum := 0.0
		for _, u := range nb {
			sum += g.verts[u].pos
		}
		desired[i] = sum / float64(len(nb))
	}

	fwd := make([]float64, n)
	bwd := make([]float64, n)
	fwd[0] = desired[0]
	for i := 1; i < n; i++ {
		fwd[i] = max(desired[i], fwd[i-1]+g.gap(layer[i-1], layer[i], opts))
	}
	bwd[n-1] = desired[n-1]
	for i := n - 2; i >= 0; i-- {
		bwd[i] = min(desired[i], bwd[i+1]-g.gap(layer[i], layer[i+1], opts))
	}
	for i, v := range layer {
		g.verts[v].pos = (fwd[i] + bwd[i]) / 2
	}
}

// rankCenters returns the rank-axis center of every layer. A layer is as
// thick as its largest real vertex.
func (g *hgraph) rankCenters(opts Options) ([]float64, float64) {
	centers := make([]float64, len(g.layers))
	cursor := 0.0
	for r, layer := range g.layers {
		thick := 0.0
		for _, v := range layer {
			thick = max(thick, g.verts[v].along)
		}
		if r > 0 {
			cursor += opts.RankSeparation
		}
		centers[r] = cursor + thick/2
		cursor += thick
	}
	return centers, cursor
}
