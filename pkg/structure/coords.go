package structure

import "math"

// Point is a 2-D coordinate.
type Point struct{ X, Y float64 }

const (
	stressIterations = 400
	stressTolerance  = 1e-5
	// componentGap separates packed components, in bond lengths.
	componentGap = 1.5
	// chainFactor is the span of one bond along a zig-zag chain.
	chainFactor = 0.8660254037844386
)

// layout returns 2-D coordinates with unit bond length, the smallest
// coordinate at zero, and the overall width and height.
func (m *Molecule) layout() ([]Point, float64, float64) {
	pts := make([]Point, len(m.Atoms))
	rings := m.Rings()
	cursor, height := 0.0, 0.0

	comps := m.Components()
	placed := make([][]Point, len(comps))
	sizes := make([][2]float64, len(comps))
	for c, comp := range comps {
		placed[c], sizes[c][0], sizes[c][1] = m.layoutComponent(comp, rings)
		height = math.Max(height, sizes[c][1])
	}
	for c, comp := range comps {
		if c > 0 {
			cursor += componentGap
		}
		dy := (height - sizes[c][1]) / 2
		for k, a := range comp {
			pts[a] = Point{X: placed[c][k].X + cursor, Y: placed[c][k].Y + dy}
		}
		cursor += sizes[c][0]
	}
	return pts, cursor, height
}

func (m *Molecule) layoutComponent(comp []int, rings [][]int) ([]Point, float64, float64) {
	n := len(comp)
	if n == 1 {
		return []Point{{}}, 0, 0
	}
	target := m.targetDistances(comp, rings)

	pos := classicalScaling(target)
	for range stressIterations {
		moved := 0.0
		for i := range pos {
			var sx, sy, sw float64
			for j := range pos {
				d := target[i][j]
				if i == j || d <= 0 {
					continue
				}
				w := 1 / (d * d)
				dx, dy := pos[i].X-pos[j].X, pos[i].Y-pos[j].Y
				l := math.Hypot(dx, dy)
				if l < 1e-9 {
					a := float64(i-j) * goldenAngle
					dx, dy, l = math.Cos(a), math.Sin(a), 1
				}
				sx += w * (pos[j].X + d*dx/l)
				sy += w * (pos[j].Y + d*dy/l)
				sw += w
			}
			if sw == 0 {
				continue
			}
			next := Point{X: sx / sw, Y: sy / sw}
			moved = math.Max(moved, math.Hypot(next.X-pos[i].X, next.Y-pos[i].Y))
			pos[i] = next
		}
		if moved < stressTolerance {
			break
		}
	}

	alignPrincipalAxis(pos)
	return normalize(pos)
}

// targetDistances builds the ideal distance matrix of a component. Atoms
// sharing a ring sit on a regular polygon; everything else follows the
// zig-zag chain estimate. Unreachable pairs get 0 and are ignored.
func (m *Molecule) targetDistances(comp []int, rings [][]int) [][]float64 {
	hops := m.hops(comp)
	local := make(map[int]int, len(comp))
	for i, a := range comp {
		local[a] = i
	}

	n := len(comp)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		for j := range d[i] {
			switch h := hops[i][j]; {
			case h <= 0:
			case h == 1:
				d[i][j] = 1
			default:
				d[i][j] = float64(h) * chainFactor
			}
		}
	}

	fromRing := make(map[[2]int]bool)
	for _, ring := range rings {
		size := len(ring)
		if _, ok := local[ring[0]]; !ok || size < 3 {
			continue
		}
		side := math.Sin(math.Pi / float64(size))
		for a := range size {
			for b := a + 1; b < size; b++ {
				k := min(b-a, size-(b-a))
				chord := math.Sin(math.Pi*float64(k)/float64(size)) / side
				i, j := local[ring[a]], local[ring[b]]
				key := [2]int{min(i, j), max(i, j)}
				if !fromRing[key] || chord < d[i][j] {
					d[i][j], d[j][i] = chord, chord
					fromRing[key] = true
				}
			}
		}
	}
	return d
}

// alignPrincipalAxis rotates pts about their centroid so the direction of
// largest spread is horizontal.
func alignPrincipalAxis(pts []Point) {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))

	var sxx, syy, sxy float64
	for _, p := range pts {
		dx, dy := p.X-cx, p.Y-cy
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	theta := 0.5 * math.Atan2(2*sxy, sxx-syy)
	cos, sin := math.Cos(-theta), math.Sin(-theta)
	for i, p := range pts {
		dx, dy := p.X-cx, p.Y-cy
		pts[i] = Point{X: dx*cos - dy*sin, Y: dx*sin + dy*cos}
	}
}

func normalize(pts []Point) ([]Point, float64, float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	for i := range pts {
		pts[i].X -= minX
		pts[i].Y -= minY
	}
	return pts, maxX - minX, maxY - minY
}

const goldenAngle = 2.399963229728653

// classicalScaling seeds the stress iteration with classical
// multidimensional scaling: the two leading eigenvectors of the doubly
// centered squared distance matrix, found by power iteration. A small
// sunflower offset keeps the seed free of coincident points.
func classicalScaling(d [][]float64) []Point {
	n := len(d)
	b := make([][]float64, n)
	rowMean := make([]float64, n)
	total := 0.0
	for i := range d {
		b[i] = make([]float64, n)
		for j := range d[i] {
			sq := d[i][j] * d[i][j]
			b[i][j] = sq
			rowMean[i] += sq / float64(n)
		}
		total += rowMean[i] / float64(n)
	}
	for i := range b {
		for j := range b[i] {
			b[i][j] = -0.5 * (b[i][j] - rowMean[i] - rowMean[j] + total)
		}
	}

	// Shift the spectrum so the largest algebraic eigenvalues dominate.
	shift := 0.0
	for i := range b {
		row := 0.0
		for _, x := range b[i] {
			row += math.Abs(x)
		}
		shift = math.Max(shift, row)
	}
	for i := range b {
		b[i][i] += shift
	}

	first, l1 := powerIteration(b, nil, func(i int) float64 { return math.Cos(float64(i)*goldenAngle) + 0.5 })
	second, l2 := powerIteration(b, first, func(i int) float64 { return math.Sin(float64(i) * goldenAngle) })

	pos := make([]Point, n)
	s1, s2 := math.Sqrt(math.Max(l1-shift, 0)), math.Sqrt(math.Max(l2-shift, 0))
	for i := range pos {
		r := 1e-3 * math.Sqrt(float64(i)+0.5)
		a := float64(i) * goldenAngle
		pos[i] = Point{X: s1*first[i] + r*math.Cos(a), Y: s2*second[i] + r*math.Sin(a)}
	}
	return pos
}

// powerIteration returns the dominant zero-mean unit eigenvector of the
// symmetric matrix m orthogonal to skip, with its eigenvalue.
func powerIteration(m [][]float64, skip []float64, seed func(int) float64) ([]float64, float64) {
	n := len(m)
	v := make([]float64, n)
	for i := range v {
		v[i] = seed(i)
	}
	next := make([]float64, n)
	lambda := 0.0
	for range 300 {
		mean := 0.0
		for _, x := range v {
			mean += x / float64(n)
		}
		for i := range v {
			v[i] -= mean
		}
		if skip != nil {
			dot := 0.0
			for i := range v {
				dot += v[i] * skip[i]
			}
			for i := range v {
				v[i] -= dot * skip[i]
			}
		}
		norm := 0.0
		for _, x := range v {
			norm += x * x
		}
		norm = math.Sqrt(norm)
		if norm < 1e-12 {
			return make([]float64, n), 0
		}
		for i := range v {
			v[i] /= norm
		}
		lambda = 0
		for i := range m {
			sum := 0.0
			for j := range m[i] {
				sum += m[i][j] * v[j]
			}
			next[i] = sum
			lambda += sum * v[i]
		}
		v, next = next, v
	}
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm < 1e-12 {
		return make([]float64, n), 0
	}
	for i := range v {
		v[i] /= norm
	}
	return v, lambda
}
