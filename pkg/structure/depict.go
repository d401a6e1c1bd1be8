package structure

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	svg "github.com/ajstarks/svgo"
)

// CellularProtonID is the compound whose structure is always drawn with
// explicit hydrogens; its SMILES is a bare proton.
const CellularProtonID = "MNXM1__64__MNXC3"

// ExplicitHydrogensFor reports whether the compound id must be drawn with
// explicit hydrogens.
func ExplicitHydrogensFor(id string, extra []string) bool {
	return id == CellularProtonID || slices.Contains(extra, id)
}

const (
	DefaultPadding       = 6.0
	DefaultMaxBondLength = 22.0
)

// Box is the area a depiction is fitted into.
type Box struct {
	Width, Height float64
}

// Options select per-render policy.
type Options struct {
	ExplicitHydrogens bool
	// Theme defaults to ThemeLight.
	Theme Theme
}

// Renderer turns SMILES into depictions. The zero value uses the defaults.
type Renderer struct {
	Padding       float64
	MaxBondLength float64
}

// NewRenderer returns a renderer with default padding and bond length cap.
func NewRenderer() *Renderer {
	return &Renderer{Padding: DefaultPadding, MaxBondLength: DefaultMaxBondLength}
}

// Render parses smiles and fits its drawing into box.
func (r *Renderer) Render(smiles string, box Box, opts Options) (*Depiction, error) {
	m, err := Parse(smiles)
	if err != nil {
		return nil, err
	}
	return r.Depict(m, box, opts), nil
}

// Depict fits an already parsed molecule into box.
func (r *Renderer) Depict(m *Molecule, box Box, opts Options) *Depiction {
	pad, maxBond := r.Padding, r.MaxBondLength
	if pad <= 0 {
		pad = DefaultPadding
	}
	if maxBond <= 0 {
		maxBond = DefaultMaxBondLength
	}
	theme := opts.Theme
	if theme.Name == "" {
		theme = ThemeLight
	}
	if opts.ExplicitHydrogens {
		m = m.WithExplicitHydrogens()
	}

	pts, w, h := m.layout()
	scale := maxBond
	if w > 0 {
		scale = math.Min(scale, (box.Width-2*pad)/w)
	}
	if h > 0 {
		scale = math.Min(scale, (box.Height-2*pad)/h)
	}
	if scale <= 0 {
		scale = 1
	}
	ox := (box.Width - w*scale) / 2
	oy := (box.Height - h*scale) / 2
	for i, p := range pts {
		pts[i] = Point{X: ox + p.X*scale, Y: oy + p.Y*scale}
	}

	return &Depiction{
		Molecule:   m,
		Points:     pts,
		Box:        box,
		BondLength: scale,
		FontSize:   math.Min(math.Max(scale*0.6, 7), 13),
		Theme:      theme,
	}
}

// Depiction is a molecule drawing fitted into a box. Points are atom
// centers relative to the box origin.
type Depiction struct {
	Molecule   *Molecule
	Points     []Point
	Box        Box
	BondLength float64
	FontSize   float64
	Theme      Theme
}

// visible reports whether atom i gets a text label. Carbons are implied
// unless they stand alone or carry a charge or isotope.
func (d *Depiction) visible(i int) bool {
	a := d.Molecule.Atoms[i]
	return a.Element != "C" || d.Molecule.Degree(i) == 0 || a.Charge != 0 || a.Isotope != 0
}

// Label returns the text drawn for atom i, or "" for implied carbons.
func (d *Depiction) Label(i int) string {
	if !d.visible(i) {
		return ""
	}
	a := d.Molecule.Atoms[i]
	s := a.Element
	if a.Isotope > 0 {
		s = strconv.Itoa(a.Isotope) + s
	}
	switch {
	case a.Hydrogens == 1:
		s += "H"
	case a.Hydrogens > 1:
		s += "H" + strconv.Itoa(a.Hydrogens)
	}
	switch {
	case a.Charge == 1:
		s += "+"
	case a.Charge == -1:
		s += "-"
	case a.Charge > 1:
		s += strconv.Itoa(a.Charge) + "+"
	case a.Charge < -1:
		s += strconv.Itoa(-a.Charge) + "-"
	}
	return s
}

// WriteSVG draws the depiction with its box origin at (x, y).
func (d *Depiction) WriteSVG(canvas *svg.SVG, x, y int) {
	canvas.Group(`class="structure"`, fmt.Sprintf(`transform="translate(%d,%d)"`, x, y))

	centroids := d.ringCentroids()
	stroke := fmt.Sprintf("fill:none;stroke:%s;stroke-width:%.2f;stroke-linecap:round", d.Theme.Bond, math.Max(d.BondLength/18, 0.8))
	for _, b := range d.Molecule.Bonds {
		d.writeBond(canvas, b, centroids, stroke)
	}

	for i := range d.Molecule.Atoms {
		label := d.Label(i)
		if label == "" {
			continue
		}
		p := d.Points[i]
		canvas.Text(int(math.Round(p.X)), int(math.Round(p.Y)), label,
			fmt.Sprintf("fill:%s;font-size:%.1fpx;font-family:Arial,sans-serif;text-anchor:middle;dominant-baseline:central", d.Theme.Color(d.Molecule.Atoms[i].Element), d.FontSize))
	}
	canvas.Gend()
}

// Standalone writes the depiction as a complete SVG document.
func (d *Depiction) Standalone(w io.Writer) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(int(math.Ceil(d.Box.Width)), int(math.Ceil(d.Box.Height)))
	d.WriteSVG(canvas, 0, 0)
	canvas.End()
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (d *Depiction) writeBond(canvas *svg.SVG, b Bond, centroids map[[2]int]Point, stroke string) {
	p, q := d.Points[b.A], d.Points[b.B]
	dx, dy := q.X-p.X, q.Y-p.Y
	l := math.Hypot(dx, dy)
	if l < 1e-6 {
		return
	}
	ux, uy := dx/l, dy/l
	pull := d.FontSize * 0.55
	if d.visible(b.A) {
		p = Point{X: p.X + ux*pull, Y: p.Y + uy*pull}
	}
	if d.visible(b.B) {
		q = Point{X: q.X - ux*pull, Y: q.Y - uy*pull}
	}
	nx, ny := -uy, ux
	gap := d.BondLength * 0.18

	line := func(off float64, trim float64, style string) {
		a := Point{X: p.X + nx*off + ux*trim, Y: p.Y + ny*off + uy*trim}
		z := Point{X: q.X + nx*off - ux*trim, Y: q.Y + ny*off - uy*trim}
		canvas.Path(fmt.Sprintf("M%.2f %.2fL%.2f %.2f", a.X, a.Y, z.X, z.Y), style)
	}

	c, inRing := centroids[bondKey(b)]
	inner := gap
	if inRing {
		mx, my := (p.X+q.X)/2, (p.Y+q.Y)/2
		if (c.X-mx)*nx+(c.Y-my)*ny < 0 {
			inner = -gap
		}
	}
	trim := d.BondLength * 0.12

	switch b.Order {
	case BondDouble:
		if inRing {
			line(0, 0, stroke)
			line(inner, trim, stroke)
		} else {
			line(gap/2, 0, stroke)
			line(-gap/2, 0, stroke)
		}
	case BondTriple, BondQuadruple:
		line(0, 0, stroke)
		line(gap, 0, stroke)
		line(-gap, 0, stroke)
	case BondAromatic:
		line(0, 0, stroke)
		line(inner, trim, stroke+";stroke-dasharray:2,2")
	default:
		line(0, 0, stroke)
	}
}

func bondKey(b Bond) [2]int { return [2]int{min(b.A, b.B), max(b.A, b.B)} }

// ringCentroids maps ring bonds to the center of the first ring
// containing them.
func (d *Depiction) ringCentroids() map[[2]int]Point {
	out := make(map[[2]int]Point)
	for _, ring := range d.Molecule.Rings() {
		var c Point
		for _, a := range ring {
			c.X += d.Points[a].X
			c.Y += d.Points[a].Y
		}
		c.X /= float64(len(ring))
		c.Y /= float64(len(ring))
		for i, a := range ring {
			k := bondKey(Bond{A: a, B: ring[(i+1)%len(ring)]})
			if _, ok := out[k]; !ok {
				out[k] = c
			}
		}
	}
	return out
}
