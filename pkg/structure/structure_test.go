package structure

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	svg "github.com/ajstarks/svgo"
)

func TestParse(t *testing.T) {
	tests := []struct {
		smiles    string
		atoms     int
		bonds     int
		hydrogens []int
	}{
		{"CCO", 3, 2, []int{3, 2, 1}},
		{"C(=O)O", 3, 2, []int{1, 0, 1}},
		{"c1ccccc1", 6, 6, []int{1, 1, 1, 1, 1, 1}},
		{"C1=CC=CC=C1", 6, 6, []int{1, 1, 1, 1, 1, 1}},
		{"[nH]1cccc1", 5, 5, []int{1, 1, 1, 1, 1}},
		{"c1ccncc1", 6, 6, []int{1, 1, 1, 0, 1, 1}},
		{"Cl", 1, 0, []int{1}},
		{"BrC", 2, 1, []int{0, 3}},
		{"N#N", 2, 1, []int{0, 0}},
		{"[NH4+]", 1, 0, []int{4}},
		{"[H+]", 1, 0, []int{0}},
		{"[13CH3]O", 2, 1, []int{3, 1}},
		{"N[C@@H](C)C(=O)O", 6, 5, []int{2, 1, 3, 0, 0, 1}},
		{"C%12CC%12", 3, 3, []int{2, 2, 2}},
		{"[O-]C(=O)C.[Na+]", 5, 3, []int{0, 0, 0, 3, 0}},
		{"OP(=O)(O)O", 5, 4, []int{1, 0, 0, 1, 1}},
		{"CS(C)=O", 4, 3, []int{3, 0, 3, 0}},
		{"*C", 2, 1, []int{0, 3}},
		{"F/C=C/F", 4, 3, []int{0, 1, 1, 0}},
		{"[Fe++]", 1, 0, []int{0}},
		{"[se]1cccc1", 5, 5, []int{0, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.smiles, func(t *testing.T) {
			m, err := Parse(tt.smiles)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(m.Atoms) != tt.atoms || len(m.Bonds) != tt.bonds {
				t.Errorf("atoms=%d bonds=%d, want %d %d", len(m.Atoms), len(m.Bonds), tt.atoms, tt.bonds)
			}
			var got []int
			for _, a := range m.Atoms {
				got = append(got, a.Hydrogens)
			}
			if !reflect.DeepEqual(got, tt.hydrogens) {
				t.Errorf("hydrogens = %v, want %v", got, tt.hydrogens)
			}
		})
	}
}

func TestParseBracketFields(t *testing.T) {
	m, err := Parse("[13CH3-:7]")
	if err != nil {
		t.Fatal(err)
	}
	want := Atom{Element: "C", Isotope: 13, Hydrogens: 3, Charge: -1, Class: 7, Bracket: true}
	if m.Atoms[0] != want {
		t.Errorf("atom = %+v, want %+v", m.Atoms[0], want)
	}

	m, _ = Parse("[Fe+3]")
	if m.Atoms[0].Charge != 3 {
		t.Errorf("[Fe+3] charge = %d", m.Atoms[0].Charge)
	}
	m, _ = Parse("[O--]")
	if m.Atoms[0].Charge != -2 {
		t.Errorf("[O--] charge = %d", m.Atoms[0].Charge)
	}
}

func TestParseBondOrders(t *testing.T) {
	m, err := Parse("C=C#N.c1ccccc1")
	if err != nil {
		t.Fatal(err)
	}
	want := []BondOrder{BondDouble, BondTriple, BondAromatic, BondAromatic, BondAromatic, BondAromatic, BondAromatic, BondAromatic}
	var got []BondOrder
	for _, b := range m.Bonds {
		got = append(got, b.Order)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("orders = %v, want %v", got, want)
	}
	if !m.Bonds[len(m.Bonds)-1].Ring {
		t.Error("ring closure bond should be marked")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		in  string
		pos int
	}{
		{"", 0},
		{"C1CC", 1},
		{"C(C", 3},
		{"C)", 1},
		{"=C", 0},
		{"C=", 1},
		{"C==C", 2},
		{"[C", 0},
		{"[Xx]", 1},
		{"[]", 1},
		{"C11", 2},
		{"C1C1", 3},
		{"C=1CC-1", 6},
		{"Q", 0},
		{"C%1", 1},
		{"(C)", 0},
		{"[C:]", 3},
		{"[CH3Q]", 4},
		{"C.=C", 2},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(tt.in)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Parse(%q) error = %v, want *ParseError", tt.in, err)
			}
			if pe.Pos != tt.pos {
				t.Errorf("Pos = %d, want %d (%v)", pe.Pos, tt.pos, pe)
			}
		})
	}
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{
		"N[C@@H](Cc1ccccc1)C(=O)O",
		"OC[C@H]1OC(O)[C@H](O)[C@@H](O)[C@@H]1O",
		"c1ccc2ccccc2c1",
		"[13CH3:1][N+](C)(C)C",
	}
	for _, s := range inputs {
		for i := 0; i <= len(s); i++ {
			_, _ = Parse(s[:i])
			_, _ = Parse(s[i:])
		}
	}
	for _, s := range []string{"((((", "))))", "[[[", "]]]", "%%%", "1234", "@@", "[@]", "[+]", "C[", "\x00", "日本"} {
		_, _ = Parse(s)
	}
}

func TestRings(t *testing.T) {
	m, err := Parse("c1ccc2ccccc2c1")
	if err != nil {
		t.Fatal(err)
	}
	rings := m.Rings()
	if len(rings) != 2 {
		t.Fatalf("rings = %v, want 2", rings)
	}
	for _, r := range rings {
		if len(r) != 6 {
			t.Errorf("ring %v, want size 6", r)
		}
	}
}

func TestComponents(t *testing.T) {
	m, _ := Parse("CC.O.[Na+]")
	comps := m.Components()
	want := [][]int{{0, 1}, {2}, {3}}
	if !reflect.DeepEqual(comps, want) {
		t.Errorf("Components() = %v, want %v", comps, want)
	}
}

func TestWithExplicitHydrogens(t *testing.T) {
	m, _ := Parse("O")
	h := m.WithExplicitHydrogens()
	if len(h.Atoms) != 3 || len(h.Bonds) != 2 {
		t.Fatalf("atoms=%d bonds=%d, want 3 2", len(h.Atoms), len(h.Bonds))
	}
	if h.Atoms[0].Hydrogens != 0 || h.Atoms[1].Element != "H" {
		t.Errorf("atoms = %+v", h.Atoms)
	}
	if m.Atoms[0].Hydrogens != 2 {
		t.Error("WithExplicitHydrogens must not modify the receiver")
	}
}

func dist(a, b Point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

func TestLayoutBondLengths(t *testing.T) {
	for _, s := range []string{"CC", "CCO", "c1ccccc1", "CC(C)(C)O"} {
		m, _ := Parse(s)
		pts, _, _ := m.layout()
		for _, b := range m.Bonds {
			if d := dist(pts[b.A], pts[b.B]); math.Abs(d-1) > 0.15 {
				t.Errorf("%s: bond %d-%d length %.3f, want ~1", s, b.A, b.B, d)
			}
		}
	}
}

func TestLayoutRingIsRegular(t *testing.T) {
	m, _ := Parse("c1ccccc1")
	pts, _, _ := m.layout()
	var cx, cy float64
	for _, p := range pts {
		cx += p.X / 6
		cy += p.Y / 6
	}
	for i, p := range pts {
		if r := math.Hypot(p.X-cx, p.Y-cy); math.Abs(r-1) > 0.05 {
			t.Errorf("atom %d radius %.3f, want ~1", i, r)
		}
	}
}

func TestLayoutPacksComponents(t *testing.T) {
	m, _ := Parse("CC.[Na+]")
	pts, w, _ := m.layout()
	if !(pts[2].X > pts[0].X && pts[2].X > pts[1].X) {
		t.Errorf("second component should be to the right: %v", pts)
	}
	if math.Abs(w-(1+componentGap)) > 0.05 {
		t.Errorf("width = %.3f, want %.3f", w, 1+componentGap)
	}
}

func TestRenderFitsBox(t *testing.T) {
	r := NewRenderer()
	box := Box{Width: 140, Height: 100}
	for _, s := range []string{"OC[C@H]1OC(O)[C@H](O)[C@@H](O)[C@@H]1O", "CCCCCCCCCCCCCCCC(=O)O", "O", "[H+]"} {
		d, err := r.Render(s, box, Options{})
		if err != nil {
			t.Fatalf("Render(%s): %v", s, err)
		}
		if d.BondLength > DefaultMaxBondLength {
			t.Errorf("%s: bond length %v exceeds cap", s, d.BondLength)
		}
		for i, p := range d.Points {
			if p.X < DefaultPadding-1e-6 || p.X > box.Width-DefaultPadding+1e-6 ||
				p.Y < DefaultPadding-1e-6 || p.Y > box.Height-DefaultPadding+1e-6 {
				t.Errorf("%s: atom %d at %v outside padded box", s, i, p)
			}
		}
	}
}

func TestRenderCentersSingleAtom(t *testing.T) {
	d, err := NewRenderer().Render("O", Box{Width: 140, Height: 100}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if p := d.Points[0]; p.X != 70 || p.Y != 50 {
		t.Errorf("atom at %v, want box center", p)
	}
}

func TestRenderDeterministic(t *testing.T) {
	r := NewRenderer()
	a, _ := r.Render("N[C@@H](Cc1ccccc1)C(=O)O", Box{Width: 140, Height: 100}, Options{})
	b, _ := r.Render("N[C@@H](Cc1ccccc1)C(=O)O", Box{Width: 140, Height: 100}, Options{})
	if !reflect.DeepEqual(a.Points, b.Points) {
		t.Error("Render should be deterministic")
	}
}

func TestRenderParseError(t *testing.T) {
	_, err := NewRenderer().Render("C1CC", Box{Width: 10, Height: 10}, Options{})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("error = %v, want *ParseError", err)
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		smiles string
		opts   Options
		want   []string
	}{
		{"CCO", Options{}, []string{"", "", "OH"}},
		{"C", Options{}, []string{"CH4"}},
		{"[NH4+]", Options{}, []string{"NH4+"}},
		{"[O-]C", Options{}, []string{"O-", ""}},
		{"[Fe+3]", Options{}, []string{"Fe3+"}},
		{"[13CH4]", Options{}, []string{"13CH4"}},
		{"[H+]", Options{ExplicitHydrogens: true}, []string{"H+"}},
		{"O", Options{ExplicitHydrogens: true}, []string{"O", "H", "H"}},
		{"C[NH3+]", Options{ExplicitHydrogens: true}, []string{"", "N+", "H", "H", "H", "H", "H", "H"}},
	}
	for _, tt := range tests {
		d, err := NewRenderer().Render(tt.smiles, Box{Width: 140, Height: 100}, tt.opts)
		if err != nil {
			t.Fatalf("Render(%s): %v", tt.smiles, err)
		}
		var got []string
		for i := range d.Molecule.Atoms {
			got = append(got, d.Label(i))
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s labels = %q, want %q", tt.smiles, got, tt.want)
		}
	}
}

func TestWriteSVG(t *testing.T) {
	d, err := NewRenderer().Render("OC(=O)c1ccccc1", Box{Width: 140, Height: 100}, Options{Theme: ThemeDark})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	d.WriteSVG(canvas, 10, 20)
	out := buf.String()

	for _, want := range []string{
		`class="structure"`,
		`transform="translate(10,20)"`,
		">OH</text>",
		">O</text>",
		ThemeDark.Color("O"),
		"stroke-dasharray",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if strings.Contains(out, ">C</text>") {
		t.Error("implied carbons should not be labelled")
	}
	if got := strings.Count(out, "<path"); got != 16 {
		t.Errorf("paths = %d, want 16", got)
	}
}

func TestStandalone(t *testing.T) {
	d, _ := NewRenderer().Render("CCO", Box{Width: 120, Height: 80}, Options{})
	var buf bytes.Buffer
	if err := d.Standalone(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `width="120"`) || !strings.Contains(out, `height="80"`) {
		t.Errorf("missing size: %s", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "</svg>") {
		t.Error("document should be closed")
	}
}

func TestExplicitHydrogensFor(t *testing.T) {
	if !ExplicitHydrogensFor(CellularProtonID, nil) {
		t.Error("cellular proton should use explicit hydrogens")
	}
	if !ExplicitHydrogensFor("MNXM3", []string{"MNXM3"}) {
		t.Error("configured ids should use explicit hydrogens")
	}
	if ExplicitHydrogensFor("MNXM2", []string{"MNXM3"}) {
		t.Error("other ids should not")
	}
}

func TestThemeByName(t *testing.T) {
	if th, ok := ThemeByName("dark"); !ok || th.Name != "dark" {
		t.Errorf("ThemeByName(dark) = %v, %v", th.Name, ok)
	}
	if th, ok := ThemeByName("neon"); ok || th.Name != "light" {
		t.Errorf("ThemeByName(neon) = %v, %v", th.Name, ok)
	}
	if ThemeLight.Color("Xe") != ThemeLight.Default {
		t.Error("unknown element should use default colour")
	}
}
