package structure

import (
	"fmt"
	"math/bits"
	"slices"
)

// BondOrder is the multiplicity of a bond.
type BondOrder int

const (
	BondSingle BondOrder = iota + 1
	BondDouble
	BondTriple
	BondQuadruple
	BondAromatic
)

// valence returns the contribution of the bond to an atom's valence.
// Aromatic bonds count as single; aromatic atoms add one on top.
func (o BondOrder) valence() int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondQuadruple:
		return 4
	default:
		return 1
	}
}

// Atom is a heavy atom or an explicit hydrogen.
type Atom struct {
	Element  string
	Aromatic bool
	Charge   int
	Isotope  int
	Class    int
	// Bracket marks atoms written as [..]; their hydrogen count is exact.
	Bracket bool
	// Hydrogens is the number of attached hydrogens that are not
	// materialised as atoms.
	Hydrogens int
}

// Bond connects two atoms by index.
type Bond struct {
	A, B  int
	Order BondOrder
	// Ring marks bonds written as ring closures.
	Ring bool
}

// Other returns the atom at the other end of b.
func (b Bond) Other(i int) int {
	if b.A == i {
		return b.B
	}
	return b.A
}

// Molecule is a parsed structure. Disconnected components are allowed.
type Molecule struct {
	Atoms []Atom
	Bonds []Bond

	adj [][]int // bond indices per atom
}

func (m *Molecule) addAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	m.adj = append(m.adj, nil)
	return len(m.Atoms) - 1
}

func (m *Molecule) addBond(b Bond) {
	m.Bonds = append(m.Bonds, b)
	k := len(m.Bonds) - 1
	m.adj[b.A] = append(m.adj[b.A], k)
	m.adj[b.B] = append(m.adj[b.B], k)
}

// bonded reports whether atoms i and j share a bond.
func (m *Molecule) bonded(i, j int) bool {
	for _, k := range m.adj[i] {
		if m.Bonds[k].Other(i) == j {
			return true
		}
	}
	return false
}

// Neighbors returns the atoms bonded to i.
func (m *Molecule) Neighbors(i int) []int {
	out := make([]int, 0, len(m.adj[i]))
	for _, k := range m.adj[i] {
		out = append(out, m.Bonds[k].Other(i))
	}
	return out
}

// Degree is the number of bonds at atom i.
func (m *Molecule) Degree(i int) int { return len(m.adj[i]) }

// assignHydrogens computes implicit hydrogen counts for atoms written
// without brackets, using the lowest default valence that accommodates
// their bonds.
func (m *Molecule) assignHydrogens() {
	for i := range m.Atoms {
		a := &m.Atoms[i]
		if a.Bracket {
			continue
		}
		used := 0
		for _, k := range m.adj[i] {
			used += m.Bonds[k].Order.valence()
		}
		if a.Aromatic {
			used++
		}
		a.Hydrogens = 0
		for _, v := range defaultValences[a.Element] {
			if v >= used {
				a.Hydrogens = v - used
				break
			}
		}
	}
}

// WithExplicitHydrogens returns a copy in which every hydrogen count is
// replaced by hydrogen atoms bonded to their parent.
func (m *Molecule) WithExplicitHydrogens() *Molecule {
	out := &Molecule{}
	for _, a := range m.Atoms {
		a.Hydrogens = 0
		out.addAtom(a)
	}
	for _, b := range m.Bonds {
		out.addBond(b)
	}
	for i, a := range m.Atoms {
		for range a.Hydrogens {
			h := out.addAtom(Atom{Element: "H", Bracket: true})
			out.addBond(Bond{A: i, B: h, Order: BondSingle})
		}
	}
	return out
}

// Components returns the atom indices of every connected component, each
// sorted, in order of their lowest atom.
func (m *Molecule) Components() [][]int {
	seen := make([]bool, len(m.Atoms))
	var comps [][]int
	for start := range m.Atoms {
		if seen[start] {
			continue
		}
		comp := []int{start}
		seen[start] = true
		for q := 0; q < len(comp); q++ {
			for _, nb := range m.Neighbors(comp[q]) {
				if !seen[nb] {
					seen[nb] = true
					comp = append(comp, nb)
				}
			}
		}
		slices.Sort(comp)
		comps = append(comps, comp)
	}
	return comps
}

// Rings returns a smallest set of smallest rings. Candidates are the
// shortest cycle through every bond; they are taken smallest first while
// linearly independent, until the cycle rank of the molecule is reached.
// Atoms are listed in cycle order.
func (m *Molecule) Rings() [][]int {
	rank := len(m.Bonds) - len(m.Atoms) + len(m.Components())
	if rank <= 0 {
		return nil
	}

	type candidate struct {
		atoms []int
		bonds []uint64
	}
	words := (len(m.Bonds) + 63) / 64
	var cands []candidate
	seen := make(map[string]bool)
	for k, b := range m.Bonds {
		path := m.shortestPath(b.A, b.B, k)
		if path == nil {
			continue
		}
		c := candidate{atoms: path, bonds: make([]uint64, words)}
		for i, a := range path {
			bk := m.bondBetween(a, path[(i+1)%len(path)])
			c.bonds[bk/64] |= 1 << (bk % 64)
		}
		key := fmt.Sprint(c.bonds)
		if seen[key] {
			continue
		}
		seen[key] = true
		cands = append(cands, c)
	}
	slices.SortStableFunc(cands, func(a, b candidate) int { return len(a.atoms) - len(b.atoms) })

	var basis [][]uint64
	var rings [][]int
	for _, c := range cands {
		if len(rings) == rank {
			break
		}
		v := slices.Clone(c.bonds)
		for _, row := range basis {
			if p := lowestBit(row); v[p/64]&(1<<(p%64)) != 0 {
				for i := range v {
					v[i] ^= row[i]
				}
			}
		}
		if lowestBit(v) < 0 {
			continue
		}
		basis = append(basis, v)
		// Keep rows reduced on each other's pivots.
		slices.SortFunc(basis, func(a, b []uint64) int { return lowestBit(a) - lowestBit(b) })
		rings = append(rings, c.atoms)
	}
	return rings
}

func lowestBit(v []uint64) int {
	for i, w := range v {
		if w != 0 {
			return i*64 + bits.TrailingZeros64(w)
		}
	}
	return -1
}

// bondBetween returns the index of the bond joining i and j, or -1.
func (m *Molecule) bondBetween(i, j int) int {
	for _, k := range m.adj[i] {
		if m.Bonds[k].Other(i) == j {
			return k
		}
	}
	return -1
}

// shortestPath finds a path from a to b by breadth-first search, ignoring
// bond skip.
func (m *Molecule) shortestPath(a, b, skip int) []int {
	prev := make([]int, len(m.Atoms))
	for i := range prev {
		prev[i] = -1
	}
	prev[a] = a
	queue := []int{a}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if v == b {
			break
		}
		for _, k := range m.adj[v] {
			if k == skip {
				continue
			}
			if u := m.Bonds[k].Other(v); prev[u] < 0 {
				prev[u] = v
				queue = append(queue, u)
			}
		}
	}
	if prev[b] < 0 {
		return nil
	}
	var path []int
	for v := b; v != a; v = prev[v] {
		path = append(path, v)
	}
	path = append(path, a)
	slices.Reverse(path)
	return path
}

// hops returns all-pairs graph distances within a component; unreachable
// pairs are -1.
func (m *Molecule) hops(comp []int) [][]int {
	local := make(map[int]int, len(comp))
	for i, a := range comp {
		local[a] = i
	}
	dist := make([][]int, len(comp))
	for i, src := range comp {
		d := make([]int, len(comp))
		for j := range d {
			d[j] = -1
		}
		d[i] = 0
		queue := []int{src}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, nb := range m.Neighbors(v) {
				if j, ok := local[nb]; ok && d[j] < 0 {
					d[j] = d[local[v]] + 1
					queue = append(queue, nb)
				}
			}
		}
		dist[i] = d
	}
	return dist
}
