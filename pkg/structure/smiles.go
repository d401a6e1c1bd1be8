package structure

import (
	"fmt"
	"strings"
)

// ParseError reports malformed SMILES. Pos is the byte offset of the
// offending character.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("smiles %q: %s at offset %d", e.Input, e.Msg, e.Pos)
}

type ringOpen struct {
	atom  int
	order BondOrder
	set   bool
	pos   int
}

type parser struct {
	in      string
	pos     int
	mol     *Molecule
	prev    int
	bond    BondOrder
	bondSet bool
	bondPos int
	stack   []int
	rings   map[int]ringOpen
}

// Parse reads a SMILES string. Stereo marks are accepted and ignored.
func Parse(s string) (*Molecule, error) {
	p := &parser{
		in:    strings.TrimSpace(s),
		mol:   &Molecule{},
		prev:  -1,
		rings: map[int]ringOpen{},
	}
	if p.in == "" {
		return nil, &ParseError{Input: s, Msg: "empty string"}
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	p.mol.assignHydrogens()
	return p.mol, nil
}

func (p *parser) fail(pos int, format string, args ...any) error {
	return &ParseError{Input: p.in, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) run() error {
	for p.pos < len(p.in) {
		c := p.in[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.fail(p.pos, "branch without atom")
			}
			if p.bondSet {
				return p.fail(p.bondPos, "bond before branch")
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return p.fail(p.pos, "unbalanced ')'")
			}
			if p.bondSet {
				return p.fail(p.bondPos, "dangling bond")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case c == '.':
			if p.bondSet {
				return p.fail(p.bondPos, "dangling bond")
			}
			p.prev = -1
			p.pos++
		case strings.IndexByte(`-=#$:/\`, c) >= 0:
			if p.prev < 0 {
				return p.fail(p.pos, "bond without atom")
			}
			if p.bondSet {
				return p.fail(p.pos, "consecutive bonds")
			}
			p.bond, p.bondSet, p.bondPos = bondSymbol(c), true, p.pos
			p.pos++
		case c == '%' || (c >= '0' && c <= '9'):
			if err := p.ringClosure(); err != nil {
				return err
			}
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}
	if p.bondSet {
		return p.fail(p.bondPos, "dangling bond")
	}
	if len(p.stack) > 0 {
		return p.fail(len(p.in), "unclosed branch")
	}
	if len(p.rings) > 0 {
		first, num := len(p.in), 0
		for n, r := range p.rings {
			if r.pos < first {
				first, num = r.pos, n
			}
		}
		return p.fail(first, "unclosed ring %d", num)
	}
	return nil
}

func bondSymbol(c byte) BondOrder {
	switch c {
	case '=':
		return BondDouble
	case '#':
		return BondTriple
	case '$':
		return BondQuadruple
	case ':':
		return BondAromatic
	default:
		return BondSingle
	}
}

// attach adds atom a and bonds it to the previous atom.
func (p *parser) attach(a Atom) {
	i := p.mol.addAtom(a)
	if p.prev >= 0 {
		order := p.bond
		if !p.bondSet {
			order = p.implicitOrder(p.prev, i)
		}
		p.mol.addBond(Bond{A: p.prev, B: i, Order: order})
	}
	p.prev, p.bondSet = i, false
}

func (p *parser) implicitOrder(a, b int) BondOrder {
	if p.mol.Atoms[a].Aromatic && p.mol.Atoms[b].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

func (p *parser) ringClosure() error {
	start := p.pos
	if p.prev < 0 {
		return p.fail(start, "ring bond without atom")
	}
	var n int
	if p.in[p.pos] == '%' {
		if p.pos+2 >= len(p.in) || !isDigit(p.in[p.pos+1]) || !isDigit(p.in[p.pos+2]) {
			return p.fail(start, "malformed ring number")
		}
		n = int(p.in[p.pos+1]-'0')*10 + int(p.in[p.pos+2]-'0')
		p.pos += 3
	} else {
		n = int(p.in[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[n]
	if !ok {
		p.rings[n] = ringOpen{atom: p.prev, order: p.bond, set: p.bondSet, pos: start}
		p.bondSet = false
		return nil
	}
	delete(p.rings, n)
	if open.atom == p.prev {
		return p.fail(start, "ring %d closes on itself", n)
	}
	if p.mol.bonded(open.atom, p.prev) {
		return p.fail(start, "ring %d duplicates a bond", n)
	}
	var order BondOrder
	switch {
	case p.bondSet && open.set && p.bond != open.order:
		return p.fail(start, "conflicting ring bond orders")
	case p.bondSet:
		order = p.bond
	case open.set:
		order = open.order
	default:
		order = p.implicitOrder(open.atom, p.prev)
	}
	p.mol.addBond(Bond{A: open.atom, B: p.prev, Order: order, Ring: true})
	p.bondSet = false
	return nil
}

func (p *parser) organicAtom() error {
	c := p.in[p.pos]
	switch {
	case c == '*':
		p.pos++
		p.attach(Atom{Element: "*"})
		return nil
	case c == 'C' && p.peek(1) == 'l', c == 'B' && p.peek(1) == 'r':
		p.attach(Atom{Element: p.in[p.pos : p.pos+2]})
		p.pos += 2
		return nil
	case organic[string(c)]:
		p.attach(Atom{Element: string(c)})
		p.pos++
		return nil
	case aromaticSymbols[string(c)]:
		p.attach(Atom{Element: strings.ToUpper(string(c)), Aromatic: true})
		p.pos++
		return nil
	default:
		return p.fail(p.pos, "unexpected character %q", c)
	}
}

func (p *parser) peek(off int) byte {
	if p.pos+off < len(p.in) {
		return p.in[p.pos+off]
	}
	return 0
}

// bracketAtom parses [isotope symbol chirality hcount charge class].
func (p *parser) bracketAtom() error {
	start := p.pos
	end := strings.IndexByte(p.in[p.pos:], ']')
	if end < 0 {
		return p.fail(start, "unclosed bracket")
	}
	body := p.in[p.pos+1 : p.pos+end]
	p.pos += end + 1

	a := Atom{Bracket: true}
	i := 0
	fail := func(msg string) error { return p.fail(start+1+i, "%s", msg) }

	for i < len(body) && isDigit(body[i]) {
		a.Isotope = a.Isotope*10 + int(body[i]-'0')
		i++
	}

	switch {
	case i >= len(body):
		return fail("missing element")
	case body[i] == '*':
		a.Element = "*"
		i++
	case isLower(body[i]):
		if i+1 < len(body) && isLower(body[i+1]) {
			if _, ok := aromaticSymbols[body[i:i+2]]; ok {
				a.Element, a.Aromatic = strings.ToUpper(body[i:i+1])+body[i+1:i+2], true
				i += 2
				break
			}
		}
		if !aromaticSymbols[body[i:i+1]] {
			return fail("unknown aromatic element")
		}
		a.Element, a.Aromatic = strings.ToUpper(body[i:i+1]), true
		i++
	case isUpper(body[i]):
		if i+1 < len(body) && isLower(body[i+1]) && elements[body[i:i+2]] {
			a.Element = body[i : i+2]
			i += 2
		} else if elements[body[i:i+1]] {
			a.Element = body[i : i+1]
			i++
		} else {
			return fail("unknown element")
		}
	default:
		return fail("missing element")
	}

	// Chirality: @, @@ and the @TH1 / @SP2 style classes.
	if i < len(body) && body[i] == '@' {
		for i < len(body) && body[i] == '@' {
			i++
		}
		for i+1 < len(body) && isUpper(body[i]) && isUpper(body[i+1]) {
			i += 2
			for i < len(body) && isDigit(body[i]) {
				i++
			}
		}
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.Hydrogens = 1
		if i < len(body) && isDigit(body[i]) {
			a.Hydrogens = int(body[i] - '0')
			i++
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		sym := body[i]
		i++
		switch {
		case i < len(body) && isDigit(body[i]):
			n := 0
			for i < len(body) && isDigit(body[i]) {
				n = n*10 + int(body[i]-'0')
				i++
			}
			a.Charge = sign * n
		default:
			n := 1
			for i < len(body) && body[i] == sym {
				n++
				i++
			}
			a.Charge = sign * n
		}
	}

	if i < len(body) && body[i] == ':' {
		i++
		if i >= len(body) || !isDigit(body[i]) {
			return fail("malformed atom class")
		}
		for i < len(body) && isDigit(body[i]) {
			a.Class = a.Class*10 + int(body[i]-'0')
			i++
		}
	}

	if i != len(body) {
		return fail("unexpected character in bracket atom")
	}
	p.attach(a)
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
