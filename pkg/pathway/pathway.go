// Package pathway models the reaction networks produced by the pathway
// prediction backend.
//
// A [Graph] is bipartite in practice: compound nodes (metabolites) are
// connected to transformation nodes (reactions) by reactant and product
// edges. Compounds flagged as auxiliary are cofactors such as water, ATP
// or protons which are usually hidden.
//
// The package is pure data: decoding, filtering and table extraction never
// touch the network and never mutate their inputs.
package pathway

import (
	"strings"
)

// Kind is the type tag of a node. Backend aliases are normalised by
// [ParseKind]; unrecognised tags are preserved verbatim so they can be
// reported.
type Kind string

const (
	KindCompound       Kind = "compound"
	KindTransformation Kind = "transformation"
)

// ParseKind maps a wire type tag to a Kind.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "metabolite", "compound", "species":
		return KindCompound
	case "reaction", "transformation":
		return KindTransformation
	default:
		return Kind(s)
	}
}

// Known reports whether k is one of the two supported kinds.
func (k Kind) Known() bool {
	return k == KindCompound || k == KindTransformation
}

// wire returns the tag the backend uses for k.
func (k Kind) wire() string {
	switch k {
	case KindCompound:
		return "metabolite"
	case KindTransformation:
		return "reaction"
	default:
		return string(k)
	}
}

// Role is the part a compound plays in a transformation.
type Role string

const (
	RoleReactant Role = "reactant"
	RoleProduct  Role = "product"
)

// Annotation keys used by the backend.
const (
	AnnotationSMILES   = "smiles"
	AnnotationInChI    = "inchi"
	AnnotationInChIKey = "inchikey"
	AnnotationECCode   = "ec-code"
	AnnotationRPID     = "rp_id"
	AnnotationRPStep   = "rp_step"
	AnnotationRPScore  = "rp_score"
)

// Node is a compound or transformation.
type Node struct {
	ID         string
	Kind       Kind
	Name       string
	Auxiliary  bool
	Annotation map[string]any
}

// Label returns the display label: the name when set, otherwise the id.
func (n Node) Label() string {
	if strings.TrimSpace(n.Name) != "" {
		return n.Name
	}
	return n.ID
}

// Structure returns the SMILES string of a compound, or "".
func (n Node) Structure() string {
	s, _ := n.Annotation[AnnotationSMILES].(string)
	return strings.TrimSpace(s)
}

// Edge connects a compound and a transformation. Multiple edges between the
// same pair are allowed.
type Edge struct {
	Source        string
	Target        string
	Role          Role
	Stoichiometry float64
}

// Graph is one predicted pathway.
type Graph struct {
	ID         string
	Directed   bool
	Multigraph bool
	Steps      int
	Nodes      []Node
	Links      []Edge
}

// Node looks up a node by id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Compounds returns the compound nodes in input order.
func (g Graph) Compounds() []Node { return g.ofKind(KindCompound) }

// Transformations returns the transformation nodes in input order.
func (g Graph) Transformations() []Node { return g.ofKind(KindTransformation) }

func (g Graph) ofKind(k Kind) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns a copy that shares no slices or annotation maps with g.
func (g Graph) Clone() Graph {
	out := g
	if g.Nodes == nil {
		out.Links = append([]Edge(nil), g.Links...)
		return out
	}
	out.Nodes = make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.Annotation != nil {
			ann := make(map[string]any, len(n.Annotation))
			for k, v := range n.Annotation {
				ann[k] = v
			}
			n.Annotation = ann
		}
		out.Nodes[i] = n
	}
	out.Links = append([]Edge(nil), g.Links...)
	return out
}
