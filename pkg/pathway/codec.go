package pathway

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type wireGraph struct {
	ID         string     `json:"id,omitempty"`
	Directed   bool       `json:"directed"`
	Multigraph bool       `json:"multigraph"`
	Steps      int        `json:"steps,omitempty"`
	Nodes      []wireNode `json:"nodes"`
	Links      []wireEdge `json:"links"`
}

type wireNode struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Name       string         `json:"name,omitempty"`
	IsCofactor bool           `json:"is_cofactor,omitempty"`
	Annotation map[string]any `json:"annotation,omitempty"`
}

type wireEdge struct {
	Source        string  `json:"source"`
	Target        string  `json:"target"`
	Role          Role    `json:"role,omitempty"`
	Stoichiometry float64 `json:"stoichiometry,omitempty"`
}

// UnmarshalJSON decodes the backend's node-link document.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*g = Graph{
		ID:         w.ID,
		Directed:   w.Directed,
		Multigraph: w.Multigraph,
		Steps:      w.Steps,
		Nodes:      make([]Node, len(w.Nodes)),
		Links:      make([]Edge, len(w.Links)),
	}
	for i, n := range w.Nodes {
		g.Nodes[i] = Node{
			ID:         n.ID,
			Kind:       ParseKind(n.Type),
			Name:       n.Name,
			Auxiliary:  n.IsCofactor,
			Annotation: n.Annotation,
		}
	}
	for i, e := range w.Links {
		g.Links[i] = Edge(e)
	}
	return nil
}

// MarshalJSON encodes g in the backend's wire format.
func (g Graph) MarshalJSON() ([]byte, error) {
	w := wireGraph{
		ID:         g.ID,
		Directed:   g.Directed,
		Multigraph: g.Multigraph,
		Steps:      g.Steps,
		Nodes:      make([]wireNode, len(g.Nodes)),
		Links:      make([]wireEdge, len(g.Links)),
	}
	for i, n := range g.Nodes {
		w.Nodes[i] = wireNode{
			ID:         n.ID,
			Type:       n.Kind.wire(),
			Name:       n.Name,
			IsCofactor: n.Auxiliary,
			Annotation: n.Annotation,
		}
	}
	for i, e := range g.Links {
		w.Links[i] = wireEdge(e)
	}
	return json.Marshal(w)
}

// Decode reads one graph document from r. Unknown node types are kept
// and are not an error.
func Decode(r io.Reader) (Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return Graph{}, fmt.Errorf("decode pathway: %w", err)
	}
	return g, nil
}

// ReadFile decodes the graph stored at path.
func ReadFile(path string) (Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return Graph{}, err
	}
	defer f.Close()
	g, err := Decode(f)
	if err != nil {
		return Graph{}, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
