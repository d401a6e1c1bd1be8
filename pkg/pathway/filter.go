package pathway

// FilterOptions controls [Filter].
type FilterOptions struct {
	// ShowAuxiliary keeps cofactor compounds.
	ShowAuxiliary bool
}

// Filter returns the graph to display. With ShowAuxiliary the result equals
// g; otherwise auxiliary compounds are removed together with every edge
// that touches a removed node. The input is never modified and Filter is
// idempotent.
func Filter(g Graph, opts FilterOptions) Graph {
	out := g.Clone()
	if opts.ShowAuxiliary {
		return out
	}

	kept := out.Nodes[:0]
	for _, n := range out.Nodes {
		if n.Kind == KindCompound && n.Auxiliary {
			continue
		}
		kept = append(kept, n)
	}
	out.Nodes = kept
	out.Links = retainEdges(out.Links, nodeSet(out.Nodes))
	return out
}

// Prune removes nodes whose kind is not recognised and every edge whose
// endpoints are not both present. The removed nodes are returned in input
// order so the caller can report them. After Prune every edge references
// retained nodes.
func Prune(g Graph) (Graph, []Node) {
	out := g.Clone()

	var skipped []Node
	kept := out.Nodes[:0]
	for _, n := range out.Nodes {
		if !n.Kind.Known() {
			skipped = append(skipped, n)
			continue
		}
		kept = append(kept, n)
	}
	out.Nodes = kept
	out.Links = retainEdges(out.Links, nodeSet(out.Nodes))
	return out, skipped
}

func nodeSet(nodes []Node) map[string]struct{} {
	set := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		set[n.ID] = struct{}{}
	}
	return set
}

func retainEdges(edges []Edge, nodes map[string]struct{}) []Edge {
	kept := edges[:0]
	for _, e := range edges {
		_, src := nodes[e.Source]
		_, dst := nodes[e.Target]
		if src && dst {
			kept = append(kept, e)
		}
	}
	return kept
}
