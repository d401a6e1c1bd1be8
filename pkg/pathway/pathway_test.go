package pathway

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func loadFixture(t *testing.T) Graph {
	t.Helper()
	g, err := ReadFile("testdata/rp_1_1.json")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return g
}

func TestDecodeFixture(t *testing.T) {
	g := loadFixture(t)

	if g.ID != "rp_1_1" || !g.Directed || !g.Multigraph || g.Steps != 2 {
		t.Errorf("header = %+v", g)
	}
	if len(g.Nodes) != 9 || len(g.Links) != 11 {
		t.Fatalf("got %d nodes, %d links; want 9, 11", len(g.Nodes), len(g.Links))
	}
	if n := len(g.Compounds()); n != 7 {
		t.Errorf("Compounds() = %d, want 7", n)
	}
	if n := len(g.Transformations()); n != 2 {
		t.Errorf("Transformations() = %d, want 2", n)
	}

	water, ok := g.Node("MNXM2")
	if !ok || !water.Auxiliary || water.Kind != KindCompound {
		t.Errorf("MNXM2 = %+v", water)
	}
	if water.Structure() != "O" {
		t.Errorf("Structure() = %q", water.Structure())
	}
	if g.Links[10].Role != RoleProduct || g.Links[10].Stoichiometry != 2 {
		t.Errorf("last link = %+v", g.Links[10])
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"metabolite", KindCompound},
		{"species", KindCompound},
		{"Compound", KindCompound},
		{"reaction", KindTransformation},
		{"transformation", KindTransformation},
		{"gene", Kind("gene")},
		{"", Kind("")},
	}
	for _, tt := range tests {
		if got := ParseKind(tt.in); got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if Kind("gene").Known() {
		t.Error("gene should not be a known kind")
	}
}

func TestLabel(t *testing.T) {
	if got := (Node{ID: "RP1", Name: "  "}).Label(); got != "RP1" {
		t.Errorf("Label() = %q, want id fallback", got)
	}
	if got := (Node{ID: "RP2", Name: "dehydrogenase"}).Label(); got != "dehydrogenase" {
		t.Errorf("Label() = %q", got)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	g := loadFixture(t)
	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Contains(data, []byte(`"type":"metabolite"`)) || !bytes.Contains(data, []byte(`"is_cofactor":true`)) {
		t.Errorf("wire format not preserved: %s", data)
	}
	back, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(back, g) {
		t.Error("round trip changed the graph")
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"nodes": [`)); err == nil {
		t.Error("Decode should fail on truncated input")
	}
}

func TestFilterHidesAuxiliary(t *testing.T) {
	g := loadFixture(t)
	filtered := Filter(g, FilterOptions{ShowAuxiliary: false})

	if len(filtered.Nodes) != 5 {
		t.Errorf("nodes = %d, want 5", len(filtered.Nodes))
	}
	if len(filtered.Links) != 4 {
		t.Errorf("links = %d, want 4", len(filtered.Links))
	}
	for _, n := range filtered.Nodes {
		if n.Auxiliary {
			t.Errorf("auxiliary node %s survived", n.ID)
		}
	}
	ids := nodeSet(filtered.Nodes)
	for _, e := range filtered.Links {
		if _, ok := ids[e.Source]; !ok {
			t.Errorf("dangling source %s", e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			t.Errorf("dangling target %s", e.Target)
		}
	}
}

func TestFilterShowAuxiliaryIsIdentity(t *testing.T) {
	g := loadFixture(t)
	if got := Filter(g, FilterOptions{ShowAuxiliary: true}); !reflect.DeepEqual(got, g) {
		t.Error("Filter with ShowAuxiliary should return an equal graph")
	}
}

func TestFilterIsPureAndIdempotent(t *testing.T) {
	g := loadFixture(t)
	before := g.Clone()

	once := Filter(g, FilterOptions{})
	twice := Filter(once, FilterOptions{})

	if !reflect.DeepEqual(g, before) {
		t.Error("Filter mutated its input")
	}
	if !reflect.DeepEqual(once, twice) {
		t.Error("Filter is not idempotent")
	}
}

func TestFilterKeepsAuxiliaryTransformations(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "A", Kind: KindCompound},
			{ID: "R", Kind: KindTransformation, Auxiliary: true},
		},
		Links: []Edge{{Source: "A", Target: "R"}},
	}
	if got := Filter(g, FilterOptions{}); len(got.Nodes) != 2 || len(got.Links) != 1 {
		t.Errorf("only compounds are auxiliary-filtered, got %+v", got)
	}
}

func TestPrune(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "A", Kind: KindCompound},
			{ID: "G", Kind: Kind("gene")},
			{ID: "R", Kind: KindTransformation},
		},
		Links: []Edge{
			{Source: "A", Target: "R"},
			{Source: "G", Target: "R"},
			{Source: "R", Target: "MISSING"},
		},
	}

	pruned, skipped := Prune(g)
	if len(skipped) != 1 || skipped[0].ID != "G" {
		t.Errorf("skipped = %+v, want [G]", skipped)
	}
	if len(pruned.Nodes) != 2 || len(pruned.Links) != 1 {
		t.Errorf("pruned = %+v", pruned)
	}
	if len(g.Nodes) != 3 || len(g.Links) != 3 {
		t.Error("Prune mutated its input")
	}
}

func TestReactions(t *testing.T) {
	rows := Reactions(loadFixture(t))
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	rp1 := rows[0]
	if rp1.ID != "RP1" || rp1.Label != "RP1" || rp1.RPID != "RP1" {
		t.Errorf("RP1 row = %+v", rp1)
	}
	if rp1.StepText() != "2" || rp1.ScoreText() != "0.683" {
		t.Errorf("RP1 step=%q score=%q", rp1.StepText(), rp1.ScoreText())
	}
	if want := []string{"1.2.1.3", "1.2.1.4"}; !reflect.DeepEqual(rows[1].ECCodes, want) {
		t.Errorf("RP2 EC codes = %v, want %v", rows[1].ECCodes, want)
	}
	if rows[1].ScoreText() != "0.913" {
		t.Errorf("RP2 score = %q", rows[1].ScoreText())
	}
}

func TestReactionsMissingAnnotations(t *testing.T) {
	rows := Reactions(Graph{Nodes: []Node{{ID: "R", Kind: KindTransformation}}})
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Step != nil || rows[0].Score != nil || rows[0].ECCodes != nil {
		t.Errorf("row = %+v, want empty fields", rows[0])
	}
	if rows[0].ScoreText() != "" || rows[0].StepText() != "" {
		t.Error("missing values should format as empty strings")
	}
}
