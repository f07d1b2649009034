package geometry

import "testing"

func twoLevelGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	if err := g.AddLevel(&Level{ID: "L1"}); err != nil {
		t.Fatalf("add L1: %v", err)
	}
	if err := g.AddLevel(&Level{ID: "L2", Elevation: 3.2}); err != nil {
		t.Fatalf("add L2: %v", err)
	}
	return g
}

func TestAddRelationship_DuplicateMergesAttrs(t *testing.T) {
	g := twoLevelGraph(t)

	first := &Relationship{
		Type: "adjacent", SourceID: "L1", TargetID: "L2",
		Attrs: map[string]any{"via": "stair", "rank": 1},
	}
	if err := g.AddRelationship(first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second := &Relationship{
		Type: "adjacent", SourceID: "L1", TargetID: "L2",
		Attrs: map[string]any{"via": "lift"},
	}
	if err := g.AddRelationship(second); err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}

	rels := g.Relationships()
	if len(rels) != 1 {
		t.Fatalf("expected 1 relationship after duplicate insert, got %d", len(rels))
	}
	if got := rels[0].Attrs["via"]; got != "lift" {
		t.Errorf("expected new attribute value to win, got %v", got)
	}
	if got := rels[0].Attrs["rank"]; got != 1 {
		t.Errorf("expected untouched attribute retained, got %v", got)
	}
}

func TestAddRelationship_DistinctTypesCoexist(t *testing.T) {
	g := twoLevelGraph(t)

	for _, relType := range []string{"adjacent", "above"} {
		if err := g.AddRelationship(&Relationship{Type: relType, SourceID: "L1", TargetID: "L2"}); err != nil {
			t.Fatalf("insert %s: %v", relType, err)
		}
	}
	if got := len(g.Relationships()); got != 2 {
		t.Fatalf("expected 2 relationships, got %d", got)
	}
}

func TestAddRelationship_RejectsMissingEndpoints(t *testing.T) {
	g := twoLevelGraph(t)

	if err := g.AddRelationship(&Relationship{Type: "adjacent", SourceID: "L1", TargetID: "L9"}); err == nil {
		t.Fatal("expected error for missing target")
	}
	if err := g.AddRelationship(&Relationship{Type: "adjacent", SourceID: "L9", TargetID: "L1"}); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestRegister_DuplicateAcrossKinds(t *testing.T) {
	g := NewGraph()
	if err := g.AddLevel(&Level{ID: "X"}); err != nil {
		t.Fatalf("add level: %v", err)
	}
	err := g.AddWall(&Wall{ID: "X"})
	if err == nil {
		t.Fatal("expected duplicate id error across kinds")
	}
	if g.EntityCount() != 1 {
		t.Fatalf("failed insert must not grow the graph, count=%d", g.EntityCount())
	}
}

func TestFingerprint_Stability(t *testing.T) {
	g, err := BuildFromPayload(validPayload())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	fp1, err := g.Fingerprint()
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	fp2, err := g.Fingerprint()
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if fp1 != fp2 {
		t.Fatalf("fingerprint not stable: %s != %s", fp1, fp2)
	}

	other, err := BuildFromPayload(map[string]any{
		"levels": []any{map[string]any{"id": "L1", "elevation": 1.0}},
	})
	if err != nil {
		t.Fatalf("build other: %v", err)
	}
	fp3, err := other.Fingerprint()
	if err != nil {
		t.Fatalf("fingerprint other: %v", err)
	}
	if fp1 == fp3 {
		t.Fatal("different graphs must not share a fingerprint")
	}
}
