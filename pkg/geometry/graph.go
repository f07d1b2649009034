package geometry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ValidationError reports a structural violation in a graph: a duplicate id,
// a dangling cross-reference, or a malformed field. It always names the
// offending entity and, for dangling references, the id that failed to
// resolve.
type ValidationError struct {
	ID  string
	Ref string
	Msg string
}

func (e *ValidationError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s: entity %q references missing %q", e.Msg, e.ID, e.Ref)
	}
	if e.ID != "" {
		return fmt.Sprintf("%s: entity %q", e.Msg, e.ID)
	}
	return e.Msg
}

func duplicateErr(id string) error {
	return &ValidationError{ID: id, Msg: "duplicate id"}
}

func danglingErr(id, ref, what string) error {
	return &ValidationError{ID: id, Ref: ref, Msg: "unresolved " + what + " reference"}
}

// Graph is the validated in-memory representation of building geometry.
// It owns one insertion-ordered collection per entity kind plus a
// relationship list, and enforces global id uniqueness across kinds.
type Graph struct {
	levels   []*Level
	spaces   []*Space
	walls    []*Wall
	doors    []*Door
	fixtures []*Fixture

	kinds    map[string]Kind
	relIndex map[relKey]int

	relationships []*Relationship
}

func NewGraph() *Graph {
	return &Graph{
		kinds:    make(map[string]Kind),
		relIndex: make(map[relKey]int),
	}
}

// KindOf reports which collection owns the given id.
func (g *Graph) KindOf(id string) (Kind, bool) {
	k, ok := g.kinds[id]
	return k, ok
}

// Contains reports whether any entity in the graph carries the given id.
func (g *Graph) Contains(id string) bool {
	_, ok := g.kinds[id]
	return ok
}

func (g *Graph) register(id string, kind Kind) error {
	if id == "" {
		return &ValidationError{Msg: "entity id must not be empty"}
	}
	if _, exists := g.kinds[id]; exists {
		return duplicateErr(id)
	}
	g.kinds[id] = kind
	return nil
}

func (g *Graph) AddLevel(l *Level) error {
	if err := g.register(l.ID, KindLevel); err != nil {
		return err
	}
	g.levels = append(g.levels, l)
	return nil
}

func (g *Graph) AddSpace(s *Space) error {
	if err := g.register(s.ID, KindSpace); err != nil {
		return err
	}
	g.spaces = append(g.spaces, s)
	return nil
}

func (g *Graph) AddWall(w *Wall) error {
	if err := g.register(w.ID, KindWall); err != nil {
		return err
	}
	g.walls = append(g.walls, w)
	return nil
}

func (g *Graph) AddDoor(d *Door) error {
	if err := g.register(d.ID, KindDoor); err != nil {
		return err
	}
	g.doors = append(g.doors, d)
	return nil
}

func (g *Graph) AddFixture(f *Fixture) error {
	if err := g.register(f.ID, KindFixture); err != nil {
		return err
	}
	g.fixtures = append(g.fixtures, f)
	return nil
}

// AddRelationship inserts a typed edge. Both endpoints must already exist in
// the graph. Inserting an edge whose (type, source, target) triple is already
// present merges the attribute maps into the existing edge, new values
// winning per key.
func (g *Graph) AddRelationship(r *Relationship) error {
	if r.Type == "" {
		return &ValidationError{ID: r.SourceID, Msg: "relationship type must not be empty"}
	}
	if !g.Contains(r.SourceID) {
		return danglingErr(r.SourceID, r.SourceID, "relationship source")
	}
	if !g.Contains(r.TargetID) {
		return danglingErr(r.SourceID, r.TargetID, "relationship target")
	}

	key := r.key()
	if idx, ok := g.relIndex[key]; ok {
		existing := g.relationships[idx]
		if len(r.Attrs) > 0 {
			if existing.Attrs == nil {
				existing.Attrs = make(map[string]any, len(r.Attrs))
			}
			for k, v := range r.Attrs {
				existing.Attrs[k] = v
			}
		}
		return nil
	}

	g.relIndex[key] = len(g.relationships)
	g.relationships = append(g.relationships, r)
	return nil
}

func (g *Graph) Levels() []*Level        { return g.levels }
func (g *Graph) Spaces() []*Space        { return g.spaces }
func (g *Graph) Walls() []*Wall          { return g.walls }
func (g *Graph) Doors() []*Door          { return g.doors }
func (g *Graph) Fixtures() []*Fixture    { return g.fixtures }
func (g *Graph) Relationships() []*Relationship { return g.relationships }

// EntityCount is the number of entities across all five collections.
func (g *Graph) EntityCount() int {
	return len(g.levels) + len(g.spaces) + len(g.walls) + len(g.doors) + len(g.fixtures)
}

func (g *Graph) hasKind(id string, kind Kind) bool {
	k, ok := g.kinds[id]
	return ok && k == kind
}

// ValidateIntegrity re-checks every cross-reference invariant independently
// of insertion order: Space→Level, Space→Wall, Wall→Level, Wall→Space,
// Door→Wall, Door→Level, Fixture→Level, and both relationship endpoints.
func (g *Graph) ValidateIntegrity() error {
	for _, s := range g.spaces {
		if !g.hasKind(s.LevelID, KindLevel) {
			return danglingErr(s.ID, s.LevelID, "level")
		}
		for _, wid := range s.WallIDs {
			if !g.hasKind(wid, KindWall) {
				return danglingErr(s.ID, wid, "wall")
			}
		}
	}
	for _, w := range g.walls {
		if w.LevelID != "" && !g.hasKind(w.LevelID, KindLevel) {
			return danglingErr(w.ID, w.LevelID, "level")
		}
		for _, sid := range w.SpaceIDs {
			if !g.hasKind(sid, KindSpace) {
				return danglingErr(w.ID, sid, "space")
			}
		}
	}
	for _, d := range g.doors {
		if d.WallID != "" && !g.hasKind(d.WallID, KindWall) {
			return danglingErr(d.ID, d.WallID, "wall")
		}
		if d.LevelID != "" && !g.hasKind(d.LevelID, KindLevel) {
			return danglingErr(d.ID, d.LevelID, "level")
		}
	}
	for _, f := range g.fixtures {
		if f.LevelID != "" && !g.hasKind(f.LevelID, KindLevel) {
			return danglingErr(f.ID, f.LevelID, "level")
		}
	}
	for _, r := range g.relationships {
		if !g.Contains(r.SourceID) {
			return danglingErr(r.SourceID, r.SourceID, "relationship source")
		}
		if !g.Contains(r.TargetID) {
			return danglingErr(r.SourceID, r.TargetID, "relationship target")
		}
	}
	return nil
}

// Fingerprint is a stable hash over the graph's canonical serialized form,
// used for change detection between ingestion runs.
func (g *Graph) Fingerprint() (string, error) {
	data, err := json.Marshal(NewSerializer().ToExport(g))
	if err != nil {
		return "", fmt.Errorf("failed to serialize graph for fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
