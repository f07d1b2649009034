package geometry

// Kind discriminates the entity variants a graph can hold. Each kind owns
// exactly one collection inside a Graph; an id may never appear under two
// different kinds.
type Kind string

const (
	KindLevel   Kind = "level"
	KindSpace   Kind = "space"
	KindWall    Kind = "wall"
	KindDoor    Kind = "door"
	KindFixture Kind = "fixture"
)

// Point is a 2D coordinate. CAD-side payloads label the axes ({"x":..,"y":..}),
// export payloads use a two-element sequence; both collapse to this.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Provenance links an entity back to the system it was ingested from.
type Provenance struct {
	System   string         `json:"system"`
	SourceID string         `json:"source_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

func (p *Provenance) clone() *Provenance {
	if p == nil {
		return nil
	}
	return &Provenance{System: p.System, SourceID: p.SourceID, Meta: cloneMap(p.Meta)}
}

// Level is a horizontal slice of a building (a storey or site datum).
type Level struct {
	ID         string
	Name       string
	Elevation  float64
	Height     *float64
	Provenance *Provenance
	Metadata   map[string]any
}

// Space is a bounded area on a level. The boundary polygon may be empty for
// spaces whose outline was not captured upstream.
type Space struct {
	ID         string
	Name       string
	LevelID    string
	Boundary   []Point
	WallIDs    []string
	Provenance *Provenance
	Metadata   map[string]any
}

// Wall is a linear element between two points. LevelID is optional; walls
// spanning levels arrive without one.
type Wall struct {
	ID         string
	Name       string
	Start      Point
	End        Point
	Thickness  *float64
	LevelID    string
	SpaceIDs   []string
	Provenance *Provenance
	Metadata   map[string]any
}

// Door is an opening placed along a wall. Position is a scalar distance from
// the wall's start point.
type Door struct {
	ID         string
	Name       string
	WallID     string
	Position   float64
	Width      *float64
	Swing      string
	LevelID    string
	Provenance *Provenance
	Metadata   map[string]any
}

// Fixture is a point element (sanitary, electrical, furniture) on a level.
type Fixture struct {
	ID         string
	Name       string
	Category   string
	Location   Point
	LevelID    string
	Provenance *Provenance
	Metadata   map[string]any
}

// Relationship is a typed directed edge between two entities of any kind.
// Its identity is the (Type, SourceID, TargetID) triple; inserting the same
// triple twice merges the attribute maps instead of duplicating the edge.
type Relationship struct {
	Type     string
	SourceID string
	TargetID string
	Attrs    map[string]any
}

type relKey struct {
	relType  string
	sourceID string
	targetID string
}

func (r *Relationship) key() relKey {
	return relKey{relType: r.Type, sourceID: r.SourceID, targetID: r.TargetID}
}

func (l *Level) clone() *Level {
	c := *l
	c.Height = cloneFloat(l.Height)
	c.Provenance = l.Provenance.clone()
	c.Metadata = cloneMap(l.Metadata)
	return &c
}

func (s *Space) clone() *Space {
	c := *s
	c.Boundary = clonePoints(s.Boundary)
	c.WallIDs = cloneStrings(s.WallIDs)
	c.Provenance = s.Provenance.clone()
	c.Metadata = cloneMap(s.Metadata)
	return &c
}

func (w *Wall) clone() *Wall {
	c := *w
	c.Thickness = cloneFloat(w.Thickness)
	c.SpaceIDs = cloneStrings(w.SpaceIDs)
	c.Provenance = w.Provenance.clone()
	c.Metadata = cloneMap(w.Metadata)
	return &c
}

func (d *Door) clone() *Door {
	c := *d
	c.Width = cloneFloat(d.Width)
	c.Provenance = d.Provenance.clone()
	c.Metadata = cloneMap(d.Metadata)
	return &c
}

func (f *Fixture) clone() *Fixture {
	c := *f
	c.Provenance = f.Provenance.clone()
	c.Metadata = cloneMap(f.Metadata)
	return &c
}

func (r *Relationship) clone() *Relationship {
	c := *r
	c.Attrs = cloneMap(r.Attrs)
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func clonePoints(p []Point) []Point {
	if p == nil {
		return nil
	}
	out := make([]Point, len(p))
	copy(out, p)
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
