package geometry

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Field aliases accepted from loosely-typed CAD payloads. Resolution happens
// once, at the builder boundary, into the typed records in entity.go; nothing
// past the builder ever sees an alias.
var (
	idAliases        = []string{"id", "uid", "guid"}
	nameAliases      = []string{"name", "label"}
	levelRefAliases  = []string{"level_id", "level"}
	boundaryAliases  = []string{"boundary", "polygon", "outline"}
	wallRefAliases   = []string{"wall_id", "wall"}
	wallListAliases  = []string{"wall_ids", "walls"}
	spaceListAliases = []string{"space_ids", "spaces"}
	startAliases     = []string{"start", "from"}
	endAliases       = []string{"end", "to"}
	positionAliases  = []string{"position", "offset"}
	swingAliases     = []string{"swing", "swing_direction"}
	categoryAliases  = []string{"category", "type"}
	locationAliases  = []string{"location", "point", "position"}
	relTypeAliases   = []string{"rel_type", "type", "relation"}
	relSourceAliases = []string{"source_id", "source", "from"}
	relTargetAliases = []string{"target_id", "target", "to"}
	attrsAliases     = []string{"attributes", "attrs", "properties"}
	provAliases      = []string{"provenance", "source_ref"}
	metadataAliases  = []string{"metadata", "meta"}
)

// GraphBuilder converts untyped CAD payloads into a validated Graph. Add
// methods resolve field aliases, coerce points and numerics, and insert typed
// entities; BuildFromPayload drives the fixed kind order and finishes with a
// full integrity pass.
type GraphBuilder struct {
	graph *Graph
}

func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{graph: NewGraph()}
}

// Graph returns the graph under construction.
func (b *GraphBuilder) Graph() *Graph {
	return b.graph
}

// BuildFromPayload processes levels, then walls, then spaces, then doors,
// then fixtures, then relationships — later kinds may reference earlier
// ones — and re-validates every cross-reference afterwards. The second pass
// exists because insertion order alone cannot guarantee all references were
// resolvable at insertion time in arbitrary payloads. On any violation no
// graph is returned.
func BuildFromPayload(payload map[string]any) (*Graph, error) {
	b := NewGraphBuilder()

	sections := []struct {
		key string
		add func(map[string]any) error
	}{
		{"levels", b.AddLevel},
		{"walls", b.AddWall},
		{"spaces", b.AddSpace},
		{"doors", b.AddDoor},
		{"fixtures", b.AddFixture},
		{"relationships", b.AddRelationship},
	}

	for _, section := range sections {
		items, err := payloadSection(payload, section.key)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if err := section.add(item); err != nil {
				return nil, err
			}
		}
	}

	if err := b.graph.ValidateIntegrity(); err != nil {
		return nil, err
	}
	return b.graph, nil
}

func payloadSection(payload map[string]any, key string) ([]map[string]any, error) {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := asList(raw)
	if !ok {
		return nil, &ValidationError{Msg: fmt.Sprintf("payload section %q must be a sequence", key)}
	}
	items := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, &ValidationError{Msg: fmt.Sprintf("payload section %q contains a non-mapping entry", key)}
		}
		items = append(items, m)
	}
	return items, nil
}

func (b *GraphBuilder) AddLevel(payload map[string]any) error {
	id, err := requireID(payload)
	if err != nil {
		return err
	}
	elevation, err := floatField(payload, id, "elevation", "elevation", "elev", "z")
	if err != nil {
		return err
	}
	height, err := optionalFloatField(payload, id, "height", "height")
	if err != nil {
		return err
	}
	meta, prov, err := commonFields(payload, id)
	if err != nil {
		return err
	}
	return b.graph.AddLevel(&Level{
		ID:         id,
		Name:       stringField(payload, nameAliases...),
		Elevation:  elevation,
		Height:     height,
		Provenance: prov,
		Metadata:   meta,
	})
}

func (b *GraphBuilder) AddSpace(payload map[string]any) error {
	id, err := requireID(payload)
	if err != nil {
		return err
	}
	levelID := stringField(payload, levelRefAliases...)
	if levelID == "" {
		return &ValidationError{ID: id, Msg: "space requires a level_id"}
	}
	if !b.graph.hasKind(levelID, KindLevel) {
		return danglingErr(id, levelID, "level")
	}
	boundary, err := pointsField(payload, id, boundaryAliases...)
	if err != nil {
		return err
	}
	wallIDs := stringListField(payload, wallListAliases...)
	for _, wid := range wallIDs {
		if !b.graph.hasKind(wid, KindWall) {
			return danglingErr(id, wid, "wall")
		}
	}
	meta, prov, err := commonFields(payload, id)
	if err != nil {
		return err
	}
	return b.graph.AddSpace(&Space{
		ID:         id,
		Name:       stringField(payload, nameAliases...),
		LevelID:    levelID,
		Boundary:   boundary,
		WallIDs:    wallIDs,
		Provenance: prov,
		Metadata:   meta,
	})
}

func (b *GraphBuilder) AddWall(payload map[string]any) error {
	id, err := requireID(payload)
	if err != nil {
		return err
	}
	start, err := pointField(payload, id, "start", startAliases...)
	if err != nil {
		return err
	}
	end, err := pointField(payload, id, "end", endAliases...)
	if err != nil {
		return err
	}
	thickness, err := optionalFloatField(payload, id, "thickness", "thickness")
	if err != nil {
		return err
	}
	levelID := stringField(payload, levelRefAliases...)
	if levelID != "" && !b.graph.hasKind(levelID, KindLevel) {
		return danglingErr(id, levelID, "level")
	}
	meta, prov, err := commonFields(payload, id)
	if err != nil {
		return err
	}
	// Wall→Space references may point at spaces that arrive later in the
	// payload; they are checked by the final integrity pass instead.
	return b.graph.AddWall(&Wall{
		ID:         id,
		Name:       stringField(payload, nameAliases...),
		Start:      start,
		End:        end,
		Thickness:  thickness,
		LevelID:    levelID,
		SpaceIDs:   stringListField(payload, spaceListAliases...),
		Provenance: prov,
		Metadata:   meta,
	})
}

func (b *GraphBuilder) AddDoor(payload map[string]any) error {
	id, err := requireID(payload)
	if err != nil {
		return err
	}
	wallID := stringField(payload, wallRefAliases...)
	if wallID != "" && !b.graph.hasKind(wallID, KindWall) {
		return danglingErr(id, wallID, "wall")
	}
	levelID := stringField(payload, levelRefAliases...)
	if levelID != "" && !b.graph.hasKind(levelID, KindLevel) {
		return danglingErr(id, levelID, "level")
	}
	position, err := floatFieldDefault(payload, id, "position", 0, positionAliases...)
	if err != nil {
		return err
	}
	width, err := optionalFloatField(payload, id, "width", "width")
	if err != nil {
		return err
	}
	meta, prov, err := commonFields(payload, id)
	if err != nil {
		return err
	}
	return b.graph.AddDoor(&Door{
		ID:         id,
		Name:       stringField(payload, nameAliases...),
		WallID:     wallID,
		Position:   position,
		Width:      width,
		Swing:      stringField(payload, swingAliases...),
		LevelID:    levelID,
		Provenance: prov,
		Metadata:   meta,
	})
}

func (b *GraphBuilder) AddFixture(payload map[string]any) error {
	id, err := requireID(payload)
	if err != nil {
		return err
	}
	levelID := stringField(payload, levelRefAliases...)
	if levelID != "" && !b.graph.hasKind(levelID, KindLevel) {
		return danglingErr(id, levelID, "level")
	}
	location, err := pointField(payload, id, "location", locationAliases...)
	if err != nil {
		return err
	}
	meta, prov, err := commonFields(payload, id)
	if err != nil {
		return err
	}
	return b.graph.AddFixture(&Fixture{
		ID:         id,
		Name:       stringField(payload, nameAliases...),
		Category:   stringField(payload, categoryAliases...),
		Location:   location,
		LevelID:    levelID,
		Provenance: prov,
		Metadata:   meta,
	})
}

func (b *GraphBuilder) AddRelationship(payload map[string]any) error {
	relType := stringField(payload, relTypeAliases...)
	if relType == "" {
		return &ValidationError{Msg: "relationship requires a rel_type"}
	}
	sourceID := stringField(payload, relSourceAliases...)
	targetID := stringField(payload, relTargetAliases...)
	if sourceID == "" || targetID == "" {
		return &ValidationError{ID: sourceID, Msg: "relationship requires source and target ids"}
	}
	attrs, err := mapField(payload, sourceID, attrsAliases...)
	if err != nil {
		return err
	}
	return b.graph.AddRelationship(&Relationship{
		Type:     relType,
		SourceID: sourceID,
		TargetID: targetID,
		Attrs:    attrs,
	})
}

func requireID(payload map[string]any) (string, error) {
	id := stringField(payload, idAliases...)
	if id == "" {
		return "", &ValidationError{Msg: "entity requires an id"}
	}
	return id, nil
}

func commonFields(payload map[string]any, id string) (map[string]any, *Provenance, error) {
	meta, err := mapField(payload, id, metadataAliases...)
	if err != nil {
		return nil, nil, err
	}
	prov, err := provenanceField(payload, id)
	if err != nil {
		return nil, nil, err
	}
	return meta, prov, nil
}

func firstValue(payload map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := payload[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(payload map[string]any, keys ...string) string {
	v, ok := firstValue(payload, keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}

func coerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func floatField(payload map[string]any, id, field string, keys ...string) (float64, error) {
	v, ok := firstValue(payload, keys...)
	if !ok {
		return 0, &ValidationError{ID: id, Msg: fmt.Sprintf("missing required field %q", field)}
	}
	f, ok := coerceFloat(v)
	if !ok {
		return 0, &ValidationError{ID: id, Msg: fmt.Sprintf("field %q is not numeric", field)}
	}
	return f, nil
}

func floatFieldDefault(payload map[string]any, id, field string, def float64, keys ...string) (float64, error) {
	v, ok := firstValue(payload, keys...)
	if !ok {
		return def, nil
	}
	f, ok := coerceFloat(v)
	if !ok {
		return 0, &ValidationError{ID: id, Msg: fmt.Sprintf("field %q is not numeric", field)}
	}
	return f, nil
}

func optionalFloatField(payload map[string]any, id, field string, keys ...string) (*float64, error) {
	v, ok := firstValue(payload, keys...)
	if !ok {
		return nil, nil
	}
	f, ok := coerceFloat(v)
	if !ok {
		return nil, &ValidationError{ID: id, Msg: fmt.Sprintf("field %q is not numeric", field)}
	}
	return &f, nil
}

func coercePoint(v any) (Point, bool) {
	switch p := v.(type) {
	case map[string]any:
		x, okX := coerceFloat(p["x"])
		y, okY := coerceFloat(p["y"])
		if okX && okY {
			return Point{X: x, Y: y}, true
		}
	case []any:
		if len(p) == 2 {
			x, okX := coerceFloat(p[0])
			y, okY := coerceFloat(p[1])
			if okX && okY {
				return Point{X: x, Y: y}, true
			}
		}
	case []float64:
		if len(p) == 2 {
			return Point{X: p[0], Y: p[1]}, true
		}
	case Point:
		return p, true
	}
	return Point{}, false
}

func pointField(payload map[string]any, id, field string, keys ...string) (Point, error) {
	v, ok := firstValue(payload, keys...)
	if !ok {
		return Point{}, &ValidationError{ID: id, Msg: fmt.Sprintf("missing required point %q", field)}
	}
	p, ok := coercePoint(v)
	if !ok {
		return Point{}, &ValidationError{ID: id, Msg: fmt.Sprintf("malformed point %q", field)}
	}
	return p, nil
}

func pointsField(payload map[string]any, id string, keys ...string) ([]Point, error) {
	v, ok := firstValue(payload, keys...)
	if !ok {
		return nil, nil
	}
	list, ok := asList(v)
	if !ok {
		return nil, &ValidationError{ID: id, Msg: "boundary must be a sequence of points"}
	}
	points := make([]Point, 0, len(list))
	for _, entry := range list {
		p, ok := coercePoint(entry)
		if !ok {
			return nil, &ValidationError{ID: id, Msg: "malformed point in boundary"}
		}
		points = append(points, p)
	}
	return points, nil
}

func stringListField(payload map[string]any, keys ...string) []string {
	v, ok := firstValue(payload, keys...)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	case []string:
		return cloneStrings(list)
	case []any:
		out := make([]string, 0, len(list))
		for _, entry := range list {
			if s, ok := entry.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func mapField(payload map[string]any, id string, keys ...string) (map[string]any, error) {
	v, ok := firstValue(payload, keys...)
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ValidationError{ID: id, Msg: "metadata must be a mapping"}
	}
	return cloneMap(m), nil
}

func provenanceField(payload map[string]any, id string) (*Provenance, error) {
	v, ok := firstValue(payload, provAliases...)
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ValidationError{ID: id, Msg: "provenance must be a mapping"}
	}
	prov := &Provenance{
		System:   stringField(m, "system"),
		SourceID: stringField(m, "source_id", "id"),
	}
	meta, err := mapField(m, id, "meta", "metadata")
	if err != nil {
		return nil, err
	}
	prov.Meta = meta
	return prov, nil
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []map[string]any:
		out := make([]any, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}
