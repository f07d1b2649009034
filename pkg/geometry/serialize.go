package geometry

// Serializer converts between the loosely-typed CAD payload shape, the typed
// graph, and the neutral export shape. Every boundary hands out fresh copies;
// no returned container aliases graph-owned state.
//
// Round-trip contract: FromExport(ToExport(g)) serializes identically to
// ToExport(g). Export payloads use canonical field names only, so FromExport
// bypasses the builder's alias resolution.
type Serializer struct{}

func NewSerializer() *Serializer {
	return &Serializer{}
}

// FromCAD builds a graph from a raw CAD ingestion payload via the builder and
// validates it.
func (s *Serializer) FromCAD(payload map[string]any) (*Graph, error) {
	return BuildFromPayload(payload)
}

// ToExport renders the graph as a neutral mapping of plain records with
// points as two-element sequences.
func (s *Serializer) ToExport(g *Graph) map[string]any {
	return s.render(g, exportPoint, exportPoints)
}

// ToCAD renders the graph like ToExport but with every point as a labeled
// {x, y} mapping, for CAD-side consumers.
func (s *Serializer) ToCAD(g *Graph) map[string]any {
	return s.render(g, cadPoint, cadPoints)
}

func exportPoint(p Point) any {
	return []float64{p.X, p.Y}
}

func exportPoints(points []Point) any {
	out := make([]any, 0, len(points))
	for _, p := range points {
		out = append(out, exportPoint(p))
	}
	return out
}

func cadPoint(p Point) any {
	return map[string]any{"x": p.X, "y": p.Y}
}

func cadPoints(points []Point) any {
	out := make([]any, 0, len(points))
	for _, p := range points {
		out = append(out, cadPoint(p))
	}
	return out
}

func (s *Serializer) render(g *Graph, point func(Point) any, points func([]Point) any) map[string]any {
	levels := make([]map[string]any, 0, len(g.levels))
	for _, l := range g.levels {
		rec := map[string]any{
			"id":        l.ID,
			"name":      l.Name,
			"elevation": l.Elevation,
		}
		if l.Height != nil {
			rec["height"] = *l.Height
		}
		attachCommon(rec, l.Provenance, l.Metadata)
		levels = append(levels, rec)
	}

	walls := make([]map[string]any, 0, len(g.walls))
	for _, w := range g.walls {
		rec := map[string]any{
			"id":        w.ID,
			"name":      w.Name,
			"start":     point(w.Start),
			"end":       point(w.End),
			"level_id":  w.LevelID,
			"space_ids": stringsOrEmpty(w.SpaceIDs),
		}
		if w.Thickness != nil {
			rec["thickness"] = *w.Thickness
		}
		attachCommon(rec, w.Provenance, w.Metadata)
		walls = append(walls, rec)
	}

	spaces := make([]map[string]any, 0, len(g.spaces))
	for _, sp := range g.spaces {
		rec := map[string]any{
			"id":       sp.ID,
			"name":     sp.Name,
			"level_id": sp.LevelID,
			"boundary": points(sp.Boundary),
			"wall_ids": stringsOrEmpty(sp.WallIDs),
		}
		attachCommon(rec, sp.Provenance, sp.Metadata)
		spaces = append(spaces, rec)
	}

	doors := make([]map[string]any, 0, len(g.doors))
	for _, d := range g.doors {
		rec := map[string]any{
			"id":       d.ID,
			"name":     d.Name,
			"wall_id":  d.WallID,
			"position": d.Position,
			"swing":    d.Swing,
			"level_id": d.LevelID,
		}
		if d.Width != nil {
			rec["width"] = *d.Width
		}
		attachCommon(rec, d.Provenance, d.Metadata)
		doors = append(doors, rec)
	}

	fixtures := make([]map[string]any, 0, len(g.fixtures))
	for _, f := range g.fixtures {
		rec := map[string]any{
			"id":       f.ID,
			"name":     f.Name,
			"category": f.Category,
			"location": point(f.Location),
			"level_id": f.LevelID,
		}
		attachCommon(rec, f.Provenance, f.Metadata)
		fixtures = append(fixtures, rec)
	}

	relationships := make([]map[string]any, 0, len(g.relationships))
	for _, r := range g.relationships {
		rec := map[string]any{
			"rel_type":  r.Type,
			"source_id": r.SourceID,
			"target_id": r.TargetID,
		}
		if r.Attrs != nil {
			rec["attributes"] = cloneMap(r.Attrs)
		}
		relationships = append(relationships, rec)
	}

	return map[string]any{
		"levels":        levels,
		"walls":         walls,
		"spaces":        spaces,
		"doors":         doors,
		"fixtures":      fixtures,
		"relationships": relationships,
	}
}

func attachCommon(rec map[string]any, prov *Provenance, meta map[string]any) {
	if prov != nil {
		p := map[string]any{
			"system":    prov.System,
			"source_id": prov.SourceID,
		}
		if prov.Meta != nil {
			p["meta"] = cloneMap(prov.Meta)
		}
		rec["provenance"] = p
	}
	if meta != nil {
		rec["metadata"] = cloneMap(meta)
	}
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return cloneStrings(s)
}

// FromExport reconstructs a graph from an export payload. Export payloads use
// canonical field names, so no alias resolution is applied. The rebuilt graph
// is validated before it is returned.
func (s *Serializer) FromExport(payload map[string]any) (*Graph, error) {
	g := NewGraph()

	levels, err := payloadSection(payload, "levels")
	if err != nil {
		return nil, err
	}
	for _, rec := range levels {
		id := stringField(rec, "id")
		if id == "" {
			return nil, &ValidationError{Msg: "level record without id"}
		}
		elevation, err := floatFieldDefault(rec, id, "elevation", 0, "elevation")
		if err != nil {
			return nil, err
		}
		height, err := optionalFloatField(rec, id, "height", "height")
		if err != nil {
			return nil, err
		}
		meta, prov, err := canonicalCommon(rec, id)
		if err != nil {
			return nil, err
		}
		if err := g.AddLevel(&Level{
			ID:         id,
			Name:       stringField(rec, "name"),
			Elevation:  elevation,
			Height:     height,
			Provenance: prov,
			Metadata:   meta,
		}); err != nil {
			return nil, err
		}
	}

	walls, err := payloadSection(payload, "walls")
	if err != nil {
		return nil, err
	}
	for _, rec := range walls {
		id := stringField(rec, "id")
		if id == "" {
			return nil, &ValidationError{Msg: "wall record without id"}
		}
		start, err := pointField(rec, id, "start", "start")
		if err != nil {
			return nil, err
		}
		end, err := pointField(rec, id, "end", "end")
		if err != nil {
			return nil, err
		}
		thickness, err := optionalFloatField(rec, id, "thickness", "thickness")
		if err != nil {
			return nil, err
		}
		meta, prov, err := canonicalCommon(rec, id)
		if err != nil {
			return nil, err
		}
		if err := g.AddWall(&Wall{
			ID:         id,
			Name:       stringField(rec, "name"),
			Start:      start,
			End:        end,
			Thickness:  thickness,
			LevelID:    stringField(rec, "level_id"),
			SpaceIDs:   canonicalStrings(rec, "space_ids"),
			Provenance: prov,
			Metadata:   meta,
		}); err != nil {
			return nil, err
		}
	}

	spaces, err := payloadSection(payload, "spaces")
	if err != nil {
		return nil, err
	}
	for _, rec := range spaces {
		id := stringField(rec, "id")
		if id == "" {
			return nil, &ValidationError{Msg: "space record without id"}
		}
		boundary, err := pointsField(rec, id, "boundary")
		if err != nil {
			return nil, err
		}
		if boundary == nil {
			boundary = []Point{}
		}
		meta, prov, err := canonicalCommon(rec, id)
		if err != nil {
			return nil, err
		}
		if err := g.AddSpace(&Space{
			ID:         id,
			Name:       stringField(rec, "name"),
			LevelID:    stringField(rec, "level_id"),
			Boundary:   boundary,
			WallIDs:    canonicalStrings(rec, "wall_ids"),
			Provenance: prov,
			Metadata:   meta,
		}); err != nil {
			return nil, err
		}
	}

	doors, err := payloadSection(payload, "doors")
	if err != nil {
		return nil, err
	}
	for _, rec := range doors {
		id := stringField(rec, "id")
		if id == "" {
			return nil, &ValidationError{Msg: "door record without id"}
		}
		position, err := floatFieldDefault(rec, id, "position", 0, "position")
		if err != nil {
			return nil, err
		}
		width, err := optionalFloatField(rec, id, "width", "width")
		if err != nil {
			return nil, err
		}
		meta, prov, err := canonicalCommon(rec, id)
		if err != nil {
			return nil, err
		}
		if err := g.AddDoor(&Door{
			ID:         id,
			Name:       stringField(rec, "name"),
			WallID:     stringField(rec, "wall_id"),
			Position:   position,
			Width:      width,
			Swing:      stringField(rec, "swing"),
			LevelID:    stringField(rec, "level_id"),
			Provenance: prov,
			Metadata:   meta,
		}); err != nil {
			return nil, err
		}
	}

	fixtures, err := payloadSection(payload, "fixtures")
	if err != nil {
		return nil, err
	}
	for _, rec := range fixtures {
		id := stringField(rec, "id")
		if id == "" {
			return nil, &ValidationError{Msg: "fixture record without id"}
		}
		location, err := pointField(rec, id, "location", "location")
		if err != nil {
			return nil, err
		}
		meta, prov, err := canonicalCommon(rec, id)
		if err != nil {
			return nil, err
		}
		if err := g.AddFixture(&Fixture{
			ID:         id,
			Name:       stringField(rec, "name"),
			Category:   stringField(rec, "category"),
			Location:   location,
			LevelID:    stringField(rec, "level_id"),
			Provenance: prov,
			Metadata:   meta,
		}); err != nil {
			return nil, err
		}
	}

	relationships, err := payloadSection(payload, "relationships")
	if err != nil {
		return nil, err
	}
	for _, rec := range relationships {
		attrs, err := mapField(rec, stringField(rec, "source_id"), "attributes")
		if err != nil {
			return nil, err
		}
		if err := g.AddRelationship(&Relationship{
			Type:     stringField(rec, "rel_type"),
			SourceID: stringField(rec, "source_id"),
			TargetID: stringField(rec, "target_id"),
			Attrs:    attrs,
		}); err != nil {
			return nil, err
		}
	}

	if err := g.ValidateIntegrity(); err != nil {
		return nil, err
	}
	return g, nil
}

func canonicalCommon(rec map[string]any, id string) (map[string]any, *Provenance, error) {
	meta, err := mapField(rec, id, "metadata")
	if err != nil {
		return nil, nil, err
	}
	var prov *Provenance
	if raw, ok := rec["provenance"]; ok && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, nil, &ValidationError{ID: id, Msg: "provenance must be a mapping"}
		}
		provMeta, err := mapField(m, id, "meta")
		if err != nil {
			return nil, nil, err
		}
		prov = &Provenance{
			System:   stringField(m, "system"),
			SourceID: stringField(m, "source_id"),
			Meta:     provMeta,
		}
	}
	return meta, prov, nil
}

func canonicalStrings(rec map[string]any, key string) []string {
	v, ok := rec[key]
	if !ok || v == nil {
		return []string{}
	}
	switch list := v.(type) {
	case []string:
		return cloneStrings(list)
	case []any:
		out := make([]string, 0, len(list))
		for _, entry := range list {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}
