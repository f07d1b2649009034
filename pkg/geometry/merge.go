package geometry

// Merge combines a base graph with an overlay graph into a new graph.
//
// For an id present in both, every overlay field that carries a supplied
// value wins; fields the overlay leaves at their absent value fall back to
// base. Optional scalars express suppliedness through pointers (nil =
// absent), strings through "", collections through emptiness — an explicitly
// empty boundary or id list counts as absent and never erases base data.
// Metadata maps union with overlay winning key collisions; base-only keys
// survive. Provenance is retained from base whenever the overlay omits it.
//
// Overlay-only entities are added unchanged; base entities absent from the
// overlay pass through unchanged. Relationships from both graphs are unioned
// under the (type, source, target) identity rule, overlay attributes winning
// per key.
//
// Merge is pure: base and overlay are untouched and the result shares no
// mutable state with either input.
func Merge(base, overlay *Graph) (*Graph, error) {
	for id, kind := range overlay.kinds {
		if baseKind, ok := base.kinds[id]; ok && baseKind != kind {
			return nil, &ValidationError{ID: id, Msg: "id reused for a different entity kind in overlay"}
		}
	}

	merged := NewGraph()

	for _, l := range base.levels {
		if o := overlayLevel(overlay, l.ID); o != nil {
			if err := merged.AddLevel(mergeLevel(l, o)); err != nil {
				return nil, err
			}
			continue
		}
		if err := merged.AddLevel(l.clone()); err != nil {
			return nil, err
		}
	}
	for _, l := range overlay.levels {
		if !base.Contains(l.ID) {
			if err := merged.AddLevel(l.clone()); err != nil {
				return nil, err
			}
		}
	}

	for _, w := range base.walls {
		if o := overlayWall(overlay, w.ID); o != nil {
			if err := merged.AddWall(mergeWall(w, o)); err != nil {
				return nil, err
			}
			continue
		}
		if err := merged.AddWall(w.clone()); err != nil {
			return nil, err
		}
	}
	for _, w := range overlay.walls {
		if !base.Contains(w.ID) {
			if err := merged.AddWall(w.clone()); err != nil {
				return nil, err
			}
		}
	}

	for _, s := range base.spaces {
		if o := overlaySpace(overlay, s.ID); o != nil {
			if err := merged.AddSpace(mergeSpace(s, o)); err != nil {
				return nil, err
			}
			continue
		}
		if err := merged.AddSpace(s.clone()); err != nil {
			return nil, err
		}
	}
	for _, s := range overlay.spaces {
		if !base.Contains(s.ID) {
			if err := merged.AddSpace(s.clone()); err != nil {
				return nil, err
			}
		}
	}

	for _, d := range base.doors {
		if o := overlayDoor(overlay, d.ID); o != nil {
			if err := merged.AddDoor(mergeDoor(d, o)); err != nil {
				return nil, err
			}
			continue
		}
		if err := merged.AddDoor(d.clone()); err != nil {
			return nil, err
		}
	}
	for _, d := range overlay.doors {
		if !base.Contains(d.ID) {
			if err := merged.AddDoor(d.clone()); err != nil {
				return nil, err
			}
		}
	}

	for _, f := range base.fixtures {
		if o := overlayFixture(overlay, f.ID); o != nil {
			if err := merged.AddFixture(mergeFixture(f, o)); err != nil {
				return nil, err
			}
			continue
		}
		if err := merged.AddFixture(f.clone()); err != nil {
			return nil, err
		}
	}
	for _, f := range overlay.fixtures {
		if !base.Contains(f.ID) {
			if err := merged.AddFixture(f.clone()); err != nil {
				return nil, err
			}
		}
	}

	for _, r := range base.relationships {
		if err := merged.AddRelationship(r.clone()); err != nil {
			return nil, err
		}
	}
	for _, r := range overlay.relationships {
		if err := merged.AddRelationship(r.clone()); err != nil {
			return nil, err
		}
	}

	if err := merged.ValidateIntegrity(); err != nil {
		return nil, err
	}
	return merged, nil
}

func overlayLevel(g *Graph, id string) *Level {
	for _, l := range g.levels {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func overlaySpace(g *Graph, id string) *Space {
	for _, s := range g.spaces {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func overlayWall(g *Graph, id string) *Wall {
	for _, w := range g.walls {
		if w.ID == id {
			return w
		}
	}
	return nil
}

func overlayDoor(g *Graph, id string) *Door {
	for _, d := range g.doors {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func overlayFixture(g *Graph, id string) *Fixture {
	for _, f := range g.fixtures {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func mergeLevel(base, overlay *Level) *Level {
	out := base.clone()
	if overlay.Name != "" {
		out.Name = overlay.Name
	}
	if overlay.Elevation != 0 {
		out.Elevation = overlay.Elevation
	}
	if overlay.Height != nil {
		out.Height = cloneFloat(overlay.Height)
	}
	mergeCommon(&out.Provenance, &out.Metadata, overlay.Provenance, overlay.Metadata)
	return out
}

func mergeSpace(base, overlay *Space) *Space {
	out := base.clone()
	if overlay.Name != "" {
		out.Name = overlay.Name
	}
	if overlay.LevelID != "" {
		out.LevelID = overlay.LevelID
	}
	if len(overlay.Boundary) > 0 {
		out.Boundary = clonePoints(overlay.Boundary)
	}
	if len(overlay.WallIDs) > 0 {
		out.WallIDs = cloneStrings(overlay.WallIDs)
	}
	mergeCommon(&out.Provenance, &out.Metadata, overlay.Provenance, overlay.Metadata)
	return out
}

func mergeWall(base, overlay *Wall) *Wall {
	out := base.clone()
	if overlay.Name != "" {
		out.Name = overlay.Name
	}
	if overlay.Start != (Point{}) {
		out.Start = overlay.Start
	}
	if overlay.End != (Point{}) {
		out.End = overlay.End
	}
	if overlay.Thickness != nil {
		out.Thickness = cloneFloat(overlay.Thickness)
	}
	if overlay.LevelID != "" {
		out.LevelID = overlay.LevelID
	}
	if len(overlay.SpaceIDs) > 0 {
		out.SpaceIDs = cloneStrings(overlay.SpaceIDs)
	}
	mergeCommon(&out.Provenance, &out.Metadata, overlay.Provenance, overlay.Metadata)
	return out
}

func mergeDoor(base, overlay *Door) *Door {
	out := base.clone()
	if overlay.Name != "" {
		out.Name = overlay.Name
	}
	if overlay.WallID != "" {
		out.WallID = overlay.WallID
	}
	if overlay.Position != 0 {
		out.Position = overlay.Position
	}
	if overlay.Width != nil {
		out.Width = cloneFloat(overlay.Width)
	}
	if overlay.Swing != "" {
		out.Swing = overlay.Swing
	}
	if overlay.LevelID != "" {
		out.LevelID = overlay.LevelID
	}
	mergeCommon(&out.Provenance, &out.Metadata, overlay.Provenance, overlay.Metadata)
	return out
}

func mergeFixture(base, overlay *Fixture) *Fixture {
	out := base.clone()
	if overlay.Name != "" {
		out.Name = overlay.Name
	}
	if overlay.Category != "" {
		out.Category = overlay.Category
	}
	if overlay.Location != (Point{}) {
		out.Location = overlay.Location
	}
	if overlay.LevelID != "" {
		out.LevelID = overlay.LevelID
	}
	mergeCommon(&out.Provenance, &out.Metadata, overlay.Provenance, overlay.Metadata)
	return out
}

func mergeCommon(prov **Provenance, meta *map[string]any, oProv *Provenance, oMeta map[string]any) {
	if oProv != nil {
		*prov = oProv.clone()
	}
	if len(oMeta) > 0 {
		merged := cloneMap(*meta)
		if merged == nil {
			merged = make(map[string]any, len(oMeta))
		}
		for k, v := range oMeta {
			if nested, ok := v.(map[string]any); ok {
				merged[k] = cloneMap(nested)
				continue
			}
			merged[k] = v
		}
		*meta = merged
	}
}
