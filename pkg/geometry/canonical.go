package geometry

import (
	"encoding/json"
	"fmt"
)

// GeometryNode is one node in the hierarchical site→building→element tree
// produced by upstream ingestion.
type GeometryNode struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Properties map[string]any  `json:"properties,omitempty"`
	Children   []*GeometryNode `json:"children,omitempty"`
}

// CanonicalGeometry is the normalized hand-off from upstream ingestion to the
// exporter: a node tree plus an embedded raw-graph payload (the same shape
// the Serializer consumes) used as the geometry source of truth. It is
// produced once per ingestion event and never mutated; changes produce a new
// instance.
type CanonicalGeometry struct {
	Root  *GeometryNode  `json:"root"`
	Graph map[string]any `json:"graph,omitempty"`
}

// ParseCanonicalGeometry decodes a stored canonical geometry document.
func ParseCanonicalGeometry(raw []byte) (*CanonicalGeometry, error) {
	var cg CanonicalGeometry
	if err := json.Unmarshal(raw, &cg); err != nil {
		return nil, fmt.Errorf("failed to parse canonical geometry: %w", err)
	}
	if cg.Root == nil {
		return nil, fmt.Errorf("canonical geometry has no root node")
	}
	return &cg, nil
}

// Flatten walks the node tree pre-order (node first, then each child
// recursively) and returns the nodes as a flat list.
func (c *CanonicalGeometry) Flatten() []*GeometryNode {
	if c.Root == nil {
		return nil
	}
	var out []*GeometryNode
	var walk func(n *GeometryNode)
	walk = func(n *GeometryNode) {
		out = append(out, n)
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(c.Root)
	return out
}

// BuildGraph constructs a validated graph from the embedded raw-graph
// payload.
func (c *CanonicalGeometry) BuildGraph() (*Graph, error) {
	if c.Graph == nil {
		return nil, fmt.Errorf("canonical geometry carries no graph payload")
	}
	return BuildFromPayload(c.Graph)
}
