package export

import (
	"encoding/json"
	"fmt"
)

// RendererFallback tags a manifest whose payload is the manifest's own
// canonical JSON encoding rather than a native format encoding.
const RendererFallback = "fallback"

// Feature is one source-geometry node resolved onto a target layer.
type Feature struct {
	Layer      string         `json:"layer"`
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Properties map[string]any `json:"properties"`
}

// OverlayFeature is one included overlay suggestion resolved onto a target
// layer with its style.
type OverlayFeature struct {
	Layer     string         `json:"layer"`
	Code      string         `json:"code"`
	Title     string         `json:"title"`
	Type      string         `json:"type"`
	Status    string         `json:"status"`
	Severity  string         `json:"severity"`
	Style     map[string]any `json:"style"`
	Nodes     []string       `json:"nodes"`
	TargetIDs []string       `json:"target_ids"`
	RuleRefs  []string       `json:"rule_refs"`
	Props     map[string]any `json:"props"`
}

// ManifestOptions echoes the inclusion flags an export ran with.
type ManifestOptions struct {
	IncludeSource           bool `json:"include_source"`
	IncludeApprovedOverlays bool `json:"include_approved_overlays"`
	IncludePendingOverlays  bool `json:"include_pending_overlays"`
	IncludeRejectedOverlays bool `json:"include_rejected_overlays"`
}

// Manifest is the structural JSON description of an export, produced
// alongside (or, on the fallback path, as) the payload.
type Manifest struct {
	Format      string                      `json:"format"`
	Renderer    string                      `json:"renderer"`
	Options     ManifestOptions             `json:"options"`
	Layers      map[string][]Feature        `json:"layers"`
	Overlays    map[string][]OverlayFeature `json:"overlays"`
	Watermark   string                      `json:"watermark,omitempty"`
	Styles      map[string]map[string]any   `json:"styles,omitempty"`
	ProjectID   int64                       `json:"project_id,omitempty"`
	GeneratedAt string                      `json:"generated_at,omitempty"`
}

// Encode renders the manifest as canonical JSON. encoding/json emits map keys
// in sorted order, so the encoding is deterministic for a given manifest.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return data, nil
}

func newManifest(format Format, features []Feature, overlays []OverlayFeature, watermark string, opts Options) *Manifest {
	layers := make(map[string][]Feature)
	for _, f := range features {
		layers[f.Layer] = append(layers[f.Layer], f)
	}

	overlayLayers := make(map[string][]OverlayFeature)
	styles := make(map[string]map[string]any)
	for _, o := range overlays {
		overlayLayers[o.Layer] = append(overlayLayers[o.Layer], o)
		if style, ok := opts.Mapping.StyleByCode[o.Code]; ok {
			styles[o.Code] = copyStyle(style)
		}
	}
	if len(styles) == 0 {
		styles = nil
	}

	return &Manifest{
		Format:   string(format),
		Renderer: RendererFallback,
		Options: ManifestOptions{
			IncludeSource:           opts.IncludeSource,
			IncludeApprovedOverlays: opts.IncludeApprovedOverlays,
			IncludePendingOverlays:  opts.IncludePendingOverlays,
			IncludeRejectedOverlays: opts.IncludeRejectedOverlays,
		},
		Layers:    layers,
		Overlays:  overlayLayers,
		Watermark: watermark,
		Styles:    styles,
	}
}
