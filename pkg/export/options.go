package export

import (
	"fmt"
	"strings"
)

// Format identifies a target export format.
type Format string

const (
	FormatDXF Format = "dxf"
	FormatDWG Format = "dwg"
	FormatIFC Format = "ifc"
	FormatPDF Format = "pdf"
)

// ParseFormat normalizes a format string from config or a job message.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDXF, FormatDWG, FormatIFC, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// LayerMapping translates entity kinds and overlay codes/severities into
// target layer names and styles.
type LayerMapping struct {
	Source          map[string]string
	Overlay         map[string]string
	Status          map[string]string
	StyleByCode     map[string]map[string]any
	StyleBySeverity map[string]map[string]any

	DefaultSourceLayer  string
	DefaultOverlayLayer string
}

// MapSource resolves the layer for a source entity kind: explicit lookup,
// else the kind uppercased, else the default source layer.
func (m LayerMapping) MapSource(kind string) string {
	if layer, ok := m.Source[kind]; ok {
		return layer
	}
	if kind != "" {
		return strings.ToUpper(kind)
	}
	if m.DefaultSourceLayer != "" {
		return m.DefaultSourceLayer
	}
	return "SOURCE"
}

// MapOverlay resolves the layer for an overlay: explicit code lookup, else
// status lookup, else "{default_overlay_layer}:{code}".
func (m LayerMapping) MapOverlay(code, status string) string {
	if layer, ok := m.Overlay[code]; ok {
		return layer
	}
	if layer, ok := m.Status[status]; ok {
		return layer
	}
	base := m.DefaultOverlayLayer
	if base == "" {
		base = "OVERLAYS"
	}
	return base + ":" + code
}

// StyleFor resolves the render style for an overlay: code lookup, else
// severity lookup, else empty.
func (m LayerMapping) StyleFor(code, severity string) map[string]any {
	if style, ok := m.StyleByCode[code]; ok {
		return copyStyle(style)
	}
	if style, ok := m.StyleBySeverity[severity]; ok {
		return copyStyle(style)
	}
	return map[string]any{}
}

func copyStyle(style map[string]any) map[string]any {
	out := make(map[string]any, len(style))
	for k, v := range style {
		out[k] = v
	}
	return out
}

// Options bundles everything an export run needs besides the geometry
// itself: the target format, the inclusion flags, the layer mapping, and the
// watermark applied while pending overlays exist.
type Options struct {
	Format Format

	IncludeSource           bool
	IncludeApprovedOverlays bool
	IncludePendingOverlays  bool
	IncludeRejectedOverlays bool

	Mapping          LayerMapping
	PendingWatermark string
}

// DefaultWatermark is applied when an export carries pending overlays and no
// watermark string was configured.
const DefaultWatermark = "PENDING OVERLAYS"

// DefaultOptions returns the standard configuration for a format: source
// geometry and approved overlays included, pending and rejected excluded.
func DefaultOptions(format Format) Options {
	return Options{
		Format:                  format,
		IncludeSource:           true,
		IncludeApprovedOverlays: true,
		PendingWatermark:        DefaultWatermark,
	}
}

// Watermark returns the configured watermark string, falling back to the
// default.
func (o Options) Watermark() string {
	if o.PendingWatermark != "" {
		return o.PendingWatermark
	}
	return DefaultWatermark
}

// Includes reports whether overlays with the given status belong in this
// export's output.
func (o Options) Includes(status OverlayStatus) bool {
	switch status {
	case StatusApproved:
		return o.IncludeApprovedOverlays
	case StatusPending:
		return o.IncludePendingOverlays
	case StatusRejected:
		return o.IncludeRejectedOverlays
	}
	return false
}
