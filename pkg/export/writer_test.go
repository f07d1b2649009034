package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func sampleFeatures() []Feature {
	return []Feature{
		{Layer: "A-BUILD", ID: "b1", Kind: "building", Properties: map[string]any{"height_m": 52.0}},
		{Layer: "SITE", ID: "site-1", Kind: "site"},
	}
}

func sampleOverlays() []OverlayFeature {
	return []OverlayFeature{
		{
			Layer: "A-OVER-HERITAGE", Code: "heritage_conservation",
			Title: "Heritage conservation", Type: "restriction",
			Status: "approved", Severity: "high",
			Nodes: []string{"b1"}, TargetIDs: []string{"b1"},
		},
	}
}

func TestRegistry_EveryFormatRenders(t *testing.T) {
	registry := NewRegistry()
	for _, format := range []Format{FormatDXF, FormatDWG, FormatIFC, FormatPDF} {
		w, ok := registry.Writer(format)
		if !ok {
			t.Fatalf("no writer registered for %s", format)
		}
		payload, manifest := w.Render(sampleFeatures(), sampleOverlays(), "", DefaultOptions(format))
		if len(payload) == 0 {
			t.Errorf("%s: empty payload", format)
		}
		if manifest == nil || manifest.Format != string(format) {
			t.Errorf("%s: bad manifest %+v", format, manifest)
		}
		if manifest.Renderer == "" {
			t.Errorf("%s: manifest missing renderer tag", format)
		}
	}
}

func TestRender_NativeDXF(t *testing.T) {
	w, _ := NewRegistry().Writer(FormatDXF)
	payload, manifest := w.Render(sampleFeatures(), sampleOverlays(), "PENDING OVERLAYS", DefaultOptions(FormatDXF))

	if manifest.Renderer != "dxf-tagged" {
		t.Fatalf("expected native renderer tag, got %q", manifest.Renderer)
	}
	text := string(payload)
	for _, want := range []string{"A-BUILD", "A-OVER-HERITAGE", "building:b1", "heritage_conservation[approved]", "PENDING OVERLAYS", "EOF"} {
		if !strings.Contains(text, want) {
			t.Errorf("DXF payload missing %q", want)
		}
	}
}

func TestRender_NativeIFC(t *testing.T) {
	w, _ := NewRegistry().Writer(FormatIFC)
	payload, manifest := w.Render(sampleFeatures(), sampleOverlays(), "", DefaultOptions(FormatIFC))

	if manifest.Renderer != "ifc-spf" {
		t.Fatalf("expected native renderer tag, got %q", manifest.Renderer)
	}
	text := string(payload)
	for _, want := range []string{"ISO-10303-21", "IFCBUILDINGELEMENTPROXY", "IFCPRESENTATIONLAYERASSIGNMENT", "END-ISO-10303-21"} {
		if !strings.Contains(text, want) {
			t.Errorf("IFC payload missing %q", want)
		}
	}
}

func TestRender_FallbackWithoutEncoder(t *testing.T) {
	w, _ := NewRegistry().Writer(FormatDWG)
	payload, manifest := w.Render(sampleFeatures(), sampleOverlays(), "", DefaultOptions(FormatDWG))

	if manifest.Renderer != RendererFallback {
		t.Fatalf("expected fallback renderer, got %q", manifest.Renderer)
	}
	expected, err := manifest.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(payload, expected) {
		t.Fatal("fallback payload must be the manifest's own encoding")
	}
	var decoded Manifest
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("fallback payload is not valid JSON: %v", err)
	}
}

func TestRender_EncoderErrorFallsBack(t *testing.T) {
	w := NewWriter(FormatDXF, "broken", func(*Manifest) ([]byte, error) {
		return nil, errors.New("boom")
	})
	payload, manifest := w.Render(sampleFeatures(), nil, "", DefaultOptions(FormatDXF))

	if manifest.Renderer != RendererFallback {
		t.Fatalf("failed encoder must yield fallback renderer, got %q", manifest.Renderer)
	}
	if len(payload) == 0 {
		t.Fatal("export must still produce a payload when the encoder fails")
	}
}

func TestRender_EncoderPanicFallsBack(t *testing.T) {
	w := NewWriter(FormatIFC, "panicky", func(*Manifest) ([]byte, error) {
		panic("encoder bug")
	})
	payload, manifest := w.Render(sampleFeatures(), sampleOverlays(), "DRAFT", DefaultOptions(FormatIFC))

	if manifest.Renderer != RendererFallback {
		t.Fatalf("panicking encoder must yield fallback renderer, got %q", manifest.Renderer)
	}
	if len(payload) == 0 {
		t.Fatal("export must still produce a payload when the encoder panics")
	}
	if manifest.Watermark != "DRAFT" {
		t.Errorf("watermark lost on fallback path, got %q", manifest.Watermark)
	}
}

func TestNewManifest_GroupsByLayer(t *testing.T) {
	features := append(sampleFeatures(), Feature{Layer: "A-BUILD", ID: "b2", Kind: "building"})
	opts := DefaultOptions(FormatDXF)
	opts.Mapping.StyleByCode = map[string]map[string]any{
		"heritage_conservation": {"color": "red"},
	}

	m := newManifest(FormatDXF, features, sampleOverlays(), "", opts)
	if len(m.Layers["A-BUILD"]) != 2 {
		t.Errorf("expected 2 features on A-BUILD, got %d", len(m.Layers["A-BUILD"]))
	}
	if len(m.Layers["SITE"]) != 1 {
		t.Errorf("expected 1 feature on SITE, got %d", len(m.Layers["SITE"]))
	}
	if len(m.Overlays["A-OVER-HERITAGE"]) != 1 {
		t.Errorf("expected 1 overlay on its layer, got %v", m.Overlays)
	}
	if m.Styles["heritage_conservation"]["color"] != "red" {
		t.Errorf("style for present code missing, got %v", m.Styles)
	}
}

func TestManifestEncode_Deterministic(t *testing.T) {
	opts := DefaultOptions(FormatPDF)
	m := newManifest(FormatPDF, sampleFeatures(), sampleOverlays(), "PENDING OVERLAYS", opts)

	first, err := m.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := m.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("manifest encoding must be deterministic")
	}
}
