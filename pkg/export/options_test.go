package export

import "testing"

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"dxf", FormatDXF, false},
		{"DWG", FormatDWG, false},
		{" ifc ", FormatIFC, false},
		{"Pdf", FormatPDF, false},
		{"svg", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapSource(t *testing.T) {
	m := LayerMapping{
		Source:             map[string]string{"building": "A-BUILD"},
		DefaultSourceLayer: "BASE",
	}
	tests := []struct {
		kind string
		want string
	}{
		{"building", "A-BUILD"},
		{"floor", "FLOOR"},
		{"", "BASE"},
	}
	for _, tt := range tests {
		if got := m.MapSource(tt.kind); got != tt.want {
			t.Errorf("MapSource(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}

	if got := (LayerMapping{}).MapSource(""); got != "SOURCE" {
		t.Errorf("unconfigured MapSource(\"\") = %q, want SOURCE", got)
	}
}

func TestMapOverlay(t *testing.T) {
	m := LayerMapping{
		Overlay: map[string]string{"heritage_conservation": "A-OVER-HERITAGE"},
		Status:  map[string]string{"pending": "A-OVER-PENDING"},
	}
	tests := []struct {
		code, status string
		want         string
	}{
		{"heritage_conservation", "approved", "A-OVER-HERITAGE"},
		{"tall_building_review", "pending", "A-OVER-PENDING"},
		{"tall_building_review", "approved", "OVERLAYS:tall_building_review"},
	}
	for _, tt := range tests {
		if got := m.MapOverlay(tt.code, tt.status); got != tt.want {
			t.Errorf("MapOverlay(%q, %q) = %q, want %q", tt.code, tt.status, got, tt.want)
		}
	}

	custom := LayerMapping{DefaultOverlayLayer: "ANNOT"}
	if got := custom.MapOverlay("x", "pending"); got != "ANNOT:x" {
		t.Errorf("MapOverlay with custom default = %q, want ANNOT:x", got)
	}
}

func TestStyleFor(t *testing.T) {
	m := LayerMapping{
		StyleByCode:     map[string]map[string]any{"heritage_conservation": {"color": "red"}},
		StyleBySeverity: map[string]map[string]any{"high": {"weight": 2}},
	}
	if got := m.StyleFor("heritage_conservation", "high"); got["color"] != "red" {
		t.Errorf("code style should win, got %v", got)
	}
	if got := m.StyleFor("other", "high"); got["weight"] != 2 {
		t.Errorf("severity style should apply, got %v", got)
	}
	if got := m.StyleFor("other", "low"); len(got) != 0 {
		t.Errorf("unmatched style should be empty, got %v", got)
	}

	// resolved styles are copies
	style := m.StyleFor("heritage_conservation", "")
	style["color"] = "blue"
	if m.StyleByCode["heritage_conservation"]["color"] != "red" {
		t.Error("StyleFor must not alias the configured style")
	}
}

func TestOptionsIncludes(t *testing.T) {
	opts := DefaultOptions(FormatDXF)
	if !opts.Includes(StatusApproved) {
		t.Error("defaults must include approved overlays")
	}
	if opts.Includes(StatusPending) || opts.Includes(StatusRejected) {
		t.Error("defaults must exclude pending and rejected overlays")
	}
	if opts.Watermark() != DefaultWatermark {
		t.Errorf("unexpected default watermark %q", opts.Watermark())
	}

	opts.PendingWatermark = "DRAFT"
	if opts.Watermark() != "DRAFT" {
		t.Errorf("configured watermark ignored, got %q", opts.Watermark())
	}
}
