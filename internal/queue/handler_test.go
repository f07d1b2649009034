package queue

import (
	"encoding/json"
	"testing"

	"github.com/WSG23/optimal-build-sub005/pkg/export"
)

func TestExportJobMsg_DefaultOptions(t *testing.T) {
	msg := ExportJobMsg{ProjectID: 42, Format: "dxf"}
	opts, err := msg.Options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Format != export.FormatDXF {
		t.Errorf("unexpected format %q", opts.Format)
	}
	if !opts.IncludeSource || !opts.IncludeApprovedOverlays {
		t.Error("nil flags must fall back to format defaults")
	}
	if opts.IncludePendingOverlays || opts.IncludeRejectedOverlays {
		t.Error("pending and rejected must default off")
	}
	if opts.Watermark() != export.DefaultWatermark {
		t.Errorf("unexpected watermark %q", opts.Watermark())
	}
}

func TestExportJobMsg_OverridesDefaults(t *testing.T) {
	falseV, trueV := false, true
	msg := ExportJobMsg{
		ProjectID:               7,
		Format:                  "DWG",
		IncludeApprovedOverlays: &falseV,
		IncludePendingOverlays:  &trueV,
		PendingWatermark:        "DRAFT",
	}
	opts, err := msg.Options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Format != export.FormatDWG {
		t.Errorf("format not normalized, got %q", opts.Format)
	}
	if opts.IncludeApprovedOverlays {
		t.Error("explicit false flag ignored")
	}
	if !opts.IncludePendingOverlays {
		t.Error("explicit true flag ignored")
	}
	if opts.Watermark() != "DRAFT" {
		t.Errorf("watermark override ignored, got %q", opts.Watermark())
	}
}

func TestExportJobMsg_BadFormat(t *testing.T) {
	msg := ExportJobMsg{ProjectID: 1, Format: "svg"}
	if _, err := msg.Options(); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestExportJobMsg_JSONRoundTrip(t *testing.T) {
	trueV := true
	msg := ExportJobMsg{
		ProjectID:              42,
		Format:                 "ifc",
		IncludePendingOverlays: &trueV,
		Retries:                2,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ExportJobMsg
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ProjectID != 42 || decoded.Format != "ifc" || decoded.Retries != 2 {
		t.Fatalf("unexpected decoded message %+v", decoded)
	}
	if decoded.IncludePendingOverlays == nil || !*decoded.IncludePendingOverlays {
		t.Fatal("pointer flag lost in round trip")
	}
	if decoded.IncludeApprovedOverlays != nil {
		t.Fatal("omitted flag must decode as nil")
	}
}
