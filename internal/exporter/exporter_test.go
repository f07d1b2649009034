package exporter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/WSG23/optimal-build-sub005/pkg/export"
)

const geometryDoc = `{
	"root": {
		"id": "site-1",
		"kind": "site",
		"children": [
			{"id": "b1", "kind": "building", "properties": {"height_m": 52}}
		]
	}
}`

type recordedEvent struct {
	projectID       int64
	eventType       string
	baselineSeconds float64
	actualSeconds   float64
	context         map[string]any
}

type fakeSession struct {
	geometries  []SourceGeometryRow
	suggestions []export.OverlaySuggestion
	events      []recordedEvent
	committed   bool

	listGeometriesErr error
}

func (s *fakeSession) ListSourceGeometries(_ context.Context, _ int64) ([]SourceGeometryRow, error) {
	if s.listGeometriesErr != nil {
		return nil, s.listGeometriesErr
	}
	return s.geometries, nil
}

func (s *fakeSession) ListOverlaySuggestions(_ context.Context, _ int64) ([]export.OverlaySuggestion, error) {
	return s.suggestions, nil
}

func (s *fakeSession) AppendEvent(_ context.Context, projectID int64, eventType string, baseline, actual float64, eventContext map[string]any) error {
	s.events = append(s.events, recordedEvent{
		projectID:       projectID,
		eventType:       eventType,
		baselineSeconds: baseline,
		actualSeconds:   actual,
		context:         eventContext,
	})
	return nil
}

func (s *fakeSession) Commit(_ context.Context) error {
	s.committed = true
	return nil
}

type fakeArtifact struct {
	key      string
	filename string
	payload  []byte
}

func (a *fakeArtifact) Key() string      { return a.key }
func (a *fakeArtifact) Filename() string { return a.filename }
func (a *fakeArtifact) Open(_ context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(a.payload)), nil
}

type fakeStorage struct {
	stored   *fakeArtifact
	manifest *export.Manifest
}

func (s *fakeStorage) Store(_ context.Context, projectID int64, format export.Format, payload []byte, manifest *export.Manifest, filename string) (Artifact, error) {
	s.stored = &fakeArtifact{key: filename, filename: filename, payload: payload}
	s.manifest = manifest
	return s.stored, nil
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func testExporter() *Exporter {
	return New(export.NewRegistry(), WithClock(fixedClock()))
}

func TestGenerateProjectExport_MissingGeometry(t *testing.T) {
	session := &fakeSession{}
	storage := &fakeStorage{}

	_, err := testExporter().GenerateProjectExport(context.Background(), session, 42, export.DefaultOptions(export.FormatDXF), storage)
	if !errors.Is(err, ErrGeometryMissing) {
		t.Fatalf("expected ErrGeometryMissing, got %v", err)
	}
	if storage.stored != nil {
		t.Fatal("no artifact must be stored without geometry")
	}
	if session.committed {
		t.Fatal("session must not commit on failure")
	}
}

func TestGenerateProjectExport_SessionError(t *testing.T) {
	session := &fakeSession{listGeometriesErr: errors.New("connection reset")}
	_, err := testExporter().GenerateProjectExport(context.Background(), session, 42, export.DefaultOptions(export.FormatDXF), &fakeStorage{})
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected wrapped session error, got %v", err)
	}
}

func TestGenerateProjectExport_OnlyUnparseableGeometry(t *testing.T) {
	session := &fakeSession{
		geometries: []SourceGeometryRow{{ID: 1, Data: []byte("not json")}},
	}
	_, err := testExporter().GenerateProjectExport(context.Background(), session, 42, export.DefaultOptions(export.FormatDXF), &fakeStorage{})
	if !errors.Is(err, ErrGeometryMissing) {
		t.Fatalf("expected ErrGeometryMissing, got %v", err)
	}
}

func TestGenerateProjectExport_ApprovedAndPending(t *testing.T) {
	session := &fakeSession{
		geometries: []SourceGeometryRow{{ID: 1, Data: []byte(geometryDoc)}},
		suggestions: []export.OverlaySuggestion{
			{
				Code: "heritage_conservation", Title: "Heritage conservation",
				Type: "restriction", Status: "approved", Severity: "high",
				Engine: map[string]any{"nodes": []any{"b1"}},
			},
			{
				Code: "tall_building_review", Title: "Tall building review",
				Type: "review", Status: "pending",
				Engine: map[string]any{"nodes": []any{"b1"}},
			},
		},
	}
	storage := &fakeStorage{}

	opts := export.DefaultOptions(export.FormatDXF)
	opts.Mapping = export.LayerMapping{
		Source:  map[string]string{"building": "A-BUILD"},
		Overlay: map[string]string{"heritage_conservation": "A-OVER-HERITAGE"},
	}

	artifact, err := testExporter().GenerateProjectExport(context.Background(), session, 42, opts, storage)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if artifact == nil || storage.stored == nil {
		t.Fatal("expected a stored artifact")
	}

	m := storage.manifest
	if len(m.Layers["A-BUILD"]) != 1 {
		t.Errorf("expected building on A-BUILD, got %v", m.Layers)
	}
	if len(m.Layers["SITE"]) != 1 {
		t.Errorf("expected site node on uppercased kind layer, got %v", m.Layers)
	}
	if len(m.Overlays["A-OVER-HERITAGE"]) != 1 {
		t.Errorf("expected approved overlay on its mapped layer, got %v", m.Overlays)
	}
	for layer, entries := range m.Overlays {
		for _, o := range entries {
			if o.Code == "tall_building_review" {
				t.Errorf("pending overlay leaked into default export on layer %s", layer)
			}
		}
	}
	if m.Watermark != export.DefaultWatermark {
		t.Errorf("pending suggestion must force the watermark, got %q", m.Watermark)
	}
	if m.ProjectID != 42 {
		t.Errorf("manifest project id = %d", m.ProjectID)
	}
	if m.GeneratedAt != "2026-08-30T12:00:00Z" {
		t.Errorf("unexpected generated_at %q", m.GeneratedAt)
	}
	if !session.committed {
		t.Error("successful export must commit the session")
	}
}

func TestGenerateProjectExport_PendingOnlyFlags(t *testing.T) {
	session := &fakeSession{
		geometries: []SourceGeometryRow{{ID: 1, Data: []byte(geometryDoc)}},
		suggestions: []export.OverlaySuggestion{
			{Code: "heritage_conservation", Status: "approved"},
			{Code: "tall_building_review", Status: "pending", Engine: map[string]any{"nodes": "b1"}},
		},
	}
	storage := &fakeStorage{}

	opts := export.DefaultOptions(export.FormatDWG)
	opts.IncludeApprovedOverlays = false
	opts.IncludePendingOverlays = true
	opts.Mapping = export.LayerMapping{
		Overlay: map[string]string{"tall_building_review": "A-OVER-TALL"},
	}

	_, err := testExporter().GenerateProjectExport(context.Background(), session, 7, opts, storage)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	m := storage.manifest
	if len(m.Overlays) != 1 || len(m.Overlays["A-OVER-TALL"]) != 1 {
		t.Fatalf("expected only the pending overlay, got %v", m.Overlays)
	}
	if got := m.Overlays["A-OVER-TALL"][0].Status; got != "pending" {
		t.Errorf("unexpected overlay status %q", got)
	}
	if m.Watermark != export.DefaultWatermark {
		t.Errorf("watermark is independent of inclusion flags, got %q", m.Watermark)
	}
}

func TestGenerateProjectExport_FallbackPayloadMatchesManifest(t *testing.T) {
	session := &fakeSession{
		geometries: []SourceGeometryRow{{ID: 1, Data: []byte(geometryDoc)}},
	}
	storage := &fakeStorage{}

	_, err := testExporter().GenerateProjectExport(context.Background(), session, 9, export.DefaultOptions(export.FormatPDF), storage)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if storage.manifest.Renderer != export.RendererFallback {
		t.Fatalf("PDF defaults to the fallback renderer, got %q", storage.manifest.Renderer)
	}
	expected, err := storage.manifest.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(storage.stored.payload, expected) {
		t.Fatal("fallback payload must reflect the final manifest, including project id and timestamp")
	}
}

func TestGenerateProjectExport_AuditEvent(t *testing.T) {
	session := &fakeSession{
		geometries: []SourceGeometryRow{{ID: 1, Data: []byte(geometryDoc)}},
		suggestions: []export.OverlaySuggestion{
			{Code: "a", Status: "approved"},
			{Code: "b", Status: "approved"},
			{Code: "c", Status: "rejected"},
		},
	}
	_, err := testExporter().GenerateProjectExport(context.Background(), session, 42, export.DefaultOptions(export.FormatIFC), &fakeStorage{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if len(session.events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(session.events))
	}
	ev := session.events[0]
	if ev.eventType != EventExportGenerated {
		t.Errorf("unexpected event type %q", ev.eventType)
	}
	if ev.projectID != 42 {
		t.Errorf("unexpected project id %d", ev.projectID)
	}
	if ev.baselineSeconds != 180 {
		t.Errorf("expected baseline 180s for 2 approved overlays, got %v", ev.baselineSeconds)
	}
	if ev.actualSeconds != 0 {
		t.Errorf("fixed clock must yield zero actual seconds, got %v", ev.actualSeconds)
	}
	if ev.context["format"] != "ifc" {
		t.Errorf("unexpected format in context: %v", ev.context["format"])
	}
	if ev.context["approved_overlays"] != 2 {
		t.Errorf("unexpected approved count in context: %v", ev.context["approved_overlays"])
	}
}

func TestGenerateProjectExport_UnknownFormat(t *testing.T) {
	session := &fakeSession{
		geometries: []SourceGeometryRow{{ID: 1, Data: []byte(geometryDoc)}},
	}
	opts := export.Options{Format: export.Format("svg")}
	_, err := testExporter().GenerateProjectExport(context.Background(), session, 1, opts, &fakeStorage{})
	if err == nil || !strings.Contains(err.Error(), "svg") {
		t.Fatalf("expected unknown-format error naming the format, got %v", err)
	}
}

func TestGenerateProjectExport_ArtifactNaming(t *testing.T) {
	session := &fakeSession{
		geometries: []SourceGeometryRow{{ID: 1, Data: []byte(geometryDoc)}},
	}
	storage := &fakeStorage{}

	artifact, err := testExporter().GenerateProjectExport(context.Background(), session, 42, export.DefaultOptions(export.FormatDXF), storage)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	name := artifact.Filename()
	if !strings.HasPrefix(name, "project-42-20260830T120000Z-") {
		t.Errorf("unexpected filename prefix %q", name)
	}
	if !strings.HasSuffix(name, ".dxf") {
		t.Errorf("unexpected filename extension %q", name)
	}
}
