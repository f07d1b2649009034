package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/WSG23/optimal-build-sub005/internal/timing"
	"github.com/WSG23/optimal-build-sub005/internal/util"
	"github.com/WSG23/optimal-build-sub005/pkg/export"
	"github.com/WSG23/optimal-build-sub005/pkg/geometry"
	"github.com/WSG23/optimal-build-sub005/pkg/logger"
)

// ErrGeometryMissing is returned when a project has no parseable source
// geometry. It is the only condition under which an export produces no
// artifact once the inputs validate.
var ErrGeometryMissing = errors.New("no source geometry for project")

// EventExportGenerated is the audit event type appended after every
// successful export.
const EventExportGenerated = "project.export.generated"

// SourceGeometryRow is one stored geometry document for a project as handed
// over by the persistence collaborator.
type SourceGeometryRow struct {
	ID   int64
	Data []byte
}

// Session is the transactional handle the orchestrator consumes. The
// persistence layer behind it is an external collaborator; the pgx adapter
// in session.go is one implementation, test fakes are another.
type Session interface {
	ListSourceGeometries(ctx context.Context, projectID int64) ([]SourceGeometryRow, error)
	ListOverlaySuggestions(ctx context.Context, projectID int64) ([]export.OverlaySuggestion, error)
	AppendEvent(ctx context.Context, projectID int64, eventType string, baselineSeconds, actualSeconds float64, eventContext map[string]any) error
	Commit(ctx context.Context) error
}

// Artifact is a stored export: payload plus manifest, openable as a binary
// stream.
type Artifact interface {
	Key() string
	Filename() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ArtifactStorage persists export payloads with their manifests.
type ArtifactStorage interface {
	Store(ctx context.Context, projectID int64, format export.Format, payload []byte, manifest *export.Manifest, filename string) (Artifact, error)
}

// Exporter renders project geometry and overlay suggestions into an export
// artifact. The writer registry is injected; there is no global writer state.
type Exporter struct {
	registry *export.Registry
	now      func() time.Time
}

type ExporterOption func(*Exporter)

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) {
		e.now = now
	}
}

func New(registry *export.Registry, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateProjectExport loads the project's source geometry and overlay
// suggestions through the session, renders the requested format, persists
// the artifact, and appends an audit event before committing.
//
// Renderer-level failures never surface here: a render always succeeds once
// geometry exists, degrading to the JSON fallback payload at worst.
func (e *Exporter) GenerateProjectExport(
	ctx context.Context,
	session Session,
	projectID int64,
	opts export.Options,
	storage ArtifactStorage,
) (Artifact, error) {
	started := e.now()

	writer, ok := e.registry.Writer(opts.Format)
	if !ok {
		return nil, fmt.Errorf("no writer registered for format %q", opts.Format)
	}

	geometries, err := e.loadGeometries(ctx, session, projectID)
	if err != nil {
		return nil, err
	}

	var features []export.Feature
	if opts.IncludeSource {
		for _, cg := range geometries {
			for _, node := range cg.Flatten() {
				features = append(features, export.Feature{
					Layer:      opts.Mapping.MapSource(node.Kind),
					ID:         node.ID,
					Kind:       node.Kind,
					Properties: copyProperties(node.Properties),
				})
			}
		}
	}

	suggestions, err := session.ListOverlaySuggestions(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load overlay suggestions: %w", err)
	}

	var overlays []export.OverlayFeature
	approved := 0
	for _, s := range suggestions {
		status := s.EffectiveStatus()
		if status == export.StatusApproved {
			approved++
		}
		if !opts.Includes(status) {
			continue
		}
		overlays = append(overlays, export.OverlayFeature{
			Layer:     opts.Mapping.MapOverlay(s.Code, string(status)),
			Code:      s.Code,
			Title:     s.Title,
			Type:      s.Type,
			Status:    string(status),
			Severity:  s.Severity,
			Style:     opts.Mapping.StyleFor(s.Code, s.Severity),
			Nodes:     s.Nodes(),
			TargetIDs: s.TargetIDs(),
			RuleRefs:  s.RuleRefs(),
			Props:     s.Props(),
		})
	}

	// The watermark keys off the full suggestion set, not the filtered one:
	// an export that hides pending overlays still advertises their existence.
	watermark := ""
	if export.AnyPending(suggestions) {
		watermark = opts.Watermark()
	}

	payload, manifest := writer.Render(features, overlays, watermark, opts)

	manifest.ProjectID = projectID
	manifest.GeneratedAt = e.now().UTC().Format(time.RFC3339)
	if manifest.Renderer == export.RendererFallback {
		// The fallback payload is the manifest itself; regenerate it so the
		// stored bytes reflect the manifest after the mutations above.
		payload, err = manifest.Encode()
		if err != nil {
			return nil, fmt.Errorf("failed to encode fallback payload: %w", err)
		}
	}

	filename := fmt.Sprintf("project-%d-%s-%s.%s",
		projectID,
		started.UTC().Format("20060102T150405Z"),
		util.ArtifactSuffix(),
		opts.Format,
	)

	artifact, err := storage.Store(ctx, projectID, opts.Format, payload, manifest, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to store export artifact: %w", err)
	}

	baseline := timing.BaselineExportSeconds(approved)
	actual := e.now().Sub(started).Seconds()
	err = session.AppendEvent(ctx, projectID, EventExportGenerated, baseline, actual, map[string]any{
		"format":                    string(opts.Format),
		"approved_overlays":         approved,
		"include_approved_overlays": opts.IncludeApprovedOverlays,
		"include_pending_overlays":  opts.IncludePendingOverlays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append audit event: %w", err)
	}
	if err := session.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit export session: %w", err)
	}

	logger.Info("[Export] Artifact generated",
		"project_id", projectID,
		"format", opts.Format,
		"renderer", manifest.Renderer,
		"key", artifact.Key(),
	)
	return artifact, nil
}

func (e *Exporter) loadGeometries(ctx context.Context, session Session, projectID int64) ([]*geometry.CanonicalGeometry, error) {
	rows, err := session.ListSourceGeometries(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load source geometries: %w", err)
	}

	geometries := make([]*geometry.CanonicalGeometry, 0, len(rows))
	for _, row := range rows {
		cg, err := geometry.ParseCanonicalGeometry(row.Data)
		if err != nil {
			logger.Warn("[Export] Skipping unparseable geometry row", "project_id", projectID, "row_id", row.ID, "err", err)
			continue
		}
		geometries = append(geometries, cg)
	}
	if len(geometries) == 0 {
		return nil, fmt.Errorf("%w: project %d", ErrGeometryMissing, projectID)
	}
	return geometries, nil
}

func copyProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
