package exporter

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WSG23/optimal-build-sub005/internal/db"
	"github.com/WSG23/optimal-build-sub005/pkg/export"
)

// PgxSession adapts a pgx transaction to the Session interface. Each export
// call opens its own session over a fresh transaction, so no two exports
// share graph or row state.
type PgxSession struct {
	tx      pgx.Tx
	queries *db.Queries
}

// BeginSession opens a transaction on the pool. The caller must either
// Commit (normally via the orchestrator) or Rollback.
func BeginSession(ctx context.Context, pool *pgxpool.Pool) (*PgxSession, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin export session: %w", err)
	}
	return &PgxSession{tx: tx, queries: db.New(tx)}, nil
}

func (s *PgxSession) ListSourceGeometries(ctx context.Context, projectID int64) ([]SourceGeometryRow, error) {
	rows, err := s.queries.ListSourceGeometries(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]SourceGeometryRow, len(rows))
	for i, row := range rows {
		out[i] = SourceGeometryRow{ID: row.ID, Data: row.Data}
	}
	return out, nil
}

func (s *PgxSession) ListOverlaySuggestions(ctx context.Context, projectID int64) ([]export.OverlaySuggestion, error) {
	rows, err := s.queries.ListOverlaySuggestions(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]export.OverlaySuggestion, len(rows))
	for i, row := range rows {
		out[i] = export.OverlaySuggestion{
			Code:     row.Code,
			Title:    row.Title,
			Type:     row.Type,
			Status:   row.Status,
			Severity: row.Severity,
			Engine:   row.Engine,
		}
	}
	return out, nil
}

func (s *PgxSession) AppendEvent(ctx context.Context, projectID int64, eventType string, baselineSeconds, actualSeconds float64, eventContext map[string]any) error {
	return s.queries.InsertAuditEvent(ctx, db.InsertAuditEventParams{
		ProjectID:       projectID,
		EventType:       eventType,
		BaselineSeconds: baselineSeconds,
		ActualSeconds:   actualSeconds,
		Context:         eventContext,
	})
}

func (s *PgxSession) Commit(ctx context.Context) error {
	return s.tx.Commit(ctx)
}

// Rollback abandons the session. Safe to defer alongside a Commit; rolling
// back a committed transaction is a no-op error that is swallowed here.
func (s *PgxSession) Rollback(ctx context.Context) {
	_ = s.tx.Rollback(ctx)
}
