package db

import (
	"context"
	"encoding/json"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is the subset of pgx connection behavior the queries need; it is
// satisfied by *pgxpool.Pool, *pgx.Conn, and pgx.Tx alike, so the same
// Queries value works inside and outside a transaction.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

type Queries struct {
	conn Conn
}

func New(conn Conn) *Queries {
	return &Queries{conn: conn}
}

// SourceGeometry is one stored geometry row for a project: the serialized
// canonical-geometry document as ingested upstream.
type SourceGeometry struct {
	ID        int64
	ProjectID int64
	Data      []byte
}

// OverlaySuggestionRow is one rule-engine suggestion row for a project.
type OverlaySuggestionRow struct {
	ID        int64
	ProjectID int64
	Code      string
	Title     string
	Type      string
	Status    string
	Severity  string
	Engine    map[string]any
}

const listSourceGeometries = `
SELECT id, project_id, graph_data
FROM source_geometries
WHERE project_id = $1
ORDER BY id
`

func (q *Queries) ListSourceGeometries(ctx context.Context, projectID int64) ([]SourceGeometry, error) {
	rows, err := q.conn.Query(ctx, listSourceGeometries, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query source geometries: %w", err)
	}
	defer rows.Close()

	var out []SourceGeometry
	for rows.Next() {
		var sg SourceGeometry
		if err := rows.Scan(&sg.ID, &sg.ProjectID, &sg.Data); err != nil {
			return nil, fmt.Errorf("failed to scan source geometry row: %w", err)
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

const listOverlaySuggestions = `
SELECT id, project_id, code, title, type, status, severity, engine_payload
FROM overlay_suggestions
WHERE project_id = $1
ORDER BY id
`

func (q *Queries) ListOverlaySuggestions(ctx context.Context, projectID int64) ([]OverlaySuggestionRow, error) {
	rows, err := q.conn.Query(ctx, listOverlaySuggestions, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlay suggestions: %w", err)
	}
	defer rows.Close()

	var out []OverlaySuggestionRow
	for rows.Next() {
		var row OverlaySuggestionRow
		var engine []byte
		if err := rows.Scan(&row.ID, &row.ProjectID, &row.Code, &row.Title, &row.Type, &row.Status, &row.Severity, &engine); err != nil {
			return nil, fmt.Errorf("failed to scan overlay suggestion row: %w", err)
		}
		if len(engine) > 0 {
			if err := json.Unmarshal(engine, &row.Engine); err != nil {
				return nil, fmt.Errorf("failed to decode engine payload for suggestion %d: %w", row.ID, err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const insertAuditEvent = `
INSERT INTO audit_events (project_id, event_type, baseline_seconds, actual_seconds, context)
VALUES ($1, $2, $3, $4, $5)
`

type InsertAuditEventParams struct {
	ProjectID       int64
	EventType       string
	BaselineSeconds float64
	ActualSeconds   float64
	Context         map[string]any
}

func (q *Queries) InsertAuditEvent(ctx context.Context, params InsertAuditEventParams) error {
	context_, err := json.Marshal(params.Context)
	if err != nil {
		return fmt.Errorf("failed to encode audit event context: %w", err)
	}
	_, err = q.conn.Exec(ctx, insertAuditEvent,
		params.ProjectID, params.EventType, params.BaselineSeconds, params.ActualSeconds, context_)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

const addExportStat = `
INSERT INTO export_stats (project_id, format, duration_ms)
VALUES ($1, $2, $3)
`

type AddExportStatParams struct {
	ProjectID  int64
	Format     string
	DurationMs int64
}

func (q *Queries) AddExportStat(ctx context.Context, params AddExportStatParams) error {
	_, err := q.conn.Exec(ctx, addExportStat, params.ProjectID, params.Format, params.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to insert export stat: %w", err)
	}
	return nil
}
