package timing

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WSG23/optimal-build-sub005/internal/db"
)

// baselinePerOverlaySeconds is the fixed manual-review cost assumed per
// approved overlay when estimating what the export automates away.
const baselinePerOverlaySeconds = 90.0

// BaselineExportSeconds is the automation-baseline duration heuristic: a
// fixed per-overlay constant times the approved-overlay count, floored at
// one overlay so an export without approvals still carries a baseline.
func BaselineExportSeconds(approvedOverlays int) float64 {
	if approvedOverlays < 1 {
		approvedOverlays = 1
	}
	return float64(approvedOverlays) * baselinePerOverlaySeconds
}

// AddExportTime records a measured export duration for a project, feeding
// the per-format duration stats.
func AddExportTime(ctx context.Context, conn *pgxpool.Pool, projectID int64, format string, durationMs int64) error {
	q := db.New(conn)
	return q.AddExportStat(ctx, db.AddExportStatParams{
		ProjectID:  projectID,
		Format:     format,
		DurationMs: durationMs,
	})
}
