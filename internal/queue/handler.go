package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/WSG23/optimal-build-sub005/internal/exporter"
	"github.com/WSG23/optimal-build-sub005/internal/timing"
	"github.com/WSG23/optimal-build-sub005/internal/util"
	"github.com/WSG23/optimal-build-sub005/pkg/export"
	"github.com/WSG23/optimal-build-sub005/pkg/logger"
)

// ExportJobMsg is one queued export request. Nil flags mean "use the format
// defaults" so producers only send what they want to override.
type ExportJobMsg struct {
	ProjectID               int64  `json:"project_id"`
	Format                  string `json:"format"`
	IncludeSource           *bool  `json:"include_source,omitempty"`
	IncludeApprovedOverlays *bool  `json:"include_approved_overlays,omitempty"`
	IncludePendingOverlays  *bool  `json:"include_pending_overlays,omitempty"`
	IncludeRejectedOverlays *bool  `json:"include_rejected_overlays,omitempty"`
	PendingWatermark        string `json:"pending_watermark,omitempty"`
	Retries                 int    `json:"retries,omitempty"`
}

// Options resolves the message into export options on top of the format
// defaults.
func (m ExportJobMsg) Options() (export.Options, error) {
	format, err := export.ParseFormat(m.Format)
	if err != nil {
		return export.Options{}, err
	}
	opts := export.DefaultOptions(format)
	if m.IncludeSource != nil {
		opts.IncludeSource = *m.IncludeSource
	}
	if m.IncludeApprovedOverlays != nil {
		opts.IncludeApprovedOverlays = *m.IncludeApprovedOverlays
	}
	if m.IncludePendingOverlays != nil {
		opts.IncludePendingOverlays = *m.IncludePendingOverlays
	}
	if m.IncludeRejectedOverlays != nil {
		opts.IncludeRejectedOverlays = *m.IncludeRejectedOverlays
	}
	if m.PendingWatermark != "" {
		opts.PendingWatermark = m.PendingWatermark
	}
	return opts, nil
}

const maxJobRetries = 3

// ConsumeExportJobs processes export jobs until ctx is done, running up to
// parallel jobs at once. Failed jobs are re-published to the retry queue
// with a bumped retry count; exhausted or malformed jobs land on the DLQ.
func ConsumeExportJobs(
	ctx context.Context,
	ch *amqp091.Channel,
	conn *pgxpool.Pool,
	storage exporter.ArtifactStorage,
	exp *exporter.Exporter,
	parallel int,
) error {
	if parallel < 1 {
		parallel = 1
	}
	if err := ch.Qos(parallel, 0, false); err != nil {
		return err
	}

	deliveries, err := ch.Consume(
		ExportQueue,
		"export-worker",
		false, // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallel)

	for {
		select {
		case <-gCtx.Done():
			return eg.Wait()
		case delivery, ok := <-deliveries:
			if !ok {
				return eg.Wait()
			}
			d := delivery
			eg.Go(func() error {
				handleExportJob(gCtx, ch, conn, storage, exp, d)
				return nil
			})
		}
	}
}

func handleExportJob(
	ctx context.Context,
	ch *amqp091.Channel,
	conn *pgxpool.Pool,
	storage exporter.ArtifactStorage,
	exp *exporter.Exporter,
	delivery amqp091.Delivery,
) {
	var msg ExportJobMsg
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		logger.Error("[Queue] Malformed export job", "err", err)
		deadLetter(ch, delivery)
		return
	}

	opts, err := msg.Options()
	if err != nil {
		logger.Error("[Queue] Export job with bad options", "project_id", msg.ProjectID, "err", err)
		deadLetter(ch, delivery)
		return
	}

	started := time.Now()
	err = runExport(ctx, conn, storage, exp, msg.ProjectID, opts)
	if err == nil {
		if statErr := timing.AddExportTime(ctx, conn, msg.ProjectID, string(opts.Format), time.Since(started).Milliseconds()); statErr != nil {
			logger.Warn("[Queue] Failed to record export stat", "project_id", msg.ProjectID, "err", statErr)
		}
		if ackErr := delivery.Ack(false); ackErr != nil {
			logger.Warn("[Queue] Failed to ack export job", "project_id", msg.ProjectID, "err", ackErr)
		}
		return
	}

	logger.Error("[Queue] Export job failed", "project_id", msg.ProjectID, "format", msg.Format, "retries", msg.Retries, "err", err)

	if msg.Retries >= maxJobRetries {
		deadLetter(ch, delivery)
		return
	}

	msg.Retries++
	body, marshalErr := json.Marshal(msg)
	if marshalErr != nil {
		deadLetter(ch, delivery)
		return
	}
	if pubErr := util.RetryErr(3, func() error {
		return Publish(ch, ExportRetryQueue, body)
	}); pubErr != nil {
		logger.Error("[Queue] Failed to re-queue export job", "project_id", msg.ProjectID, "err", pubErr)
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			logger.Warn("[Queue] Failed to nack export job", "project_id", msg.ProjectID, "err", nackErr)
		}
		return
	}
	if ackErr := delivery.Ack(false); ackErr != nil {
		logger.Warn("[Queue] Failed to ack re-queued export job", "project_id", msg.ProjectID, "err", ackErr)
	}
}

func runExport(
	ctx context.Context,
	conn *pgxpool.Pool,
	storage exporter.ArtifactStorage,
	exp *exporter.Exporter,
	projectID int64,
	opts export.Options,
) error {
	session, err := exporter.BeginSession(ctx, conn)
	if err != nil {
		return err
	}
	defer session.Rollback(ctx)

	_, err = exp.GenerateProjectExport(ctx, session, projectID, opts, storage)
	return err
}

func deadLetter(ch *amqp091.Channel, delivery amqp091.Delivery) {
	if err := Publish(ch, ExportDLQ, delivery.Body); err != nil {
		logger.Error("[Queue] Failed to dead-letter export job", "err", err)
		_ = delivery.Nack(false, true)
		return
	}
	_ = delivery.Ack(false)
}
