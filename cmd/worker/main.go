package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WSG23/optimal-build-sub005/internal/exporter"
	"github.com/WSG23/optimal-build-sub005/internal/queue"
	"github.com/WSG23/optimal-build-sub005/internal/storage"
	"github.com/WSG23/optimal-build-sub005/internal/util"
	"github.com/WSG23/optimal-build-sub005/pkg/export"
	"github.com/WSG23/optimal-build-sub005/pkg/logger"
	"github.com/WSG23/optimal-build-sub005/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	}))

	s3Client := storage.NewS3Client(ctx)
	bucket := util.GetEnvString("AWS_BUCKET", "exports")
	artifacts := storage.NewS3ArtifactStorage(s3Client, bucket)

	conn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	exp := exporter.New(export.NewRegistry())
	parallel := util.GetEnvInt("EXPORT_PARALLEL_JOBS", 2)

	logger.Info("[Worker] Consuming export jobs", "parallel", parallel)
	if err := queue.ConsumeExportJobs(ctx, ch, conn, artifacts, exp, parallel); err != nil && ctx.Err() == nil {
		logger.Fatal("Worker stopped", "err", err)
	}
}
