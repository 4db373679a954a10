package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lexdesk/lexdesk/internal/app"
	"github.com/lexdesk/lexdesk/internal/calendar"
	"github.com/lexdesk/lexdesk/internal/deadline"
	"github.com/lexdesk/lexdesk/internal/holiday"
	"github.com/lexdesk/lexdesk/internal/platform/db"
	"github.com/lexdesk/lexdesk/internal/sequence"
	"github.com/lexdesk/lexdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	holidayService := holiday.NewService(holiday.NewRepository(pool), nil)
	calendarService := calendar.NewService(holidayService)
	allocator := sequence.NewAllocator(sequence.NewRepository(pool, cfg.SequenceLockTimeout))
	deadlineService := deadline.NewService(deadline.NewRepository(pool, nil), calendarService, allocator)

	scanJob := jobs.NewDeadlineScanJob(deadlineService, logger)
	scanTask, err := jobs.NewDeadlineScanTask(jobs.DeadlineScanPayload{WindowDays: cfg.DeadlineScanWindow})
	if err != nil {
		logger.Error("build scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDeadlineScan, Handler: scanJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DeadlineScanCron, Task: scanTask},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
