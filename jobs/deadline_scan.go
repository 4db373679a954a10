package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lexdesk/lexdesk/internal/deadline"
)

// DeadlineScanJob produces the daily digest of overdue and due-soon
// deadlines. It only reads: marking a deadline missed is a legal decision
// left to a human.
type DeadlineScanJob struct {
	Service *deadline.Service
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewDeadlineScanJob initialises the scan handler.
func NewDeadlineScanJob(service *deadline.Service, logger *slog.Logger) *DeadlineScanJob {
	return &DeadlineScanJob{
		Service: service,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan.
func (j *DeadlineScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("deadline scan: handler not configured")
	}
	var payload DeadlineScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = 7
	}

	start := j.now()
	logger := j.logger().With(slog.Int("window_days", payload.WindowDays))
	logger.Info("starting deadline scan")

	board, err := j.Service.BuildDashboard(ctx, start, payload.WindowDays)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}

	byPriority := map[deadline.Priority]int{}
	for _, d := range board.Overdue {
		byPriority[d.Priority]++
		logger.Warn("deadline overdue",
			slog.String("uid", d.UID),
			slog.String("title", d.Title),
			slog.String("priority", string(d.Priority)),
			slog.String("due_date", d.DueDate.Format(time.DateOnly)),
		)
	}

	logger.Info("completed deadline scan",
		slog.Int("overdue", len(board.Overdue)),
		slog.Int("due_today", len(board.DueToday)),
		slog.Int("due_soon", len(board.DueSoon)),
		slog.Int("overdue_critical", byPriority[deadline.PriorityCritical]),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *DeadlineScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *DeadlineScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
