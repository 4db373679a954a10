package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexdesk/lexdesk/internal/app"
	"github.com/lexdesk/lexdesk/internal/audit"
	"github.com/lexdesk/lexdesk/internal/calendar"
	"github.com/lexdesk/lexdesk/internal/deadline"
	"github.com/lexdesk/lexdesk/internal/holiday"
	"github.com/lexdesk/lexdesk/internal/platform/cache"
	"github.com/lexdesk/lexdesk/internal/platform/db"
	"github.com/lexdesk/lexdesk/internal/sequence"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping startup")
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// The holiday cache is an optimisation; the store works without it.
		logger.Warn("redis unavailable, holiday cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	holidayCache := holiday.NewCache(redisClient, cfg.HolidayCacheTTL)
	holidayService := holiday.NewService(holiday.NewRepository(pool), holidayCache)
	calendarService := calendar.NewService(holidayService)

	allocator := sequence.NewAllocator(sequence.NewRepository(pool, cfg.SequenceLockTimeout))
	auditRepo := audit.NewRepository(pool)
	deadlineRepo := deadline.NewRepository(pool, auditRepo)
	deadlineService := deadline.NewService(deadlineRepo, calendarService, allocator)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		HolidayHandler:  holiday.NewHandler(logger, holidayService),
		DeadlineHandler: deadline.NewHandler(logger, deadlineService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server started", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
