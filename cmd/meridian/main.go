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

	"github.com/hibiken/asynq"

	"github.com/meridian-hcm/meridian/internal/app"
	"github.com/meridian-hcm/meridian/internal/calendar"
	calendarhttp "github.com/meridian-hcm/meridian/internal/calendar/http"
	"github.com/meridian-hcm/meridian/internal/holiday"
	"github.com/meridian-hcm/meridian/internal/observability"
	"github.com/meridian-hcm/meridian/internal/paygroup"
	"github.com/meridian-hcm/meridian/internal/platform/cache"
	"github.com/meridian-hcm/meridian/internal/platform/db"
	"github.com/meridian-hcm/meridian/internal/shared"
	"github.com/meridian-hcm/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	payGroupRepo := paygroup.NewRepository(pool)
	payGroupService := paygroup.NewService(payGroupRepo)
	payGroupHandler := paygroup.NewHandler(logger, payGroupService)

	holidayRepo := holiday.NewRepository(pool)
	holidayService := holiday.NewService(holidayRepo, redisClient, cfg.HolidayCacheTTL)

	confirmStore := calendar.NewConfirmationStore(redisClient, cfg.ConfirmTokenTTL)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	calendarRepo := calendar.NewRepository(pool)
	calendarService := calendar.NewService(calendarRepo, payGroupService, holidayService, confirmStore, auditLogger, logger)
	calendarService.WithOffsetBounds(calendar.OffsetBounds{Min: cfg.PayDateOffsetMin, Max: cfg.PayDateOffsetMax})
	calendarService.WithNotifier(jobs.NewCalendarNotifier(jobClient))

	metrics := observability.NewMetrics()
	calendarHandler := calendarhttp.NewHandler(logger, calendarService, metrics)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		CalendarHandler: calendarHandler,
		PayGroupHandler: payGroupHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
