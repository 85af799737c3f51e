package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/seferlink/reminder-engine/internal/config"
	"github.com/seferlink/reminder-engine/internal/handler"
	"github.com/seferlink/reminder-engine/internal/infra/postgresql"
	"github.com/seferlink/reminder-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/seferlink/reminder-engine/internal/infra/redis"
	"github.com/seferlink/reminder-engine/internal/observability"
	"github.com/seferlink/reminder-engine/internal/provider"
	"github.com/seferlink/reminder-engine/internal/queue"
	"github.com/seferlink/reminder-engine/internal/repository"
	"github.com/seferlink/reminder-engine/internal/service"
	"github.com/seferlink/reminder-engine/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	tickInterval, err := time.ParseDuration(cfg.TickInterval)
	if err != nil {
		logger.Fatal("invalid tick interval", zap.String("value", cfg.TickInterval), zap.Error(err))
	}

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.SMSRateLimit)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	publisher := queue.NewRabbitMQPublisher(rabbit)
	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.ReplyConcurrency, logger)

	smsProvider, err := provider.NewWebhookSMSProvider(cfg.SMSGatewayURL)
	if err != nil {
		logger.Fatal("sms provider initialization failed", zap.Error(err))
	}

	orderRepo := repository.NewGormOrderRepo(db)
	recordRepo := repository.NewGormReminderRecordRepo(db)
	settingsRepo := repository.NewGormSettingsRepo(db)
	caseRepo := repository.NewGormCaseRepo(db)

	metrics := observability.NewMetrics()

	scheduler, err := service.NewReminderScheduler(
		orderRepo, recordRepo, settingsRepo, smsProvider, limiter, tickInterval, logger,
	)
	if err != nil {
		logger.Fatal("reminder scheduler initialization failed", zap.Error(err))
	}
	scheduler.SetMetrics(metrics)

	monitor, err := service.NewEscalationMonitor(
		recordRepo, orderRepo, settingsRepo, caseRepo, smsProvider, limiter,
		publisher, tickInterval, cfg.EscalationBatch, logger,
	)
	if err != nil {
		logger.Fatal("escalation monitor initialization failed", zap.Error(err))
	}
	monitor.SetMetrics(metrics)

	tracker, err := service.NewResponseTracker(recordRepo, orderRepo, settingsRepo, logger)
	if err != nil {
		logger.Fatal("response tracker initialization failed", zap.Error(err))
	}
	tracker.SetMetrics(metrics)

	replyWorker, err := service.NewReplyWorker(tracker, consumer, cfg.ReplyConcurrency, logger)
	if err != nil {
		logger.Fatal("reply worker initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterTickRoutes(app, scheduler, monitor); err != nil {
		logger.Fatal("tick routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterResponseRoutes(app, tracker); err != nil {
		logger.Fatal("response routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterSettingsRoutes(app, settingsRepo, caseRepo); err != nil {
		logger.Fatal("settings routes registration failed", zap.Error(err))
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("reminder-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		logger.Info("metrics endpoint started", zap.Int("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Start(gCtx)
	})

	g.Go(func() error {
		return monitor.Start(gCtx)
	})

	g.Go(func() error {
		return replyWorker.Start(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("api shutdown failed", zap.Error(err))
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown failed", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("reminder-engine stopped with error", zap.Error(err))
	}

	logger.Info("reminder-engine stopped")
}
