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

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nekogravitycat/grooming-booking-backend/internal/app"
	"github.com/nekogravitycat/grooming-booking-backend/internal/config"
	"github.com/nekogravitycat/grooming-booking-backend/internal/db"
	"github.com/nekogravitycat/grooming-booking-backend/internal/notify"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/logging"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/metrics"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/ratelimit"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel).With("service", "grooming-booking-backend")
	slog.SetDefault(logger)

	// Tracing
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "grooming-booking-backend",
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		return err
	}

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	// Rate limiting: shared through Redis when configured, per process otherwise.
	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, time.Minute)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
	}

	// Notifications: Kafka when brokers are configured, the log otherwise.
	var delivery notify.Delivery = notify.NewLogDelivery(logger)
	var kafkaDelivery *notify.KafkaDelivery
	if len(cfg.KafkaBrokers) > 0 {
		kafkaDelivery = notify.NewKafkaDelivery(notify.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaNotifyTopic,
		}, logger)
		delivery = kafkaDelivery
	}
	dispatcher := notify.NewDispatcher(delivery, logger, 5*time.Second)

	container, err := app.NewContainer(app.Config{
		IsProduction:    cfg.IsProduction,
		ProdOrigins:     cfg.ProdOrigins,
		DBPool:          pool,
		JWTSecret:       cfg.JWTSecret,
		JWTTTL:          cfg.JWTAccessTokenTTL,
		JWTRefreshTTL:   cfg.JWTRefreshTokenTTL,
		BcryptCost:      cfg.BcryptCost,
		StoragePath:     cfg.StoragePath,
		Logger:          logger,
		Limiter:         limiter,
		Notifier:        dispatcher,
		Metrics:         metrics.New(),
		BookingMaxTries: cfg.BookingMaxTries,
	})
	if err != nil {
		return err
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(container.Router, "http.server"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server running", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for Ctrl+C or a listener failure
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", "err", err)
	}
	// Drain pending notifications before closing their transport.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("notifications dropped on shutdown", "err", err)
	}
	if kafkaDelivery != nil {
		if err := kafkaDelivery.Close(); err != nil {
			logger.Warn("kafka writer close failed", "err", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", "err", err)
	}

	logger.Info("server exited gracefully")
	return nil
}
