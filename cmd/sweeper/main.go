package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tailrace/lobby-backend/internal/ledger"
	"github.com/tailrace/lobby-backend/internal/sessions"
	"github.com/tailrace/lobby-backend/internal/sweep"
	"github.com/tailrace/lobby-backend/pkg/config"
	"github.com/tailrace/lobby-backend/pkg/db"
	"github.com/tailrace/lobby-backend/pkg/logger"
	"github.com/tailrace/lobby-backend/pkg/metrics"
	"github.com/tailrace/lobby-backend/pkg/migrate"
	"github.com/tailrace/lobby-backend/pkg/redis"
)

const lockKeyFormat = "gtlobby:sweeper:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweeper"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sweeper"

	logg = logger.New(logger.Options{
		ServiceName: "sweeper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	hub := sessions.NewHub()
	notifier := sessions.NewRedisNotifier(redisClient, hub, logg)

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient, cfg.Lobby)
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	// The sweeper never creates sessions, so the opportunistic sweep gate and
	// the result recorder stay unwired.
	sessionService, err := sessions.NewService(sessions.NewRepository(dbClient.DB()), dbClient, ledgerService, nil, notifier, nil, cfg.Lobby, logg)
	if err != nil {
		logg.Error(ctx, "failed to create session service", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	lock, err := sweep.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(ctx, "failed to create sweep lock", err)
		os.Exit(1)
	}

	expiryJob, err := sweep.NewSessionExpiryJob(sweep.SessionExpiryJobParams{
		Logger:   logg,
		Sessions: sessionService,
		Metrics:  jobMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create expiry job", err)
		os.Exit(1)
	}

	registry := sweep.NewRegistry()
	registry.Register(expiryJob)

	service, err := sweep.NewService(sweep.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Lobby.SweepInterval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sweep service", err)
		os.Exit(1)
	}

	go serveMetrics(ctx, cfg, logg)

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting session sweeper")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "session sweeper stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "session sweeper shutting down gracefully")
}

func serveMetrics(ctx context.Context, cfg *config.Config, logg *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: ":" + cfg.App.Port, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
