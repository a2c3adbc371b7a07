package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/tailrace/lobby-backend/api/routes"
	"github.com/tailrace/lobby-backend/internal/leaderboard"
	"github.com/tailrace/lobby-backend/internal/ledger"
	"github.com/tailrace/lobby-backend/internal/profiles"
	"github.com/tailrace/lobby-backend/internal/sessions"
	"github.com/tailrace/lobby-backend/pkg/config"
	"github.com/tailrace/lobby-backend/pkg/db"
	"github.com/tailrace/lobby-backend/pkg/logger"
	"github.com/tailrace/lobby-backend/pkg/migrate"
	"github.com/tailrace/lobby-backend/pkg/redis"
)

const shutdownGrace = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	go func() {
		if err := notifier.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "session change subscription stopped", err)
		}
	}()

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient, cfg.Lobby)
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	profileService, err := profiles.NewService(profiles.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create profile service", err)
		os.Exit(1)
	}

	sessionRepo := sessions.NewRepository(dbClient.DB())
	sessionService, err := sessions.NewService(sessionRepo, dbClient, ledgerService, profileService, notifier, redisClient, cfg.Lobby, logg)
	if err != nil {
		logg.Error(ctx, "failed to create session service", err)
		os.Exit(1)
	}

	sessionView, err := sessions.NewView(sessionRepo, hub, cfg.Lobby, logg)
	if err != nil {
		logg.Error(ctx, "failed to create session view", err)
		os.Exit(1)
	}

	leaderboardService, err := leaderboard.NewService(leaderboard.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create leaderboard service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ledgerService,
			sessionService,
			sessionView,
			profileService,
			leaderboardService,
		),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "error shutting down api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
