package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tailrace/lobby-backend/api/controllers"
	"github.com/tailrace/lobby-backend/api/middleware"
	"github.com/tailrace/lobby-backend/internal/leaderboard"
	"github.com/tailrace/lobby-backend/internal/ledger"
	"github.com/tailrace/lobby-backend/internal/profiles"
	"github.com/tailrace/lobby-backend/internal/sessions"
	"github.com/tailrace/lobby-backend/pkg/config"
	"github.com/tailrace/lobby-backend/pkg/db"
	"github.com/tailrace/lobby-backend/pkg/logger"
	"github.com/tailrace/lobby-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	ledgerService ledger.Service,
	sessionService sessions.Service,
	sessionView *sessions.View,
	profileService profiles.Service,
	leaderboardService leaderboard.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/sessions", func(r chi.Router) {
			r.Get("/", controllers.SessionList(sessionView, logg))
			r.Post("/", controllers.SessionCreate(sessionService, logg))
			r.Get("/stream", controllers.SessionStream(sessionView, logg))
			r.Get("/{sessionId}", controllers.SessionDetail(sessionService, logg))
			r.Post("/{sessionId}/join", controllers.SessionJoin(sessionService, logg))
			r.Post("/{sessionId}/cancel", controllers.SessionCancel(sessionService, logg))
			r.Post("/{sessionId}/complete", controllers.SessionComplete(sessionService, logg))
			r.Get("/{sessionId}/stakes", controllers.SessionStakes(ledgerService, logg))
		})

		r.Route("/v1/wallet", func(r chi.Router) {
			r.Get("/balance", controllers.WalletBalance(ledgerService, logg))
			r.Post("/deposit", controllers.WalletDeposit(ledgerService, logg))
			r.Post("/withdraw", controllers.WalletWithdraw(ledgerService, logg))
			r.Get("/history", controllers.WalletHistory(ledgerService, logg))
		})

		r.Route("/v1/profiles", func(r chi.Router) {
			r.Get("/me", controllers.ProfileMe(profileService, logg))
			r.Put("/me/name", controllers.ProfileUpdateName(profileService, logg))
			r.Put("/me/avatar", controllers.ProfileUpdateAvatar(profileService, logg))
			r.Get("/{address}", controllers.ProfileDetail(profileService, logg))
		})

		r.Get("/v1/leaderboard", controllers.Leaderboard(leaderboardService, logg))
	})

	return r
}
