package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/sarathi/internal/adapter/http/handler"
	"github.com/iho/sarathi/internal/adapter/http/middleware"
	"github.com/iho/sarathi/internal/infrastructure/metrics"
	"github.com/iho/sarathi/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LedgerHandler   *handler.LedgerHandler
	ScoreHandler    *handler.ScoreHandler
	LoanHandler     *handler.LoanHandler
	SafeSendHandler *handler.SafeSendHandler
	AdminHandler    *handler.AdminHandler
	HealthHandler   *handler.HealthHandler

	// Verifier authenticates bearer tokens. When nil, callers are identified
	// by the X-User-ID development headers.
	Verifier middleware.TokenVerifier

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Verifier != nil {
			r.Use(middleware.AuthMiddleware(cfg.Verifier))
		} else {
			r.Use(middleware.HeaderAuthMiddleware)
		}

		// Keys are scoped per caller, so this runs after authentication.
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
		}

		r.Get("/me", cfg.LedgerHandler.Me)
		r.Get("/transactions", cfg.LedgerHandler.Transactions)
		r.Post("/transactions/remit", cfg.LedgerHandler.Remit)

		r.Get("/score", cfg.ScoreHandler.Get)
		r.Get("/score/history", cfg.ScoreHandler.History)

		r.Route("/loans", func(r chi.Router) {
			r.Post("/request", cfg.LoanHandler.Request)
			r.Get("/active", cfg.LoanHandler.Active)
			r.Post("/{id}/accept", cfg.LoanHandler.Accept)
			r.Post("/{id}/repay", cfg.LoanHandler.Repay)
			r.With(middleware.RequireAdmin).Post("/{id}/default", cfg.LoanHandler.Default)
		})

		r.Route("/safesend", func(r chi.Router) {
			h := cfg.SafeSendHandler

			r.Post("/merchants", h.CreateMerchant)
			r.Get("/merchants", h.ListMerchants)
			r.Get("/merchants/{id}/escrows", h.ListMerchantEscrows)
			r.With(middleware.RequireAdmin).Post("/merchants/{id}/verify", h.VerifyMerchant)

			r.Post("/escrows", h.CreateEscrow)
			r.Get("/escrows", h.ListEscrows)
			r.Get("/escrows/{id}", h.GetEscrow)
			r.Post("/escrows/{id}/proofs", h.SubmitProof)
			r.With(middleware.RequireAdmin).Post("/escrows/{id}/refund", h.Refund)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/proofs/pending", h.PendingProofs)
				r.Post("/proofs/{id}/review", h.ReviewProof)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/users/{id}/reconcile", cfg.AdminHandler.ReconcileUser)
			r.Get("/reconciliation", cfg.AdminHandler.Report)
			r.Get("/audit", cfg.AdminHandler.AuditLogs)
		})
	})

	return r
}
