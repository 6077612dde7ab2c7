package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pamoja-sacco/pamoja-sacco/internal/auth"
	"github.com/pamoja-sacco/pamoja-sacco/internal/loans"
	"github.com/pamoja-sacco/pamoja-sacco/internal/members"
	"github.com/pamoja-sacco/pamoja-sacco/internal/messaging"
	"github.com/pamoja-sacco/pamoja-sacco/internal/observability"
	"github.com/pamoja-sacco/pamoja-sacco/internal/routeguard"
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
	"github.com/pamoja-sacco/pamoja-sacco/internal/transactions"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	AuthMiddleware      auth.Middleware
	AuthHandler         *auth.Handler
	MembersHandler      *members.Handler
	LoansHandler        *loans.Handler
	TransactionsHandler *transactions.Handler
	MessagingHandler    *messaging.Handler
	RouteTable          routeguard.Table
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router. Every protected route group passes
// through an access guard before any role authorizer or handler.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	guard := params.AuthMiddleware
	adminOnly := guard.Authorize(shared.RoleAdmin)

	r.Route("/auth", func(r chi.Router) {
		r.Use(AuthRateLimiter())
		params.AuthHandler.MountRoutes(r)
	})
	r.Route("/members", func(r chi.Router) {
		params.MembersHandler.MountRoutes(r, guard.ProtectStrict, adminOnly)
	})
	r.Route("/loans", func(r chi.Router) {
		params.LoansHandler.MountRoutes(r, guard.ProtectStrict, adminOnly)
	})
	r.Route("/transactions", func(r chi.Router) {
		params.TransactionsHandler.MountRoutes(r, guard.ProtectStrict)
	})
	r.Route("/messages", func(r chi.Router) {
		params.MessagingHandler.MountRoutes(r, guard.ProtectStrict, adminOnly)
	})

	r.Method(http.MethodGet, "/routes", routeguard.NewHandler(params.RouteTable))

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
