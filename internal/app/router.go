package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lyceum-app/lyceum/internal/accounts"
	"github.com/lyceum-app/lyceum/internal/authz"
	"github.com/lyceum-app/lyceum/internal/identity"
	"github.com/lyceum-app/lyceum/internal/observability"
	"github.com/lyceum-app/lyceum/jobs"
)

// DefaultEndpointRules is the access table applied in front of the API.
// Everything under /api/admin is admin only; login and health are
// public; the rest falls through to per-route permission checks.
func DefaultEndpointRules() []authz.EndpointRule {
	return []authz.EndpointRule{
		{Pattern: "/healthz", Roles: []string{authz.PublicWildcard}},
		{Pattern: "/api/auth/login", Roles: []string{authz.PublicWildcard}},
		{Pattern: "/api/admin/**", Roles: []string{string(authz.RoleAdmin)}},
		{Pattern: "/api/reports/**", Roles: []string{string(authz.RoleAdmin), "HEAD_TEACHER", "ACCOUNTANT"}},
	}
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthzMiddleware authz.Middleware
	AuthHandler     *identity.Handler
	AuthzHandler    *authz.Handler
	AccountsHandler *accounts.Handler
	AuditHandler    http.Handler
	JobsHandler     *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
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
	r.Use(params.AuthzMiddleware.WithPrincipal())
	r.Use(params.AuthzMiddleware.RequireEndpointAccess())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		params.AuthzHandler.MountRoutes(r)
		r.Route("/accounts", params.AccountsHandler.MountRoutes)
		r.Route("/admin", func(r chi.Router) {
			if params.AuditHandler != nil {
				r.Method(http.MethodGet, "/audit", params.AuditHandler)
			}
			if params.JobsHandler != nil {
				r.Route("/jobs", params.JobsHandler.MountRoutes)
			}
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
