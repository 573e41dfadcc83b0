package api

import (
	"net/http"

	"github.com/eventify-org/server/internal/api/handlers"
	"github.com/eventify-org/server/internal/api/middleware"
	"github.com/eventify-org/server/internal/audit"
	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/config"
	"github.com/eventify-org/server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Dependencies are the services the HTTP surface is wired to.
type Dependencies struct {
	Config        config.Config
	Logger        zerolog.Logger
	Build         BuildInfo
	Tokens        *auth.JWTManager
	Users         handlers.UserService
	Events        handlers.EventService
	Registrations handlers.RegistrationEngine
	Health        *handlers.HealthChecker
	RateLimiter   *middleware.RateLimiter
}

// NewRouter builds the route table and wraps it in the middleware chain.
// Outermost first: correlation id, tracing, request log, security headers,
// CORS, body limit, metrics. Authentication and rate limits are per route.
func NewRouter(deps Dependencies) http.Handler {
	env := deps.Config.Environment
	authn := middleware.NewAuthenticator(deps.Tokens, deps.Users, env)
	limits := deps.RateLimiter

	public := func(h http.HandlerFunc) http.Handler {
		return limits.Limit(middleware.TierPublic)(h)
	}
	login := func(h http.HandlerFunc) http.Handler {
		return limits.Limit(middleware.TierLogin)(h)
	}
	user := func(h http.HandlerFunc) http.Handler {
		return authn.RequireUser(limits.Limit(middleware.TierAuthenticated)(h))
	}
	role := func(h http.HandlerFunc, roles ...auth.Role) http.Handler {
		return authn.RequireRole(roles...)(limits.Limit(middleware.TierAuthenticated)(h))
	}

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens, env)
	adminUsers := handlers.NewAdminUsersHandler(deps.Users, audit.NewLogger(deps.Logger), env)
	eventsHandler := handlers.NewEventsHandler(deps.Events, env)
	regs := handlers.NewRegistrationsHandler(deps.Registrations, env)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", deps.Health.Healthz)
	mux.HandleFunc("GET /readyz", deps.Health.Readyz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /version", VersionHandler(deps.Build))
	mux.Handle("GET /api/v1/openapi.json", OpenAPIHandler())

	mux.Handle("POST /api/v1/auth/signup", login(authHandler.Signup))
	mux.Handle("POST /api/v1/auth/login", login(authHandler.Login))
	mux.Handle("GET /api/v1/auth/me", user(authHandler.Me))
	mux.Handle("PUT /api/v1/auth/profile", user(authHandler.UpdateProfile))
	mux.Handle("PUT /api/v1/auth/password", user(authHandler.ChangePassword))

	mux.Handle("GET /api/v1/admin/users", role(adminUsers.List, auth.RoleAdmin))
	mux.Handle("PUT /api/v1/admin/users/{id}/role", role(adminUsers.UpdateRole, auth.RoleAdmin))
	mux.Handle("DELETE /api/v1/admin/users/{id}", role(adminUsers.Delete, auth.RoleAdmin))

	mux.Handle("GET /api/v1/events", public(eventsHandler.List))
	mux.Handle("GET /api/v1/events/search", public(eventsHandler.Search))
	mux.Handle("GET /api/v1/events/{id}", public(eventsHandler.Get))
	mux.Handle("POST /api/v1/events", role(eventsHandler.Create, auth.RoleOrganizer, auth.RoleAdmin))
	mux.Handle("PUT /api/v1/events/{id}", user(eventsHandler.Update))
	mux.Handle("DELETE /api/v1/events/{id}", user(eventsHandler.Delete))

	mux.Handle("GET /api/v1/registrations/my", user(regs.ListMine))
	mux.Handle("POST /api/v1/registrations/{eventId}", user(regs.Register))
	mux.Handle("DELETE /api/v1/registrations/{eventId}", user(regs.Unregister))
	mux.Handle("GET /api/v1/registrations/event/{eventId}", user(regs.ListForEvent))
	mux.Handle("POST /api/v1/registrations/event/{eventId}/checkin", user(regs.CheckIn))

	route := func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}

	var handler http.Handler = metrics.HTTPMiddleware(mux)
	handler = middleware.RequestSize(middleware.MaxBodySize)(handler)
	handler = middleware.CORS(deps.Config.CORS, deps.Logger)(handler)
	handler = middleware.SecurityHeaders(env == "production")(handler)
	handler = middleware.RequestLogging(route)(handler)
	handler = middleware.Tracing(route)(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}
