package server

import (
	"log/slog"
	"net/http"

	"hexmap-server/internal/middleware"
	serverHandlers "hexmap-server/internal/server/handlers"
	"hexmap-server/internal/shared/database"
	"hexmap-server/internal/shared/redis"
	"hexmap-server/internal/tree"
	treeHandlers "hexmap-server/internal/tree/handlers"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Routes struct {
	db            *database.DB
	redis         *redis.Client
	treeService   *tree.Service
	authenticator *middleware.Authenticator
	cors          *middleware.CORSMiddleware
	rateLimiter   *middleware.RateLimiter
}

func NewRoutes(
	db *database.DB,
	redis *redis.Client,
	treeService *tree.Service,
	authenticator *middleware.Authenticator,
	cors *middleware.CORSMiddleware,
	rateLimiter *middleware.RateLimiter,
) *Routes {
	return &Routes{
		db:            db,
		redis:         redis,
		treeService:   treeService,
		authenticator: authenticator,
		cors:          cors,
		rateLimiter:   rateLimiter,
	}
}

// Setup builds the full handler chain: request id, CORS, rate limiting,
// then the requester lookup for everything under /api/ except health.
func (r *Routes) Setup() http.Handler {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	api := http.NewServeMux()
	treeHandlers.NewTreeHandler(r.treeService).Register(api)

	mux := http.NewServeMux()
	mux.Handle("/api/", r.authenticator.Middleware(api))

	// Public endpoints
	mux.Handle("/api/server/health", serverHandlers.NewHealthHandler(r.db, r.redis))
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/metrics"},
		"tile_endpoints", []string{"/api/maps", "/api/items", "/api/coords", "/api/users/{ownerId}/roots"},
	)

	var handler http.Handler = mux
	handler = r.rateLimiter.Middleware(handler)
	handler = r.cors.Middleware(handler)
	handler = middleware.RequestID(handler)
	return handler
}
