// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	healthfeature "github.com/dalemusser/stratafiles/internal/app/features/health"
	sharelinksfeature "github.com/dalemusser/stratafiles/internal/app/features/sharelinks"
	"github.com/dalemusser/stratafiles/internal/app/system/jsonutil"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. The file service is a library first; the router
// only exposes the public share endpoint, health probes and metrics.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	// Public share links. No request timeout: responses stream object bytes.
	sharesHandler := sharelinksfeature.NewHandler(deps.Shares, deps.Files, appCfg.BaseURL, appCfg.TrustProxy, logger)
	r.Mount("/s", sharelinksfeature.Routes(sharesHandler))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))

		// Health check endpoints for load balancers and orchestrators
		healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Objects, deps.Buckets.Default(), logger)
		r.Mount("/health", healthfeature.Routes(healthHandler))
		healthfeature.MountRootEndpoints(r, healthHandler)

		r.Handle("/metrics", deps.Metrics.Handler())
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		jsonutil.Error(w, http.StatusNotFound, "not found")
	})

	return r, nil
}
