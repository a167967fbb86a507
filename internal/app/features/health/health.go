// internal/app/features/health/health.go
package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const checkTimeout = 5 * time.Second

// BucketChecker reports whether a bucket exists. *objectstore.Client
// satisfies it.
type BucketChecker interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// Handler provides health check endpoints.
type Handler struct {
	mongoClient *mongo.Client
	objects     BucketChecker
	bucket      string
	logger      *zap.Logger
}

// NewHandler creates a new health check Handler. bucket is the default
// bucket, which must exist for the service to be ready.
func NewHandler(mongoClient *mongo.Client, objects BucketChecker, bucket string, logger *zap.Logger) *Handler {
	return &Handler{
		mongoClient: mongoClient,
		objects:     objects,
		bucket:      bucket,
		logger:      logger,
	}
}

// Response represents the health check response.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes returns a chi.Router with health check routes mounted.
// Provides /health (full check), /health/ready, and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the probe paths orchestrators expect at the root:
// /ready and /readyz for readiness, /livez for liveness.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// probe is one dependency check, reported under name.
type probe struct {
	name  string
	check func(context.Context) error
}

func (h *Handler) probes() []probe {
	return []probe{
		{"mongodb", func(ctx context.Context) error {
			return h.mongoClient.Ping(ctx, readpref.Primary())
		}},
		{"objectstore", func(ctx context.Context) error {
			ok, err := h.objects.BucketExists(ctx, h.bucket)
			if err == nil && !ok {
				err = errors.New("default bucket " + h.bucket + " missing")
			}
			return err
		}},
	}
}

// Check reports every dependency. Any failure makes the status "degraded"
// and the response 503.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := Response{Status: "ok", Services: map[string]string{}}
	for _, p := range h.probes() {
		if err := p.check(ctx); err != nil {
			resp.Status = "degraded"
			resp.Services[p.name] = "unavailable"
			h.logger.Warn("health check failed", zap.String("service", p.name), zap.Error(err))
			continue
		}
		resp.Services[p.name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, status, resp)
}

// Ready answers 200 only when every dependency is reachable. It stops at
// the first failure.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	for _, p := range h.probes() {
		if err := p.check(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.String("service", p.name), zap.Error(err))
			jsonutil.JSON(w, http.StatusServiceUnavailable, Response{Status: "not ready"})
			return
		}
	}
	jsonutil.JSON(w, http.StatusOK, Response{Status: "ready"})
}

// Live always answers 200 while the process is serving.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.JSON(w, http.StatusOK, Response{Status: "alive"})
}
