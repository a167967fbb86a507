// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratafiles/internal/app/store/sharelink"
	"github.com/dalemusser/stratafiles/internal/app/system/tasks"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// Buckets are provisioned here so no upload can reach a missing bucket.
// A failure on the default bucket aborts startup; failures on per-kind
// buckets are logged and uploads of that kind will fail until fixed.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := deps.Buckets.Provision(ctx, deps.Objects); err != nil {
		logger.Error("bucket provisioning failed", zap.Error(err))
		return err
	}
	if missing := deps.Buckets.Missing(); len(missing) > 0 {
		logger.Warn("some buckets could not be provisioned", zap.Strings("buckets", missing))
	}

	if deps.Tasks != nil {
		registerJobs(deps.Tasks, deps, logger)
		deps.Tasks.Start()
	}

	return nil
}

// registerJobs adds the background jobs. The URL cache sweep only exists
// for the in-process cache; Redis expires its own keys.
func registerJobs(r *tasks.Runner, deps DBDeps, logger *zap.Logger) {
	r.Register(tasks.ShareLinkStatsJob(sharelink.New(deps.MongoDatabase), deps.Metrics, logger))
	if deps.MemCache != nil {
		r.Register(tasks.URLCacheSweepJob(deps.MemCache, logger))
	}
}
