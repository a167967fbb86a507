// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper drops expired entries and reports how many were removed.
// *urlcache.Memory satisfies it.
type Sweeper interface {
	Sweep() int
}

// ShareLinkCounter counts share links by derived state.
// *sharelink.Store satisfies it.
type ShareLinkCounter interface {
	CountByState(ctx context.Context, now time.Time) (map[string]int64, error)
}

// ShareLinkGauge receives the per-state counts. *metrics.Metrics satisfies it.
type ShareLinkGauge interface {
	ShareLinks(state string, n int64)
}

// ShareLinkStatsJob publishes how many share links are active, expired,
// exhausted or revoked. It only reads: expiry and exhaustion stay derived,
// so nothing is written back to the links.
func ShareLinkStatsJob(links ShareLinkCounter, gauge ShareLinkGauge, logger *zap.Logger) Job {
	return Job{
		Name:     "share-link-stats",
		Interval: 15 * time.Minute,
		Timeout:  time.Minute,
		Run: func(ctx context.Context) error {
			counts, err := links.CountByState(ctx, time.Now())
			if err != nil {
				return err
			}
			for state, n := range counts {
				gauge.ShareLinks(state, n)
			}
			logger.Debug("share link states",
				zap.Int64("active", counts["active"]),
				zap.Int64("expired", counts["expired"]),
				zap.Int64("exhausted", counts["exhausted"]),
				zap.Int64("revoked", counts["revoked"]))
			return nil
		},
	}
}

// URLCacheSweepJob evicts expired presigned URLs from an in-process cache.
func URLCacheSweepJob(cache Sweeper, logger *zap.Logger) Job {
	return Job{
		Name:     "url-cache-sweep",
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			if n := cache.Sweep(); n > 0 {
				logger.Debug("evicted expired presigned urls", zap.Int("count", n))
			}
			return nil
		},
	}
}
