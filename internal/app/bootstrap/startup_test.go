package bootstrap

import (
	"context"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/system/tasks"
	"github.com/dalemusser/stratafiles/internal/app/system/urlcache"
	"github.com/dalemusser/stratafiles/internal/testutil"
	"go.uber.org/zap"
)

func TestRegisterJobs(t *testing.T) {
	db := testutil.SetupTestDB(t)

	tests := []struct {
		name string
		deps DBDeps
		want []string
	}{
		{"redis cache", DBDeps{MongoDatabase: db}, []string{"share-link-stats"}},
		{"memory cache", DBDeps{MongoDatabase: db, MemCache: urlcache.NewMemory()}, []string{"share-link-stats", "url-cache-sweep"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tasks.New(zap.NewNop())
			registerJobs(r, tt.deps, zap.NewNop())
			if got := r.Names(); !slices.Equal(got, tt.want) {
				t.Errorf("Names() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShutdown_StopsTaskRunner(t *testing.T) {
	r := tasks.New(zap.NewNop())
	var stopped atomic.Bool
	r.Register(tasks.Job{
		Name:     "waits",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			stopped.Store(true)
			return nil
		},
	})
	r.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Shutdown(ctx, nil, AppConfig{}, DBDeps{Tasks: r}, zap.NewNop()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !stopped.Load() {
		t.Error("running job was not cancelled by Shutdown")
	}
}
