// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratafiles/internal/app/service/files"
	"github.com/dalemusser/stratafiles/internal/app/service/folders"
	"github.com/dalemusser/stratafiles/internal/app/service/shares"
	"github.com/dalemusser/stratafiles/internal/app/system/metrics"
	"github.com/dalemusser/stratafiles/internal/app/system/objectstore"
	"github.com/dalemusser/stratafiles/internal/app/system/tasks"
	"github.com/dalemusser/stratafiles/internal/app/system/urlcache"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// It is created in ConnectDB and passed to EnsureSchema, Startup,
// BuildHandler and Shutdown. Shutdown closes what ConnectDB opened.
type DBDeps struct {
	// MongoDB client and database
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Object store client and bucket names
	Objects *objectstore.Client
	Buckets *objectstore.Buckets

	// Redis backs the presigned URL cache when configured; nil otherwise.
	Redis *redis.Client
	// MemCache is the in-process URL cache used when Redis is not configured.
	MemCache *urlcache.Memory

	Metrics *metrics.Metrics

	// Services share the connections above.
	Files   *files.Service
	Folders *folders.Service
	Shares  *shares.Service

	// Tasks runs background jobs. Startup registers and starts them;
	// Shutdown stops them.
	Tasks *tasks.Runner
}
