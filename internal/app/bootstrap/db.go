// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/stratafiles/internal/app/service/files"
	"github.com/dalemusser/stratafiles/internal/app/service/folders"
	"github.com/dalemusser/stratafiles/internal/app/service/shares"
	"github.com/dalemusser/stratafiles/internal/app/system/authutil"
	"github.com/dalemusser/stratafiles/internal/app/system/indexes"
	"github.com/dalemusser/stratafiles/internal/app/system/metrics"
	"github.com/dalemusser/stratafiles/internal/app/system/objectstore"
	"github.com/dalemusser/stratafiles/internal/app/system/tasks"
	"github.com/dalemusser/stratafiles/internal/app/system/urlcache"
	"github.com/dalemusser/stratafiles/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// ConnectDB connects MongoDB, the object store client and, when configured,
// Redis. It then builds the services on top of those connections.
//
// WAFFLE calls this after configuration is loaded but before EnsureSchema and
// Startup. The object store client does not contact the server here; bucket
// provisioning happens in Startup.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}

	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	objects, err := objectstore.New(objectstore.Config{
		Endpoint:  appCfg.MinioEndpoint,
		AccessKey: appCfg.MinioAccessKey,
		SecretKey: appCfg.MinioSecretKey,
		UseSSL:    appCfg.MinioUseSSL,
		Region:    appCfg.MinioRegion,
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("failed to initialize object store: %w", err)
	}
	logger.Info("initialized object store client",
		zap.String("endpoint", appCfg.MinioEndpoint),
		zap.Bool("ssl", appCfg.MinioUseSSL),
		zap.String("bucket_base", appCfg.BucketBase),
	)

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Objects:       objects,
		Buckets:       objectstore.NewBuckets(appCfg.BucketBase, logger),
		Metrics:       metrics.New(),
	}

	var cache files.URLCache
	if appCfg.RedisAddr != "" {
		rdb, err := urlcache.Dial(ctx, appCfg.RedisAddr, appCfg.RedisPassword, appCfg.RedisDB)
		if err != nil {
			_ = client.Disconnect(ctx)
			return DBDeps{}, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		deps.Redis = rdb
		cache = urlcache.NewRedis(rdb, logger)
		logger.Info("connected to Redis for presigned URL cache",
			zap.String("addr", appCfg.RedisAddr),
			zap.Int("db", appCfg.RedisDB),
		)
	} else {
		deps.MemCache = urlcache.NewMemory()
		cache = deps.MemCache
		logger.Info("using in-process presigned URL cache")
	}

	deps.Files = files.New(db, objects, deps.Buckets, files.Options{
		PresignTTL: appCfg.PresignTTL,
		MaxWorkers: appCfg.UploadMaxWorkers,
		Cache:      cache,
		Metrics:    deps.Metrics,
	}, logger)
	deps.Folders = folders.New(db, logger)
	deps.Shares = shares.New(db, authutil.NewHasher(appCfg.ShareBcryptCost), deps.Metrics, logger)
	deps.Tasks = tasks.New(logger)

	return deps, nil
}

// EnsureSchema creates the collections with their validators and then the
// indexes. The context has a timeout based on coreCfg.IndexBootTimeout.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	logger.Info("ensuring collections and validators")
	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Error("failed to ensure validators", zap.Error(err))
		return err
	}

	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	logger.Info("database schema ensured successfully")
	return nil
}
