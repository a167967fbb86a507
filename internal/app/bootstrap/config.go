// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/system/authutil"
	"github.com/dalemusser/stratafiles/internal/app/system/inputval"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATAFILES"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, bucket_base, etc.
//   - Environment variables: STRATAFILES_MONGO_URI, STRATAFILES_BUCKET_BASE, etc.
//   - Command-line flags: --mongo_uri, --bucket_base, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratafiles", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Object store
	{Name: "minio_endpoint", Default: "localhost:9000", Desc: "Object store endpoint (host:port)"},
	{Name: "minio_access_key", Default: "minioadmin", Desc: "Object store access key"},
	{Name: "minio_secret_key", Default: "minioadmin", Desc: "Object store secret key"},
	{Name: "minio_use_ssl", Default: false, Desc: "Use TLS for the object store"},
	{Name: "minio_region", Default: "us-east-1", Desc: "Object store region"},
	{Name: "bucket_base", Default: "files", Desc: "Default bucket; per-kind buckets append -images, -documents, etc."},
	{Name: "presign_ttl", Default: "15m", Desc: "Presigned download URL lifetime (e.g., 15m, 1h)"},

	// Presigned URL cache
	{Name: "redis_addr", Default: "", Desc: "Redis address for the presigned URL cache (blank uses an in-process cache)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public base URL for file and share links"},
	{Name: "upload_max_workers", Default: 4, Desc: "Concurrent uploads per batch"},
	{Name: "share_bcrypt_cost", Default: authutil.DefaultBcryptCost, Desc: "bcrypt cost for share link passwords"},
	{Name: "trust_proxy", Default: false, Desc: "Trust X-Forwarded-For/X-Real-IP for client IPs"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config.yaml/json/toml
// files, environment variables (WAFFLE_* for core, STRATAFILES_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		MinioEndpoint:  appValues.String("minio_endpoint"),
		MinioAccessKey: appValues.String("minio_access_key"),
		MinioSecretKey: appValues.String("minio_secret_key"),
		MinioUseSSL:    appValues.Bool("minio_use_ssl"),
		MinioRegion:    appValues.String("minio_region"),
		BucketBase:     appValues.String("bucket_base"),
		PresignTTL:     appValues.Duration("presign_ttl", 15*time.Minute),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		BaseURL:          appValues.String("base_url"),
		UploadMaxWorkers: appValues.Int("upload_max_workers"),
		ShareBcryptCost:  appValues.Int("share_bcrypt_cost"),
		TrustProxy:       appValues.Bool("trust_proxy"),
	}

	return coreCfg, appCfg, nil
}

// settings is the subset of AppConfig checked with validation tags.
type settings struct {
	MinioEndpoint string `validate:"required" label:"minio_endpoint"`
	BucketBase    string `validate:"required,bucketbase" label:"bucket_base"`
	BaseURL       string `validate:"required,httpurl" label:"base_url"`
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	res := inputval.Validate(settings{
		MinioEndpoint: appCfg.MinioEndpoint,
		BucketBase:    appCfg.BucketBase,
		BaseURL:       appCfg.BaseURL,
	})
	if res.HasErrors() {
		logger.Error("invalid configuration", zap.String("problems", res.All()))
		return errors.New("invalid configuration: " + res.All())
	}

	if appCfg.PresignTTL <= 0 || appCfg.PresignTTL > 7*24*time.Hour {
		return fmt.Errorf("presign_ttl must be positive and at most 168h, got %s", appCfg.PresignTTL)
	}
	if appCfg.UploadMaxWorkers < 1 {
		return fmt.Errorf("upload_max_workers must be at least 1, got %d", appCfg.UploadMaxWorkers)
	}

	return nil
}
