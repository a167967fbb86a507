// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS, timeouts); everything
// specific to the file service lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Object store (MinIO or any S3-compatible endpoint)
	MinioEndpoint  string // host:port, no scheme
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioRegion    string

	// BucketBase is the default bucket; per-kind buckets append a suffix
	// (e.g. files-images, files-documents).
	BucketBase string

	// PresignTTL is the lifetime of presigned download URLs.
	PresignTTL time.Duration

	// Redis caches presigned URLs across instances. Leave RedisAddr empty
	// to use an in-process cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// BaseURL is the public address used to build file and share URLs.
	BaseURL string

	// UploadMaxWorkers bounds concurrent uploads within one batch.
	UploadMaxWorkers int

	// ShareBcryptCost is the bcrypt cost for share link passwords.
	ShareBcryptCost int

	// TrustProxy enables X-Forwarded-For / X-Real-IP for client IPs
	// recorded on share access. Only enable behind a trusted proxy.
	TrustProxy bool
}
