// Package files implements the upload, download and lifecycle operations for
// stored files. Every method translates store and object-store failures into
// apperr kinds before returning.
package files

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/store/file"
	"github.com/dalemusser/stratafiles/internal/app/store/folder"
	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
	"github.com/dalemusser/stratafiles/internal/app/system/metrics"
	"github.com/dalemusser/stratafiles/internal/app/system/objectstore"
	"github.com/dalemusser/stratafiles/internal/app/system/urlcache"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	defaultPresignTTL = 15 * time.Minute
	defaultMaxWorkers = 4

	// counterTimeout bounds the background download-counter update.
	counterTimeout = 10 * time.Second
)

// ObjectStore is the subset of the object store client the service uses.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string, meta map[string]string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, objectstore.ObjectInfo, error)
	Delete(ctx context.Context, bucket, key string) error
	Stat(ctx context.Context, bucket, key string) (objectstore.ObjectInfo, error)
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
	List(ctx context.Context, bucket, prefix string, recursive bool) ([]objectstore.ObjectInfo, error)
}

// URLCache stores presigned URLs by file.
type URLCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, url string, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Options tunes the service. Zero values select defaults.
type Options struct {
	PresignTTL time.Duration
	MaxWorkers int // concurrent uploads per UploadMultiple call
	Cache      URLCache
	Metrics    *metrics.Metrics
}

// Service coordinates the object store with the file metadata store.
type Service struct {
	files   *file.Store
	folders *folder.Store
	objects ObjectStore
	buckets *objectstore.Buckets
	cache   URLCache
	metrics *metrics.Metrics
	logger  *zap.Logger

	presignTTL time.Duration
	maxWorkers int
	now        func() time.Time

	bg sync.WaitGroup
}

// New creates a file service.
func New(db *mongo.Database, objects ObjectStore, buckets *objectstore.Buckets, opts Options, logger *zap.Logger) *Service {
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = defaultPresignTTL
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = defaultMaxWorkers
	}
	if opts.Cache == nil {
		opts.Cache = urlcache.NewMemory()
	}
	return &Service{
		files:      file.New(db),
		folders:    folder.New(db),
		objects:    objects,
		buckets:    buckets,
		cache:      opts.Cache,
		metrics:    opts.Metrics,
		logger:     logger,
		presignTTL: opts.PresignTTL,
		maxWorkers: opts.MaxWorkers,
		now:        time.Now,
	}
}

// Wait blocks until background download-counter updates have finished.
// Call it during shutdown.
func (s *Service) Wait() {
	s.bg.Wait()
}

// storeErr maps a metadata store error to an apperr kind. A missing record is
// NotFound; anything else means the metadata store is unavailable.
func storeErr(op string, err error) error {
	if errors.Is(err, file.ErrNotFound) || errors.Is(err, folder.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, op, err)
	}
	return apperr.Wrap(apperr.StorageUnavailable, op, err)
}

// load returns the file in any lifecycle state.
func (s *Service) load(ctx context.Context, op string, id primitive.ObjectID) (*models.StoredFile, error) {
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return f, nil
}

// loadActive returns the file only when it is not in the trash.
func (s *Service) loadActive(ctx context.Context, op string, id primitive.ObjectID) (*models.StoredFile, error) {
	f, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if f.Lifecycle() != models.LifecycleActive {
		return nil, apperr.E(apperr.NotFound, op, "file is in the trash")
	}
	return f, nil
}

// checkFolder verifies that a target folder exists and is active. nil is root.
func (s *Service) checkFolder(ctx context.Context, op string, id *primitive.ObjectID) error {
	if id == nil {
		return nil
	}
	if _, err := s.folders.GetActive(ctx, *id); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func denied(op string) error {
	return apperr.E(apperr.AccessDenied, op, "")
}
