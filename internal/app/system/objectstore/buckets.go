package objectstore

import (
	"context"
	"sort"
	"sync"

	"github.com/dalemusser/stratafiles/internal/app/system/objectkey"
	"go.uber.org/zap"
)

// Provisioner creates buckets and applies policies. *Client implements it.
type Provisioner interface {
	EnsureBucket(ctx context.Context, bucket string) error
	SetPublicRead(ctx context.Context, bucket string) error
}

// Buckets is the registry of buckets derived from a base name. It is built
// once at startup and handed to whatever needs bucket names.
type Buckets struct {
	base   string
	logger *zap.Logger

	mu      sync.Mutex
	ensured map[string]bool
}

// NewBuckets creates a registry for base.
func NewBuckets(base string, logger *zap.Logger) *Buckets {
	return &Buckets{
		base:    base,
		logger:  logger,
		ensured: make(map[string]bool),
	}
}

// Default returns the default bucket name.
func (b *Buckets) Default() string { return b.base }

// Temp returns the public-read scratch bucket name.
func (b *Buckets) Temp() string { return objectkey.BucketName(b.base, objectkey.SuffixTemp) }

// For returns the bucket a file with contentType is stored in.
func (b *Buckets) For(contentType string) string {
	return objectkey.BucketName(b.base, objectkey.RouteBucket(contentType))
}

// All returns every managed bucket, default first.
func (b *Buckets) All() []string {
	return []string{
		b.base,
		objectkey.BucketName(b.base, objectkey.SuffixImages),
		objectkey.BucketName(b.base, objectkey.SuffixDocuments),
		objectkey.BucketName(b.base, objectkey.SuffixVideos),
		b.Temp(),
	}
}

// Provision ensures every bucket exists. A failure on a non-default bucket is
// logged and the rest are still attempted; only a failure on the default
// bucket is returned. Provision may safely run more than once.
func (b *Buckets) Provision(ctx context.Context, p Provisioner) error {
	var defaultErr error

	for _, name := range b.All() {
		if b.Ensured(name) {
			continue
		}

		err := p.EnsureBucket(ctx, name)
		if err == nil && name == b.Temp() {
			err = p.SetPublicRead(ctx, name)
		}
		if err != nil {
			b.logger.Warn("bucket provisioning failed",
				zap.String("bucket", name),
				zap.Error(err))
			if name == b.base {
				defaultErr = err
			}
			continue
		}

		b.mu.Lock()
		b.ensured[name] = true
		b.mu.Unlock()
		b.logger.Info("bucket ready", zap.String("bucket", name))
	}

	return defaultErr
}

// Ensured reports whether name was provisioned successfully.
func (b *Buckets) Ensured(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ensured[name]
}

// Missing returns the managed buckets that have not been provisioned, sorted.
func (b *Buckets) Missing() []string {
	var out []string
	for _, name := range b.All() {
		if !b.Ensured(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
