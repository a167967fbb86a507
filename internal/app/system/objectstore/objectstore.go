// Package objectstore wraps an S3-compatible object store (MinIO) behind a
// small bucket/key API. It knows nothing about files or folders. Every error
// it returns is an *apperr.Error of kind ObjectNotFound or StorageUnavailable.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds connection settings for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Client is a MinIO-backed object store client.
type Client struct {
	mc     *minio.Client
	region string
}

// New creates a client. It does not contact the server.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("object store configuration is incomplete")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	return &Client{mc: mc, region: cfg.Region}, nil
}

// Put uploads size bytes from r.
func (c *Client) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string, meta map[string]string) error {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: meta,
	}
	if _, err := c.mc.PutObject(ctx, bucket, key, r, size, opts); err != nil {
		return translate("objectstore.Put", bucket, key, err)
	}
	return nil
}

// Get opens a read stream. The caller must close it.
func (c *Client) Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := c.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, translate("objectstore.Get", bucket, key, err)
	}

	// GetObject is lazy; Stat surfaces a missing key before any bytes are read.
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, ObjectInfo{}, translate("objectstore.Get", bucket, key, err)
	}

	return obj, toInfo(stat), nil
}

// Delete removes one object. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	if err := c.mc.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return translate("objectstore.Delete", bucket, key, err)
	}
	return nil
}

// DeleteMany removes keys in a single batch and returns the first failure.
func (c *Client) DeleteMany(ctx context.Context, bucket string, keys []string) error {
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objectsCh <- minio.ObjectInfo{Key: k}
	}
	close(objectsCh)

	var first error
	for rErr := range c.mc.RemoveObjects(ctx, bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if first == nil && rErr.Err != nil {
			first = translate("objectstore.DeleteMany", bucket, rErr.ObjectName, rErr.Err)
		}
	}
	return first
}

// Stat returns size and etag without reading the object.
func (c *Client) Stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	stat, err := c.mc.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, translate("objectstore.Stat", bucket, key, err)
	}
	return toInfo(stat), nil
}

// PresignGet returns a time-limited download URL.
func (c *Client) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := c.mc.PresignedGetObject(ctx, bucket, key, ttl, url.Values{})
	if err != nil {
		return "", translate("objectstore.PresignGet", bucket, key, err)
	}
	return u.String(), nil
}

// PresignPut returns a time-limited upload URL.
func (c *Client) PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := c.mc.PresignedPutObject(ctx, bucket, key, ttl)
	if err != nil {
		return "", translate("objectstore.PresignPut", bucket, key, err)
	}
	return u.String(), nil
}

// Copy performs a server-side copy.
func (c *Client) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := c.mc.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: dstBucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: srcBucket, Object: srcKey},
	)
	if err != nil {
		return translate("objectstore.Copy", srcBucket, srcKey, err)
	}
	return nil
}

// List returns the objects under prefix.
func (c *Client) List(ctx context.Context, bucket, prefix string, recursive bool) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for obj := range c.mc.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: recursive}) {
		if obj.Err != nil {
			return nil, translate("objectstore.List", bucket, prefix, obj.Err)
		}
		out = append(out, toInfo(obj))
	}
	return out, nil
}

// BucketExists reports whether bucket exists.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ok, err := c.mc.BucketExists(ctx, bucket)
	if err != nil {
		return false, translate("objectstore.BucketExists", bucket, "", err)
	}
	return ok, nil
}

// EnsureBucket creates bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := c.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		// Another instance may have created it between the two calls.
		if code := minio.ToErrorResponse(err).Code; code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return translate("objectstore.EnsureBucket", bucket, "", err)
	}
	return nil
}

// SetPublicRead allows anonymous GET and LIST on bucket.
func (c *Client) SetPublicRead(ctx context.Context, bucket string) error {
	if err := c.mc.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return translate("objectstore.SetPublicRead", bucket, "", err)
	}
	return nil
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{
	"Version": "2012-10-17",
	"Statement": [
		{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::%s/*"]
		},
		{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:ListBucket"],
			"Resource": ["arn:aws:s3:::%s"]
		}
	]
}`, bucket, bucket)
}

func toInfo(o minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          o.Key,
		Size:         o.Size,
		ETag:         o.ETag,
		ContentType:  o.ContentType,
		LastModified: o.LastModified,
	}
}

// translate maps a MinIO error onto the apperr taxonomy.
func translate(op, bucket, key string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	kind := apperr.StorageUnavailable
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		kind = apperr.ObjectNotFound
	}
	return apperr.Wrap(kind, op, err).WithObject(bucket, key)
}
