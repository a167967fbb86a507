package files

import (
	"context"
	"io"

	"github.com/dalemusser/stratafiles/internal/app/system/access"
	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GetFile returns an active file the caller can view.
func (s *Service) GetFile(ctx context.Context, fileID, caller primitive.ObjectID) (*models.StoredFile, error) {
	const op = "files.GetFile"

	f, err := s.loadActive(ctx, op, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanView(access.File(f), caller) {
		return nil, denied(op)
	}
	return f, nil
}

// Download opens the object for reading. The download counter is updated in
// the background and never delays or fails the download. The caller must
// close the returned reader.
func (s *Service) Download(ctx context.Context, fileID, caller primitive.ObjectID) (io.ReadCloser, *models.StoredFile, error) {
	const op = "files.Download"

	f, err := s.GetFile(ctx, fileID, caller)
	if err != nil {
		s.metrics.Download(string(apperr.KindOf(err)))
		return nil, nil, err
	}

	rc, err := s.open(ctx, op, f)
	if err != nil {
		s.metrics.Download(string(apperr.KindOf(err)))
		return nil, nil, err
	}

	s.recordDownload(ctx, f.ID)
	s.metrics.Download("ok")
	return rc, f, nil
}

// open reads f's object. A row whose object is missing needs reconciliation.
func (s *Service) open(ctx context.Context, op string, f *models.StoredFile) (io.ReadCloser, error) {
	rc, _, err := s.objects.Get(ctx, f.Bucket, f.StorageKey)
	if err == nil {
		return rc, nil
	}
	if apperr.Is(err, apperr.ObjectNotFound) {
		s.logger.Error("file record has no object",
			zap.String("file_id", f.ID.Hex()),
			zap.String("bucket", f.Bucket),
			zap.String("key", f.StorageKey))
		return nil, apperr.Wrap(apperr.NeedsReconciliation, op, err).WithObject(f.Bucket, f.StorageKey)
	}
	return nil, apperr.Wrap(apperr.StorageUnavailable, op, err).WithObject(f.Bucket, f.StorageKey)
}

// OpenForShare reads the object of a file reached through a share link. The
// link has already authorized the access, so no caller check is made.
func (s *Service) OpenForShare(ctx context.Context, f *models.StoredFile) (io.ReadCloser, error) {
	rc, err := s.open(ctx, "files.OpenForShare", f)
	if err != nil {
		s.metrics.Download(string(apperr.KindOf(err)))
		return nil, err
	}
	s.recordDownload(ctx, f.ID)
	s.metrics.Download("ok")
	return rc, nil
}

func (s *Service) recordDownload(ctx context.Context, id primitive.ObjectID) {
	at := s.now()
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), counterTimeout)
		defer cancel()
		if err := s.files.IncrementDownload(bctx, id, at); err != nil {
			s.logger.Warn("download counter update failed",
				zap.String("file_id", id.Hex()),
				zap.Error(err))
		}
	}()
}

// PresignedDownloadURL returns a time-limited URL that reads the object
// directly from the object store. URLs are cached until shortly before they
// expire.
func (s *Service) PresignedDownloadURL(ctx context.Context, fileID, caller primitive.ObjectID) (string, error) {
	const op = "files.PresignedDownloadURL"

	f, err := s.GetFile(ctx, fileID, caller)
	if err != nil {
		return "", err
	}

	cacheKey := f.ID.Hex()
	if url, ok := s.cache.Get(ctx, cacheKey); ok {
		return url, nil
	}

	url, err := s.objects.PresignGet(ctx, f.Bucket, f.StorageKey, s.presignTTL)
	if err != nil {
		return "", apperr.Wrap(apperr.StorageUnavailable, op, err).WithObject(f.Bucket, f.StorageKey)
	}
	s.cache.Set(ctx, cacheKey, url, s.presignTTL*9/10)
	return url, nil
}
