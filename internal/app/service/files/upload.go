package files

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/dalemusser/stratafiles/internal/app/store/file"
	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
	"github.com/dalemusser/stratafiles/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratafiles/internal/app/system/objectkey"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultContentType = "application/octet-stream"

// UploadInput describes one file to store.
type UploadInput struct {
	Data         []byte
	Size         int64
	OriginalName string
	ContentType  string
	OwnerID      primitive.ObjectID
	OrgID        *primitive.ObjectID
	FolderID     *primitive.ObjectID // nil = root
	Tags         []string
	Description  string
	IsPublic     bool
	Metadata     map[string]interface{}
}

// Upload writes the bytes to the object store and then records the metadata.
// The row is only created after the object exists. If the object write fails
// nothing is recorded; if the row insert fails the object is left behind and a
// PartialUpload error names it for reconciliation.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*models.StoredFile, error) {
	const op = "files.Upload"

	if strings.TrimSpace(in.OriginalName) == "" {
		return nil, apperr.E(apperr.Validation, op, "file name is required")
	}
	if in.Size != int64(len(in.Data)) {
		return nil, apperr.E(apperr.Validation, op, "size does not match the data length")
	}
	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}
	if err := s.checkFolder(ctx, op, in.FolderID); err != nil {
		return nil, err
	}

	key, err := objectkey.GenerateKey(in.OwnerID.Hex(), in.OriginalName)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageUnavailable, op, err)
	}
	bucket := s.buckets.For(contentType)
	sum := sha256.Sum256(in.Data)
	checksum := hex.EncodeToString(sum[:])

	meta := map[string]string{"sha256": checksum}
	if err := s.objects.Put(ctx, bucket, key, bytes.NewReader(in.Data), in.Size, contentType, meta); err != nil {
		s.metrics.Upload("storage_error", 0)
		s.logger.Warn("object write failed",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.String("owner_id", in.OwnerID.Hex()),
			zap.Error(err))
		return nil, apperr.Wrap(apperr.StorageUnavailable, op, err).WithObject(bucket, key)
	}

	f, err := s.files.Create(ctx, file.CreateInput{
		FileName:     displayName(in.OriginalName),
		OriginalName: in.OriginalName,
		ContentType:  contentType,
		Size:         in.Size,
		Bucket:       bucket,
		StorageKey:   key,
		Checksum:     checksum,
		FolderID:     in.FolderID,
		OwnerID:      in.OwnerID,
		OrgID:        in.OrgID,
		Tags:         htmlsanitize.CleanTags(in.Tags),
		Description:  htmlsanitize.StripText(in.Description, true),
		Metadata:     in.Metadata,
		IsPublic:     in.IsPublic,
	})
	if err != nil {
		s.metrics.Upload("partial", 0)
		s.logger.Error("object stored but metadata insert failed",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.String("owner_id", in.OwnerID.Hex()),
			zap.Error(err))
		return nil, apperr.Wrap(apperr.PartialUpload, op, err).WithObject(bucket, key)
	}

	s.metrics.Upload("ok", f.Size)
	s.logger.Info("file uploaded",
		zap.String("file_id", f.ID.Hex()),
		zap.String("owner_id", f.OwnerID.Hex()),
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int64("size", f.Size))
	return f, nil
}

// FilePart is one file in a batch upload.
type FilePart struct {
	Data         []byte
	Size         int64
	OriginalName string
	ContentType  string
	Tags         []string
	Description  string
	IsPublic     bool
}

// BatchInput is a set of files uploaded together by one owner into one folder.
type BatchInput struct {
	OwnerID  primitive.ObjectID
	OrgID    *primitive.ObjectID
	FolderID *primitive.ObjectID
	Files    []FilePart
}

// UploadFailure reports why one file of a batch was not stored.
type UploadFailure struct {
	Index int
	Name  string
	Err   error
}

// BatchResult holds the files that were stored, in input order, and the
// failures. A failure never rolls back its siblings.
type BatchResult struct {
	Uploaded []*models.StoredFile
	Failed   []UploadFailure
}

// UploadMultiple uploads the files concurrently with a bounded number of
// workers.
func (s *Service) UploadMultiple(ctx context.Context, in BatchInput) BatchResult {
	batchID := uuid.NewString()
	stored := make([]*models.StoredFile, len(in.Files))
	errs := make([]error, len(in.Files))

	var g errgroup.Group
	g.SetLimit(s.maxWorkers)
	for i, part := range in.Files {
		g.Go(func() error {
			stored[i], errs[i] = s.Upload(ctx, UploadInput{
				Data:         part.Data,
				Size:         part.Size,
				OriginalName: part.OriginalName,
				ContentType:  part.ContentType,
				OwnerID:      in.OwnerID,
				OrgID:        in.OrgID,
				FolderID:     in.FolderID,
				Tags:         part.Tags,
				Description:  part.Description,
				IsPublic:     part.IsPublic,
			})
			return nil
		})
	}
	_ = g.Wait()

	res := BatchResult{Uploaded: []*models.StoredFile{}}
	for i := range in.Files {
		if errs[i] != nil {
			res.Failed = append(res.Failed, UploadFailure{Index: i, Name: in.Files[i].OriginalName, Err: errs[i]})
			continue
		}
		res.Uploaded = append(res.Uploaded, stored[i])
	}

	s.logger.Info("batch upload finished",
		zap.String("batch_id", batchID),
		zap.String("owner_id", in.OwnerID.Hex()),
		zap.Int("uploaded", len(res.Uploaded)),
		zap.Int("failed", len(res.Failed)))
	return res
}

// displayName is the user-facing name: the last path element of the upload
// name with markup removed.
func displayName(original string) string {
	name := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	if name = htmlsanitize.StripText(name, false); name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
