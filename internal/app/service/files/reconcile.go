package files

import (
	"context"

	"github.com/dalemusser/stratafiles/internal/app/store/file"
	"github.com/dalemusser/stratafiles/internal/app/system/access"
	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
	"github.com/dalemusser/stratafiles/internal/app/system/objectkey"
	"github.com/dalemusser/stratafiles/internal/app/system/objectstore"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CopyInput places a copy of a file.
type CopyInput struct {
	OrgID    *primitive.ObjectID
	FolderID *primitive.ObjectID // nil = root
}

// CopyFile copies a file the caller can view into the caller's own space. The
// object is copied server-side to a fresh key, and the new record points back
// at the source through ParentFileID. Failure handling matches Upload.
func (s *Service) CopyFile(ctx context.Context, fileID, caller primitive.ObjectID, in CopyInput) (*models.StoredFile, error) {
	const op = "files.CopyFile"

	src, err := s.GetFile(ctx, fileID, caller)
	if err != nil {
		return nil, err
	}
	if err := s.checkFolder(ctx, op, in.FolderID); err != nil {
		return nil, err
	}

	key, err := objectkey.GenerateKey(caller.Hex(), src.OriginalName)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageUnavailable, op, err)
	}
	bucket := s.buckets.For(src.ContentType)

	if err := s.objects.Copy(ctx, src.Bucket, src.StorageKey, bucket, key); err != nil {
		if apperr.Is(err, apperr.ObjectNotFound) {
			return nil, apperr.Wrap(apperr.NeedsReconciliation, op, err).WithObject(src.Bucket, src.StorageKey)
		}
		return nil, apperr.Wrap(apperr.StorageUnavailable, op, err).WithObject(bucket, key)
	}

	parent := src.ID
	f, err := s.files.Create(ctx, file.CreateInput{
		FileName:     src.FileName,
		OriginalName: src.OriginalName,
		ContentType:  src.ContentType,
		Size:         src.Size,
		Bucket:       bucket,
		StorageKey:   key,
		Checksum:     src.Checksum,
		FolderID:     in.FolderID,
		OwnerID:      caller,
		OrgID:        in.OrgID,
		Tags:         src.Tags,
		Description:  src.Description,
		Metadata:     src.Metadata,
		ParentFileID: &parent,
	})
	if err != nil {
		s.logger.Error("object copied but metadata insert failed",
			zap.String("source_id", src.ID.Hex()),
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Error(err))
		return nil, apperr.Wrap(apperr.PartialUpload, op, err).WithObject(bucket, key)
	}

	s.logger.Info("file copied",
		zap.String("file_id", f.ID.Hex()),
		zap.String("source_id", src.ID.Hex()),
		zap.String("owner_id", caller.Hex()))
	return f, nil
}

// CheckIntegrity compares a record with its object. Trashed files are checked
// too, since an interrupted purge leaves a trashed record without an object.
func (s *Service) CheckIntegrity(ctx context.Context, fileID, caller primitive.ObjectID) (objectstore.ObjectInfo, error) {
	const op = "files.CheckIntegrity"

	f, err := s.load(ctx, op, fileID)
	if err != nil {
		return objectstore.ObjectInfo{}, err
	}
	if !access.CanView(access.File(f), caller) {
		return objectstore.ObjectInfo{}, denied(op)
	}

	info, err := s.objects.Stat(ctx, f.Bucket, f.StorageKey)
	if err != nil {
		if apperr.Is(err, apperr.ObjectNotFound) {
			return objectstore.ObjectInfo{}, apperr.Wrap(apperr.NeedsReconciliation, op, err).WithObject(f.Bucket, f.StorageKey)
		}
		return objectstore.ObjectInfo{}, apperr.Wrap(apperr.StorageUnavailable, op, err).WithObject(f.Bucket, f.StorageKey)
	}
	if info.Size != f.Size {
		s.logger.Error("object size differs from record",
			zap.String("file_id", f.ID.Hex()),
			zap.Int64("recorded", f.Size),
			zap.Int64("stored", info.Size))
		return info, apperr.E(apperr.NeedsReconciliation, op, "object size differs from record").WithObject(f.Bucket, f.StorageKey)
	}
	return info, nil
}

// Orphan is an object under an owner's prefix with no file record, typically
// left by a PartialUpload.
type Orphan struct {
	Bucket string
	objectstore.ObjectInfo
}

// FindOrphans lists the owner's objects in every bucket that no record
// points at.
func (s *Service) FindOrphans(ctx context.Context, owner primitive.ObjectID) ([]Orphan, error) {
	const op = "files.FindOrphans"

	orphans := []Orphan{}
	prefix := owner.Hex() + "/"
	for _, bucket := range s.buckets.All() {
		objects, err := s.objects.List(ctx, bucket, prefix, true)
		if err != nil {
			return nil, apperr.Wrap(apperr.StorageUnavailable, op, err)
		}
		if len(objects) == 0 {
			continue
		}

		keys := make([]string, len(objects))
		for i, o := range objects {
			keys[i] = o.Key
		}
		recorded, err := s.files.RecordedKeys(ctx, bucket, keys)
		if err != nil {
			return nil, storeErr(op, err)
		}
		for _, o := range objects {
			if !recorded[o.Key] {
				orphans = append(orphans, Orphan{Bucket: bucket, ObjectInfo: o})
			}
		}
	}

	if len(orphans) > 0 {
		s.logger.Warn("orphaned objects found",
			zap.String("owner_id", owner.Hex()),
			zap.Int("count", len(orphans)))
	}
	return orphans, nil
}
