package files

import (
	"context"

	"github.com/dalemusser/stratafiles/internal/app/store/file"
	"github.com/dalemusser/stratafiles/internal/app/system/access"
	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
	"github.com/dalemusser/stratafiles/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratafiles/internal/app/system/normalize"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Delete moves a file to the trash. Only the owner may delete. The object is
// kept so the file can be restored.
func (s *Service) Delete(ctx context.Context, fileID, caller primitive.ObjectID) error {
	const op = "files.Delete"

	f, err := s.loadActive(ctx, op, fileID)
	if err != nil {
		return err
	}
	if !access.CanDelete(access.File(f), caller) {
		return denied(op)
	}
	if err := s.files.Trash(ctx, f.ID, caller); err != nil {
		return storeErr(op, err)
	}

	s.cache.Delete(ctx, f.ID.Hex())
	s.metrics.Delete("trash")
	s.logger.Info("file moved to trash",
		zap.String("file_id", f.ID.Hex()),
		zap.String("owner_id", f.OwnerID.Hex()))
	return nil
}

// PermanentlyDelete removes a trashed file's object and then its record.
// The record is kept when the object delete fails. If the object is gone but
// the record cannot be removed, the error is NeedsReconciliation.
func (s *Service) PermanentlyDelete(ctx context.Context, fileID, caller primitive.ObjectID) error {
	const op = "files.PermanentlyDelete"

	f, err := s.load(ctx, op, fileID)
	if err != nil {
		return err
	}
	if !access.CanDelete(access.File(f), caller) {
		return denied(op)
	}
	tf, ok := f.Trashed()
	if !ok {
		return apperr.E(apperr.Validation, op, "file must be in the trash")
	}

	if err := s.objects.Delete(ctx, tf.Bucket(), tf.StorageKey()); err != nil {
		s.logger.Warn("object delete failed; record kept",
			zap.String("file_id", f.ID.Hex()),
			zap.String("bucket", tf.Bucket()),
			zap.String("key", tf.StorageKey()),
			zap.Error(err))
		return apperr.Wrap(apperr.StorageUnavailable, op, err).WithObject(tf.Bucket(), tf.StorageKey())
	}

	if err := s.files.Purge(ctx, tf); err != nil {
		s.logger.Error("object deleted but record purge failed",
			zap.String("file_id", f.ID.Hex()),
			zap.String("bucket", tf.Bucket()),
			zap.String("key", tf.StorageKey()),
			zap.Error(err))
		return apperr.Wrap(apperr.NeedsReconciliation, op, err).WithObject(tf.Bucket(), tf.StorageKey())
	}

	s.cache.Delete(ctx, f.ID.Hex())
	s.metrics.Delete("purge")
	s.logger.Info("file permanently deleted",
		zap.String("file_id", f.ID.Hex()),
		zap.String("owner_id", f.OwnerID.Hex()),
		zap.String("bucket", tf.Bucket()),
		zap.String("key", tf.StorageKey()))
	return nil
}

// Restore takes a file out of the trash. Only the owner may restore.
func (s *Service) Restore(ctx context.Context, fileID, caller primitive.ObjectID) (*models.StoredFile, error) {
	const op = "files.Restore"

	f, err := s.load(ctx, op, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanDelete(access.File(f), caller) {
		return nil, denied(op)
	}
	tf, ok := f.Trashed()
	if !ok {
		return nil, apperr.E(apperr.Validation, op, "file is not in the trash")
	}
	if err := s.files.Restore(ctx, tf); err != nil {
		return nil, storeErr(op, err)
	}

	s.metrics.Delete("restore")
	s.logger.Info("file restored",
		zap.String("file_id", f.ID.Hex()),
		zap.String("owner_id", f.OwnerID.Hex()))
	return s.load(ctx, op, fileID)
}

// ListTrash returns the caller's trashed files, most recently deleted first.
func (s *Service) ListTrash(ctx context.Context, caller primitive.ObjectID, limit, page int64) ([]models.StoredFile, error) {
	files, err := s.files.ListTrash(ctx, caller, limit, page)
	if err != nil {
		return nil, storeErr("files.ListTrash", err)
	}
	return files, nil
}

// MetadataUpdate lists the fields to change. nil fields are left alone.
type MetadataUpdate struct {
	FileName    *string
	Description *string
	Tags        *[]string
}

// UpdateMetadata changes display fields. Editors and the owner may update.
func (s *Service) UpdateMetadata(ctx context.Context, fileID, caller primitive.ObjectID, in MetadataUpdate) (*models.StoredFile, error) {
	const op = "files.UpdateMetadata"

	f, err := s.loadActive(ctx, op, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanEdit(access.File(f), caller) {
		return nil, denied(op)
	}

	var upd file.UpdateInput
	if in.FileName != nil {
		name := htmlsanitize.StripText(*in.FileName, false)
		if name == "" {
			return nil, apperr.E(apperr.Validation, op, "file name cannot be empty")
		}
		upd.FileName = &name
	}
	if in.Description != nil {
		desc := htmlsanitize.StripText(*in.Description, true)
		upd.Description = &desc
	}
	if in.Tags != nil {
		tags := htmlsanitize.CleanTags(*in.Tags)
		upd.Tags = &tags
	}

	if err := s.files.Update(ctx, f.ID, upd); err != nil {
		return nil, storeErr(op, err)
	}
	return s.loadActive(ctx, op, fileID)
}

// SetPermission grants principal a role on the file. Only the owner may
// change permissions. Entries are appended; the last entry for a principal
// wins.
func (s *Service) SetPermission(ctx context.Context, fileID, caller, principal primitive.ObjectID, role models.Role) error {
	const op = "files.SetPermission"

	role = normalize.Role(string(role))
	if !role.Valid() {
		return apperr.E(apperr.Validation, op, "unknown role")
	}
	f, err := s.loadActive(ctx, op, fileID)
	if err != nil {
		return err
	}
	if !access.CanDelete(access.File(f), caller) {
		return denied(op)
	}
	if err := s.files.AddPermission(ctx, f.ID, models.Permission{PrincipalID: principal, Role: role}); err != nil {
		return storeErr(op, err)
	}

	s.logger.Info("file permission granted",
		zap.String("file_id", f.ID.Hex()),
		zap.String("principal_id", principal.Hex()),
		zap.String("role", string(role)))
	return nil
}

// RevokePermission removes every permission entry for principal.
func (s *Service) RevokePermission(ctx context.Context, fileID, caller, principal primitive.ObjectID) error {
	const op = "files.RevokePermission"

	f, err := s.loadActive(ctx, op, fileID)
	if err != nil {
		return err
	}
	if !access.CanDelete(access.File(f), caller) {
		return denied(op)
	}
	if principal == f.OwnerID {
		return apperr.E(apperr.Validation, op, "cannot revoke the owner")
	}
	if err := s.files.RemovePermission(ctx, f.ID, principal); err != nil {
		return storeErr(op, err)
	}

	s.logger.Info("file permission revoked",
		zap.String("file_id", f.ID.Hex()),
		zap.String("principal_id", principal.Hex()))
	return nil
}
