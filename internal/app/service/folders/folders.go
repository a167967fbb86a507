// Package folders implements folder creation, listing and moves. Folders are
// a metadata grouping only: moving a file never touches its object.
//
// Paths are materialized on the folder row and recomputed only for the folder
// being renamed or moved. Descendant paths are left as they were, and deleting
// a folder does not delete its contents.
package folders

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/stratafiles/internal/app/store/file"
	"github.com/dalemusser/stratafiles/internal/app/store/folder"
	"github.com/dalemusser/stratafiles/internal/app/store/storeutil"
	"github.com/dalemusser/stratafiles/internal/app/system/access"
	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
	"github.com/dalemusser/stratafiles/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratafiles/internal/app/system/normalize"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Service manages folders and file placement.
type Service struct {
	folders *folder.Store
	files   *file.Store
	logger  *zap.Logger
}

// New creates a folder service.
func New(db *mongo.Database, logger *zap.Logger) *Service {
	return &Service{
		folders: folder.New(db),
		files:   file.New(db),
		logger:  logger,
	}
}

func storeErr(op string, err error) error {
	if errors.Is(err, folder.ErrNotFound) || errors.Is(err, file.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, op, err)
	}
	return apperr.Wrap(apperr.StorageUnavailable, op, err)
}

// cleanName strips markup and rejects names that would break the path.
func cleanName(op, raw string) (string, error) {
	name := normalize.Name(htmlsanitize.StripText(raw, false))
	switch {
	case name == "":
		return "", apperr.E(apperr.Validation, op, "folder name is required")
	case strings.Contains(name, "/"):
		return "", apperr.E(apperr.Validation, op, "folder name cannot contain '/'")
	}
	return name, nil
}

// CreateInput describes a new folder.
type CreateInput struct {
	Name        string
	Description string
	OwnerID     primitive.ObjectID
	OrgID       *primitive.ObjectID
	ParentID    *primitive.ObjectID // nil = root
	IsPublic    bool
}

// CreateFolder creates a folder under ParentID. A parent that does not exist
// or is deleted is treated as root.
func (s *Service) CreateFolder(ctx context.Context, in CreateInput) (*models.Folder, error) {
	const op = "folders.CreateFolder"

	name, err := cleanName(op, in.Name)
	if err != nil {
		return nil, err
	}

	parentID, parentPath := in.ParentID, ""
	if parentID != nil {
		parent, err := s.folders.GetActive(ctx, *parentID)
		switch {
		case errors.Is(err, folder.ErrNotFound):
			parentID = nil
		case err != nil:
			return nil, storeErr(op, err)
		default:
			parentPath = parent.Path
		}
	}

	f, err := s.folders.Create(ctx, folder.CreateInput{
		Name:        name,
		ParentID:    parentID,
		Path:        models.JoinPath(parentPath, name),
		Description: htmlsanitize.StripText(in.Description, true),
		OwnerID:     in.OwnerID,
		OrgID:       in.OrgID,
		IsPublic:    in.IsPublic,
	})
	if err != nil {
		return nil, storeErr(op, err)
	}

	s.logger.Info("folder created",
		zap.String("folder_id", f.ID.Hex()),
		zap.String("owner_id", f.OwnerID.Hex()),
		zap.String("path", f.Path))
	return f, nil
}

// Contents is one level of a folder listing.
type Contents struct {
	Folders []models.Folder     // by name, ascending
	Files   []models.StoredFile // newest first
}

// GetFolderContents lists the direct children of folderID (nil = root). The
// listing is scoped to orgID when given, otherwise to caller's own items.
// Deleted items are excluded.
func (s *Service) GetFolderContents(ctx context.Context, folderID *primitive.ObjectID, caller primitive.ObjectID, orgID *primitive.ObjectID) (Contents, error) {
	const op = "folders.GetFolderContents"
	scope := storeutil.Scope{OwnerID: caller, OrgID: orgID}

	subfolders, err := s.folders.ListByParent(ctx, folderID, scope)
	if err != nil {
		return Contents{}, storeErr(op, err)
	}
	files, err := s.files.ListByFolder(ctx, folderID, scope)
	if err != nil {
		return Contents{}, storeErr(op, err)
	}
	return Contents{Folders: subfolders, Files: files}, nil
}

// MoveFile places a file in target (nil = root). Editors and the owner may
// move. Only the folder reference changes.
func (s *Service) MoveFile(ctx context.Context, fileID primitive.ObjectID, target *primitive.ObjectID, caller primitive.ObjectID) error {
	const op = "folders.MoveFile"

	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return storeErr(op, err)
	}
	if f.Lifecycle() != models.LifecycleActive {
		return apperr.E(apperr.NotFound, op, "file is in the trash")
	}
	if !access.CanEdit(access.File(f), caller) {
		return apperr.E(apperr.AccessDenied, op, "")
	}
	if target != nil {
		if _, err := s.folders.GetActive(ctx, *target); err != nil {
			return storeErr(op, err)
		}
	}

	if err := s.files.Move(ctx, f.ID, target); err != nil {
		return storeErr(op, err)
	}

	fields := []zap.Field{zap.String("file_id", f.ID.Hex()), zap.String("actor_id", caller.Hex())}
	if target != nil {
		fields = append(fields, zap.String("folder_id", target.Hex()))
	}
	s.logger.Info("file moved", fields...)
	return nil
}

// DeleteFolder soft-deletes a folder. Only the owner may delete. Subfolders
// and files inside it are not touched.
func (s *Service) DeleteFolder(ctx context.Context, folderID, caller primitive.ObjectID) error {
	const op = "folders.DeleteFolder"

	f, err := s.folders.GetActive(ctx, folderID)
	if err != nil {
		return storeErr(op, err)
	}
	if !access.CanDelete(access.Folder(f), caller) {
		return apperr.E(apperr.AccessDenied, op, "")
	}
	if err := s.folders.SoftDelete(ctx, f.ID, caller); err != nil {
		return storeErr(op, err)
	}

	// Children stay reachable; record that so orphaned subtrees can be found.
	orphans, err := s.folders.HasSubfolders(ctx, f.ID)
	if err != nil {
		s.logger.Warn("subfolder check failed", zap.String("folder_id", f.ID.Hex()), zap.Error(err))
	}
	s.logger.Info("folder deleted",
		zap.String("folder_id", f.ID.Hex()),
		zap.String("owner_id", f.OwnerID.Hex()),
		zap.String("path", f.Path),
		zap.Bool("left_subfolders", orphans))
	return nil
}

// RenameFolder changes a folder's name and recomputes its own path.
func (s *Service) RenameFolder(ctx context.Context, folderID, caller primitive.ObjectID, newName string) (*models.Folder, error) {
	const op = "folders.RenameFolder"

	f, err := s.editable(ctx, op, folderID, caller)
	if err != nil {
		return nil, err
	}
	name, err := cleanName(op, newName)
	if err != nil {
		return nil, err
	}

	parentID, parentPath, err := s.parentPath(ctx, f)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return s.relocate(ctx, op, f, name, parentID, parentPath)
}

// MoveFolder puts a folder under newParent (nil = root). A folder cannot be
// moved into itself or one of its descendants.
func (s *Service) MoveFolder(ctx context.Context, folderID, caller primitive.ObjectID, newParent *primitive.ObjectID) (*models.Folder, error) {
	const op = "folders.MoveFolder"

	f, err := s.editable(ctx, op, folderID, caller)
	if err != nil {
		return nil, err
	}

	parentPath := ""
	if newParent != nil {
		if *newParent == f.ID {
			return nil, apperr.E(apperr.Validation, op, "cannot move a folder into itself")
		}
		parent, err := s.folders.GetActive(ctx, *newParent)
		if err != nil {
			return nil, storeErr(op, err)
		}
		ancestors, err := s.folders.GetAncestors(ctx, parent.ID)
		if err != nil {
			return nil, storeErr(op, err)
		}
		for _, a := range ancestors {
			if a.ID == f.ID {
				return nil, apperr.E(apperr.Validation, op, "cannot move a folder into its own subfolder")
			}
		}
		parentPath = parent.Path
	}
	return s.relocate(ctx, op, f, f.Name, newParent, parentPath)
}

func (s *Service) editable(ctx context.Context, op string, id, caller primitive.ObjectID) (*models.Folder, error) {
	f, err := s.folders.GetActive(ctx, id)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if !access.CanEdit(access.Folder(f), caller) {
		return nil, apperr.E(apperr.AccessDenied, op, "")
	}
	return f, nil
}

// parentPath returns f's current parent and its path. A parent that no
// longer exists puts the folder at root.
func (s *Service) parentPath(ctx context.Context, f *models.Folder) (*primitive.ObjectID, string, error) {
	if f.IsRoot() {
		return nil, "", nil
	}
	parentID := f.ParentID
	parent, err := s.folders.GetByID(ctx, *parentID)
	if errors.Is(err, folder.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return parentID, parent.Path, nil
}

func (s *Service) relocate(ctx context.Context, op string, f *models.Folder, name string, parentID *primitive.ObjectID, parentPath string) (*models.Folder, error) {
	path := models.JoinPath(parentPath, name)
	if err := s.folders.Relocate(ctx, f.ID, name, parentID, path); err != nil {
		return nil, storeErr(op, err)
	}

	s.logger.Info("folder relocated",
		zap.String("folder_id", f.ID.Hex()),
		zap.String("from", f.Path),
		zap.String("to", path))

	updated, err := s.folders.GetByID(ctx, f.ID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return updated, nil
}
