// Package file provides storage for file metadata.
package file

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/store/storeutil"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no file matches, including when the file
	// is not in the lifecycle state the operation requires.
	ErrNotFound = errors.New("file not found")
	// ErrDuplicateKey is returned when a storage key is already recorded.
	ErrDuplicateKey = errors.New("storage key already recorded")
)

// Store provides access to the files collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new file store.
func New(db *mongo.Database) *Store {
	return &Store{
		c: db.Collection("files"),
	}
}

// CreateInput contains the input for creating a file.
type CreateInput struct {
	FileName     string
	OriginalName string
	ContentType  string
	Size         int64
	Bucket       string
	StorageKey   string
	Checksum     string
	FolderID     *primitive.ObjectID
	OwnerID      primitive.ObjectID
	OrgID        *primitive.ObjectID
	Tags         []string
	Description  string
	Metadata     map[string]interface{}
	IsPublic     bool
	ParentFileID *primitive.ObjectID
	ExpiresAt    *time.Time
}

// Create inserts a file record. The owner is granted an owner permission entry.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.StoredFile, error) {
	now := time.Now()
	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}

	f := models.StoredFile{
		ID:           primitive.NewObjectID(),
		FileName:     input.FileName,
		FileNameCI:   text.Fold(input.FileName),
		OriginalName: input.OriginalName,
		ContentType:  input.ContentType,
		Kind:         models.KindOf(input.ContentType),
		Size:         input.Size,
		Bucket:       input.Bucket,
		StorageKey:   input.StorageKey,
		FolderID:     input.FolderID,
		OwnerID:      input.OwnerID,
		OrgID:        input.OrgID,
		Tags:         tags,
		Description:  input.Description,
		Metadata:     input.Metadata,
		Permissions:  []models.Permission{{PrincipalID: input.OwnerID, Role: models.RoleOwner}},
		IsPublic:     input.IsPublic,
		Version:      1,
		ParentFileID: input.ParentFileID,
		Checksum:     input.Checksum,
		ExpiresAt:    input.ExpiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.c.InsertOne(ctx, f); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}

	return &f, nil
}

// GetByID retrieves a file by ID regardless of its deleted state.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.StoredFile, error) {
	var f models.StoredFile
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// UpdateInput contains the input for updating a file.
// Only non-nil fields are changed.
type UpdateInput struct {
	FileName    *string
	Description *string
	Tags        *[]string
}

// Update updates an active file's metadata.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{"updated_at": time.Now()}

	if input.FileName != nil {
		set["file_name"] = *input.FileName
		set["file_name_ci"] = text.Fold(*input.FileName)
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.Tags != nil {
		tags := *input.Tags
		if tags == nil {
			tags = []string{}
		}
		set["tags"] = tags
	}

	return s.updateActive(ctx, id, bson.M{"$set": set})
}

// Move reassigns an active file to folderID. Pass nil to move to root.
func (s *Store) Move(ctx context.Context, id primitive.ObjectID, folderID *primitive.ObjectID) error {
	return s.updateActive(ctx, id, bson.M{"$set": bson.M{
		"folder_id":  folderID,
		"updated_at": time.Now(),
	}})
}

// AddPermission appends a permission entry to an active file.
func (s *Store) AddPermission(ctx context.Context, id primitive.ObjectID, p models.Permission) error {
	return s.updateActive(ctx, id, bson.M{
		"$push": bson.M{"permissions": p},
		"$set":  bson.M{"updated_at": time.Now()},
	})
}

// RemovePermission removes every entry for principal from an active file.
func (s *Store) RemovePermission(ctx context.Context, id, principal primitive.ObjectID) error {
	return s.updateActive(ctx, id, bson.M{
		"$pull": bson.M{"permissions": bson.M{"principal_id": principal}},
		"$set":  bson.M{"updated_at": time.Now()},
	})
}

// Trash soft-deletes an active file.
func (s *Store) Trash(ctx context.Context, id, actor primitive.ObjectID) error {
	now := time.Now()
	return s.updateActive(ctx, id, bson.M{"$set": bson.M{
		"is_deleted": true,
		"deleted_at": now,
		"deleted_by": actor,
		"updated_at": now,
	}})
}

// Restore returns a trashed file to the active state.
func (s *Store) Restore(ctx context.Context, tf models.TrashedFile) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": tf.ID(), "is_deleted": true},
		bson.M{
			"$set":   bson.M{"is_deleted": false, "updated_at": time.Now()},
			"$unset": bson.M{"deleted_at": "", "deleted_by": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Purge removes a trashed file's record. The caller must already have
// removed the object from the store.
func (s *Store) Purge(ctx context.Context, tf models.TrashedFile) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": tf.ID(), "is_deleted": true})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementDownload bumps the download counter and last-accessed time.
func (s *Store) IncrementDownload(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"download_count": 1},
			"$set": bson.M{"last_accessed_at": at},
		},
	)
	return err
}

// ListByFolder returns the active files directly inside folderID, newest first.
// Pass nil for folderID to list root-level files.
func (s *Store) ListByFolder(ctx context.Context, folderID *primitive.ObjectID, scope storeutil.Scope) ([]models.StoredFile, error) {
	filter := scope.Filter()
	filter["folder_id"] = folderID
	filter["is_deleted"] = false

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return s.find(ctx, filter, opts)
}

// ListTrash returns owner's trashed files, most recently deleted first.
func (s *Store) ListTrash(ctx context.Context, owner primitive.ObjectID, limit, page int64) ([]models.StoredFile, error) {
	opts := storeutil.Paginate(limit, page).SetSort(bson.D{{Key: "deleted_at", Value: -1}})
	return s.find(ctx, bson.M{"owner_id": owner, "is_deleted": true}, opts)
}

// RecordedKeys reports which of keys in bucket have a file record.
func (s *Store) RecordedKeys(ctx context.Context, bucket string, keys []string) (map[string]bool, error) {
	out := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	opts := options.Find().SetProjection(bson.M{"storage_key": 1})
	cursor, err := s.c.Find(ctx, bson.M{"bucket": bucket, "storage_key": bson.M{"$in": keys}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			StorageKey string `bson:"storage_key"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		out[row.StorageKey] = true
	}
	return out, cursor.Err()
}

func (s *Store) updateActive(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "is_deleted": false}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.StoredFile, error) {
	cursor, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	files := []models.StoredFile{}
	if err := cursor.All(ctx, &files); err != nil {
		return nil, err
	}
	return files, nil
}
