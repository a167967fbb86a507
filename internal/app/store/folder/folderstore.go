// Package folder provides storage for file folders.
package folder

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/store/storeutil"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no active folder matches.
var ErrNotFound = errors.New("folder not found")

// maxDepth bounds ancestor walks so a corrupted parent chain cannot loop forever.
const maxDepth = 256

// Store provides access to the folders collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new folder store.
func New(db *mongo.Database) *Store {
	return &Store{
		c: db.Collection("folders"),
	}
}

// CreateInput contains the input for creating a folder.
// Path must already be computed from the parent.
type CreateInput struct {
	Name        string
	ParentID    *primitive.ObjectID
	Path        string
	Description string
	OwnerID     primitive.ObjectID
	OrgID       *primitive.ObjectID
	IsPublic    bool
}

// Create creates a new folder with an owner permission entry.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.Folder, error) {
	now := time.Now()
	f := models.Folder{
		ID:          primitive.NewObjectID(),
		Name:        input.Name,
		NameCI:      text.Fold(input.Name),
		ParentID:    input.ParentID,
		Path:        input.Path,
		Description: input.Description,
		OwnerID:     input.OwnerID,
		OrgID:       input.OrgID,
		Permissions: []models.Permission{{PrincipalID: input.OwnerID, Role: models.RoleOwner}},
		IsPublic:    input.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.c.InsertOne(ctx, f); err != nil {
		return nil, err
	}

	return &f, nil
}

// GetByID retrieves a folder by ID regardless of its deleted state.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Folder, error) {
	var f models.Folder
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// GetActive retrieves a folder that has not been soft-deleted.
func (s *Store) GetActive(ctx context.Context, id primitive.ObjectID) (*models.Folder, error) {
	var f models.Folder
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Relocate sets the name, parent and path of an active folder together.
// Descendant paths are not touched.
func (s *Store) Relocate(ctx context.Context, id primitive.ObjectID, name string, parentID *primitive.ObjectID, path string) error {
	return s.updateActive(ctx, id, bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"parent_id":  parentID,
		"path":       path,
		"updated_at": time.Now(),
	}})
}

// SoftDelete marks an active folder deleted. Contents are left as they are.
func (s *Store) SoftDelete(ctx context.Context, id, actor primitive.ObjectID) error {
	now := time.Now()
	return s.updateActive(ctx, id, bson.M{"$set": bson.M{
		"is_deleted": true,
		"deleted_at": now,
		"deleted_by": actor,
		"updated_at": now,
	}})
}

// ListByParent returns active folders directly under parentID, by name.
// Pass nil for parentID to list root folders.
func (s *Store) ListByParent(ctx context.Context, parentID *primitive.ObjectID, scope storeutil.Scope) ([]models.Folder, error) {
	filter := scope.Filter()
	filter["parent_id"] = parentID
	filter["is_deleted"] = false

	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	folders := []models.Folder{}
	if err := cursor.All(ctx, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// GetAncestors returns all ancestors of a folder, ordered from root to immediate parent.
func (s *Store) GetAncestors(ctx context.Context, id primitive.ObjectID) ([]models.Folder, error) {
	folder, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var ancestors []models.Folder

	currentParentID := folder.ParentID
	for depth := 0; currentParentID != nil; depth++ {
		if depth >= maxDepth {
			return nil, errors.New("folder ancestry too deep")
		}
		parent, err := s.GetByID(ctx, *currentParentID)
		if err != nil {
			return nil, err
		}
		// Prepend to get root-first order
		ancestors = append([]models.Folder{*parent}, ancestors...)
		currentParentID = parent.ParentID
	}

	return ancestors, nil
}

// HasSubfolders checks if a folder has any active subfolders.
func (s *Store) HasSubfolders(ctx context.Context, id primitive.ObjectID) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{"parent_id": id, "is_deleted": false})
	if err != nil {
		return false, err
	}
	return count > 0, nil
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
