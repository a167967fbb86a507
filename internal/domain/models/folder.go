package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Folder represents a folder in the file hierarchy. Folders are a metadata-only
// grouping; they never affect where objects are stored.
type Folder struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name        string              `bson:"name" json:"name"`
	NameCI      string              `bson:"name_ci" json:"-"`
	ParentID    *primitive.ObjectID `bson:"parent_id" json:"parent_id,omitempty"` // nil = root folder
	Path        string              `bson:"path" json:"path"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	OwnerID     primitive.ObjectID  `bson:"owner_id" json:"owner_id"`
	OrgID       *primitive.ObjectID `bson:"org_id,omitempty" json:"org_id,omitempty"`
	Permissions []Permission        `bson:"permissions" json:"permissions"`
	IsPublic    bool                `bson:"is_public" json:"is_public"`

	IsDeleted bool                `bson:"is_deleted" json:"is_deleted"`
	DeletedAt *time.Time          `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	DeletedBy *primitive.ObjectID `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsRoot returns true if the folder is at the root level.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

// JoinPath builds a materialized path from a parent path and a name.
// An empty parent path means the folder is at the root.
func JoinPath(parentPath, name string) string {
	return parentPath + "/" + name
}
