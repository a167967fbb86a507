// internal/app/system/access/access.go
package access

// Access rules for files and folders. These are pure predicates over an
// already-loaded entity: they never touch the database.
//
//   - View (includes download): public, owner, or any permission entry.
//   - Edit (rename, move, metadata): owner, or a permission entry with role editor/owner.
//   - Delete (soft delete, purge, restore, permission changes): owner only.

import (
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resource is the access-relevant view of a file or folder.
type Resource struct {
	OwnerID     primitive.ObjectID
	IsPublic    bool
	Permissions []models.Permission
}

// File returns the Resource view of a stored file.
func File(f *models.StoredFile) Resource {
	return Resource{OwnerID: f.OwnerID, IsPublic: f.IsPublic, Permissions: f.Permissions}
}

// Folder returns the Resource view of a folder.
func Folder(f *models.Folder) Resource {
	return Resource{OwnerID: f.OwnerID, IsPublic: f.IsPublic, Permissions: f.Permissions}
}

// CanView reports whether caller may view or download the resource.
func CanView(r Resource, caller primitive.ObjectID) bool {
	if r.IsPublic || r.OwnerID == caller {
		return true
	}
	_, ok := models.RoleFor(r.Permissions, caller)
	return ok
}

// CanEdit reports whether caller may rename, move, or edit metadata.
func CanEdit(r Resource, caller primitive.ObjectID) bool {
	if r.OwnerID == caller {
		return true
	}
	role, ok := models.RoleFor(r.Permissions, caller)
	return ok && role.CanEdit()
}

// CanDelete reports whether caller may delete, purge, or restore.
// Editors never qualify.
func CanDelete(r Resource, caller primitive.ObjectID) bool {
	return r.OwnerID == caller
}
