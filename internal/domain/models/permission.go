package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Role is the level of access a permission entry grants.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleEditor, RoleOwner:
		return true
	}
	return false
}

// CanEdit reports whether the role allows rename, move and metadata edits.
func (r Role) CanEdit() bool {
	return r == RoleEditor || r == RoleOwner
}

// Permission is an embedded (principal, role) pair on a file or folder.
// Duplicate principals are allowed; the last entry wins on lookup.
type Permission struct {
	PrincipalID primitive.ObjectID `bson:"principal_id" json:"principal_id"`
	Role        Role               `bson:"role" json:"role"`
}

// RoleFor returns the role of the last entry for principal, if any.
func RoleFor(perms []Permission, principal primitive.ObjectID) (Role, bool) {
	for i := len(perms) - 1; i >= 0; i-- {
		if perms[i].PrincipalID == principal {
			return perms[i].Role, true
		}
	}
	return "", false
}
