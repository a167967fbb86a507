// internal/app/store/storeutil/storeutil.go
package storeutil

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Paginate returns *options.FindOptions with skip/limit given a 1-based page.
func Paginate(limit, page int64) *options.FindOptions {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	sk := (page - 1) * limit
	return options.Find().SetLimit(limit).SetSkip(sk)
}

// Scope restricts a listing to an organization, or to an owner when no
// organization is given.
type Scope struct {
	OwnerID primitive.ObjectID
	OrgID   *primitive.ObjectID
}

// Filter returns the scope as a filter fragment.
func (s Scope) Filter() bson.M {
	if s.OrgID != nil {
		return bson.M{"org_id": *s.OrgID}
	}
	return bson.M{"owner_id": s.OwnerID}
}
