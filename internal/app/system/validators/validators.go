// Package validators creates the collections the file service uses and
// attaches JSON-Schema validators to them.
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collections lists the collections EnsureAll manages.
var Collections = []string{"files", "folders", "share_links"}

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. Deployments that reject collMod (some DocumentDB versions)
// are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	schemas := map[string]bson.M{
		"files":       filesSchema(),
		"folders":     foldersSchema(),
		"share_links": shareLinksSchema(),
	}

	for _, coll := range Collections {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			continue
		}
		if err := setValidator(ctx, db, coll, schemas[coll]); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				continue
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure name exists.
// created is true only if this call created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	// Listing failed or the collection is missing: create and tolerate a race.
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

// commandErr reports whether err is a command error with one of codes, or
// mentions one of phrases.
func commandErr(err error, codes []int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		for _, c := range codes {
			if ce.Code == c {
				return true
			}
		}
	}
	s := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErr(err, []int32{48}, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandErr(err, []int32{59}, "no such command")
}

func isNotImplemented(err error) bool {
	return commandErr(err, []int32{115}, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func permissionsSchema() bson.M {
	return bson.M{
		"bsonType": "array",
		"items": bson.M{
			"bsonType": "object",
			"required": bson.A{"principal_id", "role"},
			"properties": bson.M{
				"principal_id": bson.M{"bsonType": "objectId"},
				"role":         bson.M{"enum": bson.A{"viewer", "editor", "owner"}},
			},
		},
	}
}

func filesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"file_name", "bucket", "storage_key", "owner_id", "size", "is_deleted"},
			"properties": bson.M{
				"file_name":      nonBlank,
				"bucket":         nonBlank,
				"storage_key":    nonBlank,
				"owner_id":       bson.M{"bsonType": "objectId"},
				"folder_id":      bson.M{"bsonType": bson.A{"objectId", "null"}},
				"size":           bson.M{"bsonType": bson.A{"long", "int"}, "minimum": 0},
				"kind":           bson.M{"enum": bson.A{"image", "pdf", "video", "document", "text", "other"}},
				"tags":           bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"permissions":    permissionsSchema(),
				"is_deleted":     bson.M{"bsonType": "bool"},
				"download_count": bson.M{"bsonType": bson.A{"long", "int"}, "minimum": 0},
			},
		},
	}
}

func foldersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "path", "owner_id", "is_deleted"},
			"properties": bson.M{
				"name":        bson.M{"bsonType": "string", "minLength": 1, "pattern": "^[^/]*\\S[^/]*$"},
				"path":        bson.M{"bsonType": "string", "pattern": "^/"},
				"parent_id":   bson.M{"bsonType": bson.A{"objectId", "null"}},
				"owner_id":    bson.M{"bsonType": "objectId"},
				"permissions": permissionsSchema(),
				"is_deleted":  bson.M{"bsonType": "bool"},
			},
		},
	}
}

func shareLinksSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"file_id", "token", "created_by", "is_active", "download_count"},
			"properties": bson.M{
				"file_id":        bson.M{"bsonType": "objectId"},
				"token":          nonBlank,
				"created_by":     bson.M{"bsonType": "objectId"},
				"max_downloads":  bson.M{"bsonType": bson.A{"long", "int"}, "minimum": 1},
				"download_count": bson.M{"bsonType": bson.A{"long", "int"}, "minimum": 0},
				"is_active":      bson.M{"bsonType": "bool"},
				"allowed_emails": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			},
		},
	}
}
