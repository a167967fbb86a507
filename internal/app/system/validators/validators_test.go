package validators

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/stratafiles/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}

	for _, coll := range Collections {
		exists, err := collectionExists(ctx, db, coll)
		if err != nil {
			t.Errorf("collectionExists(%s) error = %v", coll, err)
			continue
		}
		if !exists {
			t.Errorf("collection %s should exist after EnsureAll", coll)
		}
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll() error = %v", err)
	}
	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll() error = %v", err)
	}
}

func TestEnsureAll_RejectsInvalidDocuments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}

	owner := primitive.NewObjectID()
	now := time.Now()

	valid := bson.M{
		"file_name":      "report.pdf",
		"bucket":         "files-documents",
		"storage_key":    owner.Hex() + "/1/report.pdf",
		"owner_id":       owner,
		"folder_id":      nil,
		"size":           int64(12),
		"kind":           "pdf",
		"tags":           bson.A{},
		"permissions":    bson.A{bson.M{"principal_id": owner, "role": "owner"}},
		"is_deleted":     false,
		"download_count": int64(0),
		"created_at":     now,
	}
	if _, err := db.Collection("files").InsertOne(ctx, valid); err != nil {
		t.Fatalf("InsertOne(valid file) error = %v", err)
	}

	bad := bson.M{}
	for k, v := range valid {
		bad[k] = v
	}
	bad["storage_key"] = owner.Hex() + "/2/report.pdf"
	bad["size"] = int64(-1)
	if _, err := db.Collection("files").InsertOne(ctx, bad); err == nil {
		t.Error("InsertOne(negative size) should fail validation")
	}

	folder := bson.M{
		"name":       "a/b",
		"path":       "/a/b",
		"owner_id":   owner,
		"is_deleted": false,
	}
	if _, err := db.Collection("folders").InsertOne(ctx, folder); err == nil {
		t.Error("InsertOne(folder name with slash) should fail validation")
	}

	link := bson.M{
		"file_id":        primitive.NewObjectID(),
		"token":          "tok",
		"created_by":     owner,
		"is_active":      true,
		"download_count": int64(0),
		"max_downloads":  int64(0),
	}
	if _, err := db.Collection("share_links").InsertOne(ctx, link); err == nil {
		t.Error("InsertOne(max_downloads 0) should fail validation")
	}
}

func TestEnsureCollection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := ensureCollection(ctx, db, "test_ensure")
	if err != nil {
		t.Fatalf("ensureCollection() error = %v", err)
	}
	if !created {
		t.Error("first ensureCollection() should return created=true")
	}

	created, err = ensureCollection(ctx, db, "test_ensure")
	if err != nil {
		t.Fatalf("second ensureCollection() error = %v", err)
	}
	if created {
		t.Error("second ensureCollection() should return created=false")
	}
}

func TestCommandErrClassifiers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(error) bool
		err  error
		want bool
	}{
		{"exists nil", isNamespaceExistsErr, nil, false},
		{"exists generic", isNamespaceExistsErr, errors.New("some error"), false},
		{"exists message", isNamespaceExistsErr, errors.New("collection already exists"), true},
		{"exists namespace", isNamespaceExistsErr, errors.New("Namespace Exists"), true},
		{"exists code 48", isNamespaceExistsErr, mongo.CommandError{Code: 48, Message: "x"}, true},
		{"no such command message", isNoSuchCommand, errors.New("NO SUCH COMMAND"), true},
		{"no such command code 59", isNoSuchCommand, mongo.CommandError{Code: 59, Message: "x"}, true},
		{"no such command generic", isNoSuchCommand, errors.New("timeout"), false},
		{"not implemented message", isNotImplemented, errors.New("not implemented"), true},
		{"not supported message", isNotImplemented, errors.New("not supported"), true},
		{"not implemented code 115", isNotImplemented, mongo.CommandError{Code: 115, Message: "x"}, true},
		{"not implemented other code", isNotImplemented, mongo.CommandError{Code: 2, Message: "bad value"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
