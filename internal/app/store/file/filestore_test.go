package file

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/store/storeutil"
	"github.com/dalemusser/stratafiles/internal/domain/models"
	"github.com/dalemusser/stratafiles/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newInput(owner primitive.ObjectID, key string) CreateInput {
	return CreateInput{
		FileName:     "report.pdf",
		OriginalName: "report.pdf",
		ContentType:  "application/pdf",
		Size:         1024,
		Bucket:       "files-documents",
		StorageKey:   key,
		Checksum:     "abc123",
		OwnerID:      owner,
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	f, err := store.Create(ctx, newInput(owner, "o/1-a-report.pdf"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if f.ID.IsZero() {
		t.Error("ID should not be zero")
	}
	if f.Kind != models.KindPDF {
		t.Errorf("Kind = %v, want %v", f.Kind, models.KindPDF)
	}
	if f.Version != 1 {
		t.Errorf("Version = %v, want 1", f.Version)
	}
	if role, ok := models.RoleFor(f.Permissions, owner); !ok || role != models.RoleOwner {
		t.Errorf("owner permission = %v, %v, want owner", role, ok)
	}

	got, err := store.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Checksum != "abc123" || got.Size != 1024 || got.FolderID != nil {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestStore_Create_DuplicateKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	if _, err := store.Create(ctx, newInput(owner, "o/dup")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, newInput(owner, "o/dup")); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("second Create() error = %v, want ErrDuplicateKey", err)
	}
}

func TestStore_Create_DuplicateKeyAcrossBuckets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	if _, err := store.Create(ctx, newInput(owner, "o/shared")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	in := newInput(owner, "o/shared")
	in.Bucket = "files-images"
	if _, err := store.Create(ctx, in); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Create() in another bucket error = %v, want ErrDuplicateKey", err)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Update_Partial(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	in := newInput(primitive.NewObjectID(), "o/u")
	in.Description = "keep me"
	f, _ := store.Create(ctx, in)

	name := "Renamed.pdf"
	tags := []string{"q1", "finance"}
	if err := store.Update(ctx, f.ID, UpdateInput{FileName: &name, Tags: &tags}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := store.GetByID(ctx, f.ID)
	if got.FileName != name || got.FileNameCI != "renamed.pdf" {
		t.Errorf("FileName = %v (%v), want %v", got.FileName, got.FileNameCI, name)
	}
	if got.Description != "keep me" {
		t.Errorf("Description = %v, want unchanged", got.Description)
	}
	if len(got.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 entries", got.Tags)
	}
}

func TestStore_TrashRestorePurge(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	f, _ := store.Create(ctx, newInput(owner, "o/t"))

	if err := store.Trash(ctx, f.ID, owner); err != nil {
		t.Fatalf("Trash() error = %v", err)
	}
	if err := store.Trash(ctx, f.ID, owner); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Trash() error = %v, want ErrNotFound", err)
	}

	got, _ := store.GetByID(ctx, f.ID)
	if !got.IsDeleted || got.DeletedAt == nil || got.DeletedBy == nil || *got.DeletedBy != owner {
		t.Errorf("trash fields not set: %+v", got)
	}

	// Edits are refused while trashed.
	name := "x"
	if err := store.Update(ctx, f.ID, UpdateInput{FileName: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() on trashed file error = %v, want ErrNotFound", err)
	}

	tf, ok := got.Trashed()
	if !ok {
		t.Fatal("Trashed() should succeed")
	}
	if err := store.Restore(ctx, tf); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	got, _ = store.GetByID(ctx, f.ID)
	if got.IsDeleted || got.DeletedAt != nil || got.DeletedBy != nil {
		t.Errorf("restore did not clear trash fields: %+v", got)
	}

	// A stale handle cannot purge an active file.
	if err := store.Purge(ctx, tf); !errors.Is(err, ErrNotFound) {
		t.Errorf("Purge() on active file error = %v, want ErrNotFound", err)
	}

	_ = store.Trash(ctx, f.ID, owner)
	got, _ = store.GetByID(ctx, f.ID)
	tf, _ = got.Trashed()
	if err := store.Purge(ctx, tf); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if _, err := store.GetByID(ctx, f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after purge error = %v, want ErrNotFound", err)
	}
}

func TestStore_Permissions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f, _ := store.Create(ctx, newInput(primitive.NewObjectID(), "o/p"))
	editor := primitive.NewObjectID()

	if err := store.AddPermission(ctx, f.ID, models.Permission{PrincipalID: editor, Role: models.RoleEditor}); err != nil {
		t.Fatalf("AddPermission() error = %v", err)
	}
	got, _ := store.GetByID(ctx, f.ID)
	if role, _ := models.RoleFor(got.Permissions, editor); role != models.RoleEditor {
		t.Errorf("role = %v, want editor", role)
	}

	if err := store.RemovePermission(ctx, f.ID, editor); err != nil {
		t.Fatalf("RemovePermission() error = %v", err)
	}
	got, _ = store.GetByID(ctx, f.ID)
	if _, ok := models.RoleFor(got.Permissions, editor); ok {
		t.Error("permission should be removed")
	}
	if len(got.Permissions) != 1 {
		t.Errorf("Permissions = %v, want only owner entry", got.Permissions)
	}
}

func TestStore_IncrementDownload(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f, _ := store.Create(ctx, newInput(primitive.NewObjectID(), "o/d"))
	at := time.Now().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := store.IncrementDownload(ctx, f.ID, at); err != nil {
			t.Fatalf("IncrementDownload() error = %v", err)
		}
	}

	got, _ := store.GetByID(ctx, f.ID)
	if got.Downloads != 3 {
		t.Errorf("Downloads = %v, want 3", got.Downloads)
	}
	if got.LastAccessed == nil || !got.LastAccessed.Equal(at) {
		t.Errorf("LastAccessed = %v, want %v", got.LastAccessed, at)
	}
}

func TestStore_ListByFolder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	other := primitive.NewObjectID()
	folderID := primitive.NewObjectID()

	first, _ := store.Create(ctx, newInput(owner, "o/1"))
	time.Sleep(5 * time.Millisecond)
	second, _ := store.Create(ctx, newInput(owner, "o/2"))
	trashed, _ := store.Create(ctx, newInput(owner, "o/3"))
	_ = store.Trash(ctx, trashed.ID, owner)
	_, _ = store.Create(ctx, newInput(other, "x/1"))

	nested := newInput(owner, "o/4")
	nested.FolderID = &folderID
	_, _ = store.Create(ctx, nested)

	files, err := store.ListByFolder(ctx, nil, storeutil.Scope{OwnerID: owner})
	if err != nil {
		t.Fatalf("ListByFolder() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("ListByFolder() returned %d files, want 2", len(files))
	}
	if files[0].ID != second.ID || files[1].ID != first.ID {
		t.Error("files should be sorted newest first")
	}

	inFolder, _ := store.ListByFolder(ctx, &folderID, storeutil.Scope{OwnerID: owner})
	if len(inFolder) != 1 {
		t.Errorf("ListByFolder(folder) returned %d files, want 1", len(inFolder))
	}
}

func TestStore_ListByFolder_OrgScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := primitive.NewObjectID()
	a := newInput(primitive.NewObjectID(), "a/1")
	a.OrgID = &org
	b := newInput(primitive.NewObjectID(), "b/1")
	b.OrgID = &org
	_, _ = store.Create(ctx, a)
	_, _ = store.Create(ctx, b)
	_, _ = store.Create(ctx, newInput(primitive.NewObjectID(), "c/1"))

	files, err := store.ListByFolder(ctx, nil, storeutil.Scope{OwnerID: primitive.NewObjectID(), OrgID: &org})
	if err != nil {
		t.Fatalf("ListByFolder() error = %v", err)
	}
	if len(files) != 2 {
		t.Errorf("org scope returned %d files, want 2", len(files))
	}
}

func TestStore_ListTrashAndRecordedKeys(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	f1, _ := store.Create(ctx, newInput(owner, "o/k1"))
	f2, _ := store.Create(ctx, newInput(owner, "o/k2"))
	_ = store.Trash(ctx, f1.ID, owner)
	time.Sleep(5 * time.Millisecond)
	_ = store.Trash(ctx, f2.ID, owner)

	trash, err := store.ListTrash(ctx, owner, 10, 1)
	if err != nil {
		t.Fatalf("ListTrash() error = %v", err)
	}
	if len(trash) != 2 || trash[0].ID != f2.ID {
		t.Errorf("ListTrash() should return both files, latest deletion first")
	}

	keys, err := store.RecordedKeys(ctx, "files-documents", []string{"o/k1", "o/k2", "o/orphan"})
	if err != nil {
		t.Fatalf("RecordedKeys() error = %v", err)
	}
	if !keys["o/k1"] || !keys["o/k2"] || keys["o/orphan"] {
		t.Errorf("RecordedKeys() = %v", keys)
	}
}
