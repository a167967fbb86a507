package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StoredFile is the metadata record for one object in the object store.
type StoredFile struct {
	ID           primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	FileName     string                 `bson:"file_name" json:"file_name"` // Display name
	FileNameCI   string                 `bson:"file_name_ci" json:"-"`      // Case-insensitive for sorting/search
	OriginalName string                 `bson:"original_name" json:"original_name"`
	ContentType  string                 `bson:"content_type" json:"content_type"`
	Kind         FileKind               `bson:"kind" json:"kind"`
	Size         int64                  `bson:"size" json:"size"`
	Bucket       string                 `bson:"bucket" json:"bucket"`
	StorageKey   string                 `bson:"storage_key" json:"-"`
	FolderID     *primitive.ObjectID    `bson:"folder_id" json:"folder_id,omitempty"` // nil = root level
	OwnerID      primitive.ObjectID     `bson:"owner_id" json:"owner_id"`
	OrgID        *primitive.ObjectID    `bson:"org_id,omitempty" json:"org_id,omitempty"`
	Tags         []string               `bson:"tags" json:"tags"`
	Description  string                 `bson:"description,omitempty" json:"description,omitempty"`
	Metadata     map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Permissions  []Permission           `bson:"permissions" json:"permissions"`
	IsPublic     bool                   `bson:"is_public" json:"is_public"`
	Version      int                    `bson:"version" json:"version"`
	ParentFileID *primitive.ObjectID    `bson:"parent_file_id,omitempty" json:"parent_file_id,omitempty"`
	Checksum     string                 `bson:"checksum" json:"checksum"` // hex SHA-256 of the stored bytes
	Downloads    int64                  `bson:"download_count" json:"download_count"`
	LastAccessed *time.Time             `bson:"last_accessed_at,omitempty" json:"last_accessed_at,omitempty"`
	ExpiresAt    *time.Time             `bson:"expires_at,omitempty" json:"expires_at,omitempty"`

	IsDeleted bool                `bson:"is_deleted" json:"is_deleted"`
	DeletedAt *time.Time          `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	DeletedBy *primitive.ObjectID `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (f *StoredFile) IsImage() bool    { return f.Kind == KindImage }
func (f *StoredFile) IsPDF() bool      { return f.Kind == KindPDF }
func (f *StoredFile) IsVideo() bool    { return f.Kind == KindVideo }
func (f *StoredFile) IsText() bool     { return f.Kind == KindText }
func (f *StoredFile) IsDocument() bool { return f.Kind.IsDocument() }
func (f *StoredFile) CanPreview() bool { return f.Kind.CanPreview() }

// ViewURL, DownloadURL and PreviewURL are the canonical addresses of the file
// relative to baseURL (no trailing slash expected).
func (f *StoredFile) ViewURL(baseURL string) string {
	return baseURL + "/files/" + f.ID.Hex()
}

func (f *StoredFile) DownloadURL(baseURL string) string {
	return baseURL + "/files/" + f.ID.Hex() + "/download"
}

// PreviewURL returns "" when the content type cannot be previewed.
func (f *StoredFile) PreviewURL(baseURL string) string {
	if !f.CanPreview() {
		return ""
	}
	return baseURL + "/files/" + f.ID.Hex() + "/preview"
}

// Lifecycle reports which of the three lifecycle states the record is in.
// A nil file is Gone.
func (f *StoredFile) Lifecycle() Lifecycle {
	switch {
	case f == nil:
		return LifecycleGone
	case f.IsDeleted:
		return LifecycleTrashed
	default:
		return LifecycleActive
	}
}

// Trashed returns a TrashedFile handle when the file is soft-deleted.
// Restore and purge operations only accept this handle.
func (f *StoredFile) Trashed() (TrashedFile, bool) {
	if f.Lifecycle() != LifecycleTrashed {
		return TrashedFile{}, false
	}
	return TrashedFile{file: f}, true
}

// Lifecycle is the state of a stored file: active -> trashed -> gone.
type Lifecycle int

const (
	LifecycleActive Lifecycle = iota
	LifecycleTrashed
	LifecycleGone
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleActive:
		return "active"
	case LifecycleTrashed:
		return "trashed"
	default:
		return "gone"
	}
}

// TrashedFile wraps a StoredFile that is known to be soft-deleted.
// The zero value is not usable; obtain one from (*StoredFile).Trashed.
type TrashedFile struct {
	file *StoredFile
}

// File returns the underlying record.
func (t TrashedFile) File() *StoredFile { return t.file }

func (t TrashedFile) ID() primitive.ObjectID { return t.file.ID }
func (t TrashedFile) Bucket() string         { return t.file.Bucket }
func (t TrashedFile) StorageKey() string     { return t.file.StorageKey }
