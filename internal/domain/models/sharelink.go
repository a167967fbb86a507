package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShareLink grants bearer access to a single file under time, count and
// credential constraints. Links are deactivated, never deleted.
//
// IsActive is cleared only by an explicit revoke. Expiry and exhaustion are
// derived from ExpiresAt and the download counter and are never stored.
type ShareLink struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FileID        primitive.ObjectID `bson:"file_id" json:"file_id"`
	Token         string             `bson:"token" json:"token"`
	CreatedBy     primitive.ObjectID `bson:"created_by" json:"created_by"`
	ExpiresAt     *time.Time         `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	MaxDownloads  *int64             `bson:"max_downloads,omitempty" json:"max_downloads,omitempty"`
	DownloadCount int64              `bson:"download_count" json:"download_count"`
	PasswordHash  string             `bson:"password_hash,omitempty" json:"-"`
	AllowedEmails []string           `bson:"allowed_emails" json:"allowed_emails"`
	CanView       bool               `bson:"can_view" json:"can_view"`
	CanDownload   bool               `bson:"can_download" json:"can_download"`
	IsActive      bool               `bson:"is_active" json:"is_active"`
	LastAccessed  *time.Time         `bson:"last_accessed_at,omitempty" json:"last_accessed_at,omitempty"`
	AccessLog     []AccessEntry      `bson:"access_log" json:"-"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// AccessEntry records one resolution of a share link.
type AccessEntry struct {
	IP        string    `bson:"ip" json:"ip"`
	UserAgent string    `bson:"user_agent" json:"user_agent"`
	At        time.Time `bson:"at" json:"at"`
}

// IsExpired reports whether the link has an expiry at or before now.
func (l *ShareLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// HasReachedMaxDownloads reports whether the download cap has been used up.
func (l *ShareLink) HasReachedMaxDownloads() bool {
	return l.MaxDownloads != nil && l.DownloadCount >= *l.MaxDownloads
}

// HasPassword reports whether resolving the link requires a password.
func (l *ShareLink) HasPassword() bool {
	return l.PasswordHash != ""
}

// Usable reports whether the link can currently be resolved.
func (l *ShareLink) Usable(now time.Time) bool {
	return l.IsActive && !l.IsExpired(now) && !l.HasReachedMaxDownloads()
}

// State names the link's current position in active/expired/exhausted/revoked.
// The derived states win over revoked.
func (l *ShareLink) State(now time.Time) string {
	switch {
	case l.IsExpired(now):
		return "expired"
	case l.HasReachedMaxDownloads():
		return "exhausted"
	case !l.IsActive:
		return "revoked"
	default:
		return "active"
	}
}
