// Package objectkey maps uploads to a target bucket and a collision-resistant
// storage key. Everything here is pure apart from reading the clock and the
// system random source.
package objectkey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/stratafiles/internal/domain/models"
)

// Bucket suffixes. The empty suffix selects the default bucket.
const (
	SuffixImages    = "images"
	SuffixVideos    = "videos"
	SuffixDocuments = "documents"
	SuffixTemp      = "temp"
)

// RouteBucket returns the bucket suffix for a content type. It follows
// models.KindOf: PDFs and office documents share the documents bucket.
func RouteBucket(contentType string) string {
	switch k := models.KindOf(contentType); {
	case k == models.KindImage:
		return SuffixImages
	case k == models.KindVideo:
		return SuffixVideos
	case k.IsDocument():
		return SuffixDocuments
	default:
		return ""
	}
}

// BucketName joins a base bucket name with a suffix.
func BucketName(base, suffix string) string {
	if suffix == "" {
		return base
	}
	return base + "-" + suffix
}

// GenerateKey builds "owner/<unix-millis>-<16 hex>-<basename><ext>".
// The basename keeps only [A-Za-z0-9-_]; the extension keeps its dot and
// alphanumerics. Neither can introduce a path separator.
func GenerateKey(ownerID, originalName string) (string, error) {
	var rnd [8]byte
	if _, err := rand.Read(rnd[:]); err != nil {
		return "", fmt.Errorf("objectkey: random: %w", err)
	}

	// Only the final element counts; "../../x.txt" becomes "x.txt".
	name := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	ext := filepath.Ext(name)
	base := sanitize(strings.TrimSuffix(name, ext), true)
	if base == "" {
		base = "file"
	}
	if ext = sanitize(strings.TrimPrefix(ext, "."), false); ext != "" {
		ext = "." + ext
	}

	return fmt.Sprintf("%s/%d-%s-%s%s", ownerID, time.Now().UnixMilli(), hex.EncodeToString(rnd[:]), base, ext), nil
}

func sanitize(s string, allowPunct bool) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case allowPunct && (r == '-' || r == '_'):
			b.WriteRune(r)
		}
	}
	return b.String()
}
