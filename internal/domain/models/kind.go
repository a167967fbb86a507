package models

import "strings"

// FileKind is the closed classification of a file's content type.
// It is computed once, at creation, by KindOf. Bucket routing uses the same
// classification, so a file's kind and its bucket always agree.
type FileKind string

const (
	KindImage    FileKind = "image"
	KindPDF      FileKind = "pdf"
	KindVideo    FileKind = "video"
	KindDocument FileKind = "document"
	KindText     FileKind = "text"
	KindOther    FileKind = "other"
)

// pdfTypes are the content types PDFs arrive under, including legacy aliases.
var pdfTypes = map[string]bool{
	"application/pdf":     true,
	"application/x-pdf":   true,
	"application/acrobat": true,
}

// officeTypes are the exact document content types recognized without substring matching.
var officeTypes = map[string]bool{
	"application/msword":            true,
	"application/vnd.ms-excel":      true,
	"application/vnd.ms-powerpoint": true,

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
}

var documentHints = []string{"word", "excel", "powerpoint", "spreadsheet", "presentation"}

// KindOf classifies a content type. Parameters such as "; charset=utf-8" are ignored.
func KindOf(contentType string) FileKind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.HasPrefix(ct, "video/"):
		return KindVideo
	case pdfTypes[ct]:
		return KindPDF
	case strings.HasPrefix(ct, "text/"):
		return KindText
	case officeTypes[ct]:
		return KindDocument
	}
	for _, h := range documentHints {
		if strings.Contains(ct, h) {
			return KindDocument
		}
	}
	return KindOther
}

// IsDocument reports whether the kind is a document. PDFs count as documents.
func (k FileKind) IsDocument() bool {
	return k == KindDocument || k == KindPDF
}

// CanPreview reports whether files of this kind can be previewed inline.
func (k FileKind) CanPreview() bool {
	return k == KindImage || k == KindPDF || k == KindText
}
