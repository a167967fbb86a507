package objectkey

import (
	"regexp"
	"strings"
	"testing"

	"github.com/dalemusser/stratafiles/internal/domain/models"
)

func TestRouteBucket(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", SuffixImages},
		{"video/quicktime", SuffixVideos},
		{"application/pdf", SuffixDocuments},
		{"application/msword", SuffixDocuments},
		{"application/vnd.openxmlformats-officedocument.presentationml.presentation", SuffixDocuments},
		{"application/x-spreadsheet", SuffixDocuments},
		{"application/x-pdf", SuffixDocuments},
		{"Application/PDF; name=report.pdf", SuffixDocuments},
		{"application/x-pdf-viewer-plugin", ""},
		{"text/plain", ""},
		{"application/zip", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := RouteBucket(tt.contentType); got != tt.want {
			t.Errorf("RouteBucket(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

func TestRouteBucket_AgreesWithKind(t *testing.T) {
	want := map[models.FileKind]string{
		models.KindImage:    SuffixImages,
		models.KindVideo:    SuffixVideos,
		models.KindPDF:      SuffixDocuments,
		models.KindDocument: SuffixDocuments,
		models.KindText:     "",
		models.KindOther:    "",
	}
	for _, ct := range []string{
		"image/webp", "video/mp4", "application/pdf", "application/x-pdf", "application/acrobat",
		"application/vnd.ms-excel", "application/vnd.oasis.opendocument.presentation",
		"text/csv", "application/json", "application/octet-stream",
	} {
		kind := models.KindOf(ct)
		if got := RouteBucket(ct); got != want[kind] {
			t.Errorf("%s: RouteBucket = %q, kind %s wants %q", ct, got, kind, want[kind])
		}
	}
}

func TestBucketName(t *testing.T) {
	if got := BucketName("files", ""); got != "files" {
		t.Errorf("BucketName default = %v, want files", got)
	}
	if got := BucketName("files", SuffixDocuments); got != "files-documents" {
		t.Errorf("BucketName = %v, want files-documents", got)
	}
}

var keyPattern = regexp.MustCompile(`^owner1/\d+-[0-9a-f]{16}-[A-Za-z0-9_-]+(\.[A-Za-z0-9]+)?$`)

func TestGenerateKey(t *testing.T) {
	tests := []struct {
		name       string
		wantSuffix string
	}{
		{"report.pdf", "-report.pdf"},
		{"my report (final).docx", "-myreportfinal.docx"},
		{"../../etc/passwd", "-passwd"},
		{`..\..\win.ini`, "-win.ini"},
		{"résumé.txt", "-rsum.txt"},
		{".hidden", "-file.hidden"},
		{"", "-file"},
		{"archive.tar.gz", "-archivetar.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := GenerateKey("owner1", tt.name)
			if err != nil {
				t.Fatalf("GenerateKey() error = %v", err)
			}
			if !keyPattern.MatchString(key) {
				t.Errorf("key %q does not match expected shape", key)
			}
			if !strings.HasSuffix(key, tt.wantSuffix) {
				t.Errorf("key %q, want suffix %q", key, tt.wantSuffix)
			}
			if strings.Contains(strings.TrimPrefix(key, "owner1/"), "/") {
				t.Errorf("key %q contains a path separator after the owner prefix", key)
			}
		})
	}
}

func TestGenerateKey_NoCollisions(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		key, err := GenerateKey("owner1", "same.txt")
		if err != nil {
			t.Fatalf("GenerateKey() error = %v", err)
		}
		if seen[key] {
			t.Fatalf("duplicate key %q after %d calls", key, i)
		}
		seen[key] = true
	}
}
