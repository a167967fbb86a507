package objectstore

import (
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
	"github.com/minio/minio-go/v7"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey"}, apperr.ObjectNotFound},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied"}, apperr.StorageUnavailable},
		{"network", errors.New("dial tcp: connection refused"), apperr.StorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate("op", "b", "k", tt.err)
			if got := apperr.KindOf(err); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := New(Config{Endpoint: "localhost:9000"}); err == nil {
		t.Error("New() with missing credentials should fail")
	}
	if _, err := New(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}); err != nil {
		t.Errorf("New() error = %v", err)
	}
}

func TestPublicReadPolicy(t *testing.T) {
	p := publicReadPolicy("files-temp")
	if !strings.Contains(p, "arn:aws:s3:::files-temp/*") || !strings.Contains(p, `"s3:ListBucket"`) {
		t.Errorf("policy missing expected statements: %s", p)
	}
}
