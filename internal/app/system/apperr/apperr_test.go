package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := errors.New("connection reset")
	err := Wrap(StorageUnavailable, "objectstore.Put", base).WithObject("files-images", "u/1-a-b.png")
	wrapped := fmt.Errorf("upload: %w", err)

	if got := KindOf(wrapped); got != StorageUnavailable {
		t.Errorf("KindOf = %v, want %v", got, StorageUnavailable)
	}
	if !Is(wrapped, StorageUnavailable) {
		t.Error("Is(StorageUnavailable) = false, want true")
	}
	if Is(wrapped, NotFound) {
		t.Error("Is(NotFound) = true, want false")
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is should reach the underlying error")
	}
	if !strings.Contains(err.Error(), "files-images/u/1-a-b.png") {
		t.Errorf("Error() = %q, want object reference", err.Error())
	}
}

func TestKindOf_Plain(t *testing.T) {
	if KindOf(errors.New("x")) != "" {
		t.Error("plain error should have no kind")
	}
	if Is(nil, NotFound) {
		t.Error("nil error should not match any kind")
	}
}
