// Package apperr defines the fixed error taxonomy returned by the file,
// folder and share services. Store and driver errors are translated into
// these kinds before they leave a service.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind string

const (
	NotFound            Kind = "not_found"
	AccessDenied        Kind = "access_denied"
	StorageUnavailable  Kind = "storage_unavailable"
	ObjectNotFound      Kind = "object_not_found"
	PartialUpload       Kind = "partial_upload"
	LinkUnusable        Kind = "link_unusable"
	Validation          Kind = "validation"
	NeedsReconciliation Kind = "needs_reconciliation"
)

// Error is a classified error. Bucket and Key are set when the error concerns
// a specific object, so a reconciliation job can find it.
type Error struct {
	Kind   Kind
	Op     string
	Msg    string
	Err    error
	Bucket string
	Key    string
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Key != "" {
		s += fmt.Sprintf(" (%s/%s)", e.Bucket, e.Key)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an error of the given kind.
func E(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds an error of the given kind around err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithObject attaches the bucket and key an error refers to.
func (e *Error) WithObject(bucket, key string) *Error {
	e.Bucket = bucket
	e.Key = key
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
