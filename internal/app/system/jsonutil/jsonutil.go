// Package jsonutil writes JSON responses for the public endpoints, including
// the mapping from apperr kinds to HTTP status codes.
package jsonutil

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/stratafiles/internal/app/system/apperr"
)

// JSON writes data with the given status. A nil data writes headers only.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 OK JSON response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error writes an error response with the given status code.
// The response body is {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.AccessDenied:
		return http.StatusForbidden
	case apperr.LinkUnusable:
		return http.StatusGone
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.StorageUnavailable, apperr.ObjectNotFound:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messages are the client-facing texts per kind. Internal details stay in
// the logs.
var messages = map[apperr.Kind]string{
	apperr.NotFound:            "not found",
	apperr.AccessDenied:        "access denied",
	apperr.LinkUnusable:        "this link has expired, reached its download limit, or was revoked",
	apperr.Validation:          "invalid request",
	apperr.StorageUnavailable:  "storage temporarily unavailable",
	apperr.ObjectNotFound:      "storage temporarily unavailable",
	apperr.PartialUpload:       "internal error",
	apperr.NeedsReconciliation: "internal error",
}

// AppError writes err as {"error": message, "kind": kind} with the status
// for its kind. Errors without a kind are reported as internal errors.
func AppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	msg, ok := messages[kind]
	if !ok {
		msg = "internal error"
	}
	JSON(w, StatusFor(kind), map[string]string{"error": msg, "kind": string(kind)})
}
