// Package errs defines the structured error returned at the invocation
// boundary. Every error carries a kind tag so callers can branch without
// matching on message text.
package errs

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
)

// Kind classifies an error
type Kind string

const (
	// KindIO covers filesystem open/read failures and process spawn failures
	KindIO Kind = "io"
	// KindUTF8 covers text that had to be valid UTF-8 but was not
	KindUTF8 Kind = "utf8"
	// KindPlatform covers path resolution and transport integration failures
	KindPlatform Kind = "platform"
)

// Error is a classified error. It serializes as {"kind": ..., "message": ...}
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the wire shape consumed by the frontend
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    Kind   `json:"kind"`
		Message string `json:"message"`
	}{
		Kind:    e.Kind,
		Message: e.Error(),
	})
}

// IO wraps err as an input/output failure
func IO(err error) *Error {
	return &Error{Kind: KindIO, Err: err}
}

// UTF8 wraps err as an encoding failure
func UTF8(err error) *Error {
	return &Error{Kind: KindUTF8, Err: err}
}

// Platform wraps err as a host integration failure
func Platform(err error) *Error {
	return &Error{Kind: KindPlatform, Err: err}
}

// From returns err as an *Error, classifying unknown errors.
// Filesystem errors become KindIO, everything else KindPlatform.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return IO(err)
	}
	return Platform(err)
}

// KindOf reports the kind of err, or "" when err is nil
func KindOf(err error) Kind {
	if e := From(err); e != nil {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps a kind to the status code used by the HTTP surface
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindPlatform, KindUTF8:
		return http.StatusBadRequest
	case KindIO:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
