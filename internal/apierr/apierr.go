// Package apierr provides the structured error type produced at the
// repository boundary and consumed by the state containers.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout           = errors.New("request timed out")
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrMalformedResponse = errors.New("malformed response")
)

// Kind classifies where a failure originated.
type Kind string

const (
	// KindValidation is a payload rejected locally before any network call.
	KindValidation Kind = "validation"
	// KindServer is an HTTP error response from the remote API.
	KindServer Kind = "server"
	// KindTransport covers timeouts, unreachable hosts and undecodable bodies.
	KindTransport Kind = "transport"
)

// Error is the single error shape returned by the remote access layer and
// the repositories. Message is the human-readable text shown to the user.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d)", e.Kind, e.StatusCode)
	}
	return string(e.Kind) + " error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets callers match server errors against the status sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindServer && e.StatusCode == http.StatusNotFound
	case ErrUnauthenticated:
		return e.Kind == KindServer && e.StatusCode == http.StatusUnauthorized
	case ErrInvalidInput:
		return e.Kind == KindValidation
	}
	return false
}

// Detail renders the error with its operation and status for logs.
func (e *Error) Detail() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if msg := e.Error(); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

// NewServer creates a server error. message may be empty when the response
// body carried none.
func NewServer(statusCode int, message string) *Error {
	return &Error{Kind: KindServer, StatusCode: statusCode, Message: message}
}

// NewTransport wraps a transport failure.
func NewTransport(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

// NewValidation creates a validation error from one or more field failures.
func NewValidation(op string, fields ValidationErrors) *Error {
	msg := ""
	if len(fields) > 0 {
		msg = fields[0].Message
	}
	return &Error{Kind: KindValidation, Op: op, Message: msg, Err: fields}
}

// KindOf reports the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusCode reports the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// MessageOr resolves the user-facing message for err: the message carried
// by a server or validation error, otherwise fallback. Transport failures
// never surface their own text.
func MessageOr(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// Describe returns a short sentence for a transport failure, or "" when err
// is a server or validation error. Errors that are not *Error count as
// transport failures.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindTransport {
		return ""
	}
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "The server took too long to respond"
	case errors.Is(err, context.Canceled):
		return "The request was cancelled"
	case errors.Is(err, ErrMalformedResponse):
		return "The server sent an unreadable response"
	default:
		return "Unable to reach the server"
	}
}

// Resolve returns a copy of err as an *Error tagged with op whose Message is
// already resolved against fallback. Errors that are not *Error are treated
// as transport failures.
func Resolve(err error, op, fallback string) *Error {
	if err == nil {
		return nil
	}
	var src *Error
	if !errors.As(err, &src) {
		src = NewTransport(err)
	}
	out := *src
	out.Op = op
	out.Message = MessageOr(src, fallback)
	return &out
}
