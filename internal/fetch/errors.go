package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies why a strategy failed.
type ErrorKind string

const (
	KindTimeout          ErrorKind = "timeout"
	KindConnectionFailed ErrorKind = "connection_failed"
	KindHTTPStatus       ErrorKind = "http_status"
	KindEmptyBody        ErrorKind = "empty_body"
)

// Error is the failure record of one strategy attempt.
type Error struct {
	Kind       ErrorKind
	StatusCode int // set for KindHTTPStatus
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindHTTPStatus:
		return fmt.Sprintf("http status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Label is a short, low-cardinality name for stats and metrics,
// e.g. "timeout" or "http_404".
func (e *Error) Label() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("http_%d", e.StatusCode)
	}
	return string(e.Kind)
}

// Transient reports whether the same strategy may succeed on a retry:
// timeouts and 5xx responses.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindTimeout:
		return true
	case KindHTTPStatus:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// IsTransient reports whether err carries a transient *Error.
func IsTransient(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Transient()
}

// classify turns a transport or renderer error into an *Error.
func classify(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindConnectionFailed, Err: err}
}
