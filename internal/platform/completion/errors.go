package completion

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable matches every *UnavailableError via errors.Is.
	ErrUnavailable = errors.New("completion service unavailable")
	ErrEmptyText   = errors.New("completion text is empty")
	ErrUnknownKind = errors.New("unknown completion kind")

	errEmptyCompletion = errors.New("completion response was empty")
)

// UserMessage is the only failure text shown to end users.
const UserMessage = "The assistant is temporarily unavailable. Please try again in a few minutes."

// TransportError is a classified failure from a single call to the
// completion service.
type TransportError struct {
	StatusCode int
	Transient  bool
	Err        error
}

func (e *TransportError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s completion error (status %d): %v", kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s completion error: %v", kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying. Errors that were not
// classified by a transport are treated as fatal.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Transient
}

// StatusTransient classifies an HTTP status from the completion service.
func StatusTransient(status int) bool {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooEarly,
		status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

// UnavailableError is returned when no attempt produced a completion,
// either because retries ran out or a fatal error stopped them.
type UnavailableError struct {
	Kind     Kind
	Attempts int
	Last     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s completion failed after %d attempt(s): %v", e.Kind, e.Attempts, e.Last)
}

func (e *UnavailableError) Unwrap() error { return e.Last }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }
