package ticketing

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies backend failures. The set is closed.
type ErrorKind int

const (
	// KindUnavailable covers network failures, timeouts, 429 and 5xx.
	KindUnavailable ErrorKind = iota + 1
	// KindNotFound means the addressed resource does not exist.
	KindNotFound
	// KindRejected means the backend refused the request (other 4xx).
	KindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindNotFound:
		return "not_found"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Sentinels usable with errors.Is against *Error.
var (
	ErrUnavailable = errors.New("ticketing backend unavailable")
	ErrNotFound    = errors.New("ticketing resource not found")
	ErrRejected    = errors.New("ticketing request rejected")
)

// Error is returned by Backend implementations.
type Error struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ticketing %s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrRejected:
		return e.Kind == KindRejected
	}
	return false
}

// NewError builds a backend error.
func NewError(op string, kind ErrorKind, status int, err error) *Error {
	return &Error{Op: op, Kind: kind, StatusCode: status, Err: err}
}

// KindForStatus maps an HTTP status to an error kind.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests, status >= 500:
		return KindUnavailable
	default:
		return KindRejected
	}
}

// IsUnavailable reports whether err is a transient backend failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
