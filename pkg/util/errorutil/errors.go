package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the threading engine, the relay and the HTTP layer.
const (
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeNotFound              = "NOT_FOUND"
	CodeInternal              = "INTERNAL_ERROR"
	CodeIdentityDegraded      = "IDENTITY_RESOLUTION_DEGRADED"
	CodeBackendUnavailable    = "BACKEND_UNAVAILABLE"
	CodeCreateFailed          = "CREATE_FAILED"
	CodeAppendFailed          = "APPEND_FAILED"
	CodeRestoreFailed         = "RESTORE_FAILED"
	CodePartialRestoreFailure = "PARTIAL_RESTORE_FAILURE"
	CodeUnresolvableAddress   = "UNRESOLVABLE_ADDRESS"
	CodeSendFailed            = "SEND_FAILED"
	CodeLeaseUnavailable      = "LEASE_UNAVAILABLE"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewBackendUnavailable reports a transient ticketing backend failure on a write path.
func NewBackendUnavailable(op string, err error) error {
	return &DomainError{
		Code:       CodeBackendUnavailable,
		Message:    "ticketing backend unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"operation": op},
		Err:        err,
	}
}

func NewCreateFailed(phone string, err error) error {
	return &DomainError{
		Code:       CodeCreateFailed,
		Message:    "ticket creation failed",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"phone": phone},
		Err:        err,
	}
}

func NewAppendFailed(ticketID string, err error) error {
	return &DomainError{
		Code:       CodeAppendFailed,
		Message:    "append message failed",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"ticket_id": ticketID},
		Err:        err,
	}
}

func NewRestoreFailed(ticketID string, err error) error {
	return &DomainError{
		Code:       CodeRestoreFailed,
		Message:    "restore ticket failed",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"ticket_id": ticketID},
		Err:        err,
	}
}

// NewPartialRestoreFailure reports a ticket that was restored but did not receive the new message.
func NewPartialRestoreFailure(ticketID string, err error) error {
	return &DomainError{
		Code:       CodePartialRestoreFailure,
		Message:    "ticket restored but message was not appended",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"ticket_id": ticketID},
		Err:        err,
	}
}

func NewUnresolvableAddress(ticketID string) error {
	return &DomainError{
		Code:       CodeUnresolvableAddress,
		Message:    "could not extract phone number",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"ticket_id": ticketID},
	}
}

func NewSendFailed(err error) error {
	return &DomainError{
		Code:       CodeSendFailed,
		Message:    "failed to send sms",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewLeaseUnavailable reports a thread lease still held by another request
// when the wait bound ran out.
func NewLeaseUnavailable(phone string, err error) error {
	return &DomainError{
		Code:       CodeLeaseUnavailable,
		Message:    "conversation busy, lease not acquired",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"phone": phone},
		Err:        err,
	}
}

// HasCode reports whether err wraps a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
