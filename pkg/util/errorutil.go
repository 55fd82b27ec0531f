package util

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies where a failure originated.
type ErrorKind string

const (
	KindTransport     ErrorKind = "transport"
	KindAuthorization ErrorKind = "authorization"
	KindDomain        ErrorKind = "domain"
	KindIntegrity     ErrorKind = "integrity"
	KindBadInput      ErrorKind = "bad_input"
)

// Messages surfaced verbatim to callers.
const (
	MsgSessionExpired   = "Session expired. Please login again."
	MsgNetworkFailure   = "Network error. Please check your connection and try again."
	MsgEmptyExport      = "Export file is empty or invalid"
	MsgAllDeletesFailed = "Failed to delete any of the selected items"
)

// DomainError standardizes application errors on both sides of the wire.
type DomainError struct {
	Kind       ErrorKind
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
	return &DomainError{Kind: KindDomain, Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Kind:       KindDomain,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return &DomainError{Kind: KindAuthorization, Code: "UNAUTHORIZED", Message: message, HTTPStatus: http.StatusUnauthorized}
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Kind:       KindDomain,
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewTransportError reports a request that never produced a readable response.
// It carries no HTTP status.
func NewTransportError(err error) *DomainError {
	return &DomainError{Kind: KindTransport, Code: "NETWORK_ERROR", Message: MsgNetworkFailure, Err: err}
}

// NewSessionExpired reports a rejected credential. The backend message is kept in
// Details so it is not lost, but never surfaced as the message.
func NewSessionExpired(status int, backendMessage string) *DomainError {
	var details map[string]any
	if backendMessage != "" {
		details = map[string]any{"backend_message": backendMessage}
	}
	return &DomainError{
		Kind:       KindAuthorization,
		Code:       "SESSION_EXPIRED",
		Message:    MsgSessionExpired,
		HTTPStatus: status,
		Details:    details,
	}
}

// NewIntegrityError reports a successful response whose payload is unusable.
func NewIntegrityError(message string, status int) *DomainError {
	return &DomainError{Kind: KindIntegrity, Code: "INVALID_PAYLOAD", Message: message, HTTPStatus: status}
}

// NewBadInput reports a request rejected before dispatch.
func NewBadInput(message string, err error) *DomainError {
	return &DomainError{Kind: KindBadInput, Code: "BAD_INPUT", Message: message, Err: err}
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
		Kind:       KindDomain,
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Kind == kind
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return 0
	}
	return domainErr.HTTPStatus
}
