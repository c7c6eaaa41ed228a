package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes form the operation error taxonomy. Policy denials carry
// either CodeNotAuthorized or CodeRoleNotPermitted; the transport layer
// decides how each code is represented on the wire.
const (
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeNotAuthorized    = "NOT_AUTHORIZED"
	CodeRoleNotPermitted = "ROLE_NOT_PERMITTED"
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidContent   = "INVALID_CONTENT"
	CodeAttachmentTooBig = "ATTACHMENT_TOO_LARGE"
	CodeConflict         = "CONFLICT"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
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

func NewInvalidContent(message string) error {
	return NewDomainError(CodeInvalidContent, message, http.StatusBadRequest, nil)
}

func NewAttachmentTooLarge(sizeBytes, maxBytes int64) error {
	return NewDomainError(CodeAttachmentTooBig, "attachment exceeds size limit", http.StatusRequestEntityTooLarge, map[string]any{
		"size_bytes": sizeBytes,
		"max_bytes":  maxBytes,
	})
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

func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

func NewNotAuthorized(message string) error {
	return NewDomainError(CodeNotAuthorized, message, http.StatusForbidden, nil)
}

func NewRoleNotPermitted(message string) error {
	return NewDomainError(CodeRoleNotPermitted, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewStoreUnavailable marks a persistence collaborator failure. Distinct
// from Conflict so callers can pick a backoff policy rather than a
// reload-and-retry.
func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       CodeStoreUnavailable,
		Message:    "persistence unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
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

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}
