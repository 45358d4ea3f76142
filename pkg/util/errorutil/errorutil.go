package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API callers.
const (
	CodeDuplicatePreference = "DUPLICATE_PREFERENCE"
	CodeDuplicateRequest    = "DUPLICATE_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidState        = "INVALID_STATE"
	CodeNotFound            = "NOT_FOUND"
	CodeStoreContention     = "STORE_CONTENTION"
	CodeValidation          = "VALIDATION_FAILED"
	CodeConflict            = "CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks. Matching is by Code only.
var (
	ErrDuplicatePreference = &DomainError{Code: CodeDuplicatePreference}
	ErrDuplicateRequest    = &DomainError{Code: CodeDuplicateRequest}
	ErrUnauthorized        = &DomainError{Code: CodeUnauthorized}
	ErrInvalidState        = &DomainError{Code: CodeInvalidState}
	ErrNotFound            = &DomainError{Code: CodeNotFound}
	ErrStoreContention     = &DomainError{Code: CodeStoreContention}
	ErrValidation          = &DomainError{Code: CodeValidation}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Retryable  bool
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
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

// NewUnauthenticated is returned when no verified identity accompanies the call.
func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewUnauthorized is returned when the caller is known but does not own the resource.
func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusForbidden, nil)
}

func NewDuplicatePreference(details map[string]any) error {
	return NewDomainError(CodeDuplicatePreference, "preference already posted", http.StatusConflict, details)
}

func NewDuplicateRequest(details map[string]any) error {
	return NewDomainError(CodeDuplicateRequest, "a pending request already exists", http.StatusConflict, details)
}

func NewInvalidState(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidState, message, http.StatusConflict, details)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewStoreContention wraps a retryable persistence conflict.
func NewStoreContention(err error) error {
	return &DomainError{
		Code:       CodeStoreContention,
		Message:    "store contention, retry the request",
		HTTPStatus: http.StatusServiceUnavailable,
		Retryable:  true,
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

// IsRetryable reports whether the caller may retry the failed call.
func IsRetryable(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}
