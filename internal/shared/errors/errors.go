package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes shared across the service
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeUserNotFound    = "USER_NOT_FOUND"
	CodeChannelSend     = "CHANNEL_SEND_FAILED"
	CodeDetectorQuery   = "DETECTOR_QUERY_FAILED"
	CodeDedupCheck      = "DEDUP_CHECK_FAILED"
	CodeStateTransition = "STATE_TRANSITION_FAILED"
)

// AppError represents an application error
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return newAppError(CodeValidation, message, err)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return newAppError(CodeInternal, message, err)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return newAppError(CodeNotFound, message, err)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, err error) *AppError {
	return newAppError(CodeUnauthorized, message, err)
}

// NewUserNotFoundError is returned when a notification recipient does not exist
func NewUserNotFoundError(userID string) *AppError {
	return newAppError(CodeUserNotFound, "recipient "+userID+" not found", nil)
}

// NewChannelSendError wraps a failed delivery attempt on one channel
func NewChannelSendError(channel string, err error) *AppError {
	return newAppError(CodeChannelSend, channel+" delivery failed", err)
}

// NewDetectorQueryError wraps a failed domain scan inside a detector tick
func NewDetectorQueryError(detector string, err error) *AppError {
	return newAppError(CodeDetectorQuery, detector+" scan failed", err)
}

// NewDedupCheckError wraps a failed notification log lookup
func NewDedupCheckError(key string, err error) *AppError {
	return newAppError(CodeDedupCheck, "dedup check failed for "+key, err)
}

// NewStateTransitionError wraps a failed guarded status write
func NewStateTransitionError(entity string, err error) *AppError {
	return newAppError(CodeStateTransition, "status transition failed for "+entity, err)
}

// HasCode reports whether err (or anything it wraps) is an AppError with code
func HasCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound reports whether err is a NOT_FOUND or USER_NOT_FOUND error
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound) || HasCode(err, CodeUserNotFound)
}

// IsValidation reports whether err is a VALIDATION_ERROR
func IsValidation(err error) bool {
	return HasCode(err, CodeValidation)
}

// AsAppError returns the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
