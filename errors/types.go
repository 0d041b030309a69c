package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Scope errors
	ErrCodeScopeNotFound ErrorCode = "SCOPE_NOT_FOUND"
	ErrCodeStateMismatch ErrorCode = "STATE_TYPE_MISMATCH"

	// Codec errors
	ErrCodeUnknownKind    ErrorCode = "UNKNOWN_KIND"
	ErrCodeNotPersistable ErrorCode = "NOT_PERSISTABLE"
	ErrCodeCodecFailed    ErrorCode = "CODEC_FAILED"

	// Persistence errors
	ErrCodeBundleNotFound ErrorCode = "BUNDLE_NOT_FOUND"
	ErrCodePersistFailed  ErrorCode = "PERSIST_FAILED"

	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// General errors
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
)

// PhluxError represents a structured error with context
type PhluxError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *PhluxError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *PhluxError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *PhluxError) WithDetail(key string, value interface{}) *PhluxError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *PhluxError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new PhluxError
func New(code ErrorCode, message string) *PhluxError {
	return &PhluxError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a PhluxError
func Wrap(err error, code ErrorCode, message string) *PhluxError {
	return &PhluxError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific PhluxError code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	phluxErr, ok := err.(*PhluxError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return phluxErr.Code
}
