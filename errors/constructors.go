package errors

import "fmt"

// ScopeNotFound reports access to a scope that was never created or was removed.
func ScopeNotFound(key string) *PhluxError {
	return New(ErrCodeScopeNotFound, fmt.Sprintf("scope '%s' not found", key)).
		WithDetail("scope", key)
}

// StateMismatch reports a scope state that does not have the type the caller expects.
func StateMismatch(key string, want, got interface{}) *PhluxError {
	return New(ErrCodeStateMismatch,
		fmt.Sprintf("scope '%s' holds %T, expected %T", key, got, want)).
		WithDetail("scope", key).
		WithDetail("expected", fmt.Sprintf("%T", want)).
		WithDetail("actual", fmt.Sprintf("%T", got))
}

// UnknownKind reports a persisted value whose kind has no registered decoder.
func UnknownKind(kind string) *PhluxError {
	return New(ErrCodeUnknownKind, fmt.Sprintf("no codec registered for kind '%s'", kind)).
		WithDetail("kind", kind)
}

// NotPersistable reports a value that does not implement Kind().
func NotPersistable(value interface{}) *PhluxError {
	return New(ErrCodeNotPersistable, fmt.Sprintf("value of type %T cannot be persisted", value)).
		WithDetail("type", fmt.Sprintf("%T", value))
}

// CodecFailed wraps an encoding or decoding failure.
func CodecFailed(op string, err error) *PhluxError {
	return Wrap(err, ErrCodeCodecFailed, fmt.Sprintf("%s failed", op)).
		WithDetail("op", op)
}

// BundleNotFound reports a missing persisted scope.
func BundleNotFound(key string) *PhluxError {
	return New(ErrCodeBundleNotFound, fmt.Sprintf("no saved scope for key '%s'", key)).
		WithDetail("scope", key)
}

// PersistFailed wraps a repository failure.
func PersistFailed(op, key string, err error) *PhluxError {
	return Wrap(err, ErrCodePersistFailed, fmt.Sprintf("%s '%s' failed", op, key)).
		WithDetail("op", op).
		WithDetail("scope", key)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *PhluxError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *PhluxError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}
