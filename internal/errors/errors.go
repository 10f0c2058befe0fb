package errors

import (
	stderrors "errors"
	"fmt"
)

// WatchError is the structured error type for kwatch.
// It carries enough context to log a recoverable failure and keep going,
// or to print a fatal one before exiting.
type WatchError struct {
	// Code is the unique error code (e.g., "ERR_301_DIR_OPEN").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Resolution, Spawn, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Path is the filesystem path the failure relates to, if any.
	Path string

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *WatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *WatchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with WatchError.
func (e *WatchError) Is(target error) bool {
	if t, ok := target.(*WatchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *WatchError) WithDetail(key, value string) *WatchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithPath records the path the error relates to.
func (e *WatchError) WithPath(path string) *WatchError {
	e.Path = path
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *WatchError) WithSuggestion(suggestion string) *WatchError {
	e.Suggestion = suggestion
	return e
}

// New creates a new WatchError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *WatchError {
	return &WatchError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a WatchError from an existing error.
// The error's message becomes the WatchError message.
func Wrap(code string, err error) *WatchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *WatchError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ResolutionError creates an error for a watch entry that could not be resolved.
func ResolutionError(code, path string, cause error) *WatchError {
	msg := "cannot resolve watch entry"
	switch code {
	case ErrCodeCanonicalize:
		msg = "failed to canonicalize path"
	case ErrCodeStat:
		msg = "failed to stat path"
	case ErrCodeUnsupportedKind:
		msg = "unsupported file type"
	}
	return New(code, msg, cause).WithPath(path)
}

// TraversalError creates an error for a directory that could not be read.
func TraversalError(path string, cause error) *WatchError {
	return New(ErrCodeDirOpen, "failed to open dir", cause).WithPath(path)
}

// RegistrationError creates an error for a target that could not be watched.
func RegistrationError(path string, cause error) *WatchError {
	return New(ErrCodeRegister, "failed to open file", cause).WithPath(path)
}

// SpawnError creates an error for a reaction process that could not be created.
func SpawnError(code string, argv0 string, cause error) *WatchError {
	return New(code, "failed to spawn command", cause).WithDetail("command", argv0)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *WatchError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
// Fatal errors abort startup; the watch loop never produces them.
func IsFatal(err error) bool {
	var we *WatchError
	if stderrors.As(err, &we) {
		return we.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a WatchError.
// Returns empty string if not a WatchError.
func GetCode(err error) string {
	var we *WatchError
	if stderrors.As(err, &we) {
		return we.Code
	}
	return ""
}

// GetCategory extracts the category from a WatchError.
// Returns empty string if not a WatchError.
func GetCategory(err error) Category {
	var we *WatchError
	if stderrors.As(err, &we) {
		return we.Category
	}
	return ""
}
