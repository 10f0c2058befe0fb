// Package errors provides structured error handling for kwatch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors (fatal, reported before the loop starts)
//   - 2XX: Resolution errors (entry skipped)
//   - 3XX: Traversal errors (subtree treated as empty)
//   - 4XX: Registration errors (target omitted from the active set)
//   - 5XX: Event-wait errors (loop retries)
//   - 6XX: Spawn errors (single reaction abandoned)
//   - 9XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration errors.
	CategoryConfig Category = "CONFIG"
	// CategoryResolution indicates failures turning watch entries into targets.
	CategoryResolution Category = "RESOLUTION"
	// CategoryTraversal indicates failures while walking a directory tree.
	CategoryTraversal Category = "TRAVERSAL"
	// CategoryRegistration indicates failures registering a watch target.
	CategoryRegistration Category = "REGISTRATION"
	// CategoryEventWait indicates failures waiting for change notifications.
	CategoryEventWait Category = "EVENT_WAIT"
	// CategorySpawn indicates failures creating a reaction process.
	CategorySpawn Category = "SPAWN"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeNoCommand      = "ERR_103_NO_COMMAND"
	ErrCodeInvalidFlag    = "ERR_104_INVALID_FLAG"

	// Resolution errors (200-299)
	ErrCodeCanonicalize    = "ERR_201_CANONICALIZE"
	ErrCodeStat            = "ERR_202_STAT"
	ErrCodeUnsupportedKind = "ERR_203_UNSUPPORTED_KIND"

	// Traversal errors (300-399)
	ErrCodeDirOpen = "ERR_301_DIR_OPEN"

	// Registration errors (400-499)
	ErrCodeRegister = "ERR_401_REGISTER"

	// Event-wait errors (500-599)
	ErrCodeEventWait    = "ERR_501_EVENT_WAIT"
	ErrCodeSourceClosed = "ERR_502_SOURCE_CLOSED"

	// Spawn errors (600-699)
	ErrCodeSpawn       = "ERR_601_SPAWN"
	ErrCodeDetachSpawn = "ERR_602_DETACH_SPAWN"

	// Internal errors (900-999)
	ErrCodeInternal = "ERR_901_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryResolution
	case '3':
		return CategoryTraversal
	case '4':
		return CategoryRegistration
	case '5':
		return CategoryEventWait
	case '6':
		return CategorySpawn
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
// Only configuration errors stop the process; everything else is reported
// and the watch loop carries on.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig:
		return SeverityFatal
	case CategoryRegistration, CategoryEventWait:
		return SeverityWarning
	default:
		return SeverityError
	}
}
