package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var we *WatchError
	if !stderrors.As(err, &we) {
		we = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Error: %s\n", we.Message))
	if we.Path != "" {
		sb.WriteString(fmt.Sprintf("  Path: %s\n", we.Path))
	}
	if we.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", we.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", we.Code))

	return sb.String()
}

// FormatForLog formats an error for structured logging.
// Returns slog attributes; plain errors yield a single "error" attribute.
func FormatForLog(err error) []any {
	if err == nil {
		return nil
	}

	var we *WatchError
	if !stderrors.As(err, &we) {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error_code", we.Code),
		slog.String("category", string(we.Category)),
	}
	if we.Path != "" {
		attrs = append(attrs, slog.String("path", we.Path))
	}
	if we.Cause != nil {
		attrs = append(attrs, slog.String("cause", we.Cause.Error()))
	}
	for k, v := range we.Details {
		attrs = append(attrs, slog.String(k, v))
	}
	return attrs
}

// Log reports a recoverable error on the given logger using the level that
// matches its severity.
func Log(logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	msg := err.Error()
	var we *WatchError
	if stderrors.As(err, &we) {
		msg = we.Message
		if we.Severity == SeverityWarning {
			logger.Warn(msg, FormatForLog(err)...)
			return
		}
	}
	logger.Error(msg, FormatForLog(err)...)
}
