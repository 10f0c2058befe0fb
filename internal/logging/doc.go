// Package logging configures the structured logger for kwatch.
//
// Diagnostics (skipped entries, unreadable directories, failed spawns) go to
// stderr as text. With a log file configured they are also written as JSON
// lines to a size-rotated file.
package logging
