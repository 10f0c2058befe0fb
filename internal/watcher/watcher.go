package watcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	kwerrors "github.com/Aman-CERP/kwatch/internal/errors"
)

// Operation is a bit set describing what happened to a watched file.
type Operation uint32

const (
	// OpModify indicates the file's contents were written.
	OpModify Operation = 1 << iota
	// OpCreate indicates the file was (re)created.
	OpCreate
	// OpDelete indicates the file was removed.
	OpDelete
	// OpRename indicates the file was renamed away.
	OpRename
	// OpChmod indicates only the file's attributes changed.
	OpChmod
)

// Has reports whether op includes all bits of other.
func (op Operation) Has(other Operation) bool {
	return op&other == other
}

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	if op == 0 {
		return "NONE"
	}
	var parts []string
	for _, n := range []struct {
		op   Operation
		name string
	}{
		{OpModify, "MODIFY"},
		{OpCreate, "CREATE"},
		{OpDelete, "DELETE"},
		{OpRename, "RENAME"},
		{OpChmod, "CHMOD"},
	} {
		if op.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// FileEvent is one ready notification for a registered target.
type FileEvent struct {
	// Path is the canonical path the target was registered under.
	Path string

	// Operation is what happened to the file.
	Operation Operation

	// Timestamp is when the event was received.
	Timestamp time.Time
}

// Source is an OS change-notification facility holding a fixed set of
// registered files.
type Source interface {
	// Add registers a regular file for modification events.
	Add(path string) error

	// Next blocks until at least one registered file reports an event and
	// returns every event that is ready at that moment, in arrival order.
	Next(ctx context.Context) ([]FileEvent, error)

	// Close releases the facility. Next returns ErrSourceClosed afterwards.
	Close() error

	// Name identifies the backend ("fsnotify" or "polling").
	Name() string
}

// ErrSourceClosed is returned by Next once the source has been closed.
var ErrSourceClosed = kwerrors.New(kwerrors.ErrCodeSourceClosed, "event source closed", nil)

// Backend names accepted by NewSource.
const (
	BackendFSNotify = "fsnotify"
	BackendPoll     = "poll"
)

// Options configures the event source.
type Options struct {
	// Backend selects the notification facility.
	// Default: "fsnotify"
	Backend string

	// PollInterval is the scan interval for the polling backend.
	// Default: 500ms
	PollInterval time.Duration

	// EventBufferSize is the fsnotify event queue length. A larger queue lets
	// a burst of writes surface as one batch.
	// Default: 256
	EventBufferSize uint
}

// DefaultOptions returns the default source options.
func DefaultOptions() Options {
	return Options{
		Backend:         BackendFSNotify,
		PollInterval:    500 * time.Millisecond,
		EventBufferSize: 256,
	}
}

// Validate validates the options and returns an error if invalid.
func (o Options) Validate() error {
	switch o.Backend {
	case "", BackendFSNotify, BackendPoll:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendFSNotify, BackendPoll, o.Backend)
	}
	if o.PollInterval < 0 {
		return fmt.Errorf("poll interval must be positive, got %s", o.PollInterval)
	}
	return nil
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.Backend == "" {
		o.Backend = defaults.Backend
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
