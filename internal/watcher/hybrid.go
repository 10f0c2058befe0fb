package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	kwerrors "github.com/Aman-CERP/kwatch/internal/errors"
)

// FSNotifySource is the primary Source, backed by fsnotify (inotify on
// Linux, kqueue on BSD/macOS, ReadDirectoryChangesW on Windows).
// Descriptors it opens are close-on-exec, so reaction commands never
// inherit them.
type FSNotifySource struct {
	fsWatcher *fsnotify.Watcher
	mu        sync.RWMutex
	closed    bool
}

// Ensure FSNotifySource implements Source.
var _ Source = (*FSNotifySource)(nil)

// NewFSNotifySource creates an fsnotify-backed source with the given event
// queue length.
func NewFSNotifySource(bufferSize uint) (*FSNotifySource, error) {
	fsw, err := fsnotify.NewBufferedWatcher(bufferSize)
	if err != nil {
		return nil, err
	}
	return &FSNotifySource{fsWatcher: fsw}, nil
}

// NewSource creates the source selected by opts. When fsnotify cannot be
// initialized (for example the inotify instance limit is reached) it falls
// back to polling.
func NewSource(opts Options, logger *slog.Logger) (Source, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, kwerrors.ConfigError(err.Error(), err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Backend == BackendPoll {
		return NewPollingSource(opts.PollInterval), nil
	}

	src, err := NewFSNotifySource(opts.EventBufferSize)
	if err != nil {
		logger.Warn("fsnotify unavailable, falling back to polling",
			slog.String("error", err.Error()),
			slog.Duration("interval", opts.PollInterval))
		return NewPollingSource(opts.PollInterval), nil
	}
	return src, nil
}

// Add registers path with fsnotify.
func (s *FSNotifySource) Add(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSourceClosed
	}
	return s.fsWatcher.Add(path)
}

// Next waits for the first event, then drains whatever else is already
// queued so simultaneous writes come back as a single batch.
func (s *FSNotifySource) Next(ctx context.Context) ([]FileEvent, error) {
	var first fsnotify.Event

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case event, ok := <-s.fsWatcher.Events:
		if !ok {
			return nil, ErrSourceClosed
		}
		first = event
	case err, ok := <-s.fsWatcher.Errors:
		if !ok {
			return nil, ErrSourceClosed
		}
		return nil, kwerrors.New(kwerrors.ErrCodeEventWait, "failed to receive event", err)
	}

	now := time.Now()
	batch := []FileEvent{convertEvent(first, now)}
	for {
		select {
		case event, ok := <-s.fsWatcher.Events:
			if !ok {
				return batch, nil
			}
			batch = append(batch, convertEvent(event, now))
		default:
			return batch, nil
		}
	}
}

// Close stops fsnotify and releases its descriptors. Safe to call multiple times.
func (s *FSNotifySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.fsWatcher.Close()
}

// Name returns "fsnotify".
func (s *FSNotifySource) Name() string {
	return BackendFSNotify
}

// convertEvent maps an fsnotify event onto our operation bits.
func convertEvent(event fsnotify.Event, at time.Time) FileEvent {
	var op Operation
	if event.Has(fsnotify.Write) {
		op |= OpModify
	}
	if event.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if event.Has(fsnotify.Remove) {
		op |= OpDelete
	}
	if event.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if event.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return FileEvent{
		Path:      event.Name,
		Operation: op,
		Timestamp: at,
	}
}
