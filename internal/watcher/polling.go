package watcher

import (
	"context"
	"os"
	"sync"
	"time"
)

// PollingSource detects changes by periodically stat-ing each registered
// file. Used as a fallback when fsnotify is not available, and for
// filesystems that do not deliver notifications (network mounts, some
// container volumes).
type PollingSource struct {
	interval time.Duration
	order    []string
	state    map[string]fileSnapshot
	stopCh   chan struct{}
	mu       sync.Mutex
	stopped  bool

	// stat is replaced in tests.
	stat func(string) (os.FileInfo, error)
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	missing bool
}

// Ensure PollingSource implements Source.
var _ Source = (*PollingSource)(nil)

// NewPollingSource creates a polling source with the given interval.
func NewPollingSource(interval time.Duration) *PollingSource {
	if interval <= 0 {
		interval = DefaultOptions().PollInterval
	}
	return &PollingSource{
		interval: interval,
		state:    make(map[string]fileSnapshot),
		stopCh:   make(chan struct{}),
		stat:     os.Stat,
	}
}

// Add records the file's current state as the baseline. Adding a path
// twice is a no-op.
func (p *PollingSource) Add(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrSourceClosed
	}
	if _, ok := p.state[path]; ok {
		return nil
	}

	info, err := p.stat(path)
	if err != nil {
		return err
	}
	p.state[path] = snapshotOf(info)
	p.order = append(p.order, path)
	return nil
}

// Next polls until at least one registered file changed, returning all
// changes found in that scan in registration order.
func (p *PollingSource) Next(ctx context.Context) ([]FileEvent, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.stopCh:
			return nil, ErrSourceClosed
		case <-ticker.C:
			if events := p.detectChanges(); len(events) > 0 {
				return events, nil
			}
		}
	}
}

// detectChanges compares current state with the previous scan.
func (p *PollingSource) detectChanges() []FileEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	now := time.Now()
	var events []FileEvent
	for _, path := range p.order {
		prev := p.state[path]

		info, err := p.stat(path)
		if err != nil {
			if !prev.missing {
				p.state[path] = fileSnapshot{missing: true}
				events = append(events, FileEvent{Path: path, Operation: OpDelete, Timestamp: now})
			}
			continue
		}

		current := snapshotOf(info)
		switch {
		case prev.missing:
			events = append(events, FileEvent{Path: path, Operation: OpCreate | OpModify, Timestamp: now})
		case prev.modTime != current.modTime || prev.size != current.size:
			events = append(events, FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
		p.state[path] = current
	}
	return events
}

// Close stops the polling source. Safe to call multiple times.
func (p *PollingSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	return nil
}

// Name returns "polling".
func (p *PollingSource) Name() string {
	return "polling"
}

func snapshotOf(info os.FileInfo) fileSnapshot {
	return fileSnapshot{
		modTime: info.ModTime(),
		size:    info.Size(),
	}
}
