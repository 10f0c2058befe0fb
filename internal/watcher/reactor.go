package watcher

import (
	"context"
	"errors"
	"log/slog"

	kwerrors "github.com/Aman-CERP/kwatch/internal/errors"
	"github.com/Aman-CERP/kwatch/internal/watchset"
)

// Runner executes the reaction for a triggering path.
type Runner interface {
	Run(ctx context.Context, trigger string) error
}

// Reporter receives the human-facing lines printed while watching.
type Reporter interface {
	Watching(path string)
	Changed(path string)
}

// ReactorOptions configures the event loop.
type ReactorOptions struct {
	// Coalesce truncates each ready batch to its first event, so a storm of
	// simultaneous writes triggers one reaction. Events after the first are
	// dropped, not deferred.
	Coalesce bool
}

// Reactor registers the watch list with a Source and turns modification
// events into Runner invocations. It is driven by a single goroutine;
// reactions run synchronously inside the loop.
type Reactor struct {
	source   Source
	runner   Runner
	opts     ReactorOptions
	logger   *slog.Logger
	reporter Reporter
	active   []string
}

// NewReactor creates a reactor. logger and reporter may be nil.
func NewReactor(source Source, runner Runner, opts ReactorOptions, logger *slog.Logger, reporter Reporter) *Reactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reactor{
		source:   source,
		runner:   runner,
		opts:     opts,
		logger:   logger,
		reporter: reporter,
	}
}

// Register adds every target to the source. A target that cannot be
// registered is reported and left out; the rest are still watched.
// Returns the number of targets registered.
func (r *Reactor) Register(list watchset.WatchList) int {
	for _, target := range list {
		path := target.String()
		if err := r.source.Add(path); err != nil {
			kwerrors.Log(r.logger, kwerrors.RegistrationError(path, err))
			continue
		}
		r.active = append(r.active, path)
		if r.reporter != nil {
			r.reporter.Watching(path)
		}
	}

	r.logger.Debug("watch targets registered",
		slog.String("backend", r.source.Name()),
		slog.Int("requested", len(list)),
		slog.Int("active", len(r.active)))
	return len(r.active)
}

// Active returns the paths that were registered successfully.
func (r *Reactor) Active() []string {
	cp := make([]string, len(r.active))
	copy(cp, r.active)
	return cp
}

// Run blocks in the event loop until ctx is cancelled or the source is
// closed. Wait failures are reported and retried immediately.
func (r *Reactor) Run(ctx context.Context) error {
	for {
		batch, err := r.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrSourceClosed) {
				return err
			}
			if kwerrors.GetCode(err) == "" {
				err = kwerrors.New(kwerrors.ErrCodeEventWait, "failed to receive event", err)
			}
			kwerrors.Log(r.logger, err)
			continue
		}

		r.dispatch(ctx, batch)
	}
}

// dispatch applies coalescing to a ready batch and reacts to each remaining
// modification.
func (r *Reactor) dispatch(ctx context.Context, batch []FileEvent) {
	if r.opts.Coalesce && len(batch) > 1 {
		r.logger.Debug("coalescing ready batch",
			slog.Int("batch_size", len(batch)),
			slog.String("kept", batch[0].Path))
		batch = batch[:1]
	}

	for _, event := range batch {
		if !event.Operation.Has(OpModify) {
			r.logger.Debug("ignoring event",
				slog.String("path", event.Path),
				slog.String("op", event.Operation.String()))
			continue
		}
		r.react(ctx, event.Path)
	}
}

func (r *Reactor) react(ctx context.Context, path string) {
	if r.reporter != nil {
		r.reporter.Changed(path)
	}
	if err := r.runner.Run(ctx, path); err != nil {
		kwerrors.Log(r.logger, err)
	}
}
