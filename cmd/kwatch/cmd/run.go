package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/kwatch/internal/config"
	kwerrors "github.com/Aman-CERP/kwatch/internal/errors"
	"github.com/Aman-CERP/kwatch/internal/logging"
	"github.com/Aman-CERP/kwatch/internal/output"
	"github.com/Aman-CERP/kwatch/internal/preflight"
	"github.com/Aman-CERP/kwatch/internal/runner"
	"github.com/Aman-CERP/kwatch/internal/watcher"
	"github.com/Aman-CERP/kwatch/internal/watchset"
)

// runWatch resolves the watch set, registers it and runs the reactor until
// SIGINT or SIGTERM.
func runWatch(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	command := args
	if len(command) == 0 {
		command = cfg.React.Command
	}
	if !opts.dryRun {
		if err := config.ValidateCommand(command); err != nil {
			return err
		}
	}

	logger, cleanup, err := logging.Setup(logging.Config{
		Level:     cfg.Log.Level,
		FilePath:  cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		MaxFiles:  cfg.Log.MaxFiles,
		Stderr:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return kwerrors.ConfigError("failed to set up logging", err).WithPath(cfg.Log.File)
	}
	defer cleanup()

	out := output.New(cmd.OutOrStdout())
	list := resolveWatchList(cfg, logger)

	if opts.dryRun {
		for _, target := range list {
			out.Target(target.String())
		}
		return nil
	}

	checker := preflight.New(preflight.WithBackend(cfg.Watch.Backend))
	for _, r := range checker.Warnings(checker.RunAll(len(list))) {
		logger.Warn("preflight check",
			slog.String("check", r.Name),
			slog.String("result", r.Message),
			slog.String("hint", r.Details))
	}

	src, err := watcher.NewSource(watcher.Options{
		Backend:      cfg.Watch.Backend,
		PollInterval: cfg.PollIntervalDuration(),
	}, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	run, err := runner.New(command, cfg.React.Wait, runner.WithLogger(logger))
	if err != nil {
		return err
	}

	reactor := watcher.NewReactor(src, run, watcher.ReactorOptions{Coalesce: cfg.React.Coalesce}, logger, out)
	if n := reactor.Register(list); n == 0 {
		out.Warning("no watch targets, waiting anyway")
	} else {
		logger.Info("watching",
			slog.Int("files", n),
			slog.String("backend", src.Name()),
			slog.Bool("wait", cfg.React.Wait),
			slog.Bool("coalesce", cfg.React.Coalesce))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return reactor.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return src.Close()
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, watcher.ErrSourceClosed) {
		logger.Debug("watch loop stopped", slog.String("reason", err.Error()))
		return nil
	}
	return err
}

// loadConfig layers config files and environment, then applies the flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configFile != "" {
		cfg, err = config.LoadFile(opts.configFile)
	} else {
		dir, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, kwerrors.ConfigError("cannot determine current directory", wdErr)
		}
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("wait") {
		cfg.React.Wait = opts.wait
	}
	if flags.Changed("coalesce") {
		cfg.React.Coalesce = opts.coalesce
	}
	if flags.Changed("watch") {
		cfg.Watch.Paths = opts.watch
	}
	if flags.Changed("exclude") {
		cfg.Watch.Exclude = append(cfg.Watch.Exclude, opts.exclude...)
	}
	if flags.Changed("backend") {
		cfg.Watch.Backend = opts.backend
	}
	if flags.Changed("poll-interval") {
		cfg.Watch.PollInterval = opts.pollInterval.String()
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, kwerrors.New(kwerrors.ErrCodeInvalidFlag, err.Error(), err).
			WithSuggestion("Run 'kwatch --help' for usage")
	}
	return cfg, nil
}

// resolveWatchList turns the configured entries into the canonical file list.
func resolveWatchList(cfg *config.Config, logger *slog.Logger) watchset.WatchList {
	canon := watchset.NewCanonicalizer(0)
	excludes := watchset.CanonicalExcludes(cfg.Watch.Exclude, canon)
	resolver := watchset.NewResolver(excludes,
		watchset.WithLogger(logger),
		watchset.WithCanonicalizer(canon))

	list := resolver.Resolve(cfg.Watch.Paths)
	logger.Debug("watch list resolved",
		slog.Int("entries", len(cfg.Watch.Paths)),
		slog.Int("excludes", excludes.Len()),
		slog.Int("targets", len(list)))
	return list
}
