// Package cmd provides the CLI commands for kwatch.
package cmd

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	kwerrors "github.com/Aman-CERP/kwatch/internal/errors"
	"github.com/Aman-CERP/kwatch/internal/output"
	"github.com/Aman-CERP/kwatch/pkg/version"
)

// rootOptions holds the values of the root command's flags.
type rootOptions struct {
	wait         bool
	coalesce     bool
	watch        []string
	exclude      []string
	backend      string
	pollInterval time.Duration
	logLevel     string
	logFile      string
	configFile   string
	dryRun       bool
}

// NewRootCmd creates the root command for the kwatch CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "kwatch [flags] [--] command [args...]",
		Short: "Run a command whenever watched files change",
		Long: `kwatch watches files and directories and runs a command each time one
of the watched files is modified.

Directories are expanded recursively into the regular files they contain.
Excluded paths are matched exactly after symlinks are resolved. The path of
the changed file is passed to the command in the KWATCH_FILE environment
variable.

By default the command is detached: kwatch keeps watching while it runs.
With --wait, kwatch blocks until the command exits before looking at the
next change.`,
		Example: `  # Rebuild on any change under src/, skipping generated code
  kwatch -d src -x src/gen -- make build

  # Run tests once per burst of saves, one run at a time
  kwatch -w -c -d . -- go test ./...

  # Show what would be watched
  kwatch --dry-run -d src`,
		Version:       version.Short(),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, args)
		},
	}

	cmd.SetVersionTemplate("kwatch version {{.Version}}\n")

	// Flags stop at the first argument so the command's own flags pass through.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVarP(&opts.wait, "wait", "w", false, "Wait for the command to exit before handling the next change")
	cmd.Flags().BoolVarP(&opts.coalesce, "coalesce", "c", false, "Run the command once per batch of simultaneous changes")
	cmd.Flags().StringSliceVarP(&opts.watch, "watch", "d", nil, "File or directory to watch (repeatable, default: current directory)")
	cmd.Flags().StringSliceVarP(&opts.exclude, "exclude", "x", nil, "Path to skip (repeatable)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Event backend: fsnotify or poll")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", 0, "Scan interval for the poll backend")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().StringVar(&opts.configFile, "config", "", "Config file (default: .kwatch.yaml in the current directory)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the resolved watch list and exit")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return kwerrors.New(kwerrors.ErrCodeInvalidFlag, err.Error(), err).
			WithSuggestion("Run 'kwatch --help' for usage")
	})

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// Execute runs the root command and prints a failure to stderr.
func Execute() error {
	return executeWith(NewRootCmd(), os.Stderr)
}

func executeWith(cmd *cobra.Command, stderr io.Writer) error {
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		output.New(stderr).Error(strings.TrimSuffix(kwerrors.FormatForCLI(err), "\n"))
	}
	return err
}
