package cmd

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/kwatch/internal/config"
	kwerrors "github.com/Aman-CERP/kwatch/internal/errors"
	"github.com/Aman-CERP/kwatch/internal/output"
	"github.com/Aman-CERP/kwatch/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
		watch      []string
		exclude    []string
		backend    string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the system can watch the configured files",
		Long: `Resolve the watch list and compare it with the system limits the event
backend depends on.

Checks:
  - At least one regular file resolves from the watch entries
  - File descriptor limit (kqueue needs one descriptor per file)
  - inotify watch limit (Linux)

All checks are advisory: kwatch runs with whatever it can register.`,
		Example: `  # Check the current directory
  kwatch doctor

  # Check a specific tree with details
  kwatch doctor -d src -x src/gen --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return kwerrors.ConfigError("cannot determine current directory", err)
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("watch") {
				cfg.Watch.Paths = watch
			}
			if cmd.Flags().Changed("exclude") {
				cfg.Watch.Exclude = append(cfg.Watch.Exclude, exclude...)
			}
			if cmd.Flags().Changed("backend") {
				cfg.Watch.Backend = backend
			}
			cfg.Normalize()

			// Resolution diagnostics are not part of the report.
			logger := newDiscardLogger()
			list := resolveWatchList(cfg, logger)

			checker := preflight.New(
				preflight.WithBackend(cfg.Watch.Backend),
				preflight.WithVerbose(verbose),
				preflight.WithOutput(cmd.OutOrStdout()),
			)
			results := checker.RunAll(len(list))

			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), checker, results)
			}
			checker.PrintResults(results)
			printSummary(output.New(cmd.OutOrStdout()), checker, results)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show hints for failed checks")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringSliceVarP(&watch, "watch", "d", nil, "File or directory to watch (repeatable)")
	cmd.Flags().StringSliceVarP(&exclude, "exclude", "x", nil, "Path to skip (repeatable)")
	cmd.Flags().StringVar(&backend, "backend", "", "Event backend: fsnotify or poll")

	return cmd
}

// JSONOutput is the structure for JSON output.
type JSONOutput struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func outputJSON(w io.Writer, checker *preflight.Checker, results []preflight.CheckResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(JSONOutput{
		Status: checker.SummaryStatus(results),
		Checks: results,
	})
}

func printSummary(out *output.Writer, checker *preflight.Checker, results []preflight.CheckResult) {
	switch checker.SummaryStatus(results) {
	case "failed":
		out.Error("Status: FAILED")
	case "ready_with_warnings":
		out.Successf("Status: READY_WITH_WARNINGS (%d)", len(checker.Warnings(results)))
	default:
		out.Success("Status: READY")
	}
}

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
