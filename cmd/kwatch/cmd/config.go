package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/kwatch/internal/config"
	kwerrors "github.com/Aman-CERP/kwatch/internal/errors"
	"github.com/Aman-CERP/kwatch/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage project configuration",
		Long: `Manage the .kwatch.yaml project configuration file.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/kwatch/config.yaml)
  3. Project config (.kwatch.yaml)
  4. Environment variables (KWATCH_*)
  5. Command-line flags`,
		Example: `  # Create .kwatch.yaml that runs 'make build' on change
  kwatch config init -- make build`,
	}

	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [--force] [--] [command [args...]]",
		Short: "Create .kwatch.yaml in the current directory",
		Long: `Write the default settings to .kwatch.yaml in the current directory.
A command given after the flags is stored as the reaction command.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, force, args)
		},
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .kwatch.yaml")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool, command []string) error {
	out := output.New(cmd.OutOrStdout())

	dir, err := os.Getwd()
	if err != nil {
		return kwerrors.ConfigError("cannot determine current directory", err)
	}
	path := filepath.Join(dir, ".kwatch.yaml")

	if _, err := os.Stat(path); err == nil && !force {
		out.Warningf("%s already exists, use --force to overwrite", path)
		return nil
	}

	cfg := config.NewConfig()
	if len(command) > 0 {
		cfg.React.Command = command
	}
	if err := cfg.WriteYAML(path); err != nil {
		return kwerrors.ConfigError("failed to write config file", err).WithPath(path)
	}

	out.Successf("Created %s", path)
	return nil
}
