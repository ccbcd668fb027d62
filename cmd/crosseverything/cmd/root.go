// Package cmd provides the CLI commands for CrossEverything.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crosseverything/crosseverything/internal/config"
	"github.com/crosseverything/crosseverything/internal/logging"
	"github.com/crosseverything/crosseverything/internal/ui"
	"github.com/crosseverything/crosseverything/pkg/version"
)

var (
	configPath string
	debugMode  bool
	noColor    bool

	loggingCleanup func()

	// cfg is loaded once in the persistent pre-run and shared by every
	// command.
	cfg *config.Config
)

// NewRootCmd creates the root command for the crosseverything CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crosseverything",
		Short: "Local file search across your directories",
		Long: `CrossEverything indexes directory trees into a local metadata store
and full-text index, then answers name and path queries instantly.

Build an index with 'crosseverything build', then query it with
'crosseverything search'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("crosseverything version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.PersistentPreRunE = setup
	cmd.PersistentPostRun = teardown

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newOpenCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads the configuration and installs logging.
func setup(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if debugMode {
		level = "debug"
	}
	loggingCleanup, err = logging.SetupDefault(level)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	slog.Debug("configuration loaded",
		slog.String("data_dir", cfg.DataDir),
		slog.Int("roots", len(cfg.Roots)))
	return nil
}

func teardown(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// renderer creates the output renderer for a command, disabling color
// for pipes.
func renderer(cmd *cobra.Command) *ui.Renderer {
	plain := noColor || !ui.IsTerminal(os.Stdout)
	return ui.NewRenderer(cmd.OutOrStdout(), plain)
}

// socketPath returns the daemon socket location under the data dir.
func socketPath() string {
	return filepath.Join(cfg.DataDir, "daemon.sock")
}

// absolutePaths resolves every path against the current working
// directory. Descriptor IDs hash the stored path, so the same file must
// index under the same path no matter where the command ran.
func absolutePaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", p, err)
		}
		out = append(out, abs)
	}
	return out, nil
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
