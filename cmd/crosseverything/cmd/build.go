package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crosseverything/crosseverything/internal/build"
	"github.com/crosseverything/crosseverything/internal/daemon"
	"github.com/crosseverything/crosseverything/internal/state"
)

// newBuildCmd creates the build command.
func newBuildCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "build [paths...]",
		Short: "Index directory trees",
		Long: `Build the metadata store and full-text index over the given
directory trees. Without arguments, the roots from the config file are
used. When a daemon is running, the build is delegated to it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				roots = cfg.Roots
			}
			if len(roots) == 0 {
				return fmt.Errorf("no paths given and no roots configured")
			}

			// Resolve here, not in the daemon: a delegated build would
			// otherwise resolve relative paths against the daemon's
			// working directory.
			roots, err := absolutePaths(roots)
			if err != nil {
				return err
			}

			r := renderer(cmd)
			client := daemon.NewClient(daemon.Config{SocketPath: socketPath()})

			if client.IsRunning() {
				result, err := client.Build(cmd.Context(),
					daemon.BuildParams{Paths: roots, ForceRebuild: force},
					func(p daemon.ProgressParams) {
						r.Progress(p.Processed, p.Total)
					})
				if err != nil {
					return err
				}
				r.BuildReport(result.Status, result.FilesIndexed, result.Errors, result.Message)
				if result.Status != build.StatusCompleted {
					return fmt.Errorf("build failed")
				}
				return nil
			}

			coord := build.New(build.Config{
				DataDir: cfg.DataDir,
				State:   state.New(),
				OnProgress: func(p build.Progress) {
					r.Progress(p.Processed, p.Total)
				},
			})

			rep := coord.Build(cmd.Context(), roots, force)
			r.BuildReport(rep.Status, rep.FilesIndexed, rep.Errors, rep.Message)
			if rep.Status != build.StatusCompleted {
				return fmt.Errorf("build failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Delete the existing index and rebuild")

	return cmd
}
