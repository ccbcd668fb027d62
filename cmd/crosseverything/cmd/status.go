package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/crosseverything/crosseverything/internal/build"
	"github.com/crosseverything/crosseverything/internal/daemon"
	"github.com/crosseverything/crosseverything/internal/state"
)

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index status",
		Long: `Show whether an index is built, how many entries it holds and when
it was last updated. When a daemon is running, its live status is shown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := renderer(cmd)

			client := daemon.NewClient(daemon.Config{SocketPath: socketPath()})
			if client.IsRunning() {
				st, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				r.Status(st.IsReady, st.Building, st.TotalFiles, st.LastUpdated, st.Uptime)
				return nil
			}

			st := state.New()
			coord := build.New(build.Config{DataDir: cfg.DataDir, State: st})
			if !coord.Load() {
				r.Status(false, false, 0, "", "")
				return nil
			}
			defer func() {
				meta, ft := st.DetachStores()
				if meta != nil {
					_ = meta.Close()
				}
				if ft != nil {
					_ = ft.Close()
				}
			}()

			snap := st.Snapshot()
			lastUpdated := ""
			if !snap.LastUpdated.IsZero() {
				lastUpdated = snap.LastUpdated.UTC().Format(time.RFC3339)
			}
			r.Status(snap.IsReady, snap.Building, snap.TotalFiles, lastUpdated, "")
			return nil
		},
	}
}
