package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crosseverything/crosseverything/internal/build"
	"github.com/crosseverything/crosseverything/internal/daemon"
	"github.com/crosseverything/crosseverything/internal/search"
	"github.com/crosseverything/crosseverything/internal/state"
	"github.com/crosseverything/crosseverything/internal/watcher"
)

// newDaemonCmd creates the daemon command.
func newDaemonCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the search daemon",
		Long: `Run the daemon serving build, search and status requests over a
Unix socket. An existing index is loaded on startup. With --watch (or
watcher.enabled in the config), changes under the configured roots are
applied to the index incrementally.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st := state.New()

			coord := build.New(build.Config{DataDir: cfg.DataDir, State: st})
			if coord.Load() {
				snap := st.Snapshot()
				slog.Info("loaded existing index",
					slog.Int("total_files", snap.TotalFiles))
			} else {
				slog.Info("no existing index, waiting for build request")
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

			if watch || cfg.Watcher.Enabled {
				startWatcher(ctx, st)
			}

			handler := daemon.NewHandler(cfg.DataDir, st, search.New(st))
			server := daemon.NewServer(socketPath(), handler)

			err := server.ListenAndServe(ctx)
			if err == context.Canceled {
				slog.Info("daemon stopped")
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Apply filesystem changes to the index")

	return cmd
}

// startWatcher starts the change watcher over the configured roots.
// Failure to watch is logged, never fatal; the daemon still serves.
func startWatcher(ctx context.Context, st *state.State) {
	if len(cfg.Roots) == 0 {
		slog.Warn("watcher enabled but no roots configured")
		return
	}

	w := watcher.NewFSWatcher(watcher.Options{
		DebounceWindow: cfg.Watcher.DebounceWindow,
	})
	if err := w.Start(ctx, cfg.Roots); err != nil {
		slog.Warn("failed to start watcher", slog.String("error", err.Error()))
		return
	}

	go watcher.NewUpdater(st).Run(ctx, w)
}
