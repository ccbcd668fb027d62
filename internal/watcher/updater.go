package watcher

import (
	"context"
	"log/slog"
	"os"

	"github.com/crosseverything/crosseverything/internal/entity"
	"github.com/crosseverything/crosseverything/internal/state"
	"github.com/crosseverything/crosseverything/internal/traverse"
)

// Updater applies debounced change batches to the live stores as
// incremental single-entry updates. It is a no-op while the index is
// not ready or a build is running; the build produces a fresh snapshot
// anyway.
type Updater struct {
	state *state.State
}

// NewUpdater creates an updater over the shared build state.
func NewUpdater(st *state.State) *Updater {
	return &Updater{state: st}
}

// Run consumes batches from the watcher until its event channel closes
// or the context is cancelled. Intended to run as a goroutine.
func (u *Updater) Run(ctx context.Context, w Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-w.Events():
			if !ok {
				return
			}
			u.Apply(ctx, batch)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// Apply applies one batch of changes. Per-entry failures are logged and
// skipped; a batch never fails as a whole.
func (u *Updater) Apply(ctx context.Context, batch []ChangeEvent) {
	snap := u.state.Snapshot()
	if !snap.IsReady || snap.Building {
		slog.Debug("dropping change batch, index not accepting updates",
			slog.Int("batch_size", len(batch)))
		return
	}

	meta := u.state.Metadata()
	ft := u.state.SearchIndex()
	if meta == nil || ft == nil {
		return
	}

	writer := ft.NewWriter()
	var added, removed int

	for _, ev := range batch {
		if ctx.Err() != nil {
			return
		}

		switch ev.Operation {
		case OpCreate, OpModify:
			d, err := traverse.Stat(ev.Path)
			if err != nil {
				if !os.IsNotExist(err) {
					slog.Warn("failed to stat changed entry",
						slog.String("path", ev.Path),
						slog.String("error", err.Error()))
				}
				continue
			}
			if err := meta.Put(d); err != nil {
				slog.Warn("failed to update descriptor",
					slog.String("path", ev.Path),
					slog.String("error", err.Error()))
				continue
			}
			if err := writer.Add(d); err != nil {
				slog.Warn("failed to index changed entry",
					slog.String("path", ev.Path),
					slog.String("error", err.Error()))
				continue
			}
			added++

		case OpDelete:
			if err := meta.RemovePath(ev.Path); err != nil {
				slog.Warn("failed to remove descriptor",
					slog.String("path", ev.Path),
					slog.String("error", err.Error()))
			}
			if err := ft.Delete(entity.ID(ev.Path)); err != nil {
				slog.Warn("failed to remove indexed entry",
					slog.String("path", ev.Path),
					slog.String("error", err.Error()))
				continue
			}
			removed++
		}
	}

	if added > 0 {
		if err := ft.Commit(writer); err != nil {
			slog.Error("failed to commit incremental update",
				slog.String("error", err.Error()))
			return
		}
	}

	slog.Info("applied change batch",
		slog.Int("added", added),
		slog.Int("removed", removed),
		slog.Int("batch_size", len(batch)))
}
