// Package build coordinates index builds: traversal, the metadata
// store, the full-text index, and the shared build state.
//
// At most one build runs per process; a concurrent request fails fast.
// A cross-process file lock additionally keeps two processes from
// rebuilding the same data directory. Rebuilds write into a staging
// directory and are promoted by a close/rename/reopen swap, so searches
// keep hitting the previous stores until the new ones are complete.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/crosseverything/crosseverything/internal/ftindex"
	"github.com/crosseverything/crosseverything/internal/metastore"
	"github.com/crosseverything/crosseverything/internal/state"
	"github.com/crosseverything/crosseverything/internal/traverse"
)

// progressInterval is how many documents are processed between progress
// events.
const progressInterval = 50

// Build outcome statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Progress is one progress event. Total is the phase-1 estimate until
// the final event, where Processed == Total.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// ProgressFunc receives progress events. Delivery is fire-and-forget;
// the coordinator ignores what the callback does.
type ProgressFunc func(Progress)

// Report is the outcome of one build request.
type Report struct {
	Status       string   `json:"status"`
	FilesIndexed int      `json:"files_indexed"`
	Errors       []string `json:"errors"`
	Message      string   `json:"message,omitempty"`
}

// Config configures a Coordinator.
type Config struct {
	// DataDir holds the persisted stores and the staging area.
	DataDir string

	// State is the shared build state to read and swap.
	State *state.State

	// OnProgress, if set, receives progress events.
	OnProgress ProgressFunc
}

// Coordinator serializes build requests and owns the rebuild pipeline.
type Coordinator struct {
	cfg Config
}

// New creates a build coordinator.
func New(cfg Config) *Coordinator {
	return &Coordinator{cfg: cfg}
}

func (c *Coordinator) metadataPath() string {
	return filepath.Join(c.cfg.DataDir, "metadata.db")
}

func (c *Coordinator) indexPath() string {
	return filepath.Join(c.cfg.DataDir, "search_index")
}

func (c *Coordinator) stagingDir() string {
	return filepath.Join(c.cfg.DataDir, "staging")
}

// Build runs one build request. Roots are resolved to absolute paths
// first, so descriptor identity never depends on the caller's working
// directory. The returned report is never nil; a hard failure yields
// StatusFailed with a message, and accumulated soft errors never flip
// a completed build to failed.
func (c *Coordinator) Build(ctx context.Context, roots []string, forceRebuild bool) *Report {
	if !c.cfg.State.TryBeginBuild() {
		slog.Warn("index build requested but indexing is already in progress")
		return &Report{
			Status:       StatusFailed,
			FilesIndexed: 0,
			Errors:       []string{"indexing already in progress"},
		}
	}
	defer c.cfg.State.EndBuild()

	absRoots := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return c.fail(0, fmt.Sprintf("failed to resolve path %s: %v", root, err))
		}
		absRoots = append(absRoots, abs)
	}
	roots = absRoots

	if err := os.MkdirAll(c.cfg.DataDir, 0o755); err != nil {
		return c.fail(0, fmt.Sprintf("failed to create data directory: %v", err))
	}

	// Guard the data directory against a second process.
	dirLock := flock.New(filepath.Join(c.cfg.DataDir, "build.lock"))
	locked, err := dirLock.TryLock()
	if err != nil || !locked {
		slog.Warn("data directory is locked by another process",
			slog.String("dir", c.cfg.DataDir))
		return c.fail(0, "data directory is locked by another process")
	}
	defer func() { _ = dirLock.Unlock() }()

	if forceRebuild {
		slog.Info("force rebuild requested, deleting existing stores")
		c.deleteStores()
	} else if report := c.tryReuse(); report != nil {
		return report
	}

	return c.rebuild(ctx, roots)
}

// Load adopts existing on-disk stores without building. Returns false
// when no usable stores are present.
func (c *Coordinator) Load() bool {
	return c.tryReuse() != nil
}

// deleteStores removes the persisted stores best-effort. Failure is
// logged and non-fatal; the open/create logic recovers.
func (c *Coordinator) deleteStores() {
	oldMeta, oldFT := c.cfg.State.DetachStores()
	closeStores(oldMeta, oldFT)

	for _, p := range []string{c.metadataPath(), c.indexPath()} {
		if err := os.RemoveAll(p); err != nil {
			slog.Warn("failed to delete existing store",
				slog.String("path", p),
				slog.String("error", err.Error()))
		}
	}
}

// tryReuse adopts the existing on-disk stores when both are present and
// open cleanly. Returns a completed report on success, nil to fall
// through to a full rebuild.
func (c *Coordinator) tryReuse() *Report {
	if c.cfg.State.SearchIndex() != nil && c.cfg.State.Metadata() != nil {
		slog.Info("stores already loaded, skipping rebuild")
		return &Report{
			Status:       StatusCompleted,
			FilesIndexed: 0,
			Errors:       []string{},
			Message:      "using existing index",
		}
	}

	if !pathExists(c.metadataPath()) || !pathExists(c.indexPath()) {
		slog.Info("no existing index found")
		return nil
	}

	slog.Info("found existing index, loading")

	meta, err := metastore.Open(c.metadataPath())
	if err != nil {
		slog.Warn("failed to open existing metadata store, will rebuild",
			slog.String("error", err.Error()))
		return nil
	}

	ft, err := ftindex.Open(c.indexPath())
	if err != nil {
		slog.Warn("failed to open existing search index, will rebuild",
			slog.String("error", err.Error()))
		_ = meta.Close()
		return nil
	}

	total, err := meta.Count()
	if err != nil {
		slog.Warn("failed to count existing descriptors, will rebuild",
			slog.String("error", err.Error()))
		closeStores(meta, ft)
		return nil
	}

	oldMeta, oldFT := c.cfg.State.AdoptStores(meta, ft, total)
	closeStores(oldMeta, oldFT)

	slog.Info("existing index loaded", slog.Int("total_files", total))
	return &Report{
		Status:       StatusCompleted,
		FilesIndexed: 0,
		Errors:       []string{},
		Message:      "using existing index",
	}
}

// rebuild performs the two-pass traversal into staging stores and
// promotes them on success.
func (c *Coordinator) rebuild(ctx context.Context, roots []string) *Report {
	slog.Info("starting index build", slog.Int("roots", len(roots)))
	for i, root := range roots {
		slog.Info("index root", slog.Int("n", i+1), slog.String("path", root))
	}

	staging := c.stagingDir()
	if err := os.RemoveAll(staging); err != nil {
		return c.fail(0, fmt.Sprintf("failed to clear staging directory: %v", err))
	}

	meta, err := metastore.Open(filepath.Join(staging, "metadata.db"))
	if err != nil {
		return c.fail(0, fmt.Sprintf("failed to create metadata store: %v", err))
	}

	ft, err := ftindex.Open(filepath.Join(staging, "search_index"))
	if err != nil {
		_ = meta.Close()
		return c.fail(0, fmt.Sprintf("failed to create search index: %v", err))
	}

	// Phase 1: estimate the progress denominator. Nonexistent roots
	// count zero here; they are reported in phase 2.
	estimateStart := time.Now()
	estimated := c.estimate(ctx, roots)
	slog.Info("estimate complete",
		slog.Int("estimated_total", estimated),
		slog.Duration("elapsed", time.Since(estimateStart)))

	// Phase 2: traverse and index.
	indexStart := time.Now()
	writer := ft.NewWriter()
	var processed int
	var softErrors []string

	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			closeStores(meta, ft)
			return c.fail(processed, fmt.Sprintf("build cancelled: %v", err))
		}

		if !pathExists(root) {
			msg := fmt.Sprintf("path does not exist: %s", root)
			slog.Error(msg)
			softErrors = append(softErrors, msg)
			continue
		}

		res := traverse.Walk(ctx, root)
		slog.Info("traversed root",
			slog.String("path", root),
			slog.Int("entries", len(res.Descriptors)),
			slog.Int("skipped", res.Skipped))

		for _, desc := range res.Descriptors {
			if err := meta.Put(desc); err != nil {
				closeStores(meta, ft)
				return c.fail(processed, fmt.Sprintf("failed to save descriptor %s: %v", desc.Path, err))
			}
			if err := writer.Add(desc); err != nil {
				closeStores(meta, ft)
				return c.fail(processed, fmt.Sprintf("failed to index %s: %v", desc.Path, err))
			}

			processed++
			if processed%progressInterval == 0 {
				c.emit(Progress{Processed: processed, Total: estimated})
				pct := float64(processed) / float64(max(estimated, 1)) * 100
				slog.Info("index progress",
					slog.Int("processed", processed),
					slog.Int("estimated_total", estimated),
					slog.Float64("percent", pct))
			}
		}
	}

	slog.Info("committing index")
	if err := ft.Commit(writer); err != nil {
		closeStores(meta, ft)
		return c.fail(processed, fmt.Sprintf("failed to commit index: %v", err))
	}

	if err := c.promote(meta, ft, processed); err != nil {
		return c.fail(processed, fmt.Sprintf("failed to activate new stores: %v", err))
	}

	slog.Info("index build complete",
		slog.Int("files_indexed", processed),
		slog.Duration("elapsed", time.Since(indexStart)))
	for _, e := range softErrors {
		slog.Warn("build soft error", slog.String("error", e))
	}

	c.emit(Progress{Processed: processed, Total: processed})

	if softErrors == nil {
		softErrors = []string{}
	}
	return &Report{
		Status:       StatusCompleted,
		FilesIndexed: processed,
		Errors:       softErrors,
	}
}

// estimate counts entries under every root concurrently.
func (c *Coordinator) estimate(ctx context.Context, roots []string) int {
	counts := make([]int, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			counts[i] = traverse.Count(gctx, root)
			return nil
		})
	}
	_ = g.Wait()

	var total int
	for _, n := range counts {
		total += n
	}
	return total
}

// backupSuffix marks previous stores moved aside during a promote.
const backupSuffix = ".old"

// promote moves the staging stores into their final locations and swaps
// them into the build state. Any previous on-disk stores are renamed
// aside first and put back if the swap fails, so a failed promote never
// costs an index that existed before the build.
func (c *Coordinator) promote(meta *metastore.Store, ft *ftindex.Index, totalFiles int) error {
	// bbolt and bleve hold exclusive file locks, so both the staging
	// and the previous handles must be closed before the rename.
	stagingMeta, stagingIndex := meta.Path(), ft.Path()
	closeStores(meta, ft)

	oldMeta, oldFT := c.cfg.State.DetachStores()
	closeStores(oldMeta, oldFT)

	if err := c.backupPrevious(); err != nil {
		c.restorePrevious()
		return fmt.Errorf("failed to move previous stores aside: %w", err)
	}

	if err := os.Rename(stagingMeta, c.metadataPath()); err != nil {
		c.restorePrevious()
		return fmt.Errorf("failed to move metadata store: %w", err)
	}
	if err := os.Rename(stagingIndex, c.indexPath()); err != nil {
		_ = os.RemoveAll(c.metadataPath())
		c.restorePrevious()
		return fmt.Errorf("failed to move search index: %w", err)
	}
	_ = os.RemoveAll(c.stagingDir())

	newMeta, err := metastore.Open(c.metadataPath())
	if err != nil {
		_ = os.RemoveAll(c.metadataPath())
		_ = os.RemoveAll(c.indexPath())
		c.restorePrevious()
		return fmt.Errorf("failed to reopen metadata store: %w", err)
	}
	newFT, err := ftindex.Open(c.indexPath())
	if err != nil {
		_ = newMeta.Close()
		_ = os.RemoveAll(c.metadataPath())
		_ = os.RemoveAll(c.indexPath())
		c.restorePrevious()
		return fmt.Errorf("failed to reopen search index: %w", err)
	}

	c.discardBackup()
	oldMeta, oldFT = c.cfg.State.AdoptStores(newMeta, newFT, totalFiles)
	closeStores(oldMeta, oldFT)
	return nil
}

// backupPrevious renames any existing final stores to their backup
// paths. Handles must already be closed.
func (c *Coordinator) backupPrevious() error {
	for _, p := range []string{c.metadataPath(), c.indexPath()} {
		if err := os.RemoveAll(p + backupSuffix); err != nil {
			return err
		}
		if !pathExists(p) {
			continue
		}
		if err := os.Rename(p, p+backupSuffix); err != nil {
			return err
		}
	}
	return nil
}

// restorePrevious renames backed-up stores back into place and reloads
// them into the build state, so a failed promote leaves the index that
// was active before the build.
func (c *Coordinator) restorePrevious() {
	restored := false
	for _, p := range []string{c.metadataPath(), c.indexPath()} {
		if !pathExists(p + backupSuffix) {
			continue
		}
		_ = os.RemoveAll(p)
		if err := os.Rename(p+backupSuffix, p); err != nil {
			slog.Error("failed to restore previous store",
				slog.String("path", p),
				slog.String("error", err.Error()))
			continue
		}
		restored = true
	}
	if restored && c.tryReuse() == nil {
		slog.Error("failed to reload previous stores after promote failure")
	}
}

// discardBackup drops the moved-aside stores after a successful swap.
func (c *Coordinator) discardBackup() {
	for _, p := range []string{c.metadataPath(), c.indexPath()} {
		_ = os.RemoveAll(p + backupSuffix)
	}
}

// emit delivers a progress event fire-and-forget.
func (c *Coordinator) emit(p Progress) {
	if c.cfg.OnProgress != nil {
		c.cfg.OnProgress(p)
	}
}

// fail builds a failed report. The build flag is cleared by the
// deferred EndBuild in Build.
func (c *Coordinator) fail(processed int, msg string) *Report {
	slog.Error("index build failed", slog.String("error", msg))
	return &Report{
		Status:       StatusFailed,
		FilesIndexed: processed,
		Errors:       []string{msg},
	}
}

func closeStores(meta *metastore.Store, ft *ftindex.Index) {
	if meta != nil {
		_ = meta.Close()
	}
	if ft != nil {
		_ = ft.Close()
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
