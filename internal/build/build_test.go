package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosseverything/crosseverything/internal/entity"
	"github.com/crosseverything/crosseverything/internal/ftindex"
	"github.com/crosseverything/crosseverything/internal/metastore"
	"github.com/crosseverything/crosseverything/internal/state"
)

// makeTree builds root/report.pdf, root/data/, root/data/notes.txt.
func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "report.pdf"), make([]byte, 51200), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "notes.txt"), make([]byte, 512), 0o644))
	return root
}

func closeState(t *testing.T, st *state.State) {
	t.Helper()
	meta, ft := st.DetachStores()
	if meta != nil {
		require.NoError(t, meta.Close())
	}
	if ft != nil {
		require.NoError(t, ft.Close())
	}
}

func TestBuild_EndToEnd(t *testing.T) {
	// Given: a tree with two files and one directory
	root := makeTree(t)
	dataDir := t.TempDir()
	st := state.New()

	var events []Progress
	coord := New(Config{
		DataDir:    dataDir,
		State:      st,
		OnProgress: func(p Progress) { events = append(events, p) },
	})

	// When: building the index
	rep := coord.Build(context.Background(), []string{root}, false)
	defer closeState(t, st)

	// Then: the build completes with every entry indexed
	require.Equal(t, StatusCompleted, rep.Status)
	assert.Equal(t, 3, rep.FilesIndexed)
	assert.Empty(t, rep.Errors)

	// And: the state serves the new stores
	snap := st.Snapshot()
	assert.True(t, snap.IsReady)
	assert.False(t, snap.Building)
	assert.Equal(t, 3, snap.TotalFiles)

	n, err := st.Metadata().Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err := st.SearchIndex().Search(context.Background(), "report", false, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "report.pdf", matches[0].Descriptor.Name)
	assert.Equal(t, uint64(51200), matches[0].Descriptor.Size)

	// And: the final progress event reports processed == total
	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.Equal(t, 3, final.Processed)
	assert.Equal(t, 3, final.Total)

	// And: the staging directory is gone
	_, err = os.Stat(filepath.Join(dataDir, "staging"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuild_RejectsConcurrentBuild(t *testing.T) {
	// Given: a state with a build already in progress
	st := state.New()
	require.True(t, st.TryBeginBuild())

	coord := New(Config{DataDir: t.TempDir(), State: st})

	// When: requesting another build
	rep := coord.Build(context.Background(), []string{t.TempDir()}, false)

	// Then: the request fails fast without touching the stores
	require.Equal(t, StatusFailed, rep.Status)
	assert.Equal(t, 0, rep.FilesIndexed)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "already in progress")

	// And: the original build flag is still held
	assert.True(t, st.Building())
}

func TestBuild_ReusesExistingIndex(t *testing.T) {
	// Given: a completed build whose process has exited
	root := makeTree(t)
	dataDir := t.TempDir()

	st1 := state.New()
	rep := New(Config{DataDir: dataDir, State: st1}).Build(context.Background(), []string{root}, false)
	require.Equal(t, StatusCompleted, rep.Status)
	closeState(t, st1)

	// When: building again without force
	st2 := state.New()
	rep = New(Config{DataDir: dataDir, State: st2}).Build(context.Background(), []string{root}, false)
	defer closeState(t, st2)

	// Then: the existing stores are adopted without traversal
	require.Equal(t, StatusCompleted, rep.Status)
	assert.Equal(t, 0, rep.FilesIndexed)
	assert.Equal(t, "using existing index", rep.Message)

	snap := st2.Snapshot()
	assert.True(t, snap.IsReady)
	assert.Equal(t, 3, snap.TotalFiles)
}

func TestBuild_ForceRebuildPicksUpChanges(t *testing.T) {
	// Given: an existing index
	root := makeTree(t)
	dataDir := t.TempDir()
	st := state.New()
	coord := New(Config{DataDir: dataDir, State: st})

	rep := coord.Build(context.Background(), []string{root}, false)
	require.Equal(t, StatusCompleted, rep.Status)
	require.Equal(t, 3, rep.FilesIndexed)

	// When: a file is added and a force rebuild is requested
	require.NoError(t, os.WriteFile(filepath.Join(root, "extra.txt"), []byte("x"), 0o644))
	rep = coord.Build(context.Background(), []string{root}, true)
	defer closeState(t, st)

	// Then: the rebuild indexes the new entry
	require.Equal(t, StatusCompleted, rep.Status)
	assert.Equal(t, 4, rep.FilesIndexed)
	assert.Equal(t, 4, st.Snapshot().TotalFiles)
}

func TestBuild_ResolvesRelativeRoots(t *testing.T) {
	// Given: a tree addressed by a path relative to the working directory
	root := makeTree(t)
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(filepath.Dir(root)))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	rel := filepath.Base(root)
	absRoot, err := filepath.Abs(rel)
	require.NoError(t, err)

	st := state.New()
	coord := New(Config{DataDir: t.TempDir(), State: st})

	// When: building with the relative root
	rep := coord.Build(context.Background(), []string{rel}, false)
	defer closeState(t, st)
	require.Equal(t, StatusCompleted, rep.Status)

	// Then: descriptors are stored under their absolute-path identity
	absPath := filepath.Join(absRoot, "report.pdf")
	got, err := st.Metadata().Get(entity.ID(absPath))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, absPath, got.Path)
	assert.True(t, filepath.IsAbs(got.Path))

	// And: nothing is stored under the relative identity
	got, err = st.Metadata().Get(entity.ID(filepath.Join(rel, "report.pdf")))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPromote_FailureRestoresPreviousIndex(t *testing.T) {
	// Given: a completed build on disk
	root := makeTree(t)
	dataDir := t.TempDir()
	st1 := state.New()
	rep := New(Config{DataDir: dataDir, State: st1}).Build(context.Background(), []string{root}, false)
	require.Equal(t, StatusCompleted, rep.Status)
	closeState(t, st1)

	// And: a staging metadata store whose file vanishes before the swap
	st2 := state.New()
	coord := New(Config{DataDir: dataDir, State: st2})
	meta, err := metastore.Open(filepath.Join(dataDir, "staging", "metadata.db"))
	require.NoError(t, err)
	ft, err := ftindex.Open(filepath.Join(dataDir, "staging", "search_index"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dataDir, "staging", "metadata.db")))

	// When: promoting the doomed staging stores
	err = coord.promote(meta, ft, 99)
	defer closeState(t, st2)

	// Then: the promote fails and the previous stores are back in place
	// and serving
	require.Error(t, err)
	snap := st2.Snapshot()
	assert.True(t, snap.IsReady)
	assert.Equal(t, 3, snap.TotalFiles)

	matches, err := st2.SearchIndex().Search(context.Background(), "report", false, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// And: no backup copies linger on disk
	_, err = os.Stat(filepath.Join(dataDir, "metadata.db"+backupSuffix))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dataDir, "search_index"+backupSuffix))
	assert.True(t, os.IsNotExist(err))
}

func TestBuild_NonexistentRootIsSoftError(t *testing.T) {
	// Given: one real root and one missing root
	root := makeTree(t)
	missing := filepath.Join(t.TempDir(), "missing")
	st := state.New()
	coord := New(Config{DataDir: t.TempDir(), State: st})

	// When: building both
	rep := coord.Build(context.Background(), []string{root, missing}, false)
	defer closeState(t, st)

	// Then: the build still completes with the real root indexed
	require.Equal(t, StatusCompleted, rep.Status)
	assert.Equal(t, 3, rep.FilesIndexed)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "path does not exist")
	assert.Contains(t, rep.Errors[0], missing)
}

func TestBuild_CancelledContextFails(t *testing.T) {
	// Given: a cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := state.New()
	coord := New(Config{DataDir: t.TempDir(), State: st})

	// When: building
	rep := coord.Build(ctx, []string{makeTree(t)}, false)

	// Then: the build fails and no stores are adopted
	require.Equal(t, StatusFailed, rep.Status)
	assert.False(t, st.Snapshot().IsReady)
	assert.False(t, st.Building())
}

func TestLoad_AdoptsExistingStores(t *testing.T) {
	// Given: no index on disk
	dataDir := t.TempDir()
	st := state.New()
	coord := New(Config{DataDir: dataDir, State: st})

	// Then: loading reports nothing to adopt
	require.False(t, coord.Load())

	// Given: a completed build whose process has exited
	rep := coord.Build(context.Background(), []string{makeTree(t)}, false)
	require.Equal(t, StatusCompleted, rep.Status)
	closeState(t, st)

	// When: a fresh coordinator loads
	st2 := state.New()
	coord2 := New(Config{DataDir: dataDir, State: st2})
	require.True(t, coord2.Load())
	defer closeState(t, st2)

	// Then: the state is ready with the persisted count
	snap := st2.Snapshot()
	assert.True(t, snap.IsReady)
	assert.Equal(t, 3, snap.TotalFiles)
}
