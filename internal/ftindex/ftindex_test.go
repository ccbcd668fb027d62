package ftindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosseverything/crosseverything/internal/entity"
)

func openIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "search_index"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func descriptor(path string, size uint64, isFolder bool) entity.FileDescriptor {
	return entity.FileDescriptor{
		ID:       entity.ID(path),
		Name:     filepath.Base(path),
		Path:     path,
		Size:     size,
		Modified: 1700000000,
		IsFolder: isFolder,
	}
}

func commit(t *testing.T, idx *Index, ds ...entity.FileDescriptor) {
	t.Helper()
	w := idx.NewWriter()
	for _, d := range ds {
		require.NoError(t, w.Add(d))
	}
	require.NoError(t, idx.Commit(w))
}

func TestSearch_EmptyQueryShortCircuits(t *testing.T) {
	// Given: an index with a document
	idx := openIndex(t)
	commit(t, idx, descriptor("/docs/report.pdf", 51200, false))

	// When: searching with whitespace only
	matches, err := idx.Search(context.Background(), "   ", false, 10)

	// Then: no results, no error
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearch_UncommittedAddsAreInvisible(t *testing.T) {
	// Given: a queued but uncommitted document
	idx := openIndex(t)
	w := idx.NewWriter()
	require.NoError(t, w.Add(descriptor("/docs/report.pdf", 51200, false)))

	// When: searching before commit
	matches, err := idx.Search(context.Background(), "report", false, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Then: the document appears after commit
	require.NoError(t, idx.Commit(w))
	matches, err = idx.Search(context.Background(), "report", false, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	// And: stored fields round-trip
	d := matches[0].Descriptor
	assert.Equal(t, "report.pdf", d.Name)
	assert.Equal(t, "/docs/report.pdf", d.Path)
	assert.Equal(t, uint64(51200), d.Size)
	assert.Equal(t, int64(1700000000), d.Modified)
	assert.False(t, d.IsFolder)
}

func TestSearch_NameMatchRanksAbovePathMatch(t *testing.T) {
	// Given: one entry matching by name, one only by path
	idx := openIndex(t)
	commit(t, idx,
		descriptor("/archive/report.pdf", 100, false),
		descriptor("/report/readme.md", 100, false),
	)

	// When: searching for the shared term
	matches, err := idx.Search(context.Background(), "report", false, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Then: the filename match ranks first
	assert.Equal(t, "report.pdf", matches[0].Descriptor.Name)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestSearch_RegexMatchesNamesOnly(t *testing.T) {
	// Given: a name that matches the pattern and a path that would
	idx := openIndex(t)
	commit(t, idx,
		descriptor("/docs/report.pdf", 100, false),
		descriptor("/report/notes.txt", 100, false),
	)

	// When: searching with a regex
	matches, err := idx.Search(context.Background(), "rep.*", true, 10)
	require.NoError(t, err)

	// Then: only the name match is returned
	require.Len(t, matches, 1)
	assert.Equal(t, "report.pdf", matches[0].Descriptor.Name)
}

func TestSearch_LimitCapsResults(t *testing.T) {
	// Given: three matching entries
	idx := openIndex(t)
	commit(t, idx,
		descriptor("/a/report1.pdf", 1, false),
		descriptor("/b/report2.pdf", 2, false),
		descriptor("/c/report3.pdf", 3, false),
	)

	// When: searching with limit 2
	matches, err := idx.Search(context.Background(), "pdf", false, 2)
	require.NoError(t, err)

	// Then: only two results come back
	assert.Len(t, matches, 2)
}

func TestWriter_ReaddingSamePathReplacesDocument(t *testing.T) {
	// Given: an indexed entry
	idx := openIndex(t)
	commit(t, idx, descriptor("/docs/report.pdf", 100, false))

	// When: indexing the same path again
	commit(t, idx, descriptor("/docs/report.pdf", 999, false))

	// Then: there is one document with the new metadata
	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	matches, err := idx.Search(context.Background(), "report", false, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, uint64(999), matches[0].Descriptor.Size)
}

func TestDelete_RemovesDocument(t *testing.T) {
	// Given: an indexed entry
	idx := openIndex(t)
	d := descriptor("/docs/report.pdf", 100, false)
	commit(t, idx, d)

	// When: deleting it by ID
	require.NoError(t, idx.Delete(d.ID))

	// Then: it no longer matches
	matches, err := idx.Search(context.Background(), "report", false, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// And: deleting an absent ID is not an error
	assert.NoError(t, idx.Delete(entity.ID("/no/such/path")))
}

func TestOpen_ReopensExistingIndex(t *testing.T) {
	// Given: a committed index on disk
	path := filepath.Join(t.TempDir(), "search_index")
	idx, err := Open(path)
	require.NoError(t, err)
	commit(t, idx, descriptor("/docs/report.pdf", 100, false))
	require.NoError(t, idx.Close())

	// When: reopening it
	idx2, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = idx2.Close() }()

	// Then: the documents survive
	matches, err := idx2.Search(context.Background(), "report", false, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestClose_Idempotent(t *testing.T) {
	idx := openIndex(t)

	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	_, err := idx.Search(context.Background(), "x", false, 10)
	assert.Error(t, err)
}
