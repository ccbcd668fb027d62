package search

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosseverything/crosseverything/internal/entity"
	cerr "github.com/crosseverything/crosseverything/internal/errors"
	"github.com/crosseverything/crosseverything/internal/ftindex"
	"github.com/crosseverything/crosseverything/internal/state"
)

// readyState builds a state with a committed index over the given
// descriptors.
func readyState(t *testing.T, ds ...entity.FileDescriptor) *state.State {
	t.Helper()

	idx, err := ftindex.Open(filepath.Join(t.TempDir(), "search_index"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	w := idx.NewWriter()
	for _, d := range ds {
		require.NoError(t, w.Add(d))
	}
	require.NoError(t, idx.Commit(w))

	st := state.New()
	st.AdoptStores(nil, idx, len(ds))
	return st
}

func descriptor(path string, size uint64, modified int64) entity.FileDescriptor {
	return entity.FileDescriptor{
		ID:       entity.ID(path),
		Name:     filepath.Base(path),
		Path:     path,
		Size:     size,
		Modified: modified,
	}
}

func TestSearch_IndexNotReady(t *testing.T) {
	// Given: a state with no index
	svc := New(state.New())

	// When: searching
	_, err := svc.Search(context.Background(), "report", false, 10)

	// Then: a typed not-ready error is returned
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, cerr.New(cerr.ErrCodeIndexNotReady, "", nil)))
}

func TestSearch_InvalidRegexRejectedBeforeIndex(t *testing.T) {
	// Given: a ready index
	svc := New(readyState(t, descriptor("/docs/report.pdf", 100, 1700000000)))

	// When: searching with a broken pattern
	_, err := svc.Search(context.Background(), "[a-", true, 10)

	// Then: a typed regex error is returned
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, cerr.New(cerr.ErrCodeInvalidRegex, "", nil)))

	// And: the same pattern fails again (cache holds only successes)
	_, err = svc.Search(context.Background(), "[a-", true, 10)
	assert.Error(t, err)
}

func TestSearch_ProjectsResults(t *testing.T) {
	// Given: an index with one document
	svc := New(readyState(t, descriptor("/docs/report.pdf", 51200, 1700000000)))

	// When: searching
	resp, err := svc.Search(context.Background(), "report", false, 10)
	require.NoError(t, err)

	// Then: the hit is projected with an ISO-8601 UTC timestamp
	require.Equal(t, 1, resp.TotalFound)
	res := resp.Results[0]
	assert.Equal(t, "report.pdf", res.Name)
	assert.Equal(t, "/docs/report.pdf", res.Path)
	assert.Equal(t, uint64(51200), res.Size)
	assert.Equal(t, "2023-11-14T22:13:20Z", res.Modified)
	assert.False(t, res.IsFolder)
	assert.GreaterOrEqual(t, resp.SearchTimeMs, int64(0))
}

func TestSearch_EmptyQueryReturnsEmptyResponse(t *testing.T) {
	svc := New(readyState(t, descriptor("/docs/report.pdf", 100, 1700000000)))

	resp, err := svc.Search(context.Background(), "  ", false, 10)
	require.NoError(t, err)

	assert.Equal(t, 0, resp.TotalFound)
	assert.Empty(t, resp.Results)
}

func TestSearch_ValidRegexMatches(t *testing.T) {
	// Given: two documents
	svc := New(readyState(t,
		descriptor("/docs/report.pdf", 100, 1700000000),
		descriptor("/docs/notes.txt", 100, 1700000000),
	))

	// When: searching with a valid regex
	resp, err := svc.Search(context.Background(), "rep.*", true, 10)
	require.NoError(t, err)

	// Then: only the matching name is returned
	require.Equal(t, 1, resp.TotalFound)
	assert.Equal(t, "report.pdf", resp.Results[0].Name)

	// And: the compiled pattern is served from the cache on repeat
	resp, err = svc.Search(context.Background(), "rep.*", true, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalFound)
}
