package entity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_Deterministic(t *testing.T) {
	// Given: the same path
	path := "/home/user/documents/report.pdf"

	// When: deriving the identity twice
	a := ID(path)
	b := ID(path)

	// Then: the identity is stable and hex-encoded
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	// And: a different path yields a different identity
	assert.NotEqual(t, a, ID("/home/user/documents/report2.pdf"))
}

func TestFromFileInfo_File(t *testing.T) {
	// Given: a file on disk
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, make([]byte, 512), 0o644))

	info, err := os.Lstat(path)
	require.NoError(t, err)

	// When: building a descriptor
	d := FromFileInfo(path, info)

	// Then: all fields are populated from the stat metadata
	assert.Equal(t, ID(path), d.ID)
	assert.Equal(t, "notes.txt", d.Name)
	assert.Equal(t, path, d.Path)
	assert.Equal(t, uint64(512), d.Size)
	assert.False(t, d.IsFolder)
	assert.InDelta(t, time.Now().Unix(), d.Modified, 5)
}

func TestFromFileInfo_DirectoryHasZeroSize(t *testing.T) {
	// Given: a directory
	dir := t.TempDir()
	info, err := os.Lstat(dir)
	require.NoError(t, err)

	// When: building a descriptor
	d := FromFileInfo(dir, info)

	// Then: it is a folder with size zero
	assert.True(t, d.IsFolder)
	assert.Equal(t, uint64(0), d.Size)
}

func TestModifiedTime_UTC(t *testing.T) {
	// Given: a descriptor with a known timestamp
	d := FileDescriptor{Modified: 1700000000}

	// When: converting to a time value
	ts := d.ModifiedTime()

	// Then: the value is in UTC at second precision
	assert.Equal(t, time.UTC, ts.Location())
	assert.Equal(t, int64(1700000000), ts.Unix())
}
