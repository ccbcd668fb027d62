// Package entity defines the file descriptor shared by the traversal
// engine, the metadata store and the full-text index.
package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"path/filepath"
	"time"
)

// FileDescriptor is the indexed record for one filesystem entry.
type FileDescriptor struct {
	// ID is the stable identity of the entry, derived from its absolute
	// path. Re-indexing the same path always yields the same ID.
	ID string `json:"id"`

	// Name is the base name of the entry.
	Name string `json:"name"`

	// Path is the full path of the entry as traversed.
	Path string `json:"path"`

	// Size is the entry size in bytes; zero for directories.
	Size uint64 `json:"size"`

	// Modified is the last modification time as a Unix timestamp in
	// seconds.
	Modified int64 `json:"modified"`

	// IsFolder reports whether the entry is a directory.
	IsFolder bool `json:"is_folder"`
}

// ID derives the stable descriptor identity for a path.
func ID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

// FromFileInfo builds a descriptor for path from stat metadata.
// Directory sizes are recorded as zero; filesystem block sizes are
// meaningless to users.
func FromFileInfo(path string, info fs.FileInfo) FileDescriptor {
	var size uint64
	if !info.IsDir() {
		size = uint64(info.Size())
	}
	return FileDescriptor{
		ID:       ID(path),
		Name:     filepath.Base(path),
		Path:     path,
		Size:     size,
		Modified: info.ModTime().Unix(),
		IsFolder: info.IsDir(),
	}
}

// ModifiedTime returns the modification time as a UTC time value.
func (d FileDescriptor) ModifiedTime() time.Time {
	return time.Unix(d.Modified, 0).UTC()
}
