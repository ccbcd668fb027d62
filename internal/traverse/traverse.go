// Package traverse walks directory trees and produces file descriptors.
//
// Traversal is tolerant: a failure to enumerate or stat a single entry is
// logged and counted, never fatal. Symbolic links are recorded but not
// followed.
package traverse

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/crosseverything/crosseverything/internal/entity"
)

// Result holds the outcome of walking one root.
type Result struct {
	// Descriptors are the entries reached under the root, in walk order.
	// The root entry itself is not included.
	Descriptors []entity.FileDescriptor

	// Skipped counts entries dropped because of enumeration or stat
	// failures.
	Skipped int
}

// Walk traverses the tree rooted at root and returns a descriptor for
// every reachable entry. A nonexistent root yields an empty result, not
// an error. Per-entry failures are logged, counted in Skipped, and do
// not abort the walk.
func Walk(ctx context.Context, root string) Result {
	var res Result

	if _, err := os.Lstat(root); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("cannot stat traversal root",
				slog.String("root", root),
				slog.String("error", err.Error()))
		}
		return res
	}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			slog.Warn("failed to read directory entry",
				slog.String("path", path),
				slog.String("error", walkErr.Error()))
			res.Skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// The root itself is not an entry of its own tree.
		if path == root {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.Warn("failed to get entry metadata",
				slog.String("path", path),
				slog.String("error", err.Error()))
			res.Skipped++
			return nil
		}

		res.Descriptors = append(res.Descriptors, entity.FromFileInfo(path, info))
		return nil
	})

	if res.Skipped > 0 {
		slog.Warn("skipped entries during traversal",
			slog.String("root", root),
			slog.Int("skipped", res.Skipped))
	}

	return res
}

// Count walks the tree rooted at root and returns the number of entries
// it would yield. Used to estimate progress denominators; a nonexistent
// root counts as zero.
func Count(ctx context.Context, root string) int {
	var n int

	if _, err := os.Lstat(root); err != nil {
		return 0
	}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		n++
		return nil
	})

	return n
}

// Stat builds a descriptor for a single path. Returns os.ErrNotExist
// style errors unchanged; intended for future watcher-driven updates.
func Stat(path string) (entity.FileDescriptor, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return entity.FileDescriptor{}, err
	}
	return entity.FromFileInfo(path, info), nil
}
