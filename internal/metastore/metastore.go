// Package metastore persists file descriptors in a bbolt key/value store
// keyed by the descriptor ID.
package metastore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/crosseverything/crosseverything/internal/entity"
)

// bucketDescriptors holds id -> JSON-encoded FileDescriptor.
var bucketDescriptors = []byte("descriptors")

// openTimeout bounds how long Open waits for the bbolt file lock.
// Another process holding the store surfaces as an open failure instead
// of an indefinite block.
const openTimeout = 2 * time.Second

// Store is a durable map of descriptor ID to FileDescriptor.
type Store struct {
	path string
	db   *bbolt.DB
}

// Open opens or creates the store at path, creating parent directories
// as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDescriptors)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create descriptor bucket: %w", err)
	}

	return &Store{path: path, db: db}, nil
}

// Path returns the on-disk location of the store.
func (s *Store) Path() string {
	return s.path
}

// Put upserts a descriptor. An existing record with the same ID is
// overwritten.
func (s *Store) Put(d entity.FileDescriptor) error {
	buf, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode descriptor %s: %w", d.Path, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDescriptors).Put([]byte(d.ID), buf)
	})
}

// PutBatch upserts a slice of descriptors in one transaction.
func (s *Store) PutBatch(ds []entity.FileDescriptor) error {
	if len(ds) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDescriptors)
		for i := range ds {
			buf, err := json.Marshal(ds[i])
			if err != nil {
				return fmt.Errorf("failed to encode descriptor %s: %w", ds[i].Path, err)
			}
			if err := b.Put([]byte(ds[i].ID), buf); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns the descriptor with the given ID, or nil if absent.
func (s *Store) Get(id string) (*entity.FileDescriptor, error) {
	var out *entity.FileDescriptor

	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketDescriptors).Get([]byte(id))
		if raw == nil {
			return nil
		}
		var d entity.FileDescriptor
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("failed to decode descriptor %s: %w", id, err)
		}
		out = &d
		return nil
	})

	return out, err
}

// RemovePath deletes the descriptor for the given path. Removing an
// absent key is not an error.
func (s *Store) RemovePath(path string) error {
	id := entity.ID(path)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDescriptors).Delete([]byte(id))
	})
}

// Count returns the number of stored descriptors. Full scan; used by
// status reporting, not hot paths.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDescriptors).ForEach(func(_, _ []byte) error {
			n++
			return nil
		})
	})
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
