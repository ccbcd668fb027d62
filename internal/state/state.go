// Package state holds the process-wide build state: the open stores,
// the build-in-progress flag, and the last-build bookkeeping.
//
// A State is created once by the application context and shared by
// reference with every handler; it is never an ambient singleton. Each
// accessor holds the lock only for a scalar read or a pointer swap,
// never across I/O.
package state

import (
	"sync"
	"time"

	"github.com/crosseverything/crosseverything/internal/ftindex"
	"github.com/crosseverything/crosseverything/internal/metastore"
)

// State is the shared build state.
type State struct {
	mu sync.RWMutex

	building    bool
	totalFiles  int
	lastUpdated time.Time

	meta *metastore.Store
	ft   *ftindex.Index
}

// New returns an empty state: no stores open, not building.
func New() *State {
	return &State{}
}

// TryBeginBuild atomically tests and sets the build flag. It returns
// false if a build is already in progress; the caller must not proceed.
func (s *State) TryBeginBuild() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.building {
		return false
	}
	s.building = true
	return true
}

// EndBuild clears the build flag.
func (s *State) EndBuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.building = false
}

// Building reports whether a build is in progress.
func (s *State) Building() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.building
}

// AdoptStores swaps in new store handles and bookkeeping in one
// critical section and returns the previous handles. The caller owns
// closing the returned handles; they may be nil.
func (s *State) AdoptStores(meta *metastore.Store, ft *ftindex.Index, totalFiles int) (*metastore.Store, *ftindex.Index) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldMeta, oldFT := s.meta, s.ft
	s.meta = meta
	s.ft = ft
	s.totalFiles = totalFiles
	s.lastUpdated = time.Now()
	return oldMeta, oldFT
}

// DetachStores removes and returns the current store handles, leaving
// the state not ready. Used when the on-disk stores are about to be
// replaced.
func (s *State) DetachStores() (*metastore.Store, *ftindex.Index) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldMeta, oldFT := s.meta, s.ft
	s.meta = nil
	s.ft = nil
	return oldMeta, oldFT
}

// SearchIndex returns the open full-text index, or nil if none.
func (s *State) SearchIndex() *ftindex.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ft
}

// Metadata returns the open metadata store, or nil if none.
func (s *State) Metadata() *metastore.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// Status is a point-in-time snapshot of the build state.
type Status struct {
	// IsReady reports whether a full-text index is open for search.
	IsReady bool

	// TotalFiles is the entry count from the last successful build or
	// load.
	TotalFiles int

	// LastUpdated is when the stores were last adopted; zero if never.
	LastUpdated time.Time

	// Building reports whether a build is in progress.
	Building bool
}

// Snapshot returns the current status under one lock hold.
func (s *State) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		IsReady:     s.ft != nil,
		TotalFiles:  s.totalFiles,
		LastUpdated: s.lastUpdated,
		Building:    s.building,
	}
}
