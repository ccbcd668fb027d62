// Package watcher detects file system changes under indexed roots and
// applies them to the stores as incremental updates. Rapid event bursts
// are debounced before they touch the index.
package watcher

import (
	"context"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file or directory was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// ChangeEvent represents a file system change.
type ChangeEvent struct {
	// Path is the absolute path of the changed entry.
	Path string

	// Operation is the type of file system operation.
	Operation Operation

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Watcher defines the interface for file system watching.
type Watcher interface {
	// Start begins watching the given roots recursively. The watcher
	// runs until Stop is called or the context is cancelled.
	Start(ctx context.Context, roots []string) error

	// Stop stops the watcher and releases resources. Safe to call more
	// than once.
	Stop() error

	// Events returns debounced event batches. The channel is closed
	// when the watcher stops.
	Events() <-chan []ChangeEvent

	// Errors returns non-fatal watcher errors; the watcher continues
	// running. The channel is closed when the watcher stops.
	Errors() <-chan error
}

// Options configures watcher behavior.
type Options struct {
	// DebounceWindow is the time to wait before emitting coalesced
	// events. Default: 200ms.
	DebounceWindow time.Duration

	// EventBufferSize is the size of the raw event channel buffer.
	// Default: 1000.
	EventBufferSize int
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		EventBufferSize: 1000,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
