// Package storage defines the shared, per-origin persistent key-value store that
// carries the last applied site configuration between page loads and contexts.
//
// A Storage value is one context's handle onto the store. Writes made through a
// handle are visible to every other handle of the same origin, and every other
// handle's subscribers receive an Event for them. A handle's own subscribers
// never see the handle's own writes, and writing a value equal to the current
// one produces no Event.
package storage

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the store cannot be used, for example
// because it was disabled by policy or the backend is unreachable.
var ErrUnavailable = errors.New("storage unavailable")

// ErrClosed is returned when a closed handle is used.
var ErrClosed = errors.New("storage closed")

// Type identifies a storage backend.
type Type string

// Standard storage types.
const (
	TypeMemory Type = "memory"
	TypeFS     Type = "fs"
	TypeRedis  Type = "redis"
)

// Event describes a change made through another handle of the same origin.
type Event struct {
	// Key is the changed key.
	Key string

	// OldValue is the previous value, or empty if the key did not exist.
	OldValue string

	// NewValue is the value that was written.
	NewValue string

	// Origin identifies the handle (or backend) that observed the change.
	Origin string
}

// Listener receives change events.
type Listener func(Event)

// StopFunc stops a subscription.
// The context can be used for timeout/cancellation of cleanup operations.
// Calling a StopFunc more than once is safe.
type StopFunc func(ctx context.Context) error

// Storage is one context's handle onto a shared persistent key-value store.
type Storage interface {
	// Type returns the backend type.
	Type() Type

	// GetItem returns the value stored under key.
	// ok is false if the key does not exist.
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)

	// SetItem stores value under key and notifies the other handles.
	SetItem(ctx context.Context, key, value string) error

	// Subscribe registers fn for changes made through other handles.
	// The subscription ends when the returned StopFunc is called or ctx is done.
	Subscribe(ctx context.Context, fn Listener) (StopFunc, error)

	// Close releases the handle. Subsequent calls return ErrClosed.
	Close() error
}
