// Package memory provides an in-process storage backend.
//
// An Origin models one browser origin's local storage; each Handle opened on it
// models one tab. Events are delivered synchronously, in the writer's
// goroutine, to the subscribers of every other open handle.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/yacchi/sitetheme/storage"
)

// Origin is the shared key-value space.
type Origin struct {
	mu       sync.Mutex
	items    map[string]string
	handles  map[uint64]*Handle
	nextID   uint64
	disabled bool
}

// NewOrigin creates an empty Origin.
func NewOrigin() *Origin {
	return &Origin{
		items:   make(map[string]string),
		handles: make(map[uint64]*Handle),
		nextID:  1,
	}
}

// Open returns a new handle onto the origin.
func (o *Origin) Open() *Handle {
	o.mu.Lock()
	defer o.mu.Unlock()

	h := &Handle{origin: o, id: o.nextID, nextSub: 1}
	o.nextID++
	o.handles[h.id] = h
	return h
}

// Disable makes every operation on every handle fail with storage.ErrUnavailable,
// the way storage disabled by browser policy behaves.
func (o *Origin) Disable() {
	o.mu.Lock()
	o.disabled = true
	o.mu.Unlock()
}

// Enable reverts Disable.
func (o *Origin) Enable() {
	o.mu.Lock()
	o.disabled = false
	o.mu.Unlock()
}

// subscriber wraps a listener with a unique ID for reliable unsubscription.
type subscriber struct {
	id uint64
	fn storage.Listener
}

// Handle is one context's view of an Origin.
type Handle struct {
	origin *Origin
	id     uint64

	mu      sync.Mutex
	subs    []subscriber
	nextSub uint64
	closed  bool
}

// Ensure Handle implements the storage.Storage interface.
var _ storage.Storage = (*Handle)(nil)

// Type returns storage.TypeMemory.
func (h *Handle) Type() storage.Type {
	return storage.TypeMemory
}

func (h *Handle) checkOpen() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return storage.ErrClosed
	}
	return nil
}

// GetItem implements storage.Storage.
func (h *Handle) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if err := h.checkOpen(); err != nil {
		return "", false, err
	}

	o := h.origin
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disabled {
		return "", false, fmt.Errorf("get %q: %w", key, storage.ErrUnavailable)
	}
	v, ok := o.items[key]
	return v, ok, nil
}

// SetItem implements storage.Storage.
func (h *Handle) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.checkOpen(); err != nil {
		return err
	}

	o := h.origin
	o.mu.Lock()
	if o.disabled {
		o.mu.Unlock()
		return fmt.Errorf("set %q: %w", key, storage.ErrUnavailable)
	}
	old, existed := o.items[key]
	if existed && old == value {
		o.mu.Unlock()
		return nil
	}
	o.items[key] = value
	others := make([]*Handle, 0, len(o.handles))
	for id, other := range o.handles {
		if id != h.id {
			others = append(others, other)
		}
	}
	o.mu.Unlock()

	ev := storage.Event{
		Key:      key,
		OldValue: old,
		NewValue: value,
		Origin:   fmt.Sprintf("memory/%d", h.id),
	}
	for _, other := range others {
		other.dispatch(ev)
	}
	return nil
}

func (h *Handle) dispatch(ev storage.Event) {
	h.mu.Lock()
	subs := append([]subscriber(nil), h.subs...)
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// Subscribe implements storage.Storage.
func (h *Handle) Subscribe(ctx context.Context, fn storage.Listener) (storage.StopFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, storage.ErrClosed
	}
	id := h.nextSub
	h.nextSub++
	h.subs = append(h.subs, subscriber{id: id, fn: fn})
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i], h.subs[i+1:]...)
				return
			}
		}
	}
	stopAfter := context.AfterFunc(ctx, unsubscribe)

	return func(context.Context) error {
		stopAfter()
		unsubscribe()
		return nil
	}, nil
}

// Close detaches the handle from its origin.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.subs = nil
	h.mu.Unlock()

	o := h.origin
	o.mu.Lock()
	delete(o.handles, h.id)
	o.mu.Unlock()
	return nil
}
