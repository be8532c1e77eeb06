// Package theme holds the live style state of one rendering context: the set of
// custom style properties (such as "--primary-color") attached to the document root.
//
// A State is an explicit handle. Every context owns its own State and all
// writes go through Update, so a full configuration is applied in one pass.
package theme

import (
	"maps"
	"sort"
	"strings"
	"sync"
)

// Setter writes properties during a single Update pass.
type Setter interface {
	SetProperty(name, value string)
}

// Snapshot is an immutable copy of the properties after an Update pass.
type Snapshot struct {
	// Version counts the mutating passes applied to the State so far.
	Version uint64

	// Properties maps property names to values.
	Properties map[string]string
}

// listener wraps a callback function with a unique ID for reliable unsubscription.
type listener struct {
	id uint64
	fn func(Snapshot)
}

// State is the live style state of a document root.
// It is safe for concurrent use. There is no reset: properties are only ever
// overwritten in place.
type State struct {
	mu        sync.RWMutex
	props     map[string]string
	version   uint64
	listeners []listener
	nextID    uint64
}

// NewState creates an empty State.
func NewState() *State {
	return &State{
		props:  make(map[string]string),
		nextID: 1,
	}
}

type setter struct {
	props   map[string]string
	changed int
}

func (s *setter) SetProperty(name, value string) {
	s.props[name] = value
	s.changed++
}

// Update runs fn with a Setter while holding the write lock.
// Listeners are notified once after fn returns, if fn set at least one property.
// Returns the number of properties written.
func (s *State) Update(fn func(Setter)) int {
	snap, listeners, changed := s.update(fn)
	if changed == 0 {
		return 0
	}

	for _, l := range listeners {
		l.fn(snap)
	}
	return changed
}

func (s *State) update(fn func(Setter)) (Snapshot, []listener, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := &setter{props: s.props}
	fn(w)
	if w.changed == 0 {
		return Snapshot{}, nil, 0
	}
	s.version++
	snap := Snapshot{Version: s.version, Properties: maps.Clone(s.props)}
	return snap, append([]listener(nil), s.listeners...), w.changed
}

// SetProperty sets a single property in its own Update pass.
func (s *State) SetProperty(name, value string) {
	s.Update(func(w Setter) {
		w.SetProperty(name, value)
	})
}

// Property returns the value of the named property.
func (s *State) Property(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.props[name]
	return v, ok
}

// Properties returns a copy of all properties.
func (s *State) Properties() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.props)
}

// Len returns the number of properties currently set.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.props)
}

// Version returns the number of mutating Update passes so far.
func (s *State) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the current properties together with the version.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Version: s.version, Properties: maps.Clone(s.props)}
}

// Subscribe registers a callback invoked after every mutating Update pass.
// Callbacks run synchronously, in registration order, without the lock held.
// Returns an unsubscribe function that is safe to call multiple times.
func (s *State) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// CSS renders the properties as a ":root" rule, sorted by property name.
func (s *State) CSS() string {
	return s.Snapshot().CSS()
}

// CSS renders the snapshot as a ":root" rule, sorted by property name.
func (snap Snapshot) CSS() string {
	names := make([]string, 0, len(snap.Properties))
	for name := range snap.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, name := range names {
		b.WriteString("  ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(snap.Properties[name])
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	return b.String()
}
