// Package fs provides a file system based storage backend.
//
// Every key is stored in its own file under a directory. Separate processes
// opening the same directory share the same origin: writes are atomic
// (temp file + rename under an exclusive lock) and the change signal is
// delivered by watching the directory with fsnotify.
package fs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"github.com/yacchi/sitetheme/storage"
)

// Default permission modes.
const (
	DefaultFileMode = 0644
	DefaultDirMode  = 0755
)

const (
	itemSuffix = ".val"
	lockName   = ".sitetheme.lock"
)

var (
	osReadFile   = os.ReadFile
	osMkdirAll   = os.MkdirAll
	fileLockFunc = fileLock
)

// fileLock acquires an exclusive lock on the given file descriptor.
// If locking is not supported by the filesystem, the operation proceeds
// without locking and the returned unlock function is a no-op.
func fileLock(fd int) (unlock func(), err error) {
	if err := flockExclusive(fd); err != nil {
		if isLockNotSupportedError(err) {
			return func() {}, nil
		}
		return nil, err
	}
	return func() { flockUnlock(fd) }, nil
}

// Store is a directory-backed storage handle.
// Each Store value is one handle: its subscribers do not observe its own writes.
type Store struct {
	dir      string
	fileMode os.FileMode
	dirMode  os.FileMode

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
}

// Ensure Store implements the storage.Storage interface.
var _ storage.Storage = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithFileMode sets the file permission mode used when writing items.
// Default is 0644.
func WithFileMode(mode os.FileMode) Option {
	return func(s *Store) {
		s.fileMode = mode
	}
}

// WithDirMode sets the permission mode used when creating the directory.
// Default is 0755.
func WithDirMode(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirMode = mode
	}
}

// New creates a handle onto the directory. The directory is created on first
// write or subscription.
//
// Example:
//
//	st := fs.New("/var/lib/deliq/storage")
//	st := fs.New(dir, fs.WithFileMode(0600), fs.WithDirMode(0700))
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:      dir,
		fileMode: DefaultFileMode,
		dirMode:  DefaultDirMode,
		subs:     make(map[uint64]*subscription),
		nextID:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Type returns storage.TypeFS.
func (s *Store) Type() storage.Type {
	return storage.TypeFS
}

// Dir returns the backing directory.
func (s *Store) Dir() string {
	return s.dir
}

// fileName maps a key to its file name. Leading dots are escaped so that item
// files never collide with hidden temp or lock files.
func fileName(key string) string {
	name := url.PathEscape(key)
	if strings.HasPrefix(name, ".") {
		name = "%2E" + name[1:]
	}
	return name + itemSuffix
}

// keyFromName reverses fileName. ok is false for files that are not items.
func keyFromName(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, itemSuffix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, itemSuffix))
	if err != nil {
		return "", false
	}
	return key, true
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, fileName(key))
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

func (s *Store) read(key string) (string, bool, error) {
	data, err := osReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read item %q: %w", key, err)
	}
	return string(data), true, nil
}

// GetItem implements storage.Storage.
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	return s.read(key)
}

// SetItem implements storage.Storage.
//
// An exclusive lock on the directory's lock file serializes writers across
// processes. The item is replaced atomically via renameio.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	if err := osMkdirAll(s.dir, s.dirMode); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", s.dir, err)
	}

	lockFile, err := os.OpenFile(filepath.Join(s.dir, lockName), os.O_RDWR|os.O_CREATE, s.fileMode)
	if err != nil {
		return fmt.Errorf("failed to open lock file in %q: %w", s.dir, err)
	}
	defer lockFile.Close()

	unlock, err := fileLockFunc(int(lockFile.Fd()))
	if err != nil {
		return fmt.Errorf("failed to acquire lock in %q: %w", s.dir, err)
	}
	defer unlock()

	current, existed, err := s.read(key)
	if err != nil {
		return err
	}
	if existed && current == value {
		return nil
	}

	// Mark the value as seen before the rename so the watcher echo of this
	// handle's own write is dropped.
	for _, sub := range s.subs {
		sub.seen[key] = value
	}

	pending, err := renameio.NewPendingFile(s.path(key), renameio.WithPermissions(s.fileMode))
	if err != nil {
		return fmt.Errorf("failed to create pending file for %q: %w", key, err)
	}
	defer pending.Cleanup()

	if _, err := pending.WriteString(value); err != nil {
		return fmt.Errorf("failed to write item %q: %w", key, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace item %q: %w", key, err)
	}
	return nil
}

// subscription tracks the last value each watcher has reported per key.
type subscription struct {
	fn   storage.Listener
	seen map[string]string
}

// Subscribe implements storage.Storage.
// It watches the directory rather than individual files so that atomic
// renames and newly created keys are observed.
func (s *Store) Subscribe(ctx context.Context, fn storage.Listener) (storage.StopFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := osMkdirAll(s.dir, s.dirMode); err != nil {
		return nil, fmt.Errorf("failed to create directory %q: %w", s.dir, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch directory %q: %w", s.dir, err)
	}

	sub := &subscription{fn: fn, seen: make(map[string]string)}
	if err := s.prime(sub); err != nil {
		w.Close()
		return nil, err
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				key, ok := keyFromName(filepath.Base(event.Name))
				if !ok {
					continue
				}
				s.observe(id, key)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-ctx.Done():
				w.Close()
				return
			}
		}
	}()

	var once sync.Once
	stop := func(context.Context) error {
		var err error
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			err = w.Close()
			<-done
		})
		return err
	}
	return stop, nil
}

// prime records the current value of every existing item.
func (s *Store) prime(sub *subscription) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to list directory %q: %w", s.dir, err)
	}
	for _, entry := range entries {
		key, ok := keyFromName(entry.Name())
		if !ok || entry.IsDir() {
			continue
		}
		v, exists, err := s.read(key)
		if err != nil {
			return err
		}
		if exists {
			sub.seen[key] = v
		}
	}
	return nil
}

// observe reads the current value of key and notifies the subscription if it
// differs from the last value the subscription has seen.
// The read happens under the handle lock so that it cannot observe a file
// this handle is in the middle of replacing.
func (s *Store) observe(id uint64, key string) {
	s.mu.Lock()
	sub, ok := s.subs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	value, exists, err := s.read(key)
	if err != nil || !exists {
		s.mu.Unlock()
		return
	}
	old, had := sub.seen[key]
	if had && old == value {
		s.mu.Unlock()
		return
	}
	sub.seen[key] = value
	s.mu.Unlock()

	sub.fn(storage.Event{
		Key:      key,
		OldValue: old,
		NewValue: value,
		Origin:   "fs:" + s.dir,
	})
}

// Close marks the handle closed. Active subscriptions stay until stopped or
// their context is done.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
