package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yacchi/sitetheme/storage"
	"github.com/yacchi/sitetheme/storage/storagetest"
)

func TestConformance(t *testing.T) {
	storagetest.NewTester(t, func(t *testing.T) (storage.Storage, storage.Storage) {
		dir := t.TempDir()
		return New(dir), New(dir)
	}, storagetest.WithEventTimeout(5*time.Second)).TestAll()
}

func TestFileName_RoundTrip(t *testing.T) {
	for _, key := range []string{"currentSiteConfig", "a/b", ".hidden", "with space", "ü"} {
		t.Run(key, func(t *testing.T) {
			name := fileName(key)
			assert.NotContains(t, name, "/")
			assert.False(t, name[0] == '.', "file name %q starts with a dot", name)

			got, ok := keyFromName(name)
			require.True(t, ok)
			assert.Equal(t, key, got)
		})
	}
}

func TestKeyFromName_SkipsNonItems(t *testing.T) {
	for _, name := range []string{lockName, ".currentSiteConfig.val8172635", "notes.txt", "%zz.val"} {
		_, ok := keyFromName(name)
		assert.False(t, ok, "keyFromName(%q) should not be an item", name)
	}
}

func TestSetItem_WritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := New(dir, WithFileMode(0o600), WithDirMode(0o700))
	ctx := context.Background()

	require.NoError(t, s.SetItem(ctx, "currentSiteConfig", `{"colors":{}}`))

	data, err := os.ReadFile(filepath.Join(dir, "currentSiteConfig.val"))
	require.NoError(t, err)
	assert.Equal(t, `{"colors":{}}`, string(data))

	st, err := os.Stat(filepath.Join(dir, "currentSiteConfig.val"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotRegexp(t, `^\.currentSiteConfig`, e.Name(), "temp file left behind")
	}
}

func TestSetItem_CanceledContext(t *testing.T) {
	s := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.SetItem(ctx, "k", "v"), context.Canceled)
	_, _, err := s.GetItem(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetItem_LockFailure(t *testing.T) {
	orig := fileLockFunc
	t.Cleanup(func() { fileLockFunc = orig })
	fileLockFunc = func(int) (func(), error) {
		return nil, errors.New("lock busy")
	}

	s := New(t.TempDir())
	err := s.SetItem(context.Background(), "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire lock")
}

func TestGetItem_ReadError(t *testing.T) {
	orig := osReadFile
	t.Cleanup(func() { osReadFile = orig })
	osReadFile = func(string) ([]byte, error) {
		return nil, os.ErrPermission
	}

	_, _, err := New(t.TempDir()).GetItem(context.Background(), "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestSubscribe_SeesExternalWrite(t *testing.T) {
	dir := t.TempDir()
	reader := New(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// An existing value primes the subscription, so the event carries it as old value.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "currentSiteConfig.val"), []byte("v1"), 0o644))

	events := make(chan storage.Event, 8)
	stop, err := reader.Subscribe(ctx, func(ev storage.Event) { events <- ev })
	require.NoError(t, err)
	defer stop(context.Background())

	require.NoError(t, New(dir).SetItem(ctx, "currentSiteConfig", "v2"))

	select {
	case ev := <-events:
		assert.Equal(t, "currentSiteConfig", ev.Key)
		assert.Equal(t, "v1", ev.OldValue)
		assert.Equal(t, "v2", ev.NewValue)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}
