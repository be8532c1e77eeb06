// Package storagetest provides a conformance suite for storage.Storage implementations.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/yacchi/sitetheme/storage"
)

// Factory returns two handles onto the same, empty origin.
// The factory is called for each test case to ensure test isolation.
// Handles are closed by the tester.
type Factory func(t *testing.T) (a, b storage.Storage)

// Option configures a Tester.
type Option func(*Tester)

// WithEventTimeout sets how long the tester waits for an expected event.
// Default is 2 seconds.
func WithEventTimeout(d time.Duration) Option {
	return func(st *Tester) {
		st.eventTimeout = d
	}
}

// WithQuietPeriod sets how long the tester waits to conclude that no event
// will arrive. Default is 200 milliseconds.
func WithQuietPeriod(d time.Duration) Option {
	return func(st *Tester) {
		st.quietPeriod = d
	}
}

// Tester verifies storage.Storage implementations.
type Tester struct {
	t            *testing.T
	factory      Factory
	eventTimeout time.Duration
	quietPeriod  time.Duration
}

// NewTester creates a Tester for the given Factory.
func NewTester(t *testing.T, factory Factory, opts ...Option) *Tester {
	st := &Tester{
		t:            t,
		factory:      factory,
		eventTimeout: 2 * time.Second,
		quietPeriod:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// TestAll runs all standard compliance tests.
func (st *Tester) TestAll() {
	st.t.Run("Type", st.testType)
	st.t.Run("GetMissing", st.testGetMissing)
	st.t.Run("SetGet", st.testSetGet)
	st.t.Run("CrossHandleEvent", st.testCrossHandleEvent)
	st.t.Run("OwnWriteSuppressed", st.testOwnWriteSuppressed)
	st.t.Run("SameValueNoEvent", st.testSameValueNoEvent)
	st.t.Run("Stop", st.testStop)
	st.t.Run("Closed", st.testClosed)
}

func (st *Tester) open(t *testing.T) (storage.Storage, storage.Storage) {
	t.Helper()
	a, b := st.factory(t)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

// recorder collects events delivered to a listener.
type recorder struct {
	ch chan storage.Event
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan storage.Event, 64)}
}

func (r *recorder) listen(ev storage.Event) {
	r.ch <- ev
}

func (st *Tester) subscribe(t *testing.T, s storage.Storage, r *recorder) storage.StopFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	stop, err := s.Subscribe(ctx, r.listen)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	t.Cleanup(func() { stop(context.Background()) })
	return stop
}

func (st *Tester) expectEvent(t *testing.T, r *recorder) storage.Event {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(st.eventTimeout):
		t.Fatalf("no event received within %v", st.eventTimeout)
		return storage.Event{}
	}
}

func (st *Tester) expectNoEvent(t *testing.T, r *recorder) {
	t.Helper()
	select {
	case ev := <-r.ch:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(st.quietPeriod):
	}
}

func (st *Tester) testType(t *testing.T) {
	a, _ := st.open(t)
	if a.Type() == "" {
		t.Fatal("Type() returned empty string")
	}
}

func (st *Tester) testGetMissing(t *testing.T) {
	a, _ := st.open(t)

	v, ok, err := a.GetItem(context.Background(), "currentSiteConfig")
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if ok || v != "" {
		t.Fatalf("GetItem() = %q, %v, want \"\", false", v, ok)
	}
}

func (st *Tester) testSetGet(t *testing.T) {
	a, b := st.open(t)
	ctx := context.Background()

	value := `{"colors":{"primary":"#111"}}`
	if err := a.SetItem(ctx, "currentSiteConfig", value); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}

	for name, s := range map[string]storage.Storage{"writer": a, "other": b} {
		v, ok, err := s.GetItem(ctx, "currentSiteConfig")
		if err != nil {
			t.Fatalf("%s GetItem() error = %v", name, err)
		}
		if !ok || v != value {
			t.Errorf("%s GetItem() = %q, %v, want %q, true", name, v, ok, value)
		}
	}
}

func (st *Tester) testCrossHandleEvent(t *testing.T) {
	a, b := st.open(t)
	r := newRecorder()
	st.subscribe(t, b, r)
	ctx := context.Background()

	first := `{"colors":{"danger":"#dc3545"}}`
	if err := a.SetItem(ctx, "currentSiteConfig", first); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	ev := st.expectEvent(t, r)
	if ev.Key != "currentSiteConfig" || ev.NewValue != first || ev.OldValue != "" {
		t.Fatalf("first event = %+v", ev)
	}

	second := `{"colors":{"danger":"#ff0000"}}`
	if err := a.SetItem(ctx, "currentSiteConfig", second); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	ev = st.expectEvent(t, r)
	if ev.NewValue != second || ev.OldValue != first {
		t.Fatalf("second event = %+v, want old %q new %q", ev, first, second)
	}
}

func (st *Tester) testOwnWriteSuppressed(t *testing.T) {
	a, _ := st.open(t)
	r := newRecorder()
	st.subscribe(t, a, r)

	if err := a.SetItem(context.Background(), "currentSiteConfig", `{"colors":{}}`); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	st.expectNoEvent(t, r)
}

func (st *Tester) testSameValueNoEvent(t *testing.T) {
	a, b := st.open(t)
	ctx := context.Background()

	if err := a.SetItem(ctx, "currentSiteConfig", "same"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}

	r := newRecorder()
	st.subscribe(t, b, r)

	if err := a.SetItem(ctx, "currentSiteConfig", "same"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	st.expectNoEvent(t, r)
}

func (st *Tester) testStop(t *testing.T) {
	a, b := st.open(t)
	r := newRecorder()
	stop := st.subscribe(t, b, r)

	if err := stop(context.Background()); err != nil {
		t.Fatalf("stop() error = %v", err)
	}
	if err := stop(context.Background()); err != nil {
		t.Fatalf("second stop() error = %v", err)
	}

	if err := a.SetItem(context.Background(), "currentSiteConfig", "after-stop"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	st.expectNoEvent(t, r)
}

func (st *Tester) testClosed(t *testing.T) {
	a, _ := st.open(t)
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, _, err := a.GetItem(context.Background(), "currentSiteConfig"); err == nil {
		t.Error("GetItem() after Close expected error, got nil")
	}
	if err := a.SetItem(context.Background(), "currentSiteConfig", "x"); err == nil {
		t.Error("SetItem() after Close expected error, got nil")
	}
}
