package sitetheme

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yacchi/sitetheme/internal/log"
	"github.com/yacchi/sitetheme/metrics"
	"github.com/yacchi/sitetheme/storage"
	"github.com/yacchi/sitetheme/theme"
)

// ErrNotStarted is returned when a change is dispatched to an engine whose
// dispatcher is not running.
var ErrNotStarted = errors.New("engine not started")

// Color key suffixes that derive variant properties from a base color.
const (
	suffixHover = "Hover"
	suffixDark  = "Dark"
	suffixText  = "Text"
)

// textColorKeys lists the base colors that get a "--{name}-text" property.
var textColorKeys = map[string]bool{
	"primary":   true,
	"secondary": true,
}

// Engine applies configuration to one context's live style state and keeps it
// in step with the shared storage.
//
// Besides the dispatcher goroutine started by Start, the engine keeps no state
// of its own: everything it knows is read from the theme.State and the storage.
type Engine struct {
	state   *theme.State
	storage storage.Storage
	key     string
	logger  zerolog.Logger
	metrics *metrics.Metrics
	buffer  int

	mu      sync.Mutex
	current *runState
}

// runState belongs to one Start. finished is guarded by Engine.mu and set once
// the dispatcher has handled its last change.
type runState struct {
	inbox    chan Change
	cancel   context.CancelFunc
	stopSub  storage.StopFunc
	done     chan struct{}
	finished bool
}

// NewEngine creates an engine for the given live style state.
// st may be nil, in which case persistence and cross-context propagation are
// disabled and only direct and in-page application work.
//
// Example:
//
//	state := theme.NewState()
//	engine := sitetheme.NewEngine(state, fs.New(dir))
//	if err := engine.Start(ctx); err != nil {
//	  return err
//	}
//	defer engine.Stop(context.Background())
func NewEngine(state *theme.State, st storage.Storage, opts ...EngineOption) *Engine {
	options := engineOptions{
		logger: log.WithComponent("engine"),
		key:    StorageKey,
		buffer: defaultBuffer,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if state == nil {
		state = theme.NewState()
	}

	return &Engine{
		state:   state,
		storage: st,
		key:     options.key,
		logger:  options.logger,
		metrics: options.metrics,
		buffer:  options.buffer,
	}
}

// State returns the live style state owned by the engine.
func (e *Engine) State() *theme.State {
	return e.state
}

// ApplyConfiguration writes cfg's colors to the live style state.
//
// A nil cfg, or one without a "colors" mapping, is a no-op. For every color
// whose value is set, "--{key}-color" is written, plus "--{key}-hover" and
// "--{key}-dark" when "{key}Hover" / "{key}Dark" are set, and "--{key}-text"
// for primary and secondary when "{key}Text" is set. Variant keys are visited
// as colors of their own too, which yields properties such as
// "--primaryHover-color".
//
// All properties of one call are written in a single theme.State pass.
func (e *Engine) ApplyConfiguration(cfg Config) {
	e.apply(cfg, metrics.SourceDirect)
}

func (e *Engine) apply(cfg Config, source string) int {
	colors, ok := cfg.Colors()
	if !ok {
		return 0
	}

	keys := make([]string, 0, len(colors))
	for key := range colors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	n := e.state.Update(func(w theme.Setter) {
		for _, key := range keys {
			value := colors[key]
			if !truthy(value) {
				continue
			}
			w.SetProperty("--"+key+"-color", propertyValue(value))

			if v := colors[key+suffixHover]; truthy(v) {
				w.SetProperty("--"+key+"-hover", propertyValue(v))
			}
			if v := colors[key+suffixDark]; truthy(v) {
				w.SetProperty("--"+key+"-dark", propertyValue(v))
			}
			if textColorKeys[key] {
				if v := colors[key+suffixText]; truthy(v) {
					w.SetProperty("--"+key+"-text", propertyValue(v))
				}
			}
		}
	})

	e.metrics.Applied(source, n)
	e.logger.Debug().
		Str("event", "config.applied").
		Str("source", source).
		Int("properties", n).
		Msg("css variables updated")
	return n
}

// LoadAndApply reads the persisted snapshot and applies it.
//
// A missing snapshot is a no-op. A snapshot that fails to parse, or a storage
// that cannot be read, is logged and treated as "no persisted configuration";
// neither is returned to the caller. Reports whether a configuration was applied.
func (e *Engine) LoadAndApply(ctx context.Context) bool {
	if e.storage == nil {
		return false
	}

	text, ok, err := e.storage.GetItem(ctx, e.key)
	if err != nil {
		e.metrics.StorageFailed("get")
		e.logger.Warn().
			Err(err).
			Str("event", "config.storage_unavailable").
			Str("key", e.key).
			Msg("persisted configuration unavailable")
		return false
	}
	if !ok || text == "" {
		return false
	}

	cfg, err := ParseConfig([]byte(text))
	if err != nil {
		e.metrics.ParseFailed(metrics.SourceLoad)
		e.logger.Error().
			Err(err).
			Str("event", "config.parse_failed").
			Str("source", metrics.SourceLoad).
			Msg("error loading configuration")
		return false
	}

	e.apply(cfg, metrics.SourceLoad)
	e.logger.Info().
		Str("event", "config.loaded").
		Str("key", e.key).
		Msg("applied saved configuration")
	return true
}

// Start initializes the engine: it subscribes to changes made by other
// contexts, applies the persisted snapshot and starts the dispatcher that
// serves those changes and in-page notifications. The engine stays subscribed
// until ctx is done or Stop is called. Calling Start on a running engine is a
// no-op; an engine whose start context has ended is started afresh.
//
// If the storage cannot be subscribed to, the engine keeps running without
// cross-context propagation.
func (e *Engine) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.current; r != nil {
		if !r.finished {
			return nil
		}
		e.current = nil
		r.cancel()
		if r.stopSub != nil {
			_ = r.stopSub(ctx)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &runState{
		inbox:  make(chan Change, e.buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// Subscribe before reading: a write landing in between is then either
	// read below or delivered as an event.
	if e.storage != nil {
		stop, err := e.storage.Subscribe(runCtx, e.listener(runCtx, r.inbox))
		if err != nil {
			e.metrics.StorageFailed("subscribe")
			e.logger.Warn().
				Err(err).
				Str("event", "config.subscribe_failed").
				Msg("cross-context propagation disabled")
		} else {
			r.stopSub = stop
		}
	}

	e.LoadAndApply(ctx)

	e.current = r
	go e.run(runCtx, r)

	e.logger.Info().
		Str("event", "config.engine_started").
		Str("key", e.key).
		Msg("shared configuration module initialized")
	return nil
}

// listener filters storage events down to non-empty writes of the snapshot key.
func (e *Engine) listener(ctx context.Context, inbox chan<- Change) storage.Listener {
	return func(ev storage.Event) {
		if ev.Key != e.key || ev.NewValue == "" {
			return
		}
		select {
		case inbox <- PersistedChange{Text: ev.NewValue}:
		case <-ctx.Done():
		}
	}
}

// run is the dispatcher loop. Changes are handled one at a time, in arrival order.
func (e *Engine) run(ctx context.Context, r *runState) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			e.finish(r)
			return
		case c := <-r.inbox:
			e.handle(c)
		}
	}
}

// finish handles the changes still queued and marks the run finished, after
// which Dispatch refuses new changes.
func (e *Engine) finish(r *runState) {
	e.drain(r.inbox)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.drain(r.inbox)
	r.finished = true
}

func (e *Engine) drain(inbox <-chan Change) {
	for {
		select {
		case c := <-inbox:
			e.handle(c)
		default:
			return
		}
	}
}

func (e *Engine) handle(c Change) {
	switch c := c.(type) {
	case PersistedChange:
		cfg, err := ParseConfig([]byte(c.Text))
		if err != nil {
			e.metrics.ParseFailed(metrics.SourcePersisted)
			e.logger.Error().
				Err(err).
				Str("event", "config.parse_failed").
				Str("source", metrics.SourcePersisted).
				Msg("error parsing configuration from storage event")
			return
		}
		e.apply(cfg, metrics.SourcePersisted)
		e.logger.Info().Str("event", "config.storage_event").Msg("configuration updated via storage event")

	case InPageChange:
		if c.Config == nil {
			return
		}
		e.apply(c.Config, metrics.SourceInPage)
		e.logger.Info().Str("event", "config.custom_event").Msg("configuration updated via custom event")

	case barrier:
		close(c.done)
	}
}

// Dispatch hands a change to the dispatcher. A change accepted with a nil
// error is always handled, even if the engine stops right after.
// Returns ErrNotStarted if the engine is not running.
func (e *Engine) Dispatch(ctx context.Context, c Change) error {
	e.mu.Lock()
	r := e.current
	if r == nil || r.finished {
		e.mu.Unlock()
		return ErrNotStarted
	}
	select {
	case r.inbox <- c:
		e.mu.Unlock()
		return nil
	default:
	}
	e.mu.Unlock()

	select {
	case r.inbox <- c:
	case <-r.done:
		return ErrNotStarted
	case <-ctx.Done():
		return ctx.Err()
	}

	// The dispatcher may have finished before picking the change up.
	e.mu.Lock()
	defer e.mu.Unlock()
	if r.finished {
		e.drain(r.inbox)
	}
	return nil
}

// Notify publishes an in-page "configChanged" notification. A payload without
// a configuration is ignored by the dispatcher.
func (e *Engine) Notify(ctx context.Context, payload ConfigChanged) error {
	return e.Dispatch(ctx, InPageChange{Config: payload.Config})
}

// Sync waits until every change dispatched before the call has been handled.
func (e *Engine) Sync(ctx context.Context) error {
	b := barrier{done: make(chan struct{})}
	if err := e.Dispatch(ctx, b); err != nil {
		return err
	}

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Save persists cfg as the snapshot and applies it to this context, the way a
// configuration-management page saves and then publishes configChanged.
// Other contexts pick the snapshot up through the storage change signal.
//
// Save returns once cfg is applied locally, so it must not be called from a
// theme.State listener. The configuration is applied even if it cannot be
// persisted; the storage error is returned.
func (e *Engine) Save(ctx context.Context, cfg Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	switch err := e.Notify(ctx, ConfigChanged{Config: cfg}); {
	case errors.Is(err, ErrNotStarted):
		e.ApplyConfiguration(cfg)
	case err != nil:
		return err
	default:
		// Accepted changes are always handled, so ErrNotStarted here
		// means the change went through the final drain.
		if err := e.Sync(ctx); err != nil && !errors.Is(err, ErrNotStarted) {
			return err
		}
	}

	if e.storage == nil {
		return fmt.Errorf("persist configuration: %w", storage.ErrUnavailable)
	}
	if err := e.storage.SetItem(ctx, e.key, string(data)); err != nil {
		e.metrics.StorageFailed("set")
		return fmt.Errorf("persist configuration: %w", err)
	}
	return nil
}

// Stop unsubscribes from the storage and stops the dispatcher once the
// changes already queued are handled. Calling Stop on a stopped engine is a no-op.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	r := e.current
	e.current = nil
	e.mu.Unlock()

	if r == nil {
		return nil
	}

	r.cancel()
	var err error
	if r.stopSub != nil {
		err = r.stopSub(ctx)
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}

	e.logger.Info().Str("event", "config.engine_stopped").Msg("shared configuration module stopped")
	return err
}
