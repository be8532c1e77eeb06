// Package redis provides a Redis-backed storage backend.
//
// Values are stored under "<prefix>:<key>". Every write is announced on the
// "<prefix>:events" pub/sub channel; handles drop announcements carrying their
// own origin, so a handle's subscribers never see its own writes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/yacchi/sitetheme/storage"
)

// DefaultPrefix namespaces keys and the event channel.
const DefaultPrefix = "sitetheme"

// Config holds Redis connection configuration.
type Config struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Prefix   string // key and channel prefix (default "sitetheme")
}

// envelope is the pub/sub payload announcing one write.
type envelope struct {
	Origin   string `json:"origin"`
	Key      string `json:"key"`
	OldValue string `json:"oldValue,omitempty"`
	NewValue string `json:"newValue"`
}

// Store is one handle onto a Redis-backed origin.
type Store struct {
	client *goredis.Client
	prefix string
	origin string
	logger zerolog.Logger
	owned  bool

	mu     sync.Mutex
	closed bool
}

// Ensure Store implements the storage.Storage interface.
var _ storage.Storage = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key and channel prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLogger sets the logger used for dropped or malformed announcements.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a handle using an existing client. The client is not closed by Close.
func New(client *goredis.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
		origin: uuid.NewString(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to Redis and verifies the connection with PING.
// The returned Store owns the client and closes it on Close.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w: %w", storage.ErrUnavailable, err)
	}

	if cfg.Prefix != "" {
		opts = append([]Option{WithPrefix(cfg.Prefix)}, opts...)
	}
	s := New(client, opts...)
	s.owned = true
	return s, nil
}

// Type returns storage.TypeRedis.
func (s *Store) Type() storage.Type {
	return storage.TypeRedis
}

// Origin returns the identifier attached to this handle's announcements.
func (s *Store) Origin() string {
	return s.origin
}

func (s *Store) itemKey(key string) string {
	return s.prefix + ":" + key
}

func (s *Store) channel() string {
	return s.prefix + ":events"
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

// GetItem implements storage.Storage.
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}

	val, err := s.client.Get(ctx, s.itemKey(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w: %w", key, storage.ErrUnavailable, err)
	}
	return val, true, nil
}

// SetItem implements storage.Storage.
// SET ... GET returns the previous value atomically; an unchanged value is not announced.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	old, err := s.client.SetArgs(ctx, s.itemKey(key), value, goredis.SetArgs{Get: true}).Result()
	existed := true
	if errors.Is(err, goredis.Nil) {
		existed = false
		err = nil
	}
	if err != nil {
		return fmt.Errorf("redis set %q: %w: %w", key, storage.ErrUnavailable, err)
	}
	if existed && old == value {
		return nil
	}

	payload, err := json.Marshal(envelope{
		Origin:   s.origin,
		Key:      key,
		OldValue: old,
		NewValue: value,
	})
	if err != nil {
		return fmt.Errorf("encode change for %q: %w", key, err)
	}
	if err := s.client.Publish(ctx, s.channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis publish %q: %w: %w", key, storage.ErrUnavailable, err)
	}
	return nil
}

// Subscribe implements storage.Storage.
// It returns once the subscription is confirmed by the server.
func (s *Store) Subscribe(ctx context.Context, fn storage.Listener) (storage.StopFunc, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	ps := s.client.Subscribe(ctx, s.channel())
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w: %w", storage.ErrUnavailable, err)
	}

	done := make(chan struct{})
	quit := make(chan struct{})
	msgs := ps.Channel()
	var closeErr error
	go func() {
		defer close(done)
		defer func() { closeErr = ps.Close() }()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				s.handle(msg.Payload, fn)
			case <-quit:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	stop := func(context.Context) error {
		once.Do(func() {
			close(quit)
		})
		<-done
		return closeErr
	}
	return stop, nil
}

func (s *Store) handle(payload string, fn storage.Listener) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		s.logger.Warn().Err(err).Str("channel", s.channel()).Msg("dropping malformed change announcement")
		return
	}
	if env.Origin == s.origin {
		return
	}
	fn(storage.Event{
		Key:      env.Key,
		OldValue: env.OldValue,
		NewValue: env.NewValue,
		Origin:   env.Origin,
	})
}

// Close marks the handle closed and closes the client if Dial created it.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.owned {
		return s.client.Close()
	}
	return nil
}
