package sitetheme

import (
	"github.com/rs/zerolog"
	"github.com/yacchi/sitetheme/metrics"
)

// defaultBuffer is the default capacity of the engine's inbound channel.
const defaultBuffer = 16

// EngineOption is a functional option for configuring an Engine.
type EngineOption func(*engineOptions)

// engineOptions holds the options for NewEngine.
type engineOptions struct {
	logger  zerolog.Logger
	key     string
	metrics *metrics.Metrics
	buffer  int
}

// WithLogger sets the logger. Default is the package's "engine" component logger.
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithStorageKey overrides the key the snapshot is persisted under.
// Default is StorageKey.
func WithStorageKey(key string) EngineOption {
	return func(o *engineOptions) {
		o.key = key
	}
}

// WithMetrics records applications, parse failures and storage errors.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(o *engineOptions) {
		o.metrics = m
	}
}

// WithBuffer sets the capacity of the inbound change channel. Default is 16.
func WithBuffer(n int) EngineOption {
	return func(o *engineOptions) {
		if n >= 0 {
			o.buffer = n
		}
	}
}
