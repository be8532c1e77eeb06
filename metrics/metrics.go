// Package metrics provides Prometheus metrics for configuration propagation.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Application sources.
const (
	SourceDirect    = "direct"
	SourceLoad      = "load"
	SourcePersisted = "persisted"
	SourceInPage    = "in_page"
)

// Metrics holds the collectors registered for one registry.
type Metrics struct {
	Applications  *prometheus.CounterVec
	ParseFailures *prometheus.CounterVec
	PropertiesSet prometheus.Counter
	StorageErrors *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Applications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitetheme_applications_total",
			Help: "Total number of configuration applications, by source.",
		}, []string{"source"}),
		ParseFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitetheme_parse_failures_total",
			Help: "Total number of persisted configurations that failed to parse, by source.",
		}, []string{"source"}),
		PropertiesSet: f.NewCounter(prometheus.CounterOpts{
			Name: "sitetheme_properties_set_total",
			Help: "Total number of custom style properties written.",
		}),
		StorageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitetheme_storage_errors_total",
			Help: "Total number of persistent store failures, by operation.",
		}, []string{"op"}),
	}
}

// Applied records one configuration application that wrote n properties.
func (m *Metrics) Applied(source string, n int) {
	if m == nil {
		return
	}
	m.Applications.WithLabelValues(source).Inc()
	m.PropertiesSet.Add(float64(n))
}

// ParseFailed records a snapshot that could not be parsed.
func (m *Metrics) ParseFailed(source string) {
	if m == nil {
		return
	}
	m.ParseFailures.WithLabelValues(source).Inc()
}

// StorageFailed records a persistent store failure.
func (m *Metrics) StorageFailed(op string) {
	if m == nil {
		return
	}
	m.StorageErrors.WithLabelValues(op).Inc()
}
