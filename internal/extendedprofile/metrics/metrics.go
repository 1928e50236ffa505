package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for extended-profile operations.
// All methods are nil-receiver safe so tests can pass a nil *Metrics.
type Metrics struct {
	EntriesSaved   *prometheus.CounterVec
	EntriesDeleted *prometheus.CounterVec
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	ReadLatency    prometheus.Histogram
}

// New registers and returns extended-profile metrics collectors.
func New() *Metrics {
	return &Metrics{
		EntriesSaved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "userprofile_extended_entries_saved_total",
			Help: "Total number of extended profile entries saved, labeled by context type",
		}, []string{"context_type"}),
		EntriesDeleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "userprofile_extended_entries_deleted_total",
			Help: "Total number of extended profile entries deleted, labeled by context type",
		}, []string{"context_type"}),
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "userprofile_extended_cache_hits_total",
			Help: "Extended profile reads served from cache, labeled by context type",
		}, []string{"context_type"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "userprofile_extended_cache_misses_total",
			Help: "Extended profile reads that fell through to the store, labeled by context type",
		}, []string{"context_type"}),
		ReadLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "userprofile_extended_read_latency_seconds",
			Help:    "Latency of extended profile reads in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncEntriesSaved(contextType string, count int) {
	if m == nil {
		return
	}
	m.EntriesSaved.WithLabelValues(contextType).Add(float64(count))
}

func (m *Metrics) IncEntriesDeleted(contextType string, count int) {
	if m == nil {
		return
	}
	m.EntriesDeleted.WithLabelValues(contextType).Add(float64(count))
}

func (m *Metrics) IncCacheHit(contextType string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(contextType).Inc()
}

func (m *Metrics) IncCacheMiss(contextType string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(contextType).Inc()
}

func (m *Metrics) ObserveReadLatency(seconds float64) {
	if m == nil {
		return
	}
	m.ReadLatency.Observe(seconds)
}
