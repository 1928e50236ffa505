package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for master-data operations.
// All methods are nil-receiver safe so tests can pass a nil *Metrics.
type Metrics struct {
	ItemsAdded      *prometheus.CounterVec
	DuplicateAdds   *prometheus.CounterVec
	ListCacheHits   *prometheus.CounterVec
	ListCacheMisses *prometheus.CounterVec
}

// New registers and returns master-data metrics collectors.
func New() *Metrics {
	return &Metrics{
		ItemsAdded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "userprofile_masterdata_items_added_total",
			Help: "Total number of master data items added, labeled by collection",
		}, []string{"collection"}),
		DuplicateAdds: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "userprofile_masterdata_duplicate_adds_total",
			Help: "Total number of master data adds rejected as duplicates, labeled by collection",
		}, []string{"collection"}),
		ListCacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "userprofile_masterdata_list_cache_hits_total",
			Help: "Master data list reads served from cache, labeled by collection",
		}, []string{"collection"}),
		ListCacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "userprofile_masterdata_list_cache_misses_total",
			Help: "Master data list reads that fell through to the store, labeled by collection",
		}, []string{"collection"}),
	}
}

func (m *Metrics) IncItemsAdded(collection string) {
	if m == nil {
		return
	}
	m.ItemsAdded.WithLabelValues(collection).Inc()
}

func (m *Metrics) IncDuplicateAdds(collection string) {
	if m == nil {
		return
	}
	m.DuplicateAdds.WithLabelValues(collection).Inc()
}

func (m *Metrics) IncListCacheHit(collection string) {
	if m == nil {
		return
	}
	m.ListCacheHits.WithLabelValues(collection).Inc()
}

func (m *Metrics) IncListCacheMiss(collection string) {
	if m == nil {
		return
	}
	m.ListCacheMisses.WithLabelValues(collection).Inc()
}
