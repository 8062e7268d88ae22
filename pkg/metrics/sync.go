package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records background sync traffic against the backend and
// search latency. A nil receiver is a no-op so callers never have to guard.
type SyncMetrics struct {
	syncOps        *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	syncOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_sync_operations_total",
		Help: "Background sync attempts against the backend, by operation and outcome.",
	}, []string{"op", "outcome"})
	searchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_search_duration_seconds",
		Help:    "Time spent answering catalog searches.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
	}, []string{"mode"})
	reg.MustRegister(syncOps, searchDuration)
	return &SyncMetrics{
		syncOps:        syncOps,
		searchDuration: searchDuration,
	}
}

// IncSyncSuccess counts a completed sync for the named operation.
func (m *SyncMetrics) IncSyncSuccess(op string) {
	if m == nil || m.syncOps == nil {
		return
	}
	m.syncOps.WithLabelValues(normalizeLabel(op), "success").Inc()
}

// IncSyncFailure counts a failed sync for the named operation.
func (m *SyncMetrics) IncSyncFailure(op string) {
	if m == nil || m.syncOps == nil {
		return
	}
	m.syncOps.WithLabelValues(normalizeLabel(op), "failure").Inc()
}

// ObserveSearch records how long a search took in the given mode
// ("search" or "suggest").
func (m *SyncMetrics) ObserveSearch(mode string, duration time.Duration) {
	if m == nil || m.searchDuration == nil {
		return
	}
	m.searchDuration.WithLabelValues(normalizeLabel(mode)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
