// Package metrics exports change-history recording outcomes to Prometheus.
package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"doctrack/internal/domain"
)

// HistoryMetrics implements tracker.Reporter with Prometheus counters.
// Merge failures are also logged.
type HistoryMetrics struct {
	recorded  *prometheus.CounterVec
	evicted   *prometheus.CounterVec
	conflicts *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// NewHistoryMetrics registers the history counters on reg.
func NewHistoryMetrics(reg prometheus.Registerer) *HistoryMetrics {
	factory := promauto.With(reg)
	return &HistoryMetrics{
		recorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "doctrack_history_entries_recorded_total",
			Help: "History entries appended, by document type and operation",
		}, []string{"doc_type", "operation"}),
		evicted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "doctrack_history_entries_evicted_total",
			Help: "History entries dropped by the size cap, by document type",
		}, []string{"doc_type"}),
		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "doctrack_history_merge_conflicts_total",
			Help: "History merges retried after a concurrent write, by document type",
		}, []string{"doc_type"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "doctrack_history_merge_failures_total",
			Help: "History merges skipped because of a store error, by document type and operation",
		}, []string{"doc_type", "operation"}),
	}
}

func (m *HistoryMetrics) EntriesRecorded(docType string, op domain.OperationKind, count int) {
	m.recorded.WithLabelValues(docType, string(op)).Add(float64(count))
}

func (m *HistoryMetrics) EntriesEvicted(docType string, count int) {
	m.evicted.WithLabelValues(docType).Add(float64(count))
}

func (m *HistoryMetrics) MergeConflict(docType string) {
	m.conflicts.WithLabelValues(docType).Inc()
}

func (m *HistoryMetrics) MergeFailed(docType string, op domain.OperationKind, err error) {
	m.failures.WithLabelValues(docType, string(op)).Inc()
	log.Printf("metrics.MergeFailed: history merge skipped for %s (%s): %v", docType, op, err)
}
