package metrics_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctrack/internal/domain"
	"doctrack/internal/metrics"
	"doctrack/internal/tracker"
)

var _ tracker.Reporter = (*metrics.HistoryMetrics)(nil)

func TestHistoryMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewHistoryMetrics(reg)

	m.EntriesRecorded("product", domain.OpUpdateOne, 2)
	m.EntriesRecorded("product", domain.OpUpdateOne, 1)
	m.EntriesRecorded("product", domain.OpSave, 1)
	m.EntriesEvicted("product", 4)
	m.MergeConflict("product")
	m.MergeFailed("product", domain.OpUpdateMany, errors.New("boom"))

	total, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	expected := `
# HELP doctrack_history_entries_recorded_total History entries appended, by document type and operation
# TYPE doctrack_history_entries_recorded_total counter
doctrack_history_entries_recorded_total{doc_type="product",operation="save"} 1
doctrack_history_entries_recorded_total{doc_type="product",operation="updateOne"} 3
# HELP doctrack_history_entries_evicted_total History entries dropped by the size cap, by document type
# TYPE doctrack_history_entries_evicted_total counter
doctrack_history_entries_evicted_total{doc_type="product"} 4
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"doctrack_history_entries_recorded_total", "doctrack_history_entries_evicted_total"))
}

func TestHistoryMetrics_RegisterTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewHistoryMetrics(reg)
	assert.Panics(t, func() { metrics.NewHistoryMetrics(reg) })
}
