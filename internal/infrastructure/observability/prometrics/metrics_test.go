package prometrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vberihuete/BIU-master-oop/internal/observability"
)

func TestRegistryReusesVectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New("storefront", "", reg)

	first := r.Counter("events_published_total", "help", "event", "outcome")
	second := r.Counter("events_published_total", "help", "event", "outcome")

	first.Add(1, observability.L("event", "PRODUCT_ADDED"), observability.L("outcome", "delivered"))
	second.Add(2, observability.L("event", "PRODUCT_ADDED"), observability.L("outcome", "delivered"))

	count, err := testutil.GatherAndCount(reg, "storefront_events_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	cv, ok := r.(*registry).counters.Load("events_published_total")
	require.True(t, ok)
	assert.InDelta(t, 3, testutil.ToFloat64(cv.(*prometheus.CounterVec).WithLabelValues("PRODUCT_ADDED", "delivered")), 1e-9)
}

func TestMismatchedLabelsAreDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	g := New("", "", reg).Gauge("ledger_occupancy_ratio", "help", "ledger", "dimension")

	assert.NotPanics(t, func() {
		g.Set(0.5, observability.L("ledger", "main"))
	})
	g.Set(0.25, observability.L("ledger", "main"), observability.L("dimension", "weight"))

	count, err := testutil.GatherAndCount(reg, "ledger_occupancy_ratio")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterDefaultsCoversCatalog(t *testing.T) {
	inst := RegisterDefaults(New("", "", prometheus.NewRegistry()))

	for _, k := range []observability.MetricKey{
		observability.MUsecaseRequests,
		observability.MHTTPRequests,
		observability.MEventsPublished,
		observability.MEventListenerFailures,
		observability.MStockAlerts,
		observability.MPaymentEvents,
	} {
		assert.Contains(t, inst.Counters, k)
	}
	assert.Contains(t, inst.Histograms, observability.MUsecaseDuration)
	assert.Contains(t, inst.Gauges, observability.MLedgerOccupancy)
}
