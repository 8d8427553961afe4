package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vberihuete/BIU-master-oop/internal/observability"
)

type countingCounter struct{ total float64 }

func (c *countingCounter) Add(d float64, _ ...observability.Label) { c.total += d }

func TestProviderResolvesRegisteredInstruments(t *testing.T) {
	c := &countingCounter{}
	tel := New(nil, nil, map[observability.MetricKey]observability.Counter{
		observability.MEventsPublished: c,
		observability.MStockAlerts:     nil,
	}, nil, nil)

	tel.Metrics().Counter(observability.MEventsPublished).Add(2)
	assert.InDelta(t, 2, c.total, 1e-9)

	assert.NotPanics(t, func() {
		tel.Metrics().Counter(observability.MStockAlerts).Add(1)
		tel.Metrics().Histogram(observability.MUsecaseDuration).Observe(0.1)
		tel.Metrics().Gauge(observability.MLedgerOccupancy).Set(0.5)
	})
	assert.NotNil(t, tel.Logger())
	assert.NotNil(t, tel.Tracer())
}

func TestSetupTracingWithoutEndpoint(t *testing.T) {
	tp, shutdown, err := SetupTracing(context.Background(), TracingOptions{ServiceName: "storefront", ServiceVersion: "test"})
	require.NoError(t, err)
	require.NotNil(t, tp)

	_, span := tp.Tracer("test").Start(context.Background(), "UC.AddEntry")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}
