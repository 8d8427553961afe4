package prometrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vberihuete/BIU-master-oop/internal/observability"
)

// Instruments groups every metric the service records, keyed the way the
// telemetry provider expects them.
type Instruments struct {
	Counters   map[observability.MetricKey]observability.Counter
	Histograms map[observability.MetricKey]observability.Histogram
	Gauges     map[observability.MetricKey]observability.Gauge
}

// RegisterDefaults declares the service metric catalog on r.
func RegisterDefaults(r Registry) Instruments {
	key := func(k observability.MetricKey) string { return string(k) }

	return Instruments{
		Counters: map[observability.MetricKey]observability.Counter{
			observability.MUsecaseRequests: r.Counter(key(observability.MUsecaseRequests),
				"Total number of use case invocations.", "use_case", "outcome"),
			observability.MHTTPRequests: r.Counter(key(observability.MHTTPRequests),
				"Total number of HTTP requests.", "method", "route", "status"),
			observability.MExternalRequests: r.Counter(key(observability.MExternalRequests),
				"Total number of calls to external peers.", "peer", "endpoint", "outcome"),
			observability.MEventsPublished: r.Counter(key(observability.MEventsPublished),
				"Events handed to the notification bus.", "event", "outcome"),
			observability.MEventListenerFailures: r.Counter(key(observability.MEventListenerFailures),
				"Listener invocations that returned an error or panicked.", "event"),
			observability.MStockAlerts: r.Counter(key(observability.MStockAlerts),
				"Low or depleted stock alerts raised.", "ledger", "event"),
			observability.MPaymentEvents: r.Counter(key(observability.MPaymentEvents),
				"Payment lifecycle events observed.", "event", "method"),
		},
		Histograms: map[observability.MetricKey]observability.Histogram{
			observability.MUsecaseDuration: r.Histogram(key(observability.MUsecaseDuration),
				"Duration of use case execution in seconds.", prometheus.DefBuckets, "use_case"),
			observability.MHTTPRequestDuration: r.Histogram(key(observability.MHTTPRequestDuration),
				"HTTP request latency in seconds.", prometheus.DefBuckets, "method", "route", "status"),
			observability.MExternalRequestDuration: r.Histogram(key(observability.MExternalRequestDuration),
				"Latency of calls to external peers in seconds.", prometheus.DefBuckets, "peer", "endpoint"),
		},
		Gauges: map[observability.MetricKey]observability.Gauge{
			observability.MLedgerOccupancy: r.Gauge(key(observability.MLedgerOccupancy),
				"Share of a physical ledger budget in use.", "ledger", "dimension"),
		},
	}
}
