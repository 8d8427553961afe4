package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MEventsPublished         MetricKey = "events_published_total"
	MEventListenerFailures   MetricKey = "events_listener_failures_total"
	MLedgerOccupancy         MetricKey = "ledger_occupancy_ratio"
	MStockAlerts             MetricKey = "stock_alerts_total"
	MPaymentEvents           MetricKey = "payment_events_total"
)
