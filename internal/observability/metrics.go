package observability

const (
	MetricUsecaseRequests     = "usecase_requests_total"
	MetricUsecaseDuration     = "usecase_duration_seconds"
	MetricHTTPRequests        = "http_requests_total"
	MetricHTTPRequestDuration = "http_request_duration_seconds"
	MetricDomainEvents        = "domain_events_total"
	MetricCascadeSteps        = "cascade_steps_total"
)
