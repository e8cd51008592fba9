package application

import (
	"time"

	"github.com/froome/fulfillment/internal/observability"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageBounds converts page/size query values into offset/limit with
// sane defaults and an upper cap.
func PageBounds(page, size int) (offset, limit int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page < 0 {
		page = 0
	}
	return page * size, size
}

// Observe records the RED metrics for one use-case invocation.
func Observe(tel observability.Telemetry, useCase string, start time.Time, err error) {
	if tel == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	tel.Counter(observability.MetricUsecaseRequests).Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
	tel.Histogram(observability.MetricUsecaseDuration).Observe(time.Since(start).Seconds(),
		observability.L("use_case", useCase),
	)
}
