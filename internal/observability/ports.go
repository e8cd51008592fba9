// Package observability defines the vendor-neutral ports the
// application layers log, count and trace through. The concrete zap,
// prometheus and otel adapters live under internal/infrastructure.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TraceCtx starts spans without binding callers to a concrete tracer.
type TraceCtx interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

// Counter and Histogram keep the prometheus types out of the
// application layers; labels travel per call.
type Counter interface {
	Add(delta float64, labels ...Label)
}

type Histogram interface {
	Observe(value float64, labels ...Label)
}

type Label struct{ Key, Value string }

// L is shorthand for a metric label.
func L(k, v string) Label { return Label{Key: k, Value: v} }

type Field struct {
	Key   string
	Value any
}

// F is shorthand for a structured log field.
func F(k string, v any) Field { return Field{Key: k, Value: v} }

// Logger is the structured logging port. With returns a child logger
// that carries the given fields on every entry.
type Logger interface {
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Telemetry bundles the ports; metric instruments are looked up by the
// names registered at wiring time.
type Telemetry interface {
	Tracer() TraceCtx
	Counter(name string) Counter
	Histogram(name string) Histogram
	Logger() Logger
}
