// Package observability defines the vendor-neutral logging, metrics, and
// tracing ports the controller's services depend on. Concrete adapters (zap,
// Prometheus, OpenTelemetry) live under internal/infrastructure/observability.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the three telemetry ports handed to use cases.
type Observability interface {
	Tracer() Tracer
	Logger() Logger
	Metrics() Metrics
}

// Metrics resolves instruments by their well-known key. Unknown keys resolve
// to no-ops so a missing registration never takes down a purchase.
type Metrics interface {
	Counter(name MetricKey) Counter
	Histogram(name MetricKey) Histogram
}

// Tracer starts a span around a unit of work such as a purchase attempt.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

// Counter is a monotonically increasing instrument.
type Counter interface {
	Add(delta float64, labels ...Label)
	Bind(labels ...Label) BoundCounter
}

// BoundCounter has its labels fixed up front, for hot paths.
type BoundCounter interface {
	Add(delta float64)
}

// Histogram records a distribution, typically durations in seconds.
type Histogram interface {
	Observe(value float64, labels ...Label)
	Bind(labels ...Label) BoundHistogram
}

// BoundHistogram has its labels fixed up front.
type BoundHistogram interface {
	Observe(value float64)
}

// Label is a metric dimension such as slot_code or outcome.
type Label struct{ Key, Value string }

// L builds a Label.
func L(k, v string) Label { return Label{Key: k, Value: v} }

// Field is a structured log attribute.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(k string, v any) Field { return Field{Key: k, Value: v} }

// Logger is the structured logging port. With returns a child logger carrying
// the given fields on every entry.
type Logger interface {
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// MetricKey names an instrument; the known keys are declared in metrics.go.
type MetricKey string
