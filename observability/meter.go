package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/falclient/logger"
)

// MeterName is the instrumentation scope used for client metrics.
const MeterName = TracerName

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider should be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(config.ServiceName, config.ServiceVersion, config.Environment)),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// DispatchMetrics holds the instruments recorded around every API call.
type DispatchMetrics struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
	errors   metric.Int64Counter
}

// NewDispatchMetrics creates the dispatch instruments on the given meter.
func NewDispatchMetrics(meter metric.Meter) (*DispatchMetrics, error) {
	total, err := meter.Int64Counter("fal.dispatch.total",
		metric.WithDescription("Total number of dispatched calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fal.dispatch.total counter: %w", err)
	}

	duration, err := meter.Float64Histogram("fal.dispatch.duration",
		metric.WithDescription("Duration of dispatched calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fal.dispatch.duration histogram: %w", err)
	}

	active, err := meter.Int64UpDownCounter("fal.dispatch.active",
		metric.WithDescription("Number of calls in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fal.dispatch.active gauge: %w", err)
	}

	errs, err := meter.Int64Counter("fal.dispatch.errors",
		metric.WithDescription("Failed calls by error kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fal.dispatch.errors counter: %w", err)
	}

	return &DispatchMetrics{
		total:    total,
		duration: duration,
		active:   active,
		errors:   errs,
	}, nil
}

// RecordStart increments the in-flight count.
func (m *DispatchMetrics) RecordStart(ctx context.Context) {
	m.active.Add(ctx, 1)
}

// RecordEnd decrements the in-flight count and records the finished call.
// outcome is "ok" or the error kind.
func (m *DispatchMetrics) RecordEnd(ctx context.Context, method, outcome string, duration time.Duration) {
	m.active.Add(ctx, -1)
	m.total.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
	if outcome != "ok" {
		m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", outcome)))
	}
}
