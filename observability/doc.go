// Package observability wires OpenTelemetry tracing and metrics for API
// calls.
//
//	shutdown, err := observability.Setup(ctx, observability.Config{Tracing: true, Metrics: true})
//	defer shutdown(ctx)
//
// Every dispatch runs inside a "fal.dispatch" span and updates the
// fal.dispatch.* instruments created by NewDispatchMetrics.
package observability
