// Package observability wires OpenTelemetry tracing and metrics.
//
// Component installs OTLP/HTTP exporters as the global providers when they are
// enabled in Config. Tracer, Meter and NewMetrics always work: before Start,
// or with export disabled, they resolve to the global no-op providers.
//
//	metrics, err := observability.NewMetrics(observability.Meter())
//	ctx, span := observability.StartSpan(ctx, "users.create")
//	defer span.End()
package observability
