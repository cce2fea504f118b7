// Package server provides the HTTP server: a Gin engine served over
// HTTP/1.1 and h2c, wrapped in net/http middleware, with lifecycle
// management through the component package.
//
// # Middleware
//
// ApplyMiddleware installs, outermost first:
//
//   - Recovery: panic recovery returning the JSON error envelope
//   - RequestID: X-Request-Id generation and propagation
//   - Tracing: one OpenTelemetry server span per request
//   - Metrics: request count, duration and in-flight gauge
//   - CORS: origin allow-list and preflight handling
//   - BodySizeLimit: request body cap
//   - RequestLogger: one log line per request
//
// Auth and RequirePermission are Gin middleware applied per route group.
//
// # Endpoints
//
// RegisterDefaultEndpoints mounts /health, /alive, /ready and /info.
package server
