package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/usersvc/logger"
	"github.com/kbukum/usersvc/observability"
)

type routeKey struct{}

// routeHolder is filled in by CaptureRoute once Gin has matched the request,
// so outer middleware can label spans and metrics by route template.
type routeHolder struct {
	route string
}

func withRouteHolder(r *http.Request) (*http.Request, *routeHolder) {
	if h, ok := r.Context().Value(routeKey{}).(*routeHolder); ok {
		return r, h
	}
	h := &routeHolder{}
	return r.WithContext(context.WithValue(r.Context(), routeKey{}, h)), h
}

// RouteFromContext returns the matched Gin route template, if known.
func RouteFromContext(ctx context.Context) string {
	if h, ok := ctx.Value(routeKey{}).(*routeHolder); ok {
		return h.route
	}
	return ""
}

// CaptureRoute is a Gin middleware that records the matched route template
// for the net/http Tracing, Metrics and RequestLogger middleware.
func CaptureRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h, ok := c.Request.Context().Value(routeKey{}).(*routeHolder); ok {
			h.route = c.FullPath()
		}
		c.Next()
	}
}

// Tracing returns middleware that starts a server span per request, continuing
// any incoming W3C trace context, and exposes trace IDs to the logger.
func Tracing(tracer trace.Tracer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, holder := withRouteHolder(r)
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
				),
			)
			defer span.End()

			if sc := span.SpanContext(); sc.IsValid() {
				ctx = logger.ContextWithTrace(ctx, sc.TraceID().String(), sc.SpanID().String())
			}

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			if holder.route != "" {
				span.SetName(r.Method + " " + holder.route)
				span.SetAttributes(attribute.String("http.route", holder.route))
			}
			span.SetAttributes(attribute.Int("http.response.status_code", sw.status))
			if sw.status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(sw.status))
			}
		})
	}
}

// Metrics returns middleware that records request count, duration and
// in-flight requests.
func Metrics(m *observability.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, holder := withRouteHolder(r)
			start := time.Now()
			m.RecordRequestStart(r.Context())
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			route := holder.route
			if route == "" {
				route = "unmatched"
			}
			m.RecordRequestEnd(r.Context(), r.Method, route, sw.status, time.Since(start))
		})
	}
}
