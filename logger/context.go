package logger

import "context"

type ctxKey int

const (
	keyRequestID ctxKey = iota
	keyTraceID
	keySpanID
	keyUserID
)

// ctxFields maps each context key to the log field WithContext writes.
var ctxFields = []struct {
	key   ctxKey
	field string
}{
	{keyRequestID, FieldRequestID},
	{keyTraceID, FieldTraceID},
	{keySpanID, FieldSpanID},
	{keyUserID, FieldUserID},
}

// ContextWithRequestID stores the request ID for WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// ContextWithTrace stores the active trace and span IDs for WithContext.
func ContextWithTrace(ctx context.Context, traceID, spanID string) context.Context {
	return context.WithValue(context.WithValue(ctx, keyTraceID, traceID), keySpanID, spanID)
}

// ContextWithUserID stores the authenticated user for WithContext.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

// RequestIDFromContext returns the ID stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(keyRequestID).(string)
	return id
}

// WithContext copies whichever request, trace, span and user IDs ctx
// carries onto the returned logger.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.logger.With()
	for _, f := range ctxFields {
		if v, ok := ctx.Value(f.key).(string); ok && v != "" {
			zc = zc.Str(f.field, v)
		}
	}
	return l.derive(zc.Logger())
}
