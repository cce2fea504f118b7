package logger

import "time"

// Field names shared across the service so log queries stay stable.
const (
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldEmail     = "email"
	FieldDatabase  = "database"
)

// Fields pairs up alternating keys and values. Non-string keys and a
// trailing key without a value are dropped.
//
//	log.Info("Tracer initialized", logger.Fields("exporter", "otlp"))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if k, ok := kvs[i].(string); ok {
			m[k] = kvs[i+1]
		}
	}
	return m
}

// DurationFields records op and its duration in milliseconds.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{FieldOperation: op, FieldDuration: d.Milliseconds()}
}
