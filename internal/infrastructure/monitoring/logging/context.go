package logging

import (
	"context"
	"time"
)

// Canonical field keys shared by middleware and services.
const (
	FieldRequestID = "request_id"
	FieldOperation = "operation"
	FieldSMILES    = "smiles"
	FieldDuration  = "duration_ms"
)

type ctxKey struct{}

// WithRequestID stores a request id on ctx for FromContext.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestIDFrom returns the request id stored by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// FromContext returns l with the request id attached when ctx carries one.
func FromContext(ctx context.Context, l Logger) Logger {
	if id := RequestIDFrom(ctx); id != "" {
		return l.With(String(FieldRequestID, id))
	}
	return l
}

// slowOperationThreshold separates info from warn in LogOperationDuration.
const slowOperationThreshold = time.Second

// LogOperationDuration logs how long op has been running since start.
func LogOperationDuration(l Logger, op string, start time.Time, fields ...Field) {
	elapsed := time.Since(start)
	fields = append(fields,
		String(FieldOperation, op),
		Float64(FieldDuration, float64(elapsed.Microseconds())/1000.0),
	)
	if elapsed >= slowOperationThreshold {
		l.Warn("slow operation", fields...)
		return
	}
	l.Info("operation completed", fields...)
}
