package context

import "context"

// RequestTrace identifies the request and the span an operation runs under.
// It is attached once per HTTP request and read by the logger and the error
// renderer.
type RequestTrace struct {
	RequestID string
	TraceID   string
	SpanID    string
}

type requestTraceKey struct{}

// WithRequestTrace attaches rt to ctx.
func WithRequestTrace(ctx context.Context, rt RequestTrace) context.Context {
	return context.WithValue(ctx, requestTraceKey{}, rt)
}

// RequestTraceFrom returns the trace attached to ctx, if any.
func RequestTraceFrom(ctx context.Context) (RequestTrace, bool) {
	rt, ok := ctx.Value(requestTraceKey{}).(RequestTrace)
	return rt, ok
}

// LogFields returns the non-empty ids as logger key-value pairs.
func (rt RequestTrace) LogFields() []any {
	fields := make([]any, 0, 6)
	if rt.RequestID != "" {
		fields = append(fields, "request_id", rt.RequestID)
	}
	if rt.TraceID != "" {
		fields = append(fields, "trace_id", rt.TraceID, "span_id", rt.SpanID)
	}
	return fields
}
