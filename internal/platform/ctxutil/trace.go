package ctxutil

import "context"

type traceDataKey struct{}

// TraceData carries the correlation ids minted or propagated by the
// trace middleware.
type TraceData struct {
	TraceID   string
	RequestID string
}

// LogFields renders the non-empty ids as key/value pairs for the
// structured logger.
func (td *TraceData) LogFields() []any {
	if td == nil {
		return nil
	}
	fields := make([]any, 0, 4)
	if td.TraceID != "" {
		fields = append(fields, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		fields = append(fields, "request_id", td.RequestID)
	}
	return fields
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}
