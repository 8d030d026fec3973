package checkoutlog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// TraceInfo holds the OTel identifiers extracted from a context.
type TraceInfo struct {
	TraceID string
	SpanID  string
}

// ExtractTraceInfo reads the active span from ctx and returns its
// trace_id and span_id as hex strings. Both fields are empty when the
// context carries no valid span (e.g. in unit tests).
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// NewEntry builds an Entry with trace info extracted from ctx.
func NewEntry(ctx context.Context, sessionID, from, to, reason string) *Entry {
	ti := ExtractTraceInfo(ctx)
	return &Entry{
		SessionID: sessionID,
		From:      from,
		To:        to,
		Reason:    reason,
		TraceID:   ti.TraceID,
		SpanID:    ti.SpanID,
		At:        time.Now().UTC(),
	}
}
