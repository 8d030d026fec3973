// Package checkoutlog defines the append-only audit trail of checkout
// state transitions.
//
// Each entry records one transition of a session's checkout flow together
// with the OpenTelemetry trace identifiers active at the time, so a stuck
// or failed checkout can be joined with its distributed trace. The log is
// diagnostics only: the flow never reads it back to make decisions.
package checkoutlog

import "time"

// Entry is a single row in the checkout_transitions table.
type Entry struct {
	// SessionID identifies the storefront session the transition
	// belongs to.
	SessionID string

	// From and To are the checkout states on either side of the
	// transition.
	From string
	To   string

	// Reason carries failure details for transitions into Failed, or
	// the refusal reason for rejected transitions. Empty otherwise.
	Reason string

	// TraceID is the W3C trace ID (32 hex chars) of the active OTel
	// span, empty when no span was recording.
	TraceID string

	// SpanID pinpoints the span within the trace (16 hex chars).
	SpanID string

	// At is the wall-clock time of the transition.
	At time.Time
}
