package otel

import (
	"github.com/crisis-labs/crisisflow/executor"
)

// EnrichHandler wraps an EventHandler with OpenTelemetry trace context.
// Before the event is passed on, it looks up the active span from the
// TracingHandler and populates the TraceID and SpanID fields.
//
// For node-level events (where NodeID is set), the node span is checked
// first. If no node span is found, it falls back to the run-level span.
// When no span is active, the event passes through unchanged.
func EnrichHandler(next executor.EventHandler, tracing *TracingHandler) executor.EventHandler {
	return func(e executor.Event) {
		if e.NodeID != "" {
			sc := tracing.ActiveSpanContext(e.RunID, e.NodeID)
			if sc.IsValid() {
				e.TraceID = sc.TraceID().String()
				e.SpanID = sc.SpanID().String()
			}
		}
		if e.TraceID == "" && e.RunID != "" {
			sc := tracing.ActiveRunSpanContext(e.RunID)
			if sc.IsValid() {
				e.TraceID = sc.TraceID().String()
				e.SpanID = sc.SpanID().String()
			}
		}
		next(e)
	}
}
