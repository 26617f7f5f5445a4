// Package otel provides OpenTelemetry integration for pipeline execution
// events: spans per run and node, counters and histograms for executions,
// failures and advisory fallbacks.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/crisis-labs/crisisflow/executor"
)

// TracingHandler translates execution events into OpenTelemetry spans.
// It maintains maps of active run and node spans, creating and ending
// them based on event kind.
type TracingHandler struct {
	tracer trace.Tracer

	mu        sync.RWMutex
	runSpans  map[string]trace.Span       // runID -> span
	runCtxs   map[string]context.Context  // runID -> context (for child spans)
	nodeSpans map[string]trace.Span       // runID:nodeID -> span
}

// NewTracingHandler creates a TracingHandler that uses the given tracer
// to create spans from execution events.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:    tracer,
		runSpans:  make(map[string]trace.Span),
		runCtxs:   make(map[string]context.Context),
		nodeSpans: make(map[string]trace.Span),
	}
}

// Handle processes an execution event and creates or ends spans
// accordingly. It satisfies executor.EventHandler.
func (h *TracingHandler) Handle(e executor.Event) {
	switch e.Kind {
	case executor.EventRunStarted:
		h.handleRunStarted(e)
	case executor.EventNodeStarted:
		h.handleNodeStarted(e)
	case executor.EventNodeFinished:
		h.handleNodeFinished(e)
	case executor.EventNodeFailed:
		h.handleNodeFailed(e)
	case executor.EventAdvisoryCall, executor.EventAdvisoryResult:
		h.handleAdvisoryEvent(e)
	case executor.EventRunFinished:
		h.handleRunFinished(e)
	}
}

// handleRunStarted creates a root span for the run.
func (h *TracingHandler) handleRunStarted(e executor.Event) {
	spanName := "run:" + e.RunID
	if e.PipelineID != "" {
		spanName = "run:" + e.PipelineID
	}

	ctx, span := h.tracer.Start(context.Background(), spanName,
		trace.WithAttributes(
			attribute.String("crisisflow.run_id", e.RunID),
		),
		trace.WithTimestamp(e.Time),
	)

	if e.PipelineID != "" {
		span.SetAttributes(attribute.String("crisisflow.pipeline", e.PipelineID))
	}

	h.mu.Lock()
	h.runSpans[e.RunID] = span
	h.runCtxs[e.RunID] = ctx
	h.mu.Unlock()
}

// handleNodeStarted creates a child span under the run span.
func (h *TracingHandler) handleNodeStarted(e executor.Event) {
	h.mu.RLock()
	parentCtx, ok := h.runCtxs[e.RunID]
	h.mu.RUnlock()

	if !ok {
		// No parent run span; start from background context.
		parentCtx = context.Background()
	}

	_, span := h.tracer.Start(parentCtx, "node:"+e.NodeID,
		trace.WithAttributes(
			attribute.String("crisisflow.run_id", e.RunID),
			attribute.String("crisisflow.node_id", e.NodeID),
			attribute.String("crisisflow.node_type", string(e.NodeType)),
		),
		trace.WithTimestamp(e.Time),
	)

	key := e.RunID + ":" + e.NodeID
	h.mu.Lock()
	h.nodeSpans[key] = span
	h.mu.Unlock()
}

// handleNodeFinished ends the node span with success status.
func (h *TracingHandler) handleNodeFinished(e executor.Event) {
	key := e.RunID + ":" + e.NodeID

	h.mu.Lock()
	span, ok := h.nodeSpans[key]
	if ok {
		delete(h.nodeSpans, key)
	}
	h.mu.Unlock()

	if ok {
		span.SetAttributes(
			attribute.String("crisisflow.duration", e.Elapsed.String()),
		)
		span.SetStatus(codes.Ok, "")
		span.End(trace.WithTimestamp(e.Time))
	}
}

// handleNodeFailed ends the node span with error status.
func (h *TracingHandler) handleNodeFailed(e executor.Event) {
	key := e.RunID + ":" + e.NodeID

	h.mu.Lock()
	span, ok := h.nodeSpans[key]
	if ok {
		delete(h.nodeSpans, key)
	}
	h.mu.Unlock()

	if ok {
		errMsg := "unknown error"
		if msg, found := e.Payload["error"]; found {
			if s, ok := msg.(string); ok {
				errMsg = s
			}
		}
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(
			spanError(errMsg),
			trace.WithTimestamp(e.Time),
		)
		span.End(trace.WithTimestamp(e.Time))
	}
}

// handleAdvisoryEvent adds advisory call/result span events onto the
// node span of the crisis manager that issued the call.
func (h *TracingHandler) handleAdvisoryEvent(e executor.Event) {
	key := e.RunID + ":" + e.NodeID

	h.mu.RLock()
	span, ok := h.nodeSpans[key]
	h.mu.RUnlock()

	if !ok {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("crisisflow.event_kind", string(e.Kind)),
	}
	if op, found := e.Payload["operation"]; found {
		if s, ok := op.(string); ok {
			attrs = append(attrs, attribute.String("crisisflow.advisory_op", s))
		}
	}
	if fallback, found := e.Payload["fallback"]; found {
		if b, ok := fallback.(bool); ok {
			attrs = append(attrs, attribute.Bool("crisisflow.advisory_fallback", b))
		}
	}

	span.AddEvent(string(e.Kind), trace.WithTimestamp(e.Time), trace.WithAttributes(attrs...))
}

// handleRunFinished ends the root run span.
func (h *TracingHandler) handleRunFinished(e executor.Event) {
	h.mu.Lock()
	span, ok := h.runSpans[e.RunID]
	if ok {
		delete(h.runSpans, e.RunID)
		delete(h.runCtxs, e.RunID)
	}
	h.mu.Unlock()

	if ok {
		status := ""
		if s, found := e.Payload["status"]; found {
			if str, ok := s.(string); ok {
				status = str
			}
		}

		span.SetAttributes(
			attribute.String("crisisflow.duration", e.Elapsed.String()),
			attribute.String("crisisflow.status", status),
		)

		if status == "failed" {
			span.SetStatus(codes.Error, "run failed")
		} else {
			span.SetStatus(codes.Ok, "")
		}

		span.End(trace.WithTimestamp(e.Time))
	}
}

// ActiveSpanContext returns the SpanContext for the active node span
// identified by runID and nodeID. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActiveSpanContext(runID, nodeID string) trace.SpanContext {
	key := runID + ":" + nodeID

	h.mu.RLock()
	span, ok := h.nodeSpans[key]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// ActiveRunSpanContext returns the SpanContext for the active run span
// identified by runID. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActiveRunSpanContext(runID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.runSpans[runID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// spanError is a simple error type for recording span errors.
type spanError string

func (e spanError) Error() string { return string(e) }
