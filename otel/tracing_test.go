package otel_test

import (
	"testing"
	"time"

	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/crisis-labs/crisisflow/core"
	"github.com/crisis-labs/crisisflow/executor"
	flowotel "github.com/crisis-labs/crisisflow/otel"
)

// newTestTracer returns a tracer backed by an in-memory span exporter.
func newTestTracer() (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	return exporter, tp
}

func TestTracingHandlerRunStartedCreatesRootSpan(t *testing.T) {
	exporter, tp := newTestTracer()
	h := flowotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(executor.Event{
		Kind:       executor.EventRunStarted,
		RunID:      "run-1",
		PipelineID: "crisis-demo",
		Time:       now,
	})

	if sc := h.ActiveRunSpanContext("run-1"); !sc.IsValid() {
		t.Fatal("expected valid run span context after run.started")
	}

	h.Handle(executor.Event{
		Kind:    executor.EventRunFinished,
		RunID:   "run-1",
		Time:    now.Add(100 * time.Millisecond),
		Elapsed: 100 * time.Millisecond,
		Payload: map[string]any{"status": "completed"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	runSpan := spans[0]
	if runSpan.Name != "run:crisis-demo" {
		t.Errorf("span name: got %q, want run:crisis-demo", runSpan.Name)
	}

	foundRun, foundPipeline := false, false
	for _, attr := range runSpan.Attributes {
		switch string(attr.Key) {
		case "crisisflow.run_id":
			foundRun = attr.Value.AsString() == "run-1"
		case "crisisflow.pipeline":
			foundPipeline = attr.Value.AsString() == "crisis-demo"
		}
	}
	if !foundRun {
		t.Error("missing crisisflow.run_id attribute on run span")
	}
	if !foundPipeline {
		t.Error("missing crisisflow.pipeline attribute on run span")
	}
	if runSpan.Status.Code != otelcodes.Ok {
		t.Errorf("status: got %v, want Ok", runSpan.Status.Code)
	}
}

func TestTracingHandlerRunStartedUsesRunIDWithoutPipeline(t *testing.T) {
	exporter, tp := newTestTracer()
	h := flowotel.NewTracingHandler(tp.Tracer("test"))

	h.Handle(executor.Event{Kind: executor.EventRunStarted, RunID: "run-2", Time: time.Now()})
	h.Handle(executor.Event{Kind: executor.EventRunFinished, RunID: "run-2", Time: time.Now()})

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "run:run-2" {
		t.Fatalf("spans: %+v", spans)
	}
}

func TestTracingHandlerNodeSpanNestsUnderRun(t *testing.T) {
	exporter, tp := newTestTracer()
	h := flowotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(executor.Event{Kind: executor.EventRunStarted, RunID: "run-1", PipelineID: "p1", Time: now})
	h.Handle(executor.Event{
		Kind:     executor.EventNodeStarted,
		RunID:    "run-1",
		NodeID:   "n-supply",
		NodeType: core.NodeTypeSupplyAgent,
		Time:     now,
	})

	runSC := h.ActiveRunSpanContext("run-1")
	nodeSC := h.ActiveSpanContext("run-1", "n-supply")
	if !nodeSC.IsValid() {
		t.Fatal("expected valid node span context")
	}
	if nodeSC.TraceID() != runSC.TraceID() {
		t.Error("node span should share the run span's trace")
	}

	h.Handle(executor.Event{
		Kind:    executor.EventNodeFinished,
		RunID:   "run-1",
		NodeID:  "n-supply",
		Time:    now.Add(10 * time.Millisecond),
		Elapsed: 10 * time.Millisecond,
	})
	h.Handle(executor.Event{
		Kind:    executor.EventRunFinished,
		RunID:   "run-1",
		Time:    now.Add(20 * time.Millisecond),
		Payload: map[string]any{"status": "completed"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	// The node span ends first, so it is exported first.
	nodeSpan := spans[0]
	if nodeSpan.Name != "node:n-supply" {
		t.Errorf("node span name: %q", nodeSpan.Name)
	}
	if nodeSpan.Parent.SpanID() != runSC.SpanID() {
		t.Error("node span parent should be the run span")
	}
	foundType := false
	for _, attr := range nodeSpan.Attributes {
		if string(attr.Key) == "crisisflow.node_type" && attr.Value.AsString() == "supply_agent" {
			foundType = true
		}
	}
	if !foundType {
		t.Error("missing crisisflow.node_type attribute on node span")
	}
}

func TestTracingHandlerNodeFailedRecordsError(t *testing.T) {
	exporter, tp := newTestTracer()
	h := flowotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(executor.Event{Kind: executor.EventRunStarted, RunID: "run-1", Time: now})
	h.Handle(executor.Event{Kind: executor.EventNodeStarted, RunID: "run-1", NodeID: "n-log", Time: now})
	h.Handle(executor.Event{
		Kind:    executor.EventNodeFailed,
		RunID:   "run-1",
		NodeID:  "n-log",
		Time:    now.Add(time.Millisecond),
		Payload: map[string]any{"error": "no alternative suppliers available"},
	})
	h.Handle(executor.Event{
		Kind:    executor.EventRunFinished,
		RunID:   "run-1",
		Time:    now.Add(2 * time.Millisecond),
		Payload: map[string]any{"status": "failed"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	nodeSpan := spans[0]
	if nodeSpan.Status.Code != otelcodes.Error {
		t.Errorf("node status: got %v, want Error", nodeSpan.Status.Code)
	}
	if nodeSpan.Status.Description != "no alternative suppliers available" {
		t.Errorf("status description: %q", nodeSpan.Status.Description)
	}
	if len(nodeSpan.Events) == 0 {
		t.Error("expected a recorded error event on the node span")
	}

	runSpan := spans[1]
	if runSpan.Status.Code != otelcodes.Error {
		t.Errorf("run status: got %v, want Error", runSpan.Status.Code)
	}
}

func TestTracingHandlerAdvisoryEventsAttachToNodeSpan(t *testing.T) {
	exporter, tp := newTestTracer()
	h := flowotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(executor.Event{Kind: executor.EventRunStarted, RunID: "run-1", Time: now})
	h.Handle(executor.Event{
		Kind:     executor.EventNodeStarted,
		RunID:    "run-1",
		NodeID:   "n-bdi",
		NodeType: core.NodeTypeBDICrisis,
		Time:     now,
	})
	h.Handle(executor.Event{
		Kind:    executor.EventAdvisoryCall,
		RunID:   "run-1",
		NodeID:  "n-bdi",
		Time:    now,
		Payload: map[string]any{"operation": "plan"},
	})
	h.Handle(executor.Event{
		Kind:    executor.EventAdvisoryResult,
		RunID:   "run-1",
		NodeID:  "n-bdi",
		Time:    now,
		Payload: map[string]any{"operation": "plan", "fallback": true},
	})
	h.Handle(executor.Event{Kind: executor.EventNodeFinished, RunID: "run-1", NodeID: "n-bdi", Time: now})
	h.Handle(executor.Event{
		Kind: executor.EventRunFinished, RunID: "run-1", Time: now,
		Payload: map[string]any{"status": "completed"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	nodeSpan := spans[0]
	if len(nodeSpan.Events) != 2 {
		t.Fatalf("expected 2 span events, got %d", len(nodeSpan.Events))
	}
	if nodeSpan.Events[0].Name != "advisory.call" || nodeSpan.Events[1].Name != "advisory.result" {
		t.Errorf("event names: %q, %q", nodeSpan.Events[0].Name, nodeSpan.Events[1].Name)
	}
	foundFallback := false
	for _, attr := range nodeSpan.Events[1].Attributes {
		if string(attr.Key) == "crisisflow.advisory_fallback" && attr.Value.AsBool() {
			foundFallback = true
		}
	}
	if !foundFallback {
		t.Error("missing crisisflow.advisory_fallback attribute on result event")
	}
}

func TestTracingHandlerUnknownRunIsIgnored(t *testing.T) {
	exporter, tp := newTestTracer()
	h := flowotel.NewTracingHandler(tp.Tracer("test"))

	h.Handle(executor.Event{Kind: executor.EventNodeFinished, RunID: "ghost", NodeID: "n"})
	h.Handle(executor.Event{Kind: executor.EventRunFinished, RunID: "ghost"})

	if got := len(exporter.GetSpans()); got != 0 {
		t.Errorf("expected no spans, got %d", got)
	}
	if sc := h.ActiveRunSpanContext("ghost"); sc.IsValid() {
		t.Error("expected invalid span context for unknown run")
	}
}
