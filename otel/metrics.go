package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/crisis-labs/crisisflow/executor"
)

// MetricsHandler translates execution events into OpenTelemetry metrics.
// It records counters and histograms for node executions, failures,
// advisory fallbacks, and run durations.
type MetricsHandler struct {
	nodeExecutions    metric.Int64Counter
	nodeFailures      metric.Int64Counter
	advisoryCalls     metric.Int64Counter
	advisoryFallbacks metric.Int64Counter
	nodeDuration      metric.Float64Histogram
	runDuration       metric.Float64Histogram
}

// NewMetricsHandler creates a MetricsHandler that uses the given meter to
// create instruments for recording pipeline execution metrics.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	nodeExec, err := meter.Int64Counter("crisisflow.node.executions",
		metric.WithDescription("Number of node executions"),
	)
	if err != nil {
		return nil, err
	}

	nodeFail, err := meter.Int64Counter("crisisflow.node.failures",
		metric.WithDescription("Number of node failures"),
	)
	if err != nil {
		return nil, err
	}

	advCalls, err := meter.Int64Counter("crisisflow.advisory.calls",
		metric.WithDescription("Number of advisory language service calls"),
	)
	if err != nil {
		return nil, err
	}

	advFallbacks, err := meter.Int64Counter("crisisflow.advisory.fallbacks",
		metric.WithDescription("Number of advisory calls that ended in a deterministic fallback"),
	)
	if err != nil {
		return nil, err
	}

	nodeDur, err := meter.Float64Histogram("crisisflow.node.duration",
		metric.WithDescription("Duration of node execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runDur, err := meter.Float64Histogram("crisisflow.run.duration",
		metric.WithDescription("Duration of pipeline run in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		nodeExecutions:    nodeExec,
		nodeFailures:      nodeFail,
		advisoryCalls:     advCalls,
		advisoryFallbacks: advFallbacks,
		nodeDuration:      nodeDur,
		runDuration:       runDur,
	}, nil
}

// Handle processes an execution event and records the appropriate
// metrics. It satisfies executor.EventHandler.
func (h *MetricsHandler) Handle(e executor.Event) {
	switch e.Kind {
	case executor.EventNodeFinished:
		h.handleNodeFinished(e)
	case executor.EventNodeFailed:
		h.handleNodeFailed(e)
	case executor.EventAdvisoryCall:
		h.handleAdvisoryCall(e)
	case executor.EventAdvisoryResult:
		h.handleAdvisoryResult(e)
	case executor.EventRunFinished:
		h.handleRunFinished(e)
	}
}

// handleNodeFinished increments the execution counter and records duration.
func (h *MetricsHandler) handleNodeFinished(e executor.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("node_type", string(e.NodeType)),
		attribute.String("node_id", e.NodeID),
	)
	h.nodeExecutions.Add(ctx, 1, attrs)
	h.nodeDuration.Record(ctx, e.Elapsed.Seconds(), attrs)
}

// handleNodeFailed increments the failure counter.
func (h *MetricsHandler) handleNodeFailed(e executor.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("node_type", string(e.NodeType)),
		attribute.String("node_id", e.NodeID),
	)
	h.nodeFailures.Add(ctx, 1, attrs)
}

// handleAdvisoryCall counts advisory service calls per operation.
func (h *MetricsHandler) handleAdvisoryCall(e executor.Event) {
	h.advisoryCalls.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("operation", payloadString(e, "operation")),
	))
}

// handleAdvisoryResult counts the degraded outcomes.
func (h *MetricsHandler) handleAdvisoryResult(e executor.Event) {
	fallback, _ := e.Payload["fallback"].(bool)
	if !fallback {
		return
	}
	h.advisoryFallbacks.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("operation", payloadString(e, "operation")),
	))
}

// handleRunFinished records the pipeline run duration.
func (h *MetricsHandler) handleRunFinished(e executor.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("run_id", e.RunID),
	)
	h.runDuration.Record(ctx, e.Elapsed.Seconds(), attrs)
}

func payloadString(e executor.Event, key string) string {
	s, _ := e.Payload[key].(string)
	return s
}
