package otel_test

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/crisis-labs/crisisflow/core"
	"github.com/crisis-labs/crisisflow/executor"
	flowotel "github.com/crisis-labs/crisisflow/otel"
)

// newTestMeter returns a meter backed by a manual reader for collecting
// metrics in tests.
func newTestMeter() (*metric.ManualReader, *metric.MeterProvider) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return reader, mp
}

func collectMetrics(t *testing.T, reader *metric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64] data, got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsHandlerNodeFinished(t *testing.T) {
	reader, mp := newTestMeter()
	h, err := flowotel.NewMetricsHandler(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsHandler: %v", err)
	}

	now := time.Now()
	h.Handle(executor.Event{
		Kind:     executor.EventNodeFinished,
		RunID:    "run-1",
		NodeID:   "n-supply",
		NodeType: core.NodeTypeSupplyAgent,
		Time:     now,
		Elapsed:  150 * time.Millisecond,
	})
	h.Handle(executor.Event{
		Kind:     executor.EventNodeFinished,
		RunID:    "run-1",
		NodeID:   "n-finance",
		NodeType: core.NodeTypeFinanceAgent,
		Time:     now,
		Elapsed:  50 * time.Millisecond,
	})

	rm := collectMetrics(t, reader)

	exec := findMetric(rm, "crisisflow.node.executions")
	if exec == nil {
		t.Fatal("crisisflow.node.executions metric not found")
	}
	sum, ok := exec.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64] data, got %T", exec.Data)
	}
	if len(sum.DataPoints) != 2 {
		t.Fatalf("expected 2 data points, got %d", len(sum.DataPoints))
	}
	if sumValue(t, exec) != 2 {
		t.Errorf("executions total: %d", sumValue(t, exec))
	}

	dur := findMetric(rm, "crisisflow.node.duration")
	if dur == nil {
		t.Fatal("crisisflow.node.duration metric not found")
	}
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64] data, got %T", dur.Data)
	}
	if len(hist.DataPoints) != 2 {
		t.Errorf("expected 2 histogram points, got %d", len(hist.DataPoints))
	}
}

func TestMetricsHandlerNodeFailed(t *testing.T) {
	reader, mp := newTestMeter()
	h, err := flowotel.NewMetricsHandler(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsHandler: %v", err)
	}

	h.Handle(executor.Event{
		Kind:     executor.EventNodeFailed,
		RunID:    "run-1",
		NodeID:   "n-log",
		NodeType: core.NodeTypeLogisticsAgent,
	})

	rm := collectMetrics(t, reader)
	fail := findMetric(rm, "crisisflow.node.failures")
	if fail == nil {
		t.Fatal("crisisflow.node.failures metric not found")
	}
	if sumValue(t, fail) != 1 {
		t.Errorf("failures total: %d", sumValue(t, fail))
	}
	if exec := findMetric(rm, "crisisflow.node.executions"); exec != nil && sumValue(t, exec) != 0 {
		t.Error("a failed node must not count as an execution")
	}
}

func TestMetricsHandlerAdvisoryFallbacks(t *testing.T) {
	reader, mp := newTestMeter()
	h, err := flowotel.NewMetricsHandler(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsHandler: %v", err)
	}

	h.Handle(executor.Event{
		Kind:    executor.EventAdvisoryCall,
		RunID:   "run-1",
		NodeID:  "n-bdi",
		Payload: map[string]any{"operation": "plan"},
	})
	h.Handle(executor.Event{
		Kind:    executor.EventAdvisoryResult,
		RunID:   "run-1",
		NodeID:  "n-bdi",
		Payload: map[string]any{"operation": "plan", "fallback": true},
	})
	h.Handle(executor.Event{
		Kind:    executor.EventAdvisoryCall,
		RunID:   "run-1",
		NodeID:  "n-bdi",
		Payload: map[string]any{"operation": "summarize"},
	})
	h.Handle(executor.Event{
		Kind:    executor.EventAdvisoryResult,
		RunID:   "run-1",
		NodeID:  "n-bdi",
		Payload: map[string]any{"operation": "summarize"},
	})

	rm := collectMetrics(t, reader)

	calls := findMetric(rm, "crisisflow.advisory.calls")
	if calls == nil {
		t.Fatal("crisisflow.advisory.calls metric not found")
	}
	if sumValue(t, calls) != 2 {
		t.Errorf("calls total: %d", sumValue(t, calls))
	}

	fallbacks := findMetric(rm, "crisisflow.advisory.fallbacks")
	if fallbacks == nil {
		t.Fatal("crisisflow.advisory.fallbacks metric not found")
	}
	if sumValue(t, fallbacks) != 1 {
		t.Errorf("fallbacks total: %d", sumValue(t, fallbacks))
	}
}

func TestMetricsHandlerRunDuration(t *testing.T) {
	reader, mp := newTestMeter()
	h, err := flowotel.NewMetricsHandler(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsHandler: %v", err)
	}

	h.Handle(executor.Event{
		Kind:    executor.EventRunFinished,
		RunID:   "run-1",
		Elapsed: 2 * time.Second,
		Payload: map[string]any{"status": "completed"},
	})

	rm := collectMetrics(t, reader)
	dur := findMetric(rm, "crisisflow.run.duration")
	if dur == nil {
		t.Fatal("crisisflow.run.duration metric not found")
	}
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64] data, got %T", dur.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Sum != 2 {
		t.Errorf("histogram points: %+v", hist.DataPoints)
	}
}
