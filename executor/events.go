// Package executor runs stored pipeline graphs: it orders nodes
// topologically, dispatches each node to its typed handler over a shared
// case state, and records the per-node execution trace.
package executor

import (
	"sync/atomic"
	"time"

	"github.com/crisis-labs/crisisflow/core"
)

// EventKind identifies the type of event emitted during a run.
type EventKind string

const (
	// EventRunStarted is emitted when a pipeline run begins.
	EventRunStarted EventKind = "run.started"

	// EventNodeStarted is emitted when a node begins execution.
	EventNodeStarted EventKind = "node.started"

	// EventNodeFinished is emitted when a node completes successfully.
	EventNodeFinished EventKind = "node.finished"

	// EventNodeFailed is emitted when a node handler errors.
	EventNodeFailed EventKind = "node.failed"

	// EventAdvisoryCall is emitted before an advisory service call.
	EventAdvisoryCall EventKind = "advisory.call"

	// EventAdvisoryResult is emitted after an advisory service call,
	// including degraded outcomes that triggered a fallback.
	EventAdvisoryResult EventKind = "advisory.result"

	// EventRunFinished is emitted when a pipeline run completes.
	EventRunFinished EventKind = "run.finished"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Event is a structured record of what happened during a run.
// Events stay small; the full outputs live on the ExecutionResults.
type Event struct {
	// Kind identifies the event type.
	Kind EventKind

	// RunID is the unique identifier for this run.
	RunID string

	// PipelineID identifies the executed pipeline.
	PipelineID string

	// NodeID is the node that produced the event (empty for run-level events).
	NodeID string

	// NodeType is the parsed type of the node (empty for run-level events).
	NodeType core.NodeType

	// Time is when the event occurred.
	Time time.Time

	// Elapsed is the duration since the run or node started.
	Elapsed time.Duration

	// Payload contains event-specific data.
	Payload map[string]any

	// Seq is a monotonic sequence number per run (1-indexed).
	Seq uint64

	// TraceID and SpanID carry OpenTelemetry correlation ids when a
	// tracing handler is active. Empty otherwise.
	TraceID string
	SpanID  string
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(kind EventKind, runID string) Event {
	return Event{
		Kind:    kind,
		RunID:   runID,
		Time:    time.Now(),
		Payload: make(map[string]any),
	}
}

// WithNode sets the node information on the event.
func (e Event) WithNode(nodeID string, nodeType core.NodeType) Event {
	e.NodeID = nodeID
	e.NodeType = nodeType
	return e
}

// WithElapsed sets the elapsed duration on the event.
func (e Event) WithElapsed(elapsed time.Duration) Event {
	e.Elapsed = elapsed
	return e
}

// WithPayload adds a key-value pair to the event payload.
func (e Event) WithPayload(key string, value any) Event {
	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	e.Payload[key] = value
	return e
}

// EventHandler receives events during execution.
// Implementations can log, store, or forward events as needed.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

// seqGen produces monotonically increasing sequence numbers for one run.
type seqGen struct {
	counter atomic.Uint64
}

// Next returns the next sequence number (1-indexed).
func (s *seqGen) Next() uint64 {
	return s.counter.Add(1)
}
