// Package crisisflow executes supply-chain crisis pipelines: stored node
// graphs are ordered topologically and dispatched to typed handlers that
// share one case state, with deterministic agent scoring and an optional
// BDI crisis manager backed by an advisory language service.
//
// This file re-exports the types and constructors most callers need.
// For clearer dependencies, import the subpackages directly:
//
//	import "github.com/crisis-labs/crisisflow/core"
//	import "github.com/crisis-labs/crisisflow/executor"
//	import "github.com/crisis-labs/crisisflow/store"
//	import "github.com/crisis-labs/crisisflow/loader"
package crisisflow

import (
	"github.com/crisis-labs/crisisflow/advisory"
	"github.com/crisis-labs/crisisflow/core"
	"github.com/crisis-labs/crisisflow/executor"
	"github.com/crisis-labs/crisisflow/loader"
	"github.com/crisis-labs/crisisflow/store"
)

// Core type aliases.
type (
	// NodeType identifies the dispatch type of a pipeline node.
	NodeType = core.NodeType

	// Node is one stored node of a pipeline version.
	Node = core.Node

	// Edge is a directed dependency link between two nodes.
	Edge = core.Edge

	// OrderContext is the shared belief state of the simulated crisis order.
	OrderContext = core.OrderContext

	// ExecutionResult is the per-node trace record of one run.
	ExecutionResult = core.ExecutionResult

	// ExecutionResponse is the full outcome of one pipeline run.
	ExecutionResponse = core.ExecutionResponse
)

// Executor type aliases.
type (
	// Executor runs stored pipeline graphs.
	Executor = executor.Executor

	// Event is a structured record of what happened during a run.
	Event = executor.Event

	// EventHandler receives events during execution.
	EventHandler = executor.EventHandler
)

// Store type aliases.
type (
	// GraphStore loads stored pipeline graphs for execution.
	GraphStore = store.GraphStore

	// MemStore is the in-memory graph store.
	MemStore = store.MemStore

	// SQLiteStore is the SQLite-backed graph store.
	SQLiteStore = store.SQLiteStore
)

// Node type constants.
const (
	NodeTypeInput           = core.NodeTypeInput
	NodeTypePriority        = core.NodeTypePriority
	NodeTypeSupplyAgent     = core.NodeTypeSupplyAgent
	NodeTypeLogisticsAgent  = core.NodeTypeLogisticsAgent
	NodeTypeFinanceAgent    = core.NodeTypeFinanceAgent
	NodeTypeCustomerService = core.NodeTypeCustomerService
	NodeTypeConsensus       = core.NodeTypeConsensus
	NodeTypeBDICrisis       = core.NodeTypeBDICrisis
	NodeTypeAction          = core.NodeTypeAction
	NodeTypeOutputResponse  = core.NodeTypeOutputResponse
)

// NewExecutor creates an executor over the given graph store.
func NewExecutor(graphs store.GraphStore, opts ...executor.Option) *Executor {
	return executor.New(graphs, opts...)
}

// NewMemStore creates an empty in-memory graph store.
func NewMemStore() *MemStore {
	return store.NewMemStore()
}

// NewAdvisoryClient creates an iris-backed advisory client.
func NewAdvisoryClient(cfg advisory.ClientConfig) (*advisory.Client, error) {
	return advisory.NewClient(cfg)
}

// LoadDefinition reads and validates a pipeline definition file.
func LoadDefinition(path string) (*loader.Definition, error) {
	return loader.Load(path)
}
