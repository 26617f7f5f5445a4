// Package store defines the persistence collaborators the executor depends
// on: the graph store that holds pipelines, versions, nodes and edges, and
// the registry of tool metadata referenced by node configs. The executor
// only consumes the interfaces; both an in-memory and a SQLite-backed
// implementation live here.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/crisis-labs/crisisflow/core"
)

// ErrNotFound is returned when a pipeline, version or tool does not exist.
// Empty node/edge lists are not an error.
var ErrNotFound = errors.New("not found")

// Pipeline is one stored pipeline.
type Pipeline struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// PipelineVersion is one immutable snapshot of a pipeline's graph.
// Versions are numbered per pipeline; the executor always runs the latest.
type PipelineVersion struct {
	ID         string    `json:"id"`
	PipelineID string    `json:"pipelineId"`
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Tool is registered tool metadata referenced by node configs via toolId.
type Tool struct {
	ID      string         `json:"id"`
	Kind    string         `json:"kind"`
	Name    string         `json:"name"`
	Version string         `json:"version"`
	Config  map[string]any `json:"config,omitempty"`
}

// GraphStore loads stored pipeline graphs for execution.
type GraphStore interface {
	// GetPipeline returns the pipeline, or ErrNotFound.
	GetPipeline(ctx context.Context, id string) (Pipeline, error)

	// GetLatestVersion returns the highest-numbered version of the
	// pipeline, or ErrNotFound when the pipeline has no versions.
	GetLatestVersion(ctx context.Context, pipelineID string) (PipelineVersion, error)

	// ListNodes returns the version's nodes. An unknown version yields an
	// empty list, not an error.
	ListNodes(ctx context.Context, versionID string) ([]core.Node, error)

	// ListEdges returns the version's edges, in insertion order.
	ListEdges(ctx context.Context, versionID string) ([]core.Edge, error)
}

// GraphWriter persists pipelines and their graph versions. The loader
// seeds definitions through it.
type GraphWriter interface {
	// CreatePipeline stores the pipeline record.
	CreatePipeline(ctx context.Context, p Pipeline) error

	// CreateVersion stores one immutable graph snapshot with its nodes
	// and edges, preserving insertion order.
	CreateVersion(ctx context.Context, v PipelineVersion, nodes []core.Node, edges []core.Edge) error

	// RegisterTool stores or replaces tool metadata.
	RegisterTool(ctx context.Context, t Tool) error
}

// ToolRegistry resolves tool metadata by id.
type ToolRegistry interface {
	// GetTool returns the tool, or ErrNotFound.
	GetTool(ctx context.Context, id string) (Tool, error)
}
