package store

import (
	"context"
	"sync"

	"github.com/crisis-labs/crisisflow/core"
)

// MemStore is a thread-safe in-memory GraphStore and ToolRegistry.
// It backs tests and single-shot CLI runs where no database is configured.
type MemStore struct {
	mu        sync.RWMutex
	pipelines map[string]Pipeline
	versions  map[string][]PipelineVersion // pipelineID -> versions
	nodes     map[string][]core.Node       // versionID -> nodes
	edges     map[string][]core.Edge       // versionID -> edges
	tools     map[string]Tool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		pipelines: make(map[string]Pipeline),
		versions:  make(map[string][]PipelineVersion),
		nodes:     make(map[string][]core.Node),
		edges:     make(map[string][]core.Edge),
		tools:     make(map[string]Tool),
	}
}

// PutPipeline stores a pipeline record.
func (s *MemStore) PutPipeline(p Pipeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelines[p.ID] = p
}

// PutVersion appends a version to its pipeline.
func (s *MemStore) PutVersion(v PipelineVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[v.PipelineID] = append(s.versions[v.PipelineID], v)
}

// PutNodes sets the node list of a version. Insertion order is preserved;
// the scheduler relies on it for tie-breaking.
func (s *MemStore) PutNodes(versionID string, nodes []core.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[versionID] = append([]core.Node(nil), nodes...)
}

// PutEdges sets the edge list of a version.
func (s *MemStore) PutEdges(versionID string, edges []core.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[versionID] = append([]core.Edge(nil), edges...)
}

// PutTool registers tool metadata.
func (s *MemStore) PutTool(t Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[t.ID] = t
}

// CreatePipeline implements GraphWriter.
func (s *MemStore) CreatePipeline(_ context.Context, p Pipeline) error {
	s.PutPipeline(p)
	return nil
}

// CreateVersion implements GraphWriter.
func (s *MemStore) CreateVersion(_ context.Context, v PipelineVersion, nodes []core.Node, edges []core.Edge) error {
	s.PutVersion(v)
	s.PutNodes(v.ID, nodes)
	s.PutEdges(v.ID, edges)
	return nil
}

// RegisterTool implements GraphWriter.
func (s *MemStore) RegisterTool(_ context.Context, t Tool) error {
	s.PutTool(t)
	return nil
}

func (s *MemStore) GetPipeline(_ context.Context, id string) (Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pipelines[id]
	if !ok {
		return Pipeline{}, ErrNotFound
	}
	return p, nil
}

func (s *MemStore) GetLatestVersion(_ context.Context, pipelineID string) (PipelineVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.versions[pipelineID]
	if len(versions) == 0 {
		return PipelineVersion{}, ErrNotFound
	}
	latest := versions[0]
	for _, v := range versions[1:] {
		if v.Version > latest.Version {
			latest = v
		}
	}
	return latest, nil
}

func (s *MemStore) ListNodes(_ context.Context, versionID string) ([]core.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Node(nil), s.nodes[versionID]...), nil
}

func (s *MemStore) ListEdges(_ context.Context, versionID string) ([]core.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Edge(nil), s.edges[versionID]...), nil
}

func (s *MemStore) GetTool(_ context.Context, id string) (Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[id]
	if !ok {
		return Tool{}, ErrNotFound
	}
	return t, nil
}

// Compile-time interface checks.
var (
	_ GraphStore   = (*MemStore)(nil)
	_ ToolRegistry = (*MemStore)(nil)
	_ GraphWriter  = (*MemStore)(nil)
)
