// Package loader reads crisis pipeline definitions from JSON or YAML
// files, validates them, and seeds them into a graph store as a new
// pipeline version.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/crisis-labs/crisisflow/core"
	"github.com/crisis-labs/crisisflow/store"
)

// Load reads a pipeline definition file, converting YAML to JSON when the
// extension says so, and validates it. Validation errors come back as a
// *DiagnosticError.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return LoadBytes(data, path)
}

// LoadBytes parses and validates a definition from raw bytes. The path is
// only used to decide between YAML and JSON parsing.
func LoadBytes(data []byte, path string) (*Definition, error) {
	jsonData := data
	if isYAML(path) {
		var err error
		if jsonData, err = yamlToJSON(data); err != nil {
			return nil, err
		}
	}

	var def Definition
	if err := json.Unmarshal(jsonData, &def); err != nil {
		return nil, fmt.Errorf("parsing pipeline definition: %w", err)
	}

	diags := def.Validate()
	if HasErrors(diags) {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	return &def, nil
}

// Seed stores the definition as a pipeline version and returns the
// pipeline and version ids. A new pipeline starts at version 1; when the
// writer already holds the pipeline id, the definition is appended as the
// next version instead. Missing ids are generated; node keys default to
// the node id.
func Seed(ctx context.Context, w store.GraphWriter, def *Definition) (pipelineID, versionID string, err error) {
	pipelineID = def.ID
	if pipelineID == "" {
		pipelineID = uuid.NewString()
	}
	name := def.Name
	if name == "" {
		name = pipelineID
	}

	now := time.Now().UTC()
	version := 1
	exists := false
	if reader, ok := w.(store.GraphStore); ok {
		if _, err := reader.GetPipeline(ctx, pipelineID); err == nil {
			exists = true
			if latest, err := reader.GetLatestVersion(ctx, pipelineID); err == nil {
				version = latest.Version + 1
			}
		}
	}

	if !exists {
		if err := w.CreatePipeline(ctx, store.Pipeline{
			ID:        pipelineID,
			Name:      name,
			CreatedAt: now,
		}); err != nil {
			return "", "", fmt.Errorf("creating pipeline %s: %w", pipelineID, err)
		}
	}

	nodes := make([]core.Node, 0, len(def.Nodes))
	for _, n := range def.Nodes {
		key := n.Key
		if key == "" {
			key = n.ID
		}
		nodes = append(nodes, core.Node{
			ID:       n.ID,
			Key:      key,
			Type:     n.Type,
			Label:    n.Label,
			Category: n.Category,
			Config:   n.Config,
		})
	}
	edges := make([]core.Edge, 0, len(def.Edges))
	for _, e := range def.Edges {
		edges = append(edges, core.Edge{
			FromNode: e.From,
			ToNode:   e.To,
			Label:    e.Label,
		})
	}

	versionID = uuid.NewString()
	record := store.PipelineVersion{
		ID:         versionID,
		PipelineID: pipelineID,
		Version:    version,
		CreatedAt:  now,
	}
	if err := w.CreateVersion(ctx, record, nodes, edges); err != nil {
		return "", "", fmt.Errorf("creating version for pipeline %s: %w", pipelineID, err)
	}
	return pipelineID, versionID, nil
}

// isYAML returns true if the file path has a YAML extension.
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// yamlToJSON converts raw YAML bytes to JSON bytes so the typed structs
// only ever unmarshal from one format.
func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	normalized := normalizeYAML(raw)
	out, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("converting YAML to JSON: %w", err)
	}
	return out, nil
}

// normalizeYAML converts YAML's map[any]any keys to strings recursively.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return val
	}
}
