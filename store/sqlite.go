package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crisis-labs/crisisflow/core"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pipelines (
	id TEXT PRIMARY KEY,
	project_id TEXT,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pipeline_versions (
	id TEXT PRIMARY KEY,
	pipeline_id TEXT NOT NULL,
	version INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	FOREIGN KEY(pipeline_id) REFERENCES pipelines(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_pipeline_versions_pipeline
ON pipeline_versions(pipeline_id, version);

CREATE TABLE IF NOT EXISTS nodes (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	version_id TEXT NOT NULL,
	key TEXT NOT NULL,
	type TEXT NOT NULL,
	label TEXT,
	category TEXT,
	config BLOB,
	FOREIGN KEY(version_id) REFERENCES pipeline_versions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_nodes_version ON nodes(version_id, seq);

CREATE TABLE IF NOT EXISTS edges (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id TEXT NOT NULL,
	from_node TEXT NOT NULL,
	to_node TEXT NOT NULL,
	label TEXT,
	FOREIGN KEY(version_id) REFERENCES pipeline_versions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_edges_version ON edges(version_id, seq);

CREATE TABLE IF NOT EXISTS tools (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	config BLOB
);`

// SQLiteStoreConfig configures the SQLite graph store.
type SQLiteStoreConfig struct {
	DSN string
}

// SQLiteStore persists pipelines, versions, graphs and tools in SQLite.
// It satisfies both GraphStore and ToolRegistry.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite-backed graph store.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("graph store sqlite dsn is required")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("graph sqlite store open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("graph sqlite store WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("graph sqlite store foreign keys: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("graph sqlite store schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreatePipeline inserts a pipeline record.
func (s *SQLiteStore) CreatePipeline(ctx context.Context, p Pipeline) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO pipelines (id, project_id, name, created_at) VALUES (?, ?, ?, ?)",
		p.ID, p.ProjectID, p.Name, p.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert pipeline: %w", err)
	}
	return nil
}

// CreateVersion inserts a pipeline version with its nodes and edges in one
// transaction, so a version is never visible half-written.
func (s *SQLiteStore) CreateVersion(ctx context.Context, v PipelineVersion, nodes []core.Node, edges []core.Edge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin version tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO pipeline_versions (id, pipeline_id, version, created_at) VALUES (?, ?, ?, ?)",
		v.ID, v.PipelineID, v.Version, v.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	for _, n := range nodes {
		config, err := marshalConfig(n.Config)
		if err != nil {
			return fmt.Errorf("encode node %s config: %w", n.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO nodes (id, version_id, key, type, label, category, config) VALUES (?, ?, ?, ?, ?, ?, ?)",
			n.ID, v.ID, n.Key, n.Type, n.Label, n.Category, config)
		if err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	for _, e := range edges {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO edges (version_id, from_node, to_node, label) VALUES (?, ?, ?, ?)",
			v.ID, e.FromNode, e.ToNode, e.Label)
		if err != nil {
			return fmt.Errorf("insert edge %s->%s: %w", e.FromNode, e.ToNode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit version tx: %w", err)
	}
	return nil
}

// RegisterTool upserts tool metadata.
func (s *SQLiteStore) RegisterTool(ctx context.Context, t Tool) error {
	config, err := marshalConfig(t.Config)
	if err != nil {
		return fmt.Errorf("encode tool %s config: %w", t.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tools (id, kind, name, version, config) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET kind=excluded.kind, name=excluded.name, version=excluded.version, config=excluded.config`,
		t.ID, t.Kind, t.Name, t.Version, config)
	if err != nil {
		return fmt.Errorf("upsert tool %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetPipeline(ctx context.Context, id string) (Pipeline, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, project_id, name, created_at FROM pipelines WHERE id = ?", id)

	var p Pipeline
	var createdAt string
	err := row.Scan(&p.ID, &p.ProjectID, &p.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Pipeline{}, ErrNotFound
	}
	if err != nil {
		return Pipeline{}, fmt.Errorf("select pipeline: %w", err)
	}
	p.CreatedAt = parseStoreTime(createdAt)
	return p, nil
}

func (s *SQLiteStore) GetLatestVersion(ctx context.Context, pipelineID string) (PipelineVersion, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, pipeline_id, version, created_at FROM pipeline_versions WHERE pipeline_id = ? ORDER BY version DESC LIMIT 1",
		pipelineID)

	var v PipelineVersion
	var createdAt string
	err := row.Scan(&v.ID, &v.PipelineID, &v.Version, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PipelineVersion{}, ErrNotFound
	}
	if err != nil {
		return PipelineVersion{}, fmt.Errorf("select latest version: %w", err)
	}
	v.CreatedAt = parseStoreTime(createdAt)
	return v, nil
}

func (s *SQLiteStore) ListNodes(ctx context.Context, versionID string) ([]core.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, key, type, label, category, config FROM nodes WHERE version_id = ? ORDER BY seq",
		versionID)
	if err != nil {
		return nil, fmt.Errorf("select nodes: %w", err)
	}
	defer rows.Close()

	var nodes []core.Node
	for rows.Next() {
		var n core.Node
		var config []byte
		if err := rows.Scan(&n.ID, &n.Key, &n.Type, &n.Label, &n.Category, &config); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		if n.Config, err = unmarshalConfig(config); err != nil {
			return nil, fmt.Errorf("decode node %s config: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *SQLiteStore) ListEdges(ctx context.Context, versionID string) ([]core.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT from_node, to_node, label FROM edges WHERE version_id = ? ORDER BY seq",
		versionID)
	if err != nil {
		return nil, fmt.Errorf("select edges: %w", err)
	}
	defer rows.Close()

	var edges []core.Edge
	for rows.Next() {
		var e core.Edge
		if err := rows.Scan(&e.FromNode, &e.ToNode, &e.Label); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *SQLiteStore) GetTool(ctx context.Context, id string) (Tool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, kind, name, version, config FROM tools WHERE id = ?", id)

	var t Tool
	var config []byte
	err := row.Scan(&t.ID, &t.Kind, &t.Name, &t.Version, &config)
	if errors.Is(err, sql.ErrNoRows) {
		return Tool{}, ErrNotFound
	}
	if err != nil {
		return Tool{}, fmt.Errorf("select tool: %w", err)
	}
	if t.Config, err = unmarshalConfig(config); err != nil {
		return Tool{}, fmt.Errorf("decode tool %s config: %w", t.ID, err)
	}
	return t, nil
}

func marshalConfig(config map[string]any) ([]byte, error) {
	if config == nil {
		return nil, nil
	}
	return json.Marshal(config)
}

func unmarshalConfig(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var config map[string]any
	if err := json.Unmarshal(raw, &config); err != nil {
		return nil, err
	}
	return config, nil
}

func parseStoreTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Compile-time interface checks.
var (
	_ GraphStore   = (*SQLiteStore)(nil)
	_ ToolRegistry = (*SQLiteStore)(nil)
	_ GraphWriter  = (*SQLiteStore)(nil)
)
