package output

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteSink persists simulation output to SQLite.
// It is suitable for single-process production use.
type SQLiteSink struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLiteSink creates a new SQLite output sink.
// The path should be a file path (e.g., "./run.db") or ":memory:" for testing.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL gives cheap concurrent reads while a run is writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS node_output (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			kind TEXT NOT NULL,
			node_id TEXT NOT NULL,
			lateral REAL NOT NULL,
			upstream REAL NOT NULL,
			inflow REAL NOT NULL,
			outflow REAL NOT NULL,
			storage REAL NOT NULL,
			PRIMARY KEY (run_id, step, kind, node_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create node_output table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS graph_budget (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			inflow REAL NOT NULL,
			outflow REAL NOT NULL,
			delta_storage REAL NOT NULL,
			residual REAL NOT NULL,
			PRIMARY KEY (run_id, step)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create graph_budget table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_node_output_node
		ON node_output(run_id, kind, node_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// WriteNodes implements Sink. One step's rows are written in a single
// transaction.
func (s *SQLiteSink) WriteNodes(records []NodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO node_output
		(run_id, step, kind, node_id, lateral, upstream, inflow, outflow, storage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.RunID, r.Step, r.Kind, r.NodeID,
			r.Lateral, r.Upstream, r.Inflow, r.Outflow, r.Storage); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert node output: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit node output: %w", err)
	}
	return nil
}

// WriteGraph implements Sink.
func (s *SQLiteSink) WriteGraph(record GraphRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO graph_budget
		(run_id, step, inflow, outflow, delta_storage, residual)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.RunID, record.Step, record.Inflow, record.Outflow,
		record.DeltaStorage, record.Residual)
	if err != nil {
		return fmt.Errorf("insert graph budget: %w", err)
	}
	return nil
}

// NodeSeries reads back the recorded rows for one (kind, id) of a run,
// in step order.
func (s *SQLiteSink) NodeSeries(runID, kind, nodeID string) ([]NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSinkClosed
	}

	rows, err := s.db.Query(`
		SELECT step, lateral, upstream, inflow, outflow, storage
		FROM node_output
		WHERE run_id = ? AND kind = ? AND node_id = ?
		ORDER BY step
	`, runID, kind, nodeID)
	if err != nil {
		return nil, fmt.Errorf("query node output: %w", err)
	}
	defer rows.Close()

	var out []NodeRecord
	for rows.Next() {
		r := NodeRecord{RunID: runID, Kind: kind, NodeID: nodeID}
		if err := rows.Scan(&r.Step, &r.Lateral, &r.Upstream, &r.Inflow, &r.Outflow, &r.Storage); err != nil {
			return nil, fmt.Errorf("scan node output: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate node output: %w", err)
	}
	return out, nil
}

// Close implements Sink.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
