// Package store keeps the results of batch runs in a single SQLite table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

type Status string

const (
	StatusOK         Status = "ok"
	StatusInfeasible Status = "infeasible"
	StatusError      Status = "error"
)

// Record is the outcome of one metric of one community in a run. Payload
// holds the YAML encoded result, or the error text when Status is not ok.
type Record struct {
	RunID     string
	Community string
	Metric    string
	Status    Status
	Payload   []byte
	CreatedAt time.Time
}

type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "microcom.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL,
		community TEXT NOT NULL,
		metric TEXT NOT NULL,
		status TEXT NOT NULL,
		payload BLOB,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, community, metric)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create results table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Put inserts a record, replacing an earlier one for the same run,
// community and metric.
func (s *Store) Put(ctx context.Context, r Record) error {
	if r.RunID == "" || r.Community == "" || r.Metric == "" {
		return fmt.Errorf("record needs run id, community and metric: %+v", r)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO results(run_id,community,metric,status,payload,created_at) VALUES(?,?,?,?,?,?)
		ON CONFLICT(run_id,community,metric) DO UPDATE SET status=excluded.status, payload=excluded.payload, created_at=excluded.created_at`,
		r.RunID, r.Community, r.Metric, string(r.Status), r.Payload, r.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert %s/%s/%s: %w", r.RunID, r.Community, r.Metric, err)
	}
	return nil
}

// ListRun returns the records of a run ordered by community and metric.
func (s *Store) ListRun(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, community, metric, status, payload, created_at
		FROM results WHERE run_id = ? ORDER BY community, metric`, runID)
	if err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var records []Record
	for rows.Next() {
		var (
			r       Record
			status  string
			created int64
		)
		if err := rows.Scan(&r.RunID, &r.Community, &r.Metric, &status, &r.Payload, &created); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		r.Status = Status(status)
		r.CreatedAt = time.Unix(0, created)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string { return s.path }
