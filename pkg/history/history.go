// Package history keeps a SQLite journal of finished runs and their
// assertion records.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ormasoftchile/clickcheck/pkg/assertions"
	"github.com/ormasoftchile/clickcheck/pkg/runtime"
)

//go:embed schema.sql
var schemaSQL string

// Run is one journaled run.
type Run struct {
	RunID       string `json:"run_id"`
	StartedAt   string `json:"started_at"`
	EndedAt     string `json:"ended_at"`
	AppURL      string `json:"app_url"`
	Outcome     string `json:"outcome"`
	FailedStage string `json:"failed_stage,omitempty"`
	Message     string `json:"message,omitempty"`
	RoomCode    string `json:"room_code,omitempty"`
	Passed      int    `json:"passed"`
	Failed      int    `json:"failed"`
	ExitCode    int    `json:"exit_code"`
}

// Store is the journal database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a finished run. It satisfies runtime.Journal.
func (s *Store) Record(ctx context.Context, m *runtime.RunManifest, records []assertions.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var state, stage, msg string
	if m.Outcome != nil {
		state, stage, msg = m.Outcome.State, m.Outcome.Stage, m.Outcome.Message
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, ended_at, app_url, outcome, failed_stage, message, room_code, passed, failed, exit_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.StartedAt, m.EndedAt, m.AppURL, state, stage, msg, m.RoomCode,
		m.Assertions.Passed, m.Assertions.Failed, m.ExitCode)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", m.RunID, err)
	}

	for i, r := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO assertions (run_id, seq, stage, label, kind, threshold, actual, passed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.RunID, i, r.Stage, r.Label, string(r.Kind), r.Threshold, r.Actual, r.Passed)
		if err != nil {
			return fmt.Errorf("insert assertion %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, ended_at, app_url, outcome, failed_stage, message, room_code, passed, failed, exit_code
		FROM runs ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.EndedAt, &r.AppURL, &r.Outcome, &r.FailedStage,
			&r.Message, &r.RoomCode, &r.Passed, &r.Failed, &r.ExitCode); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Assertions returns a run's assertion records in recording order.
func (s *Store) Assertions(ctx context.Context, runID string) ([]assertions.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, label, kind, threshold, actual, passed
		FROM assertions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list assertions: %w", err)
	}
	defer rows.Close()

	var out []assertions.Record
	for rows.Next() {
		var r assertions.Record
		var kind string
		if err := rows.Scan(&r.Stage, &r.Label, &kind, &r.Threshold, &r.Actual, &r.Passed); err != nil {
			return nil, fmt.Errorf("scan assertion: %w", err)
		}
		r.Kind = assertions.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}
