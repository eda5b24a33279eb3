package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one tracker run as stored in the journal
type Run struct {
	RunID           string     `json:"run_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	TrackPath       string     `json:"track_path"`
	Provider        string     `json:"provider"`
	IntervalSeconds int        `json:"interval_seconds"`
	Appended        int        `json:"appended"`
	Failed          int        `json:"failed"`
	LatencyMeanMS   *float64   `json:"latency_mean_ms,omitempty"`
	LatencyStdDevMS *float64   `json:"latency_stddev_ms,omitempty"`
}

// Cycle is the outcome of one poll iteration
type Cycle struct {
	Seq          int
	PolledAt     time.Time
	Outcome      string
	Appended     bool
	ErrorKind    *string
	ErrorMessage *string
	LatencyMS    *float64
	Longitude    *float64
	Latitude     *float64
}

// RunSummary carries the final statistics written by FinishRun
type RunSummary struct {
	EndedAt         time.Time
	LatencyMeanMS   float64
	LatencyStdDevMS float64
}

// CreateRun inserts a new run and returns its ID
func (db *DB) CreateRun(ctx context.Context, startedAt time.Time, trackPath, provider string, interval time.Duration) (string, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	runID := uuid.New().String()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at_utc, track_path, provider, interval_seconds)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, startedAt.UTC().Format(time.RFC3339), trackPath, provider, int(interval.Seconds()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	return runID, nil
}

// RecordCycle stores one cycle and bumps the run counters
func (db *DB) RecordCycle(ctx context.Context, runID string, c Cycle) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO cycles (
			run_id, seq, polled_at_utc, outcome, error_kind, error_message,
			latency_ms, longitude, latitude
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, c.Seq, c.PolledAt.UTC().Format(time.RFC3339), c.Outcome, c.ErrorKind, c.ErrorMessage,
		c.LatencyMS, c.Longitude, c.Latitude,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cycle %d: %w", c.Seq, err)
	}

	appended, failed := 0, 0
	if c.Appended {
		appended = 1
	} else if c.ErrorKind != nil {
		failed = 1
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE runs SET appended = appended + ?, failed = failed + ? WHERE run_id = ?",
		appended, failed, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run counters: %w", err)
	}

	return tx.Commit()
}

// FinishRun stamps the end time and latency statistics on a run
func (db *DB) FinishRun(ctx context.Context, runID string, s RunSummary) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err := db.conn.ExecContext(ctx,
		`UPDATE runs SET ended_at_utc = ?, latency_mean_ms = ?, latency_stddev_ms = ?
		 WHERE run_id = ?`,
		s.EndedAt.UTC().Format(time.RFC3339), s.LatencyMeanMS, s.LatencyStdDevMS, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, most recent first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT run_id, started_at_utc, ended_at_utc, track_path, provider,
		       interval_seconds, appended, failed, latency_mean_ms, latency_stddev_ms
		FROM runs
		ORDER BY started_at_utc DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&r.RunID, &startedAt, &endedAt, &r.TrackPath, &r.Provider,
			&r.IntervalSeconds, &r.Appended, &r.Failed, &r.LatencyMeanMS, &r.LatencyStdDevMS); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("bad started_at for run %s: %w", r.RunID, err)
		}
		if endedAt.Valid {
			t, err := time.Parse(time.RFC3339, endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("bad ended_at for run %s: %w", r.RunID, err)
			}
			r.EndedAt = &t
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// CountCycles returns how many cycles were recorded for a run
func (db *DB) CountCycles(ctx context.Context, runID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM cycles WHERE run_id = ?", runID).Scan(&n)
	return n, err
}
