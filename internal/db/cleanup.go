package db

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Cleanup deletes runs (and their cycles) started before the retention window.
// Track files on disk are never touched.
func (db *DB) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cycles WHERE run_id IN (SELECT run_id FROM runs WHERE started_at_utc < ?)",
		cutoff,
	); err != nil {
		return 0, fmt.Errorf("failed to cleanup cycles: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE started_at_utc < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup runs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		log.Printf("Journal: cleanup deleted %d runs older than %v", rows, retention)
	}

	return int(rows), nil
}
