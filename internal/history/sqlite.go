package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Fixed width so finished_at sorts as text
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps reps and their splits in SQLite
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database and applies migrations
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; avoids SQLITE_BUSY from the pool
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reps (
			id TEXT PRIMARY KEY,
			rep INTEGER NOT NULL,
			rep_count INTEGER NOT NULL,
			distance REAL NOT NULL,
			elapsed REAL NOT NULL,
			pace REAL NOT NULL,
			ghost_lane INTEGER NOT NULL,
			ghosts TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rep_splits (
			rep_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			distance REAL NOT NULL,
			elapsed REAL NOT NULL,
			PRIMARY KEY (rep_id, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reps_finished_at ON reps(finished_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append stores a completed rep with its splits in one transaction
func (s *SQLiteStore) Append(ctx context.Context, rec RepRecord) (err error) {
	if !rec.Completed() {
		return nil
	}
	ghosts, err := json.Marshal(rec.Ghosts)
	if err != nil {
		return fmt.Errorf("sqlite marshal ghosts: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO reps (id, rep, rep_count, distance, elapsed, pace, ghost_lane, ghosts, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Rep,
		rec.RepCount,
		rec.Distance,
		rec.Elapsed,
		rec.Pace,
		rec.GhostLane,
		string(ghosts),
		rec.FinishedAt.UTC().Format(sqliteTimeLayout),
	); err != nil {
		return fmt.Errorf("sqlite insert rep: %w", err)
	}

	for i, split := range rec.Splits {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO rep_splits (rep_id, idx, distance, elapsed) VALUES (?, ?, ?, ?)`,
			rec.ID, i, split.Distance, split.Elapsed,
		); err != nil {
			return fmt.Errorf("sqlite insert split: %w", err)
		}
	}

	return tx.Commit()
}

// List returns reps newest first
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]RepRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rep, rep_count, distance, elapsed, pace, ghost_lane, ghosts, finished_at
		 FROM reps ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RepRecord
	for rows.Next() {
		var rec RepRecord
		var ghosts, finishedAt string
		if err := rows.Scan(&rec.ID, &rec.Rep, &rec.RepCount, &rec.Distance, &rec.Elapsed,
			&rec.Pace, &rec.GhostLane, &ghosts, &finishedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ghosts), &rec.Ghosts); err != nil {
			return nil, fmt.Errorf("rep %s ghosts: %w", rec.ID, err)
		}
		if rec.FinishedAt, err = time.Parse(sqliteTimeLayout, finishedAt); err != nil {
			return nil, fmt.Errorf("rep %s finished_at: %w", rec.ID, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		splits, err := s.splits(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Splits = splits
	}
	return result, nil
}

func (s *SQLiteStore) splits(ctx context.Context, repID string) ([]SplitRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT distance, elapsed FROM rep_splits WHERE rep_id = ? ORDER BY idx`, repID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	splits := []SplitRecord{}
	for rows.Next() {
		var split SplitRecord
		if err := rows.Scan(&split.Distance, &split.Elapsed); err != nil {
			return nil, err
		}
		splits = append(splits, split)
	}
	return splits, rows.Err()
}
