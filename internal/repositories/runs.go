package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/shared"
)

// RunRepository stores deduplication runs and their removals.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// RecordRun inserts run and its removals in a single transaction, assigning a sequence number.
func (r *RunRepository) RecordRun(run *models.Run) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var finishedAt any
	if run.FinishedAt != nil {
		finishedAt = *run.FinishedAt
	}

	_, err = tx.Exec(`
		INSERT INTO runs (id, sequence, pass, username, dry_run, scanned, removed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		sequence,
		string(run.Pass),
		run.User,
		run.DryRun,
		run.Scanned,
		len(run.Removals),
		run.StartedAt,
		finishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO removals (id, run_id, position, playlist, item_key, item_id, track_id, recent_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare removal insert: %w", err)
	}
	defer stmt.Close()

	for i, removal := range run.Removals {
		_, err := stmt.Exec(
			shared.GenerateID(),
			run.ID,
			i,
			removal.Playlist,
			removal.Key,
			removal.ItemID,
			removal.TrackID,
			int64(removal.RecentTimestamp),
		)
		if err != nil {
			return fmt.Errorf("failed to insert removal %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	run.Sequence = sequence
	run.Removed = len(run.Removals)
	return nil
}

// Get retrieves a run by ID, including its removals in the order they were issued.
func (r *RunRepository) Get(id string) (*models.Run, error) {
	row := r.db.QueryRow(`
		SELECT id, sequence, pass, username, dry_run, scanned, removed, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	removals, err := r.removals(run)
	if err != nil {
		return nil, err
	}
	run.Removals = removals

	return run, nil
}

// List retrieves the most recent runs, newest first. Removals are not loaded.
//
// A non-positive limit returns every run.
func (r *RunRepository) List(limit int) ([]*models.Run, error) {
	query := `
		SELECT id, sequence, pass, username, dry_run, scanned, removed, started_at, finished_at
		FROM runs
		ORDER BY sequence DESC
	`

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Delete removes a run and, through the foreign key, its removals.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

func (r *RunRepository) removals(run *models.Run) ([]models.Removal, error) {
	rows, err := r.db.Query(`
		SELECT playlist, item_key, item_id, track_id, recent_timestamp
		FROM removals
		WHERE run_id = ?
		ORDER BY position
	`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query removals: %w", err)
	}
	defer rows.Close()

	var removals []models.Removal
	for rows.Next() {
		var (
			removal   models.Removal
			timestamp int64
		)
		if err := rows.Scan(&removal.Playlist, &removal.Key, &removal.ItemID, &removal.TrackID, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan removal: %w", err)
		}
		removal.Pass = run.Pass
		removal.RecentTimestamp = models.Timestamp(timestamp)
		removals = append(removals, removal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return removals, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row from either [sql.Row] or [sql.Rows] into a [models.Run]
func scanRun(s scanner) (*models.Run, error) {
	var (
		run        models.Run
		pass       string
		startedAt  time.Time
		finishedAt sql.NullTime
	)

	err := s.Scan(
		&run.ID, &run.Sequence, &pass, &run.User, &run.DryRun,
		&run.Scanned, &run.Removed, &startedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Pass = models.Pass(pass)
	run.StartedAt = startedAt
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}

	return &run, nil
}
