package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

// RunRepository stores the history of update and download passes.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts run and its actions with a generated ID and sequence.
func (r *RunRepository) Create(run *models.SyncRun) error {
	if run.Kind == "" || run.Status == "" {
		return fmt.Errorf("%w: run kind and status are required", shared.ErrInvalidInput)
	}

	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	run.Sequence = sequence
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sync_runs (
			id, sequence, kind, status, playlists, added, removed,
			deleted_files, failures, error, started_at, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		run.ID,
		run.Sequence,
		run.Kind,
		run.Status,
		run.Playlists,
		run.Added,
		run.Removed,
		run.DeletedFiles,
		run.Failures,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, a := range run.Actions {
		_, err := tx.Exec(`
			INSERT INTO sync_actions (run_id, playlist_id, track_id, action, target, error)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, a.PlaylistID, a.TrackID, a.Action, a.Target, a.Error)
		if err != nil {
			return fmt.Errorf("failed to insert action: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID together with its actions.
func (r *RunRepository) Get(id string) (*models.SyncRun, error) {
	query := `
		SELECT id, sequence, kind, status, playlists, added, removed,
			deleted_files, failures, error, started_at, finished_at
		FROM sync_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	actions, err := r.Actions(id)
	if err != nil {
		return nil, err
	}
	run.Actions = actions
	return run, nil
}

// List retrieves the most recent runs, newest first. kind filters by run kind when non-empty.
//
// Actions are not loaded; use [RunRepository.Get] for a single run's detail.
func (r *RunRepository) List(kind string, limit int) ([]*models.SyncRun, error) {
	query := `
		SELECT id, sequence, kind, status, playlists, added, removed,
			deleted_files, failures, error, started_at, finished_at
		FROM sync_runs
	`
	args := []any{}

	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}

	query += " ORDER BY sequence DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
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

// Latest returns the most recent run of kind, or nil when none was recorded.
func (r *RunRepository) Latest(kind string) (*models.SyncRun, error) {
	runs, err := r.List(kind, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// Actions retrieves the actions recorded for runID in insertion order.
func (r *RunRepository) Actions(runID string) ([]models.SyncAction, error) {
	rows, err := r.db.Query(`
		SELECT playlist_id, track_id, action, target, error
		FROM sync_actions
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var actions []models.SyncAction
	for rows.Next() {
		var a models.SyncAction
		if err := rows.Scan(&a.PlaylistID, &a.TrackID, &a.Action, &a.Target, &a.Error); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return actions, nil
}

// Prune deletes runs that started before cutoff along with their actions.
func (r *RunRepository) Prune(cutoff time.Time) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM sync_actions
		WHERE run_id IN (SELECT id FROM sync_runs WHERE started_at < ?)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to delete actions: %w", err)
	}

	result, err := tx.Exec("DELETE FROM sync_runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return rows, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single sync_runs row from either [sql.Row] or [sql.Rows].
func scanRun(row scanner) (*models.SyncRun, error) {
	var run models.SyncRun
	err := row.Scan(
		&run.ID, &run.Sequence, &run.Kind, &run.Status, &run.Playlists,
		&run.Added, &run.Removed, &run.DeletedFiles, &run.Failures,
		&run.Error, &run.StartedAt, &run.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	return &run, nil
}
