package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

const runColumns = `r.id, r.command, r.manifest, r.status, r.started_at, r.completed_at,
	r.nodes, r.digest, r.error,
	(SELECT COUNT(*) FROM findings f WHERE f.run_id = r.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		status    string
		started   int64
		completed sql.NullInt64
	)
	if err := row.Scan(&run.ID, &run.Command, &run.Manifest, &status, &started, &completed,
		&run.Nodes, &run.Digest, &run.Error, &run.Findings); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.StartedAt = fromMillis(started)
	if completed.Valid {
		t := fromMillis(completed.Int64)
		run.CompletedAt = &t
	}
	return &run, nil
}

// CreateRun records the start of a run.
func (s *SQLiteStore) CreateRun(ctx context.Context, command, manifest string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	run := &Run{
		ID:        generateID(),
		Command:   command,
		Manifest:  manifest,
		Status:    RunStatusRunning,
		StartedAt: fromMillis(toMillis(s.now())),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("command", command))

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, manifest, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.Manifest, string(run.Status), toMillis(run.StartedAt),
	); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun stores the outcome of a run.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, result RunResult) error {
	if s.db == nil {
		return ErrNotOpen
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, nodes = ?, digest = ?, error = ? WHERE id = ?`,
		string(result.Status), toMillis(s.now()), result.Nodes, result.Digest, result.Error, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// GetRun retrieves a run by ID or unique ID prefix.
func (s *SQLiteStore) GetRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs r WHERE r.id = ? OR r.id LIKE ? || '%' ORDER BY r.id = ? DESC LIMIT 2`,
		idOrPrefix, idOrPrefix, idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	switch {
	case len(runs) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case runs[0].ID == idOrPrefix || len(runs) == 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, idOrPrefix)
	}
}

// ListRuns returns the most recent runs, newest first. A limit <= 0 returns all.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs r ORDER BY r.started_at DESC, r.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PreviousRun returns the latest completed run of the same command that
// started before run. It returns ErrRunNotFound when there is none.
func (s *SQLiteStore) PreviousRun(ctx context.Context, run *Run) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs r
		WHERE r.command = ? AND r.id <> ? AND r.status <> ?
		  AND r.rowid < (SELECT rowid FROM runs WHERE id = ?)
		ORDER BY r.rowid DESC LIMIT 1`,
		run.Command, run.ID, string(RunStatusRunning), run.ID)
	prev, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no run before %s", ErrRunNotFound, run.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous run: %w", err)
	}
	return prev, nil
}

// PruneRuns removes all but the newest keep runs and their findings.
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if s.db == nil {
		return 0, ErrNotOpen
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}
