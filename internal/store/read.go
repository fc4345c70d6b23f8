package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run ID has no record.
var ErrRunNotFound = errors.New("run not found")

// ListRuns returns up to limit runs, most recent first. limit <= 0 means
// no limit. Pass timings are loaded; diagnostics are not.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, processor, started_at_us, total_time_us, wall_time_us, error_count
		FROM runs
		ORDER BY started_at_us DESC, id COLLATE BINARY DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		timings, err := s.passTimings(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].PassTimings = timings
	}
	return runs, nil
}

// GetRun returns one run with its timings and diagnostics.
func (s *Store) GetRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, processor, started_at_us, total_time_us, wall_time_us, error_count
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, err
	}

	if run.PassTimings, err = s.passTimings(ctx, id); err != nil {
		return RunRecord{}, err
	}
	if run.Diagnostics, err = s.RunDiagnostics(ctx, id); err != nil {
		return RunRecord{}, err
	}
	return run, nil
}

// RunDiagnostics returns the diagnostics of a run in emission order.
func (s *Store) RunDiagnostics(ctx context.Context, runID string) ([]DiagnosticRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, message, decl, generator
		FROM diagnostics
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	diags := []DiagnosticRecord{}
	for rows.Next() {
		var d DiagnosticRecord
		if err := rows.Scan(&d.Seq, &d.Kind, &d.Message, &d.Decl, &d.Generator); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return diags, nil
}

func (s *Store) passTimings(ctx context.Context, runID string) ([]time.Duration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT elapsed_us FROM pass_timings WHERE run_id = ? ORDER BY pass ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query pass timings: %w", err)
	}
	defer rows.Close()

	timings := []time.Duration{}
	for rows.Next() {
		var us int64
		if err := rows.Scan(&us); err != nil {
			return nil, fmt.Errorf("scan pass timing: %w", err)
		}
		timings = append(timings, time.Duration(us)*time.Microsecond)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pass timings: %w", err)
	}
	return timings, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var run RunRecord
	var startedUS, totalUS, wallUS int64
	if err := row.Scan(&run.ID, &run.Processor, &startedUS, &totalUS, &wallUS, &run.ErrorCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, err
		}
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = time.UnixMicro(startedUS).UTC()
	run.TotalTime = time.Duration(totalUS) * time.Microsecond
	run.WallTime = time.Duration(wallUS) * time.Microsecond
	return run, nil
}
