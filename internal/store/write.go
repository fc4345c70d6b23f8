package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/turbine/internal/ir"
)

// RunRecord is one recorded orchestrator run.
type RunRecord struct {
	ID          string
	Processor   string
	StartedAt   time.Time
	TotalTime   time.Duration
	WallTime    time.Duration
	PassTimings []time.Duration
	ErrorCount  int

	// Diagnostics is populated by RecordRun callers and by RunDiagnostics.
	// ListRuns leaves it nil.
	Diagnostics []DiagnosticRecord
}

// DiagnosticRecord is one diagnostic emitted during a recorded run.
type DiagnosticRecord struct {
	Seq       int
	Kind      string
	Message   string
	Decl      string
	Generator string
}

// NewRunID returns a time-ordered UUIDv7 run identifier.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RecordRun inserts run with its pass timings and diagnostics in a single
// transaction. An empty run.ID is replaced with NewRunID(); the ID used is
// returned.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency - recording the same run
// twice is a no-op.
func (s *Store) RecordRun(ctx context.Context, run RunRecord) (string, error) {
	if run.ID == "" {
		run.ID = NewRunID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, processor, started_at_us, total_time_us, wall_time_us, pass_count, error_count, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Processor,
		run.StartedAt.UnixMicro(),
		run.TotalTime.Microseconds(),
		run.WallTime.Microseconds(),
		len(run.PassTimings),
		run.ErrorCount,
		ir.EngineVersion,
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return run.ID, nil
	}

	for i, elapsed := range run.PassTimings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pass_timings (run_id, pass, elapsed_us) VALUES (?, ?, ?)
		`, run.ID, i+1, elapsed.Microseconds()); err != nil {
			return "", fmt.Errorf("record run: pass %d: %w", i+1, err)
		}
	}

	for i, d := range run.Diagnostics {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics (run_id, seq, kind, message, decl, generator)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, i+1, d.Kind, d.Message, d.Decl, d.Generator); err != nil {
			return "", fmt.Errorf("record run: diagnostic %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("record run: commit: %w", err)
	}
	return run.ID, nil
}
