package store

import (
	"fmt"
	"time"

	"github.com/roach88/turbine/internal/ir"
)

// MarshalRun converts a run to canonical JSON for `turbine history --format json`.
// Durations are integer microseconds and timestamps RFC 3339 strings, so the
// output contains no floats.
func MarshalRun(run RunRecord) ([]byte, error) {
	data, err := ir.MarshalCanonical(runObject(run))
	if err != nil {
		return nil, fmt.Errorf("marshal run %s: %w", run.ID, err)
	}
	return data, nil
}

// MarshalRuns converts runs to a canonical JSON array.
func MarshalRuns(runs []RunRecord) ([]byte, error) {
	arr := make([]any, len(runs))
	for i, run := range runs {
		arr[i] = runObject(run)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return nil, fmt.Errorf("marshal runs: %w", err)
	}
	return data, nil
}

func runObject(run RunRecord) map[string]any {
	timings := make([]any, len(run.PassTimings))
	for i, d := range run.PassTimings {
		timings[i] = d.Microseconds()
	}

	obj := map[string]any{
		"id":            run.ID,
		"processor":     run.Processor,
		"started_at":    run.StartedAt.UTC().Format(time.RFC3339),
		"total_time_us": run.TotalTime.Microseconds(),
		"wall_time_us":  run.WallTime.Microseconds(),
		"pass_timings":  timings,
		"error_count":   run.ErrorCount,
	}

	if run.Diagnostics != nil {
		diags := make([]any, len(run.Diagnostics))
		for i, d := range run.Diagnostics {
			diags[i] = map[string]any{
				"seq":       d.Seq,
				"kind":      d.Kind,
				"message":   d.Message,
				"decl":      d.Decl,
				"generator": d.Generator,
			}
		}
		obj["diagnostics"] = diags
	}
	return obj
}
