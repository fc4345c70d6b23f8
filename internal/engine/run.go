package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/turbine/internal/ir"
)

// Host supplies passes to Run. NextPass returns the declarations newly
// tagged in the pass and whether it is the final pass. Run stops calling
// NextPass after the final pass.
type Host interface {
	NextPass(ctx context.Context) (tagged ir.TaggedSet, final bool, err error)
}

// HostFunc adapts a function to Host.
type HostFunc func(ctx context.Context) (ir.TaggedSet, bool, error)

// NextPass calls f(ctx).
func (f HostFunc) NextPass(ctx context.Context) (ir.TaggedSet, bool, error) {
	return f(ctx)
}

// RunStats summarizes a run for the timing report.
type RunStats struct {
	ProcessorName string
	Passes        int
	PassTimings   []time.Duration

	// Total is the sum of PassTimings.
	Total time.Duration

	// Wall is measured from engine construction to the end of the final
	// pass, or to now while the run is in progress.
	Wall time.Duration

	ErrorCount int
	Complete   bool
}

// Stats returns a snapshot of the run so far.
func (e *Engine) Stats() RunStats {
	timings := make([]time.Duration, len(e.timings))
	copy(timings, e.timings)

	var total time.Duration
	for _, d := range timings {
		total += d
	}

	wall := e.wallTime
	if !e.done {
		wall = e.wall.elapsed()
	}

	return RunStats{
		ProcessorName: e.processor,
		Passes:        e.pass,
		PassTimings:   timings,
		Total:         total,
		Wall:          wall,
		ErrorCount:    int(e.errorCount.Load()),
		Complete:      e.done && e.err == nil,
	}
}

// Run drives host until the final pass has been processed.
//
// The context is checked between passes; a cancelled run is not finalized.
// Fatal errors from RunPass are returned as is.
func (e *Engine) Run(ctx context.Context, host Host) (RunStats, error) {
	for !e.done {
		if err := ctx.Err(); err != nil {
			return e.Stats(), err
		}

		tagged, final, err := host.NextPass(ctx)
		if err != nil {
			return e.Stats(), fmt.Errorf("next pass %d: %w", e.pass+1, err)
		}
		if err := e.RunPass(ctx, tagged, final); err != nil {
			return e.Stats(), err
		}
	}
	if e.err != nil {
		return e.Stats(), e.err
	}
	return e.Stats(), nil
}
