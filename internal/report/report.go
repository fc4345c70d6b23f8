// Package report writes the per-run timing report consumed by build
// tooling.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/turbine/internal/config"
	"github.com/roach88/turbine/internal/engine"
	"github.com/roach88/turbine/internal/ir"
)

// Dir is the subdirectory of the build and artifacts directories holding
// timing reports.
const Dir = "turbine-timings"

// TimeUnit is the unit of every duration in a report.
const TimeUnit = "MICROSECONDS"

// Timings is the timing report of one run.
type Timings struct {
	ProcessorName string
	TimeUnit      string
	TotalTime     int64
	WallTime      int64
	RoundTimings  []int64
}

// FromStats converts engine run statistics to a report.
func FromStats(stats engine.RunStats) Timings {
	rounds := make([]int64, len(stats.PassTimings))
	for i, d := range stats.PassTimings {
		rounds[i] = d.Microseconds()
	}
	return Timings{
		ProcessorName: stats.ProcessorName,
		TimeUnit:      TimeUnit,
		TotalTime:     stats.Total.Microseconds(),
		WallTime:      stats.Wall.Microseconds(),
		RoundTimings:  rounds,
	}
}

// Marshal returns the canonical JSON form of t.
func (t Timings) Marshal() ([]byte, error) {
	rounds := make([]any, len(t.RoundTimings))
	for i, r := range t.RoundTimings {
		rounds[i] = r
	}
	return ir.MarshalCanonical(map[string]any{
		"processorName": t.ProcessorName,
		"timeUnit":      t.TimeUnit,
		"totalTime":     t.TotalTime,
		"wallTime":      t.WallTime,
		"roundTimings":  rounds,
	})
}

// FileName returns the report file name for t.
func (t Timings) FileName() string {
	return t.ProcessorName + ".json"
}

// Write stores t under <BuildDir>/turbine-timings and, when ArtifactsDir is
// set, under <ArtifactsDir>/turbine-timings. Failures are logged at debug
// level and never returned. Write returns the paths it wrote.
func Write(t Timings, opts config.Options, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	data, err := t.Marshal()
	if err != nil {
		logger.Debug("unable to encode timing data", "error", err)
		return nil
	}

	buildDir := opts.BuildDir
	if buildDir == "" {
		buildDir = config.Default().BuildDir
	}

	var written []string
	if path, err := writeTo(buildDir, t.FileName(), data); err != nil {
		logger.Debug("unable to write timing data to build directory", "dir", buildDir, "error", err)
	} else {
		logger.Debug("timing data written", "path", path)
		written = append(written, path)
	}

	if opts.ArtifactsDir != "" {
		if path, err := writeTo(opts.ArtifactsDir, t.FileName(), data); err != nil {
			logger.Debug("unable to write timing data to artifacts directory", "dir", opts.ArtifactsDir, "error", err)
		} else {
			logger.Debug("timing data written to viewable build artifacts", "path", path)
			written = append(written, path)
		}
	}
	return written
}

func writeTo(base, name string, data []byte) (string, error) {
	dir := filepath.Join(base, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
