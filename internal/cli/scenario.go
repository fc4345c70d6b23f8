package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/turbine/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Golden string // golden file directory; empty skips golden comparison
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern on file name)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// ScenarioReport holds the overall result.
type ScenarioReport struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file-or-dir>",
		Short: "Run engine conformance scenarios",
		Long: `Run YAML scenarios through the engine with scripted generators.

Each scenario's assertions are evaluated. With --golden, the run snapshot
is also compared with <golden>/<name>.golden.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  turbine scenario ./scenarios
  turbine scenario ./scenarios/promotion.yaml
  turbine scenario ./scenarios --golden ./golden --update
  turbine scenario ./scenarios --filter "fault_*" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden file directory")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files (requires --golden)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(opts *ScenarioOptions, target string, cmd *cobra.Command) error {
	if opts.Update && opts.Golden == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	files, err := findScenarioFiles(target, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	out := opts.formatter(cmd)
	if len(files) == 0 {
		if out.JSON() {
			return out.Success(ScenarioReport{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	report := ScenarioReport{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		res := runScenarioFile(file, opts)
		if !out.JSON() {
			printScenarioResult(cmd.OutOrStdout(), res)
		}
		report.Scenarios = append(report.Scenarios, res)
		if res.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	if out.JSON() {
		if report.Failed > 0 {
			_ = out.Error(CodeScenarioFailed, fmt.Sprintf("%d scenario(s) failed", report.Failed), report)
		} else if err := out.Success(report); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Scenario Summary: %d passed, %d failed, %d total\n", report.Passed, report.Failed, report.Total)
		if report.Failed == 0 {
			fmt.Fprintln(w, "✓ All scenarios passed")
		}
	}

	if report.Failed > 0 {
		// Scenario failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	return nil
}

// findScenarioFiles returns target itself when it is a file, or every YAML
// file under it, sorted by path.
func findScenarioFiles(target, filter string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{target}, nil
	}

	var files []string
	err = filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		// Only process .yaml and .yml files
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		// Apply filter if specified
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenarioFile loads, runs and optionally golden-checks one scenario.
func runScenarioFile(file string, opts *ScenarioOptions) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(file),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	res := ScenarioResult{Name: scenario.Name, Pass: result.Pass, Errors: result.Errors}
	if opts.Golden == "" {
		return res
	}

	if err := checkGolden(opts, scenario.Name, result); err != nil {
		res.Pass = false
		res.Errors = append(res.Errors, err.Error())
	}
	return res
}

// errGoldenMismatch is reported when a snapshot differs from its golden file.
var errGoldenMismatch = errors.New("snapshot does not match golden file (run with --update to regenerate)")

func checkGolden(opts *ScenarioOptions, name string, result *harness.Result) error {
	snapshot := harness.NewSnapshot(name, result)
	data, err := snapshot.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	path := filepath.Join(opts.Golden, name+".golden")
	if opts.Update {
		if err := os.MkdirAll(opts.Golden, 0o755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}

	golden, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		// No golden file - assertion-based validation only
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(golden, data) {
		return errGoldenMismatch
	}
	return nil
}

func printScenarioResult(w io.Writer, res ScenarioResult) {
	if res.Pass {
		fmt.Fprintf(w, "✓ %s\n", res.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", res.Name)
	for _, e := range res.Errors {
		for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}
