package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/turbine/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    string // optional - show one run with diagnostics
}

// HistoryRun is the JSON form of a recorded run.
type HistoryRun struct {
	ID          string           `json:"id"`
	Processor   string           `json:"processor"`
	StartedAt   string           `json:"started_at"`
	TotalUs     int64            `json:"total_us"`
	WallUs      int64            `json:"wall_us"`
	PassesUs    []int64          `json:"passes_us"`
	Errors      int              `json:"errors"`
	Diagnostics []DiagnosticJSON `json:"diagnostics,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded with turbine run --history.

Runs are listed most recent first with their pass timings. With --run,
one run is shown together with every diagnostic it reported.

Examples:
  turbine history --db ./turbine.db
  turbine history --db ./turbine.db --limit 5 --format json
  turbine history --db ./turbine.db --run 01928f3a-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 = all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run with its diagnostics")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	if _, err := os.Stat(opts.Database); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	if opts.RunID != "" {
		run, err := st.GetRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		h := toHistoryRun(run)
		if out.JSON() {
			return out.Success(h)
		}
		writeRunText(cmd.OutOrStdout(), h, true)
		return nil
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	list := make([]HistoryRun, len(runs))
	for i, r := range runs {
		list[i] = toHistoryRun(r)
	}
	if out.JSON() {
		return out.Success(list)
	}

	w := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, h := range list {
		writeRunText(w, h, false)
	}
	return nil
}

func toHistoryRun(r store.RunRecord) HistoryRun {
	h := HistoryRun{
		ID:        r.ID,
		Processor: r.Processor,
		StartedAt: r.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		TotalUs:   r.TotalTime.Microseconds(),
		WallUs:    r.WallTime.Microseconds(),
		PassesUs:  make([]int64, len(r.PassTimings)),
		Errors:    r.ErrorCount,
	}
	for i, d := range r.PassTimings {
		h.PassesUs[i] = d.Microseconds()
	}
	for _, d := range r.Diagnostics {
		h.Diagnostics = append(h.Diagnostics, DiagnosticJSON{
			Kind:      d.Kind,
			Message:   d.Message,
			Decl:      d.Decl,
			Generator: d.Generator,
		})
	}
	return h
}

func writeRunText(w io.Writer, h HistoryRun, withDiagnostics bool) {
	passes := make([]string, len(h.PassesUs))
	for i, us := range h.PassesUs {
		passes[i] = fmt.Sprintf("%dµs", us)
	}
	fmt.Fprintf(w, "%s  %s  %s  passes=%d [%s]  total=%dµs  errors=%d\n",
		h.ID, h.StartedAt, h.Processor, len(h.PassesUs), strings.Join(passes, " "), h.TotalUs, h.Errors)
	if !withDiagnostics {
		return
	}
	for _, d := range h.Diagnostics {
		target := d.Decl
		if target == "" && d.Generator != "" {
			target = "generator " + d.Generator
		}
		if target != "" {
			fmt.Fprintf(w, "  %s [%s]: %s\n", d.Kind, target, d.Message)
		} else {
			fmt.Fprintf(w, "  %s: %s\n", d.Kind, d.Message)
		}
	}
}
