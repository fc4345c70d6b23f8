package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/roach88/turbine/internal/ir"
)

// VersionInfo is the version command payload.
type VersionInfo struct {
	Engine    string `json:"engine"`
	Trace     string `json:"trace_schema"`
	GoVersion string `json:"go_version"`
}

func (v VersionInfo) String() string {
	return "turbine " + v.Engine + " (trace schema " + v.Trace + ", " + v.GoVersion + ")"
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print version information",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.formatter(cmd).Success(VersionInfo{
				Engine:    ir.EngineVersion,
				Trace:     ir.TraceVersion,
				GoVersion: runtime.Version(),
			})
		},
	}
}
