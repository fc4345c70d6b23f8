// Command turbine drives code generators over annotated Go sources.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/turbine/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
