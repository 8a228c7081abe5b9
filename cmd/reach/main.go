// Command reach computes bounded-cost route closures over CUE-defined
// transit networks.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/reach/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
