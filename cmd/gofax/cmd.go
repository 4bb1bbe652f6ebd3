// Command gofax is a test-harness CLI for the fax DSP/protocol stack:
// send/receive a fax over WAV-file PCM, or run a T.38 gateway/terminal over
// a WebSocket transport. One binary, one subcommand per scenario.
package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// RootCmd is the CLI's entry point; each scenario registers itself as a
// subcommand in its own file's init().
var RootCmd = &cobra.Command{
	Use:   "gofax",
	Short: "fax DSP/protocol stack test harness",
}

var logger = log.Default()

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
}

func main() {
	Execute()
}
