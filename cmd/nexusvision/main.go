// Command nexusvision is the optional operator binary for the agent core
// (§6 "CLI/env: the core has no CLI"): it wires a fake host for local
// testing, exposes the peer directory, and validates configuration. The
// core library itself (internal/...) has no CLI dependency; every command
// here is a thin wrapper that constructs the real packages and drives them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "nexusvision",
		Short:   "Operate the agent core: serve a fake host, inspect peers, validate config",
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}
	cmd.AddCommand(buildServeCmd(), buildDoctorCmd(), buildPeersCmd())
	return cmd
}
