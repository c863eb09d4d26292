// Package cli wires the mockman process entrypoint: a cobra command tree
// exposing "serve" (default) and "version" over the configuration loader,
// the lifecycle manager, and the control-plane REST adapter.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version, Commit, and BuildDate are injected via ldflags at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "mockman",
	Short: "mockman runs HTTP mock server instances from a configuration document",
	Long: `mockman brings up one or more independently addressable mock HTTP server
instances from a JsonMC or YAML configuration document, and exposes a
control-plane REST API for managing them at runtime.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from cmd/mockd/main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
