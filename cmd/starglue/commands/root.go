// Package commands implements the starglue developer CLI. The test run
// itself is driven by the host runner; these commands only exercise the
// adapter standalone: loading glue, listing what it registered, and
// checking configuration.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "starglue",
		Short: "Starglue - Starlark glue backend for BDD test runners",
		Long: `Starglue lets scenarios running on a BDD host runner invoke step and
hook implementations written in Starlark.

Glue scripts register definitions through predeclared builtins:
  step/given/when/then  step definitions with regexp patterns
  before/after          scenario hooks, tag-gated and ordered
  before_step/after_step step hooks
  register_world        per-scenario world factories`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newGlueCommand())
	rootCmd.AddCommand(newValidateCommand())

	return rootCmd
}
