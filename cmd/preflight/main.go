// Package main provides the entry point for the preflight CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/preflight/cmd/preflight/commands"
	"github.com/Sumatoshi-tech/preflight/pkg/version"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "preflight",
		Short: "Preflight - repo/doc bundle builder, search index, and dependency tracer",
		Long: `Preflight acquires repos or documents into a self-contained bundle:
normalized source, a full-text search index, a dependency graph, and an
evidenced trace graph, with completeness validation and repair.

Commands:
  create    Build a new bundle from one or more repos/documents
  update    Re-run acquisition and normalization for an existing bundle
  list      List every known bundle id
  status    Poll a bundle-construction task's progress
  search    Full-text search within a bundle
  graph     Generate or inspect a bundle's dependency graph
  trace     Upsert, query, suggest, or export evidenced trace edges
  validate  Check a bundle's completeness, or validate claims against it
  repair    Rebuild missing derived artifacts without re-fetching repos`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: .preflight.yaml in cwd or $HOME)")

	rootCmd.AddCommand(commands.NewCreateCommand(&configPath))
	rootCmd.AddCommand(commands.NewUpdateCommand(&configPath))
	rootCmd.AddCommand(commands.NewListCommand(&configPath))
	rootCmd.AddCommand(commands.NewStatusCommand(&configPath))
	rootCmd.AddCommand(commands.NewSearchCommand(&configPath))
	rootCmd.AddCommand(commands.NewGraphCommand(&configPath))
	rootCmd.AddCommand(commands.NewTraceCommand(&configPath))
	rootCmd.AddCommand(commands.NewValidateCommand(&configPath))
	rootCmd.AddCommand(commands.NewRepairCommand(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "preflight %s\n", version.Version)
		},
	}
}
