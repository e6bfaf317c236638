package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/preflight/internal/depgraph"
)

// GraphCommand holds the configuration for the graph command.
type GraphCommand struct {
	configPath *string

	targetFile string
	symbol     string
	edgeTypes  string
	force      bool
	mermaid    bool
}

// NewGraphCommand creates and configures the graph command.
func NewGraphCommand(configPath *string) *cobra.Command {
	gc := &GraphCommand{configPath: configPath}

	cobraCmd := &cobra.Command{
		Use:   "graph <bundle-id>",
		Short: "Generate or inspect a bundle's dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE:  gc.run,
	}

	cobraCmd.Flags().StringVar(&gc.targetFile, "target", "", "bundle-relative file path; enables target mode")
	cobraCmd.Flags().StringVar(&gc.symbol, "symbol", "", "symbol name to search references for (target mode)")
	cobraCmd.Flags().StringVar(&gc.edgeTypes, "edge-types", "", "edge type filter, or 'all'")
	cobraCmd.Flags().BoolVar(&gc.force, "force", false, "bypass the cached dependency-graph.json (global mode)")
	cobraCmd.Flags().BoolVar(&gc.mermaid, "mermaid", false, "print the mermaid diagram instead of JSON")

	return cobraCmd
}

func (gc *GraphCommand) run(_ *cobra.Command, args []string) error {
	env, shutdown, err := buildEnv(*gc.configPath)
	if err != nil {
		return err
	}
	defer shutdown()

	result, err := env.DependencyGraph(args[0], depgraph.Options{
		TargetFile: gc.targetFile,
		Symbol:     gc.symbol,
		EdgeTypes:  gc.edgeTypes,
		Force:      gc.force,
	})
	if err != nil {
		return err
	}

	if gc.mermaid {
		fmt.Fprintln(os.Stdout, result.Mermaid)

		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(result)
}
