package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/preflight/internal/trace"
)

// NewTraceCommand creates the trace command group: upsert, query, suggest,
// export.
func NewTraceCommand(configPath *string) *cobra.Command {
	cobraCmd := &cobra.Command{
		Use:   "trace",
		Short: "Upsert, query, suggest, or export evidenced trace edges",
	}

	cobraCmd.AddCommand(newTraceUpsertCommand(configPath))
	cobraCmd.AddCommand(newTraceQueryCommand(configPath))
	cobraCmd.AddCommand(newTraceSuggestCommand(configPath))
	cobraCmd.AddCommand(newTraceExportCommand(configPath))

	return cobraCmd
}

func newTraceUpsertCommand(configPath *string) *cobra.Command {
	var edgesFile string

	var dryRun bool

	cobraCmd := &cobra.Command{
		Use:   "upsert <bundle-id>",
		Short: "Write one or more trace edges from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := os.ReadFile(edgesFile)
			if err != nil {
				return fmt.Errorf("read edges file: %w", err)
			}

			var edges []trace.Edge
			if err := json.Unmarshal(data, &edges); err != nil {
				return fmt.Errorf("parse edges file: %w", err)
			}

			env, shutdown, err := buildEnv(*configPath)
			if err != nil {
				return err
			}
			defer shutdown()

			result, err := env.TraceUpsert(args[0], edges, trace.UpsertOptions{DryRun: dryRun})
			if err != nil {
				return err
			}

			return printJSON(result)
		},
	}

	cobraCmd.Flags().StringVar(&edgesFile, "edges", "", "path to a JSON array of trace edges (required)")
	cobraCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without writing")
	_ = cobraCmd.MarkFlagRequired("edges")

	return cobraCmd
}

func newTraceQueryCommand(configPath *string) *cobra.Command {
	var filters trace.QueryFilters

	var edgeType string

	cobraCmd := &cobra.Command{
		Use:   "query <bundle-id>",
		Short: "Filter a bundle's trace edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			filters.Type = trace.EdgeType(edgeType)

			env, shutdown, err := buildEnv(*configPath)
			if err != nil {
				return err
			}
			defer shutdown()

			result, err := env.TraceQuery(args[0], filters)
			if err != nil {
				return err
			}

			return printJSON(result)
		},
	}

	cobraCmd.Flags().StringVar(&filters.SourceType, "source-type", "", "source entity type filter")
	cobraCmd.Flags().StringVar(&filters.SourceID, "source-id", "", "source entity id filter")
	cobraCmd.Flags().StringVar(&filters.TargetType, "target-type", "", "target entity type filter")
	cobraCmd.Flags().StringVar(&filters.TargetID, "target-id", "", "target entity id filter")
	cobraCmd.Flags().StringVar(&edgeType, "type", "", "edge type filter")
	cobraCmd.Flags().Float64Var(&filters.MinConfidence, "min-confidence", 0, "minimum confidence")
	cobraCmd.Flags().Float64Var(&filters.MaxConfidence, "max-confidence", 0, "maximum confidence")
	cobraCmd.Flags().IntVar(&filters.Limit, "limit", 0, "maximum edges to return")

	return cobraCmd
}

func newTraceSuggestCommand(configPath *string) *cobra.Command {
	var opts trace.SuggestOptions

	var edgeType string

	cobraCmd := &cobra.Command{
		Use:   "suggest <bundle-id>",
		Short: "Propose candidate trace edges from naming conventions",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			opts.EdgeType = trace.EdgeType(edgeType)

			env, shutdown, err := buildEnv(*configPath)
			if err != nil {
				return err
			}
			defer shutdown()

			result, err := env.TraceSuggest(args[0], opts)
			if err != nil {
				return err
			}

			return printJSON(result)
		},
	}

	cobraCmd.Flags().StringVar(&opts.Scope, "scope", "", "bundle-relative directory to scope suggestions to")
	cobraCmd.Flags().StringVar(&edgeType, "type", "", "edge type to suggest")
	cobraCmd.Flags().Float64Var(&opts.MinConfidence, "min-confidence", 0, "minimum confidence")
	cobraCmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum suggestions to return")

	return cobraCmd
}

func newTraceExportCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export <bundle-id>",
		Short: "Write trace.json from the current trace store",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			env, shutdown, err := buildEnv(*configPath)
			if err != nil {
				return err
			}
			defer shutdown()

			n, err := env.TraceExport(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "exported %d edges\n", n)

			return nil
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
