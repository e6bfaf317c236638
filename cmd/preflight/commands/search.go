package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/preflight/internal/api"
	"github.com/Sumatoshi-tech/preflight/internal/fts"
)

// SearchCommand holds the configuration for the search command.
type SearchCommand struct {
	configPath *string

	scope       string
	extensions  []string
	groupByFile bool
	limit       int
}

// NewSearchCommand creates and configures the search command.
func NewSearchCommand(configPath *string) *cobra.Command {
	sc := &SearchCommand{configPath: configPath}

	cobraCmd := &cobra.Command{
		Use:   "search <bundle-id> <query>",
		Short: "Full-text search within a bundle",
		Args:  cobra.ExactArgs(2),
		RunE:  sc.run,
	}

	cobraCmd.Flags().StringVar(&sc.scope, "scope", "all", "search scope: all, docs, code")
	cobraCmd.Flags().StringSliceVar(&sc.extensions, "ext", nil, "file extension allowlist, e.g. .go,.md")
	cobraCmd.Flags().BoolVar(&sc.groupByFile, "group", false, "group hits by file")
	cobraCmd.Flags().IntVar(&sc.limit, "limit", 50, "maximum hits to return")

	return cobraCmd
}

func (sc *SearchCommand) run(_ *cobra.Command, args []string) error {
	env, shutdown, err := buildEnv(*sc.configPath)
	if err != nil {
		return err
	}
	defer shutdown()

	result, err := env.Search(args[0], api.SearchRequest{
		Query:       args[1],
		Scope:       sc.scope,
		Extensions:  sc.extensions,
		GroupByFile: sc.groupByFile,
		Limit:       sc.limit,
	})
	if err != nil {
		return err
	}

	if sc.groupByFile {
		printGroupedHits(result.Grouped)
	} else {
		printHits(result.Hits)
	}

	return nil
}

func printHits(hits []fts.SearchHit) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Path", "Line", "Snippet", "Score"})

	for _, h := range hits {
		tbl.AppendRow(table.Row{h.Path, h.LineNo, h.Snippet, fmt.Sprintf("%.2f", h.Score)})
	}

	tbl.AppendFooter(table.Row{"", "", fmt.Sprintf("%d hits", len(hits)), ""})
	tbl.Render()
}

func printGroupedHits(grouped []fts.GroupedHit) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Path", "Hits", "Top Snippet", "Top Score"})

	for _, g := range grouped {
		tbl.AppendRow(table.Row{g.Path, g.HitCount, g.TopSnippet, fmt.Sprintf("%.2f", g.TopScore)})
	}

	tbl.AppendFooter(table.Row{"", "", fmt.Sprintf("%d files", len(grouped)), ""})
	tbl.Render()
}
