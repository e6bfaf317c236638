package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewListCommand creates and configures the list command.
func NewListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every known bundle id",
		RunE: func(_ *cobra.Command, _ []string) error {
			env, shutdown, err := buildEnv(*configPath)
			if err != nil {
				return err
			}
			defer shutdown()

			ids, err := env.ListBundles()
			if err != nil {
				return err
			}

			tbl := table.NewWriter()
			tbl.SetOutputMirror(os.Stdout)
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"Bundle ID"})

			for _, id := range ids {
				tbl.AppendRow(table.Row{id})
			}

			tbl.AppendFooter(table.Row{fmt.Sprintf("%d bundles", len(ids))})
			tbl.Render()

			return nil
		},
	}
}
