package commands

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/preflight/internal/validate"
)

// NewRepairCommand creates and configures the repair command.
func NewRepairCommand(configPath *string) *cobra.Command {
	cobraCmd := &cobra.Command{
		Use:   "repair <bundle-id>",
		Short: "Rebuild a bundle's missing or empty derived artifacts",
		Long: `Rebuilds whatever derived artifacts are missing or empty (search
index, guides, overview) without ever re-fetching repos. Repos missing
entirely is reported as unfixable: recreate the bundle, or run update_bundle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			env, shutdown, err := buildEnv(*configPath)
			if err != nil {
				return err
			}
			defer shutdown()

			result, err := env.RepairBundle(cobraCmd.Context(), args[0], validate.ModeRepair)
			if err != nil {
				return err
			}

			if result.Validated {
				color.New(color.FgGreen).Fprintln(os.Stdout, "bundle is complete")
			} else {
				color.New(color.FgRed).Fprintln(os.Stdout, "bundle is still incomplete")

				for _, m := range result.MissingComponents {
					color.New(color.FgRed).Fprintf(os.Stdout, "  missing: %s\n", m)
				}
			}

			for _, r := range result.Repaired {
				color.New(color.FgGreen).Fprintf(os.Stdout, "  repaired: %s\n", r)
			}

			for _, issue := range result.UnfixableIssues {
				color.New(color.FgRed).Fprintf(os.Stdout, "  - %s\n", issue)
			}

			for _, w := range result.Warnings {
				color.New(color.FgYellow).Fprintf(os.Stdout, "  - %s\n", w)
			}

			return nil
		},
	}

	return cobraCmd
}
