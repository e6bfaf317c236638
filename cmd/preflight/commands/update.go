package commands

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/preflight/internal/api"
	"github.com/Sumatoshi-tech/preflight/internal/bundlebuilder"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
)

// UpdateCommand holds the configuration for the update command.
type UpdateCommand struct {
	configPath *string

	repos      []string
	libraries  []string
	topics     []string
	bundleType string
}

// NewUpdateCommand creates and configures the update command.
func NewUpdateCommand(configPath *string) *cobra.Command {
	uc := &UpdateCommand{configPath: configPath}

	cobraCmd := &cobra.Command{
		Use:   "update <bundle-id>",
		Short: "Re-run acquisition and normalization for an existing bundle",
		Args:  cobra.ExactArgs(1),
		RunE:  uc.run,
	}

	cobraCmd.Flags().StringSliceVarP(&uc.repos, "repo", "r", nil, "repo spec (repeatable; replaces the bundle's repo set)")
	cobraCmd.Flags().StringSliceVar(&uc.libraries, "library", nil, "named library dependency (repeatable)")
	cobraCmd.Flags().StringSliceVar(&uc.topics, "topic", nil, "topic tag (repeatable)")
	cobraCmd.Flags().StringVar(&uc.bundleType, "type", "repo", "bundle type: repo or document")

	return cobraCmd
}

func (uc *UpdateCommand) run(cobraCmd *cobra.Command, args []string) error {
	bundleID := args[0]

	repos := make([]manifest.RepoInput, 0, len(uc.repos))

	for _, spec := range uc.repos {
		r, err := parseRepoSpec(spec)
		if err != nil {
			return err
		}

		repos = append(repos, r)
	}

	env, shutdown, err := buildEnv(*uc.configPath)
	if err != nil {
		return err
	}
	defer shutdown()

	result, err := env.UpdateBundle(cobraCmd.Context(), bundleID, api.CreateBundleRequest{
		Repos:      repos,
		Libraries:  uc.libraries,
		Topics:     uc.topics,
		IfExists:   bundlebuilder.IfExistsUpdateExisting,
		Type:       manifest.BundleType(uc.bundleType),
	})
	if err != nil {
		return err
	}

	printBundleSummary(result.Summary)

	if result.Changed {
		color.New(color.FgGreen).Fprintln(os.Stdout, "bundle updated")
	}

	return nil
}
