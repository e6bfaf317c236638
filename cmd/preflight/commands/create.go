package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/preflight/internal/api"
	"github.com/Sumatoshi-tech/preflight/internal/bundlebuilder"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
)

// CreateCommand holds the configuration for the create command.
type CreateCommand struct {
	configPath *string

	repos      []string
	libraries  []string
	topics     []string
	ifExists   string
	bundleType string
	nameHint   string
}

// NewCreateCommand creates and configures the create command.
func NewCreateCommand(configPath *string) *cobra.Command {
	cc := &CreateCommand{configPath: configPath}

	cobraCmd := &cobra.Command{
		Use:   "create",
		Short: "Build a new bundle from one or more repos/documents",
		Long: `Build a new bundle.

Repo specs (--repo, repeatable):
  owner/repo[@ref]       github
  local:/abs/path[@ref]  local filesystem
  https://...            crawled web document
`,
		RunE: cc.run,
	}

	cobraCmd.Flags().StringSliceVarP(&cc.repos, "repo", "r", nil, "repo spec (repeatable)")
	cobraCmd.Flags().StringSliceVar(&cc.libraries, "library", nil, "named library dependency (repeatable)")
	cobraCmd.Flags().StringSliceVar(&cc.topics, "topic", nil, "topic tag (repeatable)")
	cobraCmd.Flags().StringVar(&cc.ifExists, "if-exists", "returnExisting",
		"policy when a bundle with this fingerprint exists: returnExisting, updateExisting, error, createNew")
	cobraCmd.Flags().StringVar(&cc.bundleType, "type", "repo", "bundle type: repo or document")
	cobraCmd.Flags().StringVar(&cc.nameHint, "name", "", "display name hint")

	return cobraCmd
}

func (cc *CreateCommand) run(cobraCmd *cobra.Command, _ []string) error {
	if len(cc.repos) == 0 {
		return fmt.Errorf("at least one --repo is required")
	}

	repos := make([]manifest.RepoInput, 0, len(cc.repos))

	for _, spec := range cc.repos {
		r, err := parseRepoSpec(spec)
		if err != nil {
			return err
		}

		repos = append(repos, r)
	}

	env, shutdown, err := buildEnv(*cc.configPath)
	if err != nil {
		return err
	}
	defer shutdown()

	summary, err := env.CreateBundle(cobraCmd.Context(), api.CreateBundleRequest{
		Repos:           repos,
		Libraries:       cc.libraries,
		Topics:          cc.topics,
		IfExists:        bundlebuilder.IfExists(cc.ifExists),
		Type:            manifest.BundleType(cc.bundleType),
		DisplayNameHint: cc.nameHint,
	})
	if err != nil {
		return err
	}

	printBundleSummary(summary)

	return nil
}

func printBundleSummary(s api.BundleSummary) {
	color.New(color.FgGreen).Fprintf(os.Stdout, "bundle %s\n", s.BundleID)
	fmt.Fprintf(os.Stdout, "  fingerprint:  %s\n", s.Fingerprint)
	fmt.Fprintf(os.Stdout, "  repos:        %d\n", s.RepoCount)
	fmt.Fprintf(os.Stdout, "  files:        %d\n", s.FileCount)
	fmt.Fprintf(os.Stdout, "  skipped:      %d\n", s.SkippedCount)

	for _, w := range s.Warnings {
		color.New(color.FgYellow).Fprintf(os.Stdout, "  warning: %s\n", w)
	}
}
