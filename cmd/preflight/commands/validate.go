package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/preflight/internal/api"
	"github.com/Sumatoshi-tech/preflight/internal/validate"
)

// NewValidateCommand creates and configures the validate command.
func NewValidateCommand(configPath *string) *cobra.Command {
	var claimsFile string

	cobraCmd := &cobra.Command{
		Use:   "validate <bundle-id>",
		Short: "Check a bundle's completeness, or validate claims against it",
		Long: `With no --claims file, checks the bundle's completeness: the five
required top-level artifacts plus at least one normalized file, reporting
what it finds without repairing anything (repair_bundle's validate mode).

With --claims, validates each claim's evidence (file existence, range
bounds, snippet match, snippet hash) against the bundle's on-disk content.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			env, shutdown, err := buildEnv(*configPath)
			if err != nil {
				return err
			}
			defer shutdown()

			if claimsFile == "" {
				return runCompletenessValidate(cobraCmd.Context(), env, args[0])
			}

			return runClaimValidate(env, args[0], claimsFile)
		},
	}

	cobraCmd.Flags().StringVar(&claimsFile, "claims", "", "path to a JSON array of claims to validate")

	return cobraCmd
}

func runCompletenessValidate(ctx context.Context, env *api.Env, bundleID string) error {
	result, err := env.RepairBundle(ctx, bundleID, validate.ModeValidate)
	if err != nil {
		return err
	}

	if result.Validated {
		color.New(color.FgGreen).Fprintln(os.Stdout, "bundle is complete")

		return nil
	}

	color.New(color.FgRed).Fprintln(os.Stdout, "bundle is incomplete")

	for _, m := range result.MissingComponents {
		color.New(color.FgRed).Fprintf(os.Stdout, "  missing: %s\n", m)
	}

	for _, issue := range result.UnfixableIssues {
		color.New(color.FgRed).Fprintf(os.Stdout, "  - %s\n", issue)
	}

	for _, w := range result.Warnings {
		color.New(color.FgYellow).Fprintf(os.Stdout, "  - %s\n", w)
	}

	return nil
}

func runClaimValidate(env *api.Env, bundleID, claimsFile string) error {
	data, err := os.ReadFile(claimsFile)
	if err != nil {
		return fmt.Errorf("read claims file: %w", err)
	}

	var claims []validate.Claim
	if err := json.Unmarshal(data, &claims); err != nil {
		return fmt.Errorf("parse claims file: %w", err)
	}

	report, err := env.ValidateReport(bundleID, claims)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(report); err != nil {
		return err
	}

	if !report.Passed {
		os.Exit(1)
	}

	return nil
}
