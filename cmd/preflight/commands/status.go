package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewStatusCommand creates and configures the status command.
func NewStatusCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Poll a bundle-construction task's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			env, shutdown, err := buildEnv(*configPath)
			if err != nil {
				return err
			}
			defer shutdown()

			task, err := env.GetTaskStatus(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "task:     %s\n", task.TaskID)
			fmt.Fprintf(os.Stdout, "phase:    %s\n", task.Phase)
			fmt.Fprintf(os.Stdout, "progress: %d%%\n", task.Progress)

			if task.Message != "" {
				fmt.Fprintf(os.Stdout, "message:  %s\n", task.Message)
			}

			if task.Terminal != nil {
				if task.Terminal.Error != "" {
					color.New(color.FgRed).Fprintf(os.Stdout, "error:    %s\n", task.Terminal.Error)
				} else {
					color.New(color.FgGreen).Fprintf(os.Stdout, "bundle:   %s\n", task.Terminal.BundleID)
				}
			}

			return nil
		},
	}
}
