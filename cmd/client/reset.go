package main

import (
	"errors"
	"fmt"

	"github.com/openmined/ftpmirror/internal/client"
	"github.com/openmined/ftpmirror/internal/client/workspace"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newResetCmd())
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the tracked state so the next run downloads everything again",
		Long: `Moves the state file aside as <state>.<timestamp>.bak. Local files are not touched;
the next pass treats every remote file as new and downloads it again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			statePath, err := statePathFromConfig(cmd)
			if err != nil {
				return err
			}

			reset, err := client.ResetState(statePath)
			if errors.Is(err, workspace.ErrWorkspaceLocked) {
				fmt.Fprintln(cmd.ErrOrStderr(), red.Render("ERROR"), "another ftpmirror is running on", statePath)
				return err
			} else if err != nil {
				return err
			}

			if !reset {
				fmt.Fprintf(cmd.OutOrStdout(), "No state at %s\n", cyan.Render(statePath))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s state at %s\n", green.Render("Reset"), cyan.Render(statePath))
			return nil
		},
	}
}
