package main

import (
	"fmt"

	"github.com/openmined/ftpmirror/internal/client"
	"github.com/openmined/ftpmirror/internal/client/config"
	"github.com/openmined/ftpmirror/internal/client/console"
	"github.com/openmined/ftpmirror/internal/utils"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the tracked state of every mirrored file",
		RunE: func(cmd *cobra.Command, args []string) error {
			statePath, err := statePathFromConfig(cmd)
			if err != nil {
				return err
			}

			records, err := client.Records(statePath)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "State: %s\n", cyan.Render(statePath))
			console.RenderRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}
}

// statePathFromConfig resolves the state file without validating the rest of
// the config, so state can be inspected before a host is configured.
func statePathFromConfig(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}

	statePath := cfg.StatePath
	if statePath == "" {
		statePath = config.DefaultStatePath
	}
	return utils.ResolvePath(statePath)
}
