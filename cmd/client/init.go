package main

import (
	"fmt"

	"github.com/openmined/ftpmirror/internal/client/config"
	"github.com/openmined/ftpmirror/internal/utils"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a template config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveConfigPath(cmd)
			if !force {
				if cfg, err := config.LoadClientConfig(path); err == nil {
					out := cmd.OutOrStdout()
					fmt.Fprintln(out, "ftpmirror already initialized")
					printConfig(cmd, cfg)
					return nil
				}
			}
			return writeTemplate(cmd, path)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config")
	return cmd
}

func writeTemplate(cmd *cobra.Command, path string) error {
	if path == "" {
		path = config.DefaultConfigPath
	}
	resolved, err := utils.ResolvePath(path)
	if err != nil {
		return err
	}

	cfg := config.Template()
	if err := cfg.Save(resolved); err != nil {
		return fmt.Errorf("write config template: %w", err)
	}
	cfg.Path = resolved

	fmt.Fprintln(cmd.OutOrStdout(), "Created config template. Please edit and run again.")
	printConfig(cmd, cfg)
	return nil
}

func printConfig(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config Path: %s\n", green.Render(cfg.Path))
	fmt.Fprintf(out, "FTP Host:    %s\n", cyan.Render(cfg.FTPHost))
	fmt.Fprintf(out, "Remote Dir:  %s\n", cyan.Render(cfg.RemoteDir))
	fmt.Fprintf(out, "Local Dir:   %s\n", cyan.Render(cfg.LocalDir))
	fmt.Fprintf(out, "Preview:     %s\n", cyan.Render(fmt.Sprint(cfg.PreviewMode)))
}
