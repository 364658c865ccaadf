package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/openmined/ftpmirror/internal/client"
	"github.com/openmined/ftpmirror/internal/client/mirror"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newOnceCmd())
}

func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single mirror pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			c, err := client.New(cfg, client.WithConsole(os.Stdin, os.Stdout, isatty.IsTerminal(os.Stdout.Fd())))
			if err != nil {
				return err
			}

			res, err := c.RunOnce(cmd.Context(), cfg.PreviewMode)
			if errors.Is(err, mirror.ErrDeclined) {
				fmt.Fprintln(cmd.OutOrStdout(), gray.Render("changes not committed"))
				return nil
			}
			if err != nil {
				return err
			}

			printPassSummary(cmd, res)
			if res.Failed() > 0 {
				return fmt.Errorf("%d file(s) failed, they will be retried on the next pass", res.Failed())
			}
			return nil
		},
	}
}

func printPassSummary(cmd *cobra.Command, res *mirror.PassResult) {
	out := cmd.OutOrStdout()
	if res.Execute == nil {
		return
	}
	fmt.Fprintf(out, "%s %d downloaded, %d updated, %d deleted, %s, %d unchanged\n",
		green.Render("done:"),
		res.Execute.Downloaded,
		res.Execute.Updated,
		res.Execute.Deleted,
		red.Render(fmt.Sprintf("%d failed", res.Failed())),
		res.Plan.Unchanged,
	)
}
