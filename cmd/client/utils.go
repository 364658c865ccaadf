package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/openmined/ftpmirror/internal/client/config"
	"github.com/openmined/ftpmirror/internal/version"
	"github.com/spf13/cobra"
)

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	// https://github.com/fidian/ansi
	red   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cyan  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	title = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
)

func showHeader(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, title.Render(version.ShortWithApp()))
	fmt.Fprintf(out, "Connecting to FTP host %s\n", cyan.Render(cfg.FTPHost))
	fmt.Fprintf(out, "Watch remote folder %s\n", cyan.Render(cfg.RemoteDir))
	fmt.Fprintf(out, "Interval time: %d seconds\n", cfg.Interval)
	if cfg.PreviewMode {
		fmt.Fprintln(out, gray.Render("Preview mode enabled. Turn off to monitor changes."))
	}
	fmt.Fprintln(out, gray.Render("Press Ctrl+C to exit."))
}
