package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/openmined/ftpmirror/internal/client"
	"github.com/openmined/ftpmirror/internal/client/config"
	"github.com/openmined/ftpmirror/internal/client/workspace"
	"github.com/openmined/ftpmirror/internal/utils"
	"github.com/openmined/ftpmirror/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	home, _  = os.UserHomeDir()
	logLevel = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:     "ftpmirror",
	Short:   "Mirror a remote FTP directory into a local directory",
	Version: version.Detailed(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logLevel.Set(slog.LevelDebug)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		// nothing configured yet: leave a template behind, like a first run should
		if !utils.FileExists(cfg.Path) && cfg.FTPHost == "" {
			return writeTemplate(cmd, cfg.Path)
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		// all good now, show header
		cmd.SilenceUsage = true
		showHeader(cmd, cfg)

		c, err := client.New(cfg, client.WithConsole(os.Stdin, os.Stdout, isatty.IsTerminal(os.Stdout.Fd())))
		if err != nil {
			return err
		}

		defer slog.Info("Bye!")
		err = c.Start(cmd.Context())
		if errors.Is(err, workspace.ErrWorkspaceLocked) {
			return fmt.Errorf("another ftpmirror is already using %s", cfg.StatePath)
		}
		return err
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	flags := rootCmd.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("config", "c", config.DefaultConfigPath, "ftpmirror config file")
	flags.String("host", "", "FTP host, optionally with :port")
	flags.StringP("user", "u", "", "FTP user (default anonymous)")
	flags.StringP("password", "p", "", "FTP password")
	flags.StringP("remote-dir", "r", "", "remote directory to mirror")
	flags.StringP("local-dir", "l", "", "local directory to mirror into")
	flags.Bool("preview", false, "show planned changes and ask before applying them, then exit")
	flags.IntP("interval", "i", config.DefaultInterval, "seconds between passes")
	flags.String("state", "", "state file path (default "+config.DefaultStatePath+")")
	flags.Bool("tls", false, "use explicit FTPS")
	flags.Int("timeout", config.DefaultTimeout, "FTP dial timeout in seconds")
	flags.Bool("disable-epsv", false, "use PASV instead of EPSV for data connections")
	flags.StringSlice("include", nil, "only mirror paths matching these globs")
	flags.StringSlice("ignore", nil, "skip paths matching these gitignore patterns")
	flags.BoolP("verbose", "v", false, "debug logging")
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	logFile := config.DefaultLogFilePath
	if err := utils.EnsureParent(logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	// Create new log file for this instance
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	logLevel.Set(slog.LevelInfo)
	slog.SetDefault(utils.NewLogger(os.Stdout, file, logLevel))

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		file.Close()
		os.Exit(1)
	}
}

// loadConfig merges flags, FTPMIRROR_* env vars and the config file, in that
// order of precedence. A missing config file is not an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	configPath := resolveConfigPath(cmd)
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		var notFound viper.ConfigFileNotFoundError
		if !enoent && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config read '%s': %w", configPath, err)
		}
	}

	// Bind flags to viper
	for key, flag := range map[string]string{
		"ftp_host":         "host",
		"ftp_user":         "user",
		"ftp_password":     "password",
		"remote_dir":       "remote-dir",
		"local_dir":        "local-dir",
		"preview_mode":     "preview",
		"interval":         "interval",
		"state_path":       "state",
		"ftp_tls":          "tls",
		"ftp_timeout":      "timeout",
		"ftp_disable_epsv": "disable-epsv",
		"include":          "include",
		"ignore":           "ignore",
	} {
		if f := cmd.Flag(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	// Set up environment variables
	v.SetEnvPrefix("FTPMIRROR")
	v.AutomaticEnv()

	return &config.Config{
		Path:        configPath,
		FTPHost:     v.GetString("ftp_host"),
		FTPUser:     v.GetString("ftp_user"),
		FTPPassword: v.GetString("ftp_password"),
		RemoteDir:   v.GetString("remote_dir"),
		LocalDir:    v.GetString("local_dir"),
		PreviewMode: v.GetBool("preview_mode"),
		Interval:    v.GetInt("interval"),
		StatePath:   v.GetString("state_path"),
		FTPTLS:      v.GetBool("ftp_tls"),
		FTPTimeout:  v.GetInt("ftp_timeout"),
		DisableEPSV: v.GetBool("ftp_disable_epsv"),
		Include:     v.GetStringSlice("include"),
		Ignore:      v.GetStringSlice("ignore"),
	}, nil
}
