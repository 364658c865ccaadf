package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openmined/ftpmirror/internal/client/config"
	"github.com/openmined/ftpmirror/internal/client/console"
	"github.com/openmined/ftpmirror/internal/client/mirror"
	"github.com/openmined/ftpmirror/internal/client/workspace"
	"github.com/openmined/ftpmirror/internal/ftpclient"
	"github.com/openmined/ftpmirror/internal/utils"
)

type Client struct {
	config    *config.Config
	workspace *workspace.Workspace
	dialer    mirror.Dialer
	filter    *mirror.Filter
	in        io.Reader
	out       io.Writer
	tty       bool
}

type Option func(*Client)

// WithDialer replaces the FTP dialer built from the config.
func WithDialer(d mirror.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithConsole sets where previews and progress are written and where
// confirmations are read from.
func WithConsole(in io.Reader, out io.Writer, interactive bool) Option {
	return func(c *Client) {
		c.in, c.out, c.tty = in, out, interactive
	}
}

func New(cfg *config.Config, opts ...Option) (*Client, error) {
	ws, err := workspace.NewWorkspace(cfg.LocalDir, cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	filter, err := mirror.NewFilter(cfg.Include, cfg.Ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter: %w", err)
	}

	c := &Client{
		config:    cfg,
		workspace: ws,
		filter:    filter,
		in:        os.Stdin,
		out:       os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dialer == nil {
		ftp, err := ftpclient.New(ftpclient.Config{
			Host:        cfg.FTPHost,
			User:        cfg.FTPUser,
			Password:    cfg.FTPPassword,
			RemoteDir:   cfg.RemoteDir,
			Timeout:     cfg.TimeoutDuration(),
			TLS:         cfg.FTPTLS,
			DisableEPSV: cfg.DisableEPSV,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ftp client: %w", err)
		}
		c.dialer = ftp
	}

	return c, nil
}

// Start mirrors until ctx is done, or for a single pass in preview mode.
func (c *Client) Start(ctx context.Context) error {
	slog.Info("ftpmirror client start", "host", c.config.FTPHost, "remoteDir", c.config.RemoteDir, "localDir", c.config.LocalDir, "interval", c.config.IntervalDuration(), "preview", c.config.PreviewMode)

	return c.withEngine(c.config.PreviewMode, func(engine *mirror.Engine) error {
		err := engine.Start(ctx)
		if errors.Is(err, mirror.ErrDeclined) {
			slog.Info("changes not committed")
			return nil
		}
		return err
	})
}

// RunOnce runs exactly one pass. Preview asks for confirmation before executing.
func (c *Client) RunOnce(ctx context.Context, preview bool) (*mirror.PassResult, error) {
	var result *mirror.PassResult
	err := c.withEngine(preview, func(engine *mirror.Engine) error {
		var err error
		result, err = engine.RunPass(ctx)
		return err
	})
	return result, err
}

func (c *Client) withEngine(preview bool, fn func(*mirror.Engine) error) error {
	if err := c.workspace.Setup(); err != nil {
		return fmt.Errorf("failed to setup workspace: %w", err)
	}
	defer c.workspace.Unlock()

	journal, err := mirror.OpenJournal(c.workspace.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open state: %w", err)
	}
	defer journal.Close()

	engine, err := mirror.NewEngine(mirror.EngineConfig{
		LocalDir: c.workspace.LocalDir,
		Interval: c.config.IntervalDuration(),
		Preview:  preview,
		Filter:   c.filter,
	}, c.dialer, journal,
		mirror.WithPreviewer(console.NewPreviewer(c.in, c.out, ftpclient.NormalizeRemoteDir(c.config.RemoteDir), c.workspace.LocalDir)),
		mirror.WithExecutorOptions(mirror.WithProgressReporter(console.NewProgressPrinter(c.out, c.tty))),
	)
	if err != nil {
		return err
	}

	return fn(engine)
}

// ResetState moves the state file aside so the next pass starts from an empty
// state and downloads everything again. It fails with
// workspace.ErrWorkspaceLocked while a mirror is running on the same state.
// A missing state file is not an error; reset reports false.
func ResetState(statePath string) (bool, error) {
	if !utils.FileExists(statePath) {
		return false, nil
	}

	// only the state lock is taken, the local dir is left alone
	ws, err := workspace.NewWorkspace(filepath.Dir(statePath), statePath)
	if err != nil {
		return false, fmt.Errorf("failed to create workspace: %w", err)
	}
	if err := ws.Lock(); err != nil {
		return false, err
	}
	defer ws.Unlock()

	journal, err := mirror.OpenJournal(ws.StatePath)
	if err != nil {
		return false, fmt.Errorf("failed to open state: %w", err)
	}
	if err := journal.Destroy(); err != nil {
		return false, fmt.Errorf("failed to reset state: %w", err)
	}

	slog.Info("state reset", "state", ws.StatePath)
	return true, nil
}

// Records returns the persisted state without taking the workspace lock.
// A state file that does not exist yet has no records.
func Records(statePath string) ([]*mirror.FileRecord, error) {
	if !utils.FileExists(statePath) {
		return nil, nil
	}

	journal, err := mirror.OpenJournal(statePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}
	defer journal.Close()

	return journal.ScanAll()
}
