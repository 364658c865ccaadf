package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/openmined/ftpmirror/internal/utils"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigDir   = filepath.Join(home, ".ftpmirror")
	DefaultConfigPath  = filepath.Join(DefaultConfigDir, "config.json")
	DefaultStatePath   = filepath.Join(DefaultConfigDir, "state.db")
	DefaultLogFilePath = filepath.Join(DefaultConfigDir, "logs", "ftpmirror.log")
)

const (
	DefaultFTPHost  = "127.0.0.1"
	DefaultFTPUser  = "anonymous"
	DefaultInterval = 120 // seconds
	DefaultTimeout  = 30  // seconds
)

var (
	ErrNoHost     = errors.New("ftp host is required")
	ErrNoLocalDir = errors.New("local dir is required")
)

// Config is the on-disk client configuration. Durations are whole seconds.
type Config struct {
	FTPHost     string   `json:"ftp_host"`
	FTPUser     string   `json:"ftp_user"`
	FTPPassword string   `json:"ftp_password"`
	RemoteDir   string   `json:"remote_dir"`
	LocalDir    string   `json:"local_dir"`
	PreviewMode bool     `json:"preview_mode"`
	Interval    int      `json:"interval"`
	StatePath   string   `json:"state_path,omitempty"`
	FTPTLS      bool     `json:"ftp_tls,omitempty"`
	FTPTimeout  int      `json:"ftp_timeout,omitempty"`
	DisableEPSV bool     `json:"ftp_disable_epsv,omitempty"`
	Include     []string `json:"include,omitempty"`
	Ignore      []string `json:"ignore,omitempty"`
	Path        string   `json:"-"`
}

// Template is written when no config exists yet.
func Template() *Config {
	return &Config{
		FTPHost:     DefaultFTPHost,
		FTPUser:     DefaultFTPUser,
		FTPPassword: DefaultFTPUser,
		RemoteDir:   "/",
		LocalDir:    filepath.Join(home, "FTPMirror"),
		PreviewMode: true,
		Interval:    DefaultInterval,
	}
}

// Validate checks required fields, fills defaults and makes paths absolute.
func (c *Config) Validate() error {
	c.FTPHost = strings.TrimSpace(c.FTPHost)
	if c.FTPHost == "" {
		return ErrNoHost
	}
	if strings.Contains(c.FTPHost, "://") {
		return fmt.Errorf("ftp host %q must be a host or host:port", c.FTPHost)
	}

	if c.LocalDir == "" {
		return ErrNoLocalDir
	}
	localDir, err := utils.ResolvePath(c.LocalDir)
	if err != nil {
		return fmt.Errorf("local dir: %w", err)
	}
	c.LocalDir = localDir

	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}
	statePath, err := utils.ResolvePath(c.StatePath)
	if err != nil {
		return fmt.Errorf("state path: %w", err)
	}
	if strings.HasPrefix(statePath, c.LocalDir+string(filepath.Separator)) {
		return fmt.Errorf("state path %q must be outside local dir %q", statePath, c.LocalDir)
	}
	c.StatePath = statePath

	if c.Path != "" {
		if c.Path, err = utils.ResolvePath(c.Path); err != nil {
			return fmt.Errorf("config path: %w", err)
		}
	}

	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative, got %d", c.Interval)
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.FTPTimeout < 0 {
		return fmt.Errorf("ftp timeout must not be negative, got %d", c.FTPTimeout)
	}
	if c.FTPTimeout == 0 {
		c.FTPTimeout = DefaultTimeout
	}

	return nil
}

func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.FTPTimeout) * time.Second
}

// Save writes the config as indented JSON. The file holds a password, so it
// is only readable by the owner.
func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func LoadClientConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Path = path
	return &cfg, nil
}
