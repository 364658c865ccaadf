package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openmined/ftpmirror/internal/client/config"
	"github.com/openmined/ftpmirror/internal/client/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigEnv(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("FTPMIRROR_CONFIG_PATH", filepath.Join(tmp, "missing.json"))
	t.Setenv("FTPMIRROR_FTP_HOST", "10.1.1.1:2121")
	t.Setenv("FTPMIRROR_FTP_USER", "ingest")
	t.Setenv("FTPMIRROR_FTP_PASSWORD", "secret")
	t.Setenv("FTPMIRROR_REMOTE_DIR", `\\MXF`)
	t.Setenv("FTPMIRROR_LOCAL_DIR", filepath.Join(tmp, "mirror"))
	t.Setenv("FTPMIRROR_PREVIEW_MODE", "true")
	t.Setenv("FTPMIRROR_INTERVAL", "30")
	t.Setenv("FTPMIRROR_STATE_PATH", filepath.Join(tmp, "state.db"))
	t.Setenv("FTPMIRROR_FTP_DISABLE_EPSV", "true")

	cfg, err := loadConfig(rootCmd)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, filepath.Join(tmp, "missing.json"), cfg.Path)
	assert.Equal(t, "10.1.1.1:2121", cfg.FTPHost)
	assert.Equal(t, "ingest", cfg.FTPUser)
	assert.Equal(t, "secret", cfg.FTPPassword)
	assert.Equal(t, `\\MXF`, cfg.RemoteDir)
	assert.True(t, cfg.PreviewMode)
	assert.Equal(t, 30, cfg.Interval)
	assert.Equal(t, config.DefaultTimeout, cfg.FTPTimeout)
	assert.True(t, cfg.DisableEPSV)
}

func TestLoadConfigJSON(t *testing.T) {
	tmp := t.TempDir()
	dummyConfig := `
{
	"ftp_host": "127.0.0.1",
	"ftp_user": "anonymous",
	"ftp_password": "anonymous",
	"remote_dir": "\\\\MXF",
	"local_dir": "/tmp/ftpmirror-test-json",
	"preview_mode": false,
	"interval": 45,
	"ftp_disable_epsv": true,
	"include": ["**/*.mxf"]
}
`
	dummyConfigFile := filepath.Join(tmp, "dummy.json")
	require.NoError(t, os.WriteFile(dummyConfigFile, []byte(dummyConfig), 0o644))
	t.Setenv("FTPMIRROR_CONFIG_PATH", dummyConfigFile)

	cfg, err := loadConfig(rootCmd)
	require.NoError(t, err)

	assert.Equal(t, dummyConfigFile, cfg.Path)
	assert.Equal(t, "127.0.0.1", cfg.FTPHost)
	assert.Equal(t, `\\MXF`, cfg.RemoteDir)
	assert.Equal(t, "/tmp/ftpmirror-test-json", cfg.LocalDir)
	assert.False(t, cfg.PreviewMode)
	assert.Equal(t, 45, cfg.Interval)
	assert.Equal(t, []string{"**/*.mxf"}, cfg.Include)
	assert.True(t, cfg.DisableEPSV)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	t.Setenv("FTPMIRROR_CONFIG_PATH", bad)

	_, err := loadConfig(rootCmd)
	assert.Error(t, err)
}

func TestInitCommand_WritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	out, code := runCLI(t, "init", "--config", path)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Created config template")

	cfg, err := config.LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultFTPHost, cfg.FTPHost)
	assert.True(t, cfg.PreviewMode)

	out, code = runCLI(t, "init", "--config", path)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "already initialized")
}

func TestStatusCommand_EmptyState(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.db")

	out, code := runCLI(t, "status", "--config", filepath.Join(t.TempDir(), "none.json"), "--state", state)
	require.Equal(t, 0, code, out)
	assert.Contains(t, stripANSI(out), "No files tracked yet.")
}

func TestOnceCommand_InvalidConfig(t *testing.T) {
	out, code := runCLI(t, "once", "--config", filepath.Join(t.TempDir(), "none.json"))
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "ftp host is required")
}

func TestResetCommand(t *testing.T) {
	tmp := t.TempDir()
	state := filepath.Join(tmp, "state.db")
	configPath := filepath.Join(tmp, "none.json")

	out, code := runCLI(t, "reset", "--config", configPath, "--state", state)
	require.Equal(t, 0, code, out)
	assert.Contains(t, stripANSI(out), "No state at")

	j, err := mirror.OpenJournal(state)
	require.NoError(t, err)
	require.NoError(t, j.Upsert(mirror.NewFileRecord("a.mxf", mirror.StatusDownloaded, 3)))
	require.NoError(t, j.Close())

	out, code = runCLI(t, "reset", "--config", configPath, "--state", state)
	require.Equal(t, 0, code, out)
	assert.Contains(t, stripANSI(out), "Reset state at")
	assert.NoFileExists(t, state)

	out, code = runCLI(t, "status", "--config", configPath, "--state", state)
	require.Equal(t, 0, code, out)
	assert.Contains(t, stripANSI(out), "No files tracked yet.")
}
