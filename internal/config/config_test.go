package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	RegisterPersistentFlags(fs)
	require.NoError(t, fs.Parse(args))
	v, err := NewViper(fs)
	if err != nil {
		return Config{}, err
	}
	return Load(v)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/var/state")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, Config{
		DeployDir: "/opt/dpw",
		Branch:    "main",
		Git:       "git",
		Python:    "python3",
	}, cfg)
}

func TestLoadHistoryIsOptIn(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/var/state")

	cfg, err := load(t, "--history")
	require.NoError(t, err)
	assert.Equal(t, "/var/state/dpw-deploy/history.db", cfg.HistoryPath)

	cfg, err = load(t, "--history-file", "/tmp/h.db")
	require.NoError(t, err)
	assert.Empty(t, cfg.HistoryPath, "a location alone does not enable recording")

	t.Setenv("DPW_HISTORY", "true")
	cfg, err = load(t, "--history-file", "/tmp/h.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/h.db", cfg.HistoryPath)
}

func TestLoadFlags(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(t,
		"--dir", dir,
		"--repo", "https://example/repo.git",
		"--branch", "release",
		"--run-tests",
	)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DeployDir)
	assert.Equal(t, "https://example/repo.git", cfg.RepoURL)
	assert.Equal(t, "release", cfg.Branch)
	assert.True(t, cfg.RunTests)
	assert.Empty(t, cfg.HistoryPath)
}

func TestLoadRelativeDirIsMadeAbsolute(t *testing.T) {
	cfg, err := load(t, "--dir", "deploy")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.DeployDir))
	assert.Equal(t, "deploy", filepath.Base(cfg.DeployDir))
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("DPW_BRANCH", "staging")
	t.Setenv("DPW_RUN_TESTS", "true")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Branch)
	assert.True(t, cfg.RunTests)

	cfg, err = load(t, "--branch", "main")
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Branch, "flags win over environment")
}

func TestLoadConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "deploy.yaml")
	require.NoError(t, os.WriteFile(file, []byte("repo: https://example/from-file.git\nbranch: v2.0.0\nhistory: true\nhistory-file: /tmp/h.db\n"), 0o644))

	cfg, err := load(t, "--config", file)
	require.NoError(t, err)
	assert.Equal(t, "https://example/from-file.git", cfg.RepoURL)
	assert.Equal(t, "v2.0.0", cfg.Branch)
	assert.Equal(t, "/tmp/h.db", cfg.HistoryPath)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"empty branch", []string{"--branch", " "}},
		{"empty dir", []string{"--dir", ""}},
		{"empty python", []string{"--python", ""}},
		{"missing config file", []string{"--config", "/nonexistent/deploy.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.args...)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadHistoryPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/var/state")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterPersistentFlags(fs)
	require.NoError(t, fs.Parse(nil))
	v, err := NewViper(fs)
	require.NoError(t, err)
	assert.Equal(t, "/var/state/dpw-deploy/history.db", LoadHistoryPath(v))

	require.NoError(t, fs.Set(KeyHistoryFile, "/tmp/x.db"))
	assert.Equal(t, "/tmp/x.db", LoadHistoryPath(v))
}
