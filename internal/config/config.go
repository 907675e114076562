// Package config builds the immutable deployment configuration from flags,
// DPW_* environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultDeployDir = "/opt/dpw"
	DefaultBranch    = "main"
	DefaultGit       = "git"
	DefaultPython    = "python3"

	EnvPrefix = "DPW"
)

const (
	KeyDir       = "dir"
	KeyRepo      = "repo"
	KeyBranch    = "branch"
	KeyRunTests  = "run-tests"
	KeyGit       = "git"
	KeyPython    = "python"
	KeyHistory     = "history"
	KeyHistoryFile = "history-file"
	KeyVerbose     = "verbose"
	KeyConfig      = "config"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is built once per invocation and passed by value.
type Config struct {
	DeployDir   string
	RepoURL     string
	Branch      string
	RunTests    bool
	Git         string
	Python      string
	HistoryPath string // empty unless recording was requested
}

// RegisterFlags adds the deployment flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyDir, DefaultDeployDir, "Target deployment directory")
	fs.String(KeyRepo, "", "Repository URL to clone when the target has no checkout")
	fs.String(KeyBranch, DefaultBranch, "Branch or tag to check out")
	fs.Bool(KeyRunTests, false, "Install dev extras and run the test suite after install")
	fs.String(KeyGit, DefaultGit, "git executable")
	fs.String(KeyPython, DefaultPython, "Interpreter used to create the environment")
	fs.Bool(KeyHistory, false, "Record this deployment in the history database")
}

// RegisterPersistentFlags adds flags shared by every command to fs.
func RegisterPersistentFlags(fs *pflag.FlagSet) {
	fs.String(KeyConfig, "", "Config file (yaml, toml or json)")
	fs.String(KeyHistoryFile, "", "Deployment history database (default $XDG_STATE_HOME/dpw-deploy/history.db)")
	fs.BoolP(KeyVerbose, "v", false, "Enable verbose output")
}

// NewViper binds fs, the environment and the config file named by --config.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	if file := v.GetString(KeyConfig); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read config file: %v", ErrInvalid, err)
		}
	}
	return v, nil
}

// Load reads a Config out of v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		DeployDir: v.GetString(KeyDir),
		RepoURL:   strings.TrimSpace(v.GetString(KeyRepo)),
		Branch:    strings.TrimSpace(v.GetString(KeyBranch)),
		RunTests:  v.GetBool(KeyRunTests),
		Git:       v.GetString(KeyGit),
		Python:    v.GetString(KeyPython),
	}
	if v.GetBool(KeyHistory) {
		cfg.HistoryPath = LoadHistoryPath(v)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadHistoryPath reads only the history location, for commands that do not
// deploy.
func LoadHistoryPath(v *viper.Viper) string {
	if p := v.GetString(KeyHistoryFile); p != "" {
		return p
	}
	return DefaultHistoryPath()
}

func (c *Config) normalize() error {
	if c.DeployDir == "" {
		return fmt.Errorf("%w: empty deployment directory", ErrInvalid)
	}
	abs, err := filepath.Abs(c.DeployDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	c.DeployDir = abs
	if c.Branch == "" {
		return fmt.Errorf("%w: empty branch", ErrInvalid)
	}
	if c.Git == "" || c.Python == "" {
		return fmt.Errorf("%w: empty tool name", ErrInvalid)
	}
	return nil
}

// DefaultHistoryPath is $XDG_STATE_HOME/dpw-deploy/history.db, falling back
// to ~/.local/state. It returns "" when no home directory is known.
func DefaultHistoryPath() string {
	state := os.Getenv("XDG_STATE_HOME")
	if state == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		state = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(state, "dpw-deploy", "history.db")
}
