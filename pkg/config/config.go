// Package config provides TOML configuration loading for wake.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultPath is where the per-user config lives when --config is not given.
const DefaultPath = "~/.config/wake/config.toml"

// Config is the top-level configuration structure.
type Config struct {
	Wake  WakeConfig  `toml:"wake"`
	Relay RelayConfig `toml:"relay"`
}

// WakeConfig holds settings for the local registry and logging.
type WakeConfig struct {
	Registry string `toml:"registry"`
	LogLevel string `toml:"log_level"`
}

// RelayConfig holds settings for waking hosts through a remote-shell alias.
type RelayConfig struct {
	Mode       string `toml:"mode"`
	SSHBinary  string `toml:"ssh_binary"`
	SSHConfig  string `toml:"ssh_config"`
	Command    string `toml:"command"`
	Timeout    string `toml:"timeout"`
	KnownHosts string `toml:"known_hosts"`
}

// ParseTimeout parses the relay timeout. Zero means the relay is unbounded.
func (r *RelayConfig) ParseTimeout() (time.Duration, error) {
	if r.Timeout == "" {
		return 2 * time.Minute, nil
	}
	if r.Timeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative relay timeout %s", r.Timeout)
	}
	return d, nil
}

// Load reads and parses a TOML config file, applying defaults for unset values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(cfg)
	cfg.expandPaths()
	return cfg, nil
}

// LoadOrDefault behaves like Load, but a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.expandPaths()
	return cfg
}

func (cfg *Config) expandPaths() {
	cfg.Wake.Registry = ExpandPath(cfg.Wake.Registry)
	cfg.Relay.SSHConfig = ExpandPath(cfg.Relay.SSHConfig)
	cfg.Relay.KnownHosts = ExpandPath(cfg.Relay.KnownHosts)
}

// ExpandPath expands tilde (~) to the user's home directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	usr, err := user.Current()
	if err != nil {
		return path
	}
	if path == "~" {
		return usr.HomeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(usr.HomeDir, path[2:])
	}
	return path
}

func applyDefaults(cfg *Config) {
	if cfg.Wake.Registry == "" {
		cfg.Wake.Registry = "~/.wol_hosts.xml"
	}
	if cfg.Wake.LogLevel == "" {
		cfg.Wake.LogLevel = "warn"
	}

	// Relay defaults
	if cfg.Relay.Mode == "" {
		cfg.Relay.Mode = "exec"
	}
	if cfg.Relay.SSHBinary == "" {
		cfg.Relay.SSHBinary = "ssh"
	}
	if cfg.Relay.SSHConfig == "" {
		cfg.Relay.SSHConfig = "~/.ssh/config"
	}
	if cfg.Relay.Command == "" {
		cfg.Relay.Command = "wakeonlan"
	}
	if cfg.Relay.Timeout == "" {
		cfg.Relay.Timeout = "2m"
	}
	if cfg.Relay.KnownHosts == "" {
		cfg.Relay.KnownHosts = "~/.ssh/known_hosts"
	}
}
