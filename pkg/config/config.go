// Package config loads and persists the browsergate daemon configuration.
//
// Configuration lives in a single YAML file, by default
// ~/.browsergate/config.yaml. A missing file is not an error: Load
// returns the defaults so a fresh install works without any setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file is absent or a field is unset.
const (
	DefaultBridgeAddr        = "127.0.0.1:9223"
	DefaultHeadless          = true
	DefaultBridgeCallTimeout = 30 * time.Second
	DefaultSnapshotMaxNodes  = 200
)

// Config holds all daemon settings.
type Config struct {
	// SocketPath is the unix socket the daemon serves requests on.
	SocketPath string `yaml:"socket_path"`

	// BridgeAddr is the listen address for the extension WebSocket bridge.
	BridgeAddr string `yaml:"bridge_addr"`

	// Headless controls whether the managed browser runs headless.
	Headless bool `yaml:"headless"`

	// UserDataDir is the browser profile directory. Empty means a
	// throwaway profile chosen by the browser launcher.
	UserDataDir string `yaml:"user_data_dir"`

	// StateDir is where saved authentication states are stored.
	StateDir string `yaml:"state_dir"`

	// BridgeCallTimeoutSeconds bounds each extension round-trip.
	// Zero means the default of 30 seconds.
	BridgeCallTimeoutSeconds int `yaml:"bridge_call_timeout_seconds"`

	// SnapshotMaxNodes bounds how many nodes a page snapshot returns.
	// Zero means the default; a negative value removes the bound.
	SnapshotMaxNodes int `yaml:"snapshot_max_nodes"`
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".browsergate", "config.yaml"), nil
}

// Default returns a Config populated with defaults. Path-valued fields
// are rooted under ~/.browsergate when the home directory is known.
func Default() *Config {
	cfg := &Config{
		BridgeAddr:       DefaultBridgeAddr,
		Headless:         DefaultHeadless,
		SnapshotMaxNodes: DefaultSnapshotMaxNodes,
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		base := filepath.Join(homeDir, ".browsergate")
		cfg.SocketPath = filepath.Join(base, "browsergate.sock")
		cfg.StateDir = filepath.Join(base, "auth")
	}

	return cfg
}

// Load reads the config file at path. If path is empty the default
// location is used. A missing file yields the defaults; a malformed
// file is an error. Unset fields are backfilled with defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the config to path atomically (temp file + rename).
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp config file: %w", err)
	}

	return nil
}

// BridgeCallTimeout returns the configured extension round-trip bound.
func (c *Config) BridgeCallTimeout() time.Duration {
	if c.BridgeCallTimeoutSeconds <= 0 {
		return DefaultBridgeCallTimeout
	}
	return time.Duration(c.BridgeCallTimeoutSeconds) * time.Second
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.SocketPath == "" {
		c.SocketPath = def.SocketPath
	}
	if c.BridgeAddr == "" {
		c.BridgeAddr = def.BridgeAddr
	}
	if c.StateDir == "" {
		c.StateDir = def.StateDir
	}
	if c.SnapshotMaxNodes == 0 {
		c.SnapshotMaxNodes = def.SnapshotMaxNodes
	}
}
