// Package config loads the dshdb YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Sync     SyncConfig     `yaml:"sync"`
	Query    QueryConfig    `yaml:"query"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to the SQLite history file
}

// SyncConfig holds settings for reaching a sync peer.
type SyncConfig struct {
	RemoteShell   string `yaml:"remote_shell"`   // Command used to reach another host
	RemoteCommand string `yaml:"remote_command"` // dshdb binary name on the peer
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	Limit int `yaml:"limit"` // Default number of results (0 = unlimited)
}

// Default returns the default configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is unavailable
		home = "."
	}

	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(home, ".dshdb", "hist.db"),
		},
		Sync: SyncConfig{
			RemoteShell:   "ssh",
			RemoteCommand: "dshdb",
		},
		Query: QueryConfig{
			Limit: 30,
		},
	}
}

// Load loads configuration from file, falling back to defaults when the
// file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDefault loads configuration from the default path
// (~/.dshdb/config.yaml).
func LoadDefault() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return Load(filepath.Join(home, ".dshdb", "config.yaml"))
}

// Save saves configuration to file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Sync.RemoteShell == "" {
		return fmt.Errorf("remote shell cannot be empty")
	}
	if c.Sync.RemoteCommand == "" {
		return fmt.Errorf("remote command cannot be empty")
	}
	if c.Query.Limit < 0 {
		return fmt.Errorf("query limit cannot be negative")
	}
	return nil
}
