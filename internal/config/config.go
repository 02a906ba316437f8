// Package config handles Cadence configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all configuration
type Config struct {
	// Paths
	DataDir string `json:"data_dir"`

	// Server
	Server ServerConfig `json:"server"`

	// Features
	Features FeatureConfig `json:"features"`
}

// ServerConfig for the HTTP server
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// FeatureConfig for feature flags
type FeatureConfig struct {
	EnablePush bool `json:"enable_push"` // WebSocket push on recalculation
	DebugMode  bool `json:"debug_mode"`
}

// Default returns default configuration
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		DataDir: filepath.Join(home, ".cadence"),
		Server: ServerConfig{
			Port: 8420,
			Host: "localhost",
		},
		Features: FeatureConfig{
			EnablePush: true,
			DebugMode:  false,
		},
	}
}

// Load loads config from file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves config to file
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(c.DataDir, "config.json")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// DatabasePath returns the SQLite database location under DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "cadence.db")
}
