// Package config loads the CrossEverything configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	cerr "github.com/crosseverything/crosseverything/internal/errors"
)

// DefaultSearchLimit is the default and hard maximum number of search
// results returned per query.
const DefaultSearchLimit = 1000

// Config is the application configuration.
// All fields are optional in the config file; zero values are replaced
// by defaults in Load.
type Config struct {
	// DataDir is the directory holding the metadata store, the search
	// index and the staging area. Default: ~/.crosseverything.
	DataDir string `yaml:"data_dir"`

	// Roots are the default directory trees to index when the build
	// command is invoked without arguments.
	Roots []string `yaml:"roots"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// SearchLimit is the default result cap for searches.
	// Clamped to DefaultSearchLimit.
	SearchLimit int `yaml:"search_limit"`

	// Watcher configures the filesystem change watcher.
	Watcher WatcherConfig `yaml:"watcher"`
}

// WatcherConfig configures the change watcher.
type WatcherConfig struct {
	// Enabled turns the watcher on. Changes under the indexed roots are
	// applied to the stores as incremental updates.
	Enabled bool `yaml:"enabled"`

	// DebounceWindow is how long to coalesce bursts of events.
	DebounceWindow time.Duration `yaml:"debounce_window"`
}

// DefaultDataDir returns the default application data directory.
// Falls back to the temp directory if the home directory is unavailable.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".crosseverything")
	}
	return filepath.Join(home, ".crosseverything")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:     DefaultDataDir(),
		LogLevel:    "info",
		SearchLimit: DefaultSearchLimit,
		Watcher: WatcherConfig{
			Enabled:        false,
			DebounceWindow: 200 * time.Millisecond,
		},
	}
}

// Load reads the config file at path. A missing file is not an error;
// defaults are returned. A malformed file is a config error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, cerr.New(cerr.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, cerr.New(cerr.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills zero values after unmarshalling.
func (c *Config) applyDefaults() {
	d := Default()
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.SearchLimit <= 0 || c.SearchLimit > DefaultSearchLimit {
		c.SearchLimit = DefaultSearchLimit
	}
	if c.Watcher.DebounceWindow <= 0 {
		c.Watcher.DebounceWindow = d.Watcher.DebounceWindow
	}
	// Relative roots are resolved against the working directory at load
	// time, so the watcher and default builds address the same paths.
	for i, root := range c.Roots {
		if abs, err := filepath.Abs(root); err == nil {
			c.Roots[i] = abs
		}
	}
}

// MetadataPath returns the on-disk location of the metadata store.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.DataDir, "metadata.db")
}

// SearchIndexPath returns the on-disk location of the full-text index.
func (c *Config) SearchIndexPath() string {
	return filepath.Join(c.DataDir, "search_index")
}
