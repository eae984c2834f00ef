package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from the optional
// YAML config file. Flag-driven, per-invocation settings live in Options.
type Config struct {
	ExcludeDirs   []string  `yaml:"exclude_dirs"`  // directory names skipped entirely
	ExcludeFiles  []string  `yaml:"exclude_files"` // file name globs left out of the index
	CacheTTLHours int       `yaml:"cache_ttl_hours"`
	PageSize      int       `yaml:"page_size"`    // visible result rows
	ResultLimit   int       `yaml:"result_limit"` // top-K window size
	Log           LogConfig `yaml:"log"`
}

// LogConfig holds file logging settings.
type LogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // "debug", "info", "warn", "error"
	Dir     string `yaml:"dir"`   // defaults to the cache directory
}

// Options is the validated per-invocation configuration built from CLI flags.
// Constructed once at startup and passed into the scanner and cache manager.
type Options struct {
	Roots      []string
	MaxDepth   uint32
	Workers    int
	NoCache    bool
	ClearCache bool
}

// Load loads configuration from a file, falling back to defaults when the
// file does not exist.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefault(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a file.
func Save(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the file configuration.
func (c *Config) Validate() error {
	if c.CacheTTLHours < 0 {
		return fmt.Errorf("cache TTL must be >= 0")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be > 0")
	}
	if c.ResultLimit < c.PageSize {
		return fmt.Errorf("result limit must be >= page size")
	}

	for _, pattern := range c.ExcludeFiles {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	return nil
}

// Validate checks the flag-driven options. Failures here are fatal at
// startup, before any scanning begins.
func (o *Options) Validate() error {
	if len(o.Roots) == 0 {
		return fmt.Errorf("no scan roots configured")
	}
	for _, root := range o.Roots {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("scan root %q: %w", root, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("scan root %q is not a directory", root)
		}
	}
	if o.Workers <= 0 {
		return fmt.Errorf("worker count must be > 0, got %d", o.Workers)
	}
	return nil
}

// GetConfigPath returns the default config path.
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "winfuzz", "config.yaml"), nil
}
