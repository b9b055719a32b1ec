// Package config loads and saves the Cadence configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/cadence/internal/core/similarity"
)

// Defaults applied when the config file is absent or a field is unset.
const (
	DefaultDebounceMS = 300
	DefaultTimeoutMS  = 5000
	DefaultRetryCount = 2
	DefaultAuditDays  = 90

	configFileName    = "config.json"
	configDirName     = ".cadence"
	defaultDBFileName = "cadence.db"
)

// Config is the flat Cadence configuration.
type Config struct {
	Version int `json:"version"`

	// DBPath overrides the database location. Empty means the default
	// under the config directory.
	DBPath string `json:"db_path,omitempty"`

	// SimilarityThreshold is the near-duplicate ratio; 0 means default.
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`

	// DebounceMS is the quiet window for debounced search, in milliseconds.
	DebounceMS int `json:"debounce_ms,omitempty"`

	// TimeoutMS is the per-attempt window for coordinated writes.
	TimeoutMS int `json:"timeout_ms,omitempty"`

	// RetryCount is how many times a failed write attempt is retried.
	RetryCount int `json:"retry_count,omitempty"`

	// AuditRetentionDays is how long audit entries are kept before pruning.
	AuditRetentionDays int `json:"audit_retention_days,omitempty"`
}

// Default returns a config with every field at its default.
func Default() *Config {
	return &Config{
		Version:             1,
		SimilarityThreshold: similarity.DefaultThreshold,
		DebounceMS:          DefaultDebounceMS,
		TimeoutMS:           DefaultTimeoutMS,
		RetryCount:          DefaultRetryCount,
		AuditRetentionDays:  DefaultAuditDays,
	}
}

// Dir returns the Cadence config directory under the user's home.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// Load reads config.json from dir. A missing file yields the defaults;
// unset fields in an existing file also fall back to defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, configFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes config.json to dir, creating the directory if needed.
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DatabasePath resolves the database location: the configured override,
// or the default file inside dir.
func (c *Config) DatabasePath(dir string) string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(dir, defaultDBFileName)
}

func (c *Config) applyDefaults() {
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = similarity.DefaultThreshold
	}
	if c.DebounceMS <= 0 {
		c.DebounceMS = DefaultDebounceMS
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = DefaultTimeoutMS
	}
	if c.RetryCount == 0 {
		c.RetryCount = DefaultRetryCount
	}
	if c.AuditRetentionDays <= 0 {
		c.AuditRetentionDays = DefaultAuditDays
	}
}
