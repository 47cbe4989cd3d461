// Package appconfig loads tfidxd's configuration from a YAML file with
// environment-variable overrides, mirroring the teacher's three-tier
// precedence (built-in defaults < config file < env vars).
package appconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete tfidxd configuration.
type Config struct {
	IndexDir string `yaml:"index_dir" json:"index_dir"`

	Pool       PoolConfig       `yaml:"pool" json:"pool"`
	Limits     LimitsConfig     `yaml:"limits" json:"limits"`
	Tokenizer  CollaboratorConfig `yaml:"tokenizer" json:"tokenizer"`
	Scraper    CollaboratorConfig `yaml:"scraper" json:"scraper"`
	HTTP       HTTPConfig       `yaml:"http" json:"http"`
	LogLevel   string           `yaml:"log_level" json:"log_level"`
}

// PoolConfig configures the Shard Pool's persistence triggers.
type PoolConfig struct {
	ShardCount   int    `yaml:"shard_count" json:"shard_count"`
	SaveInterval uint64 `yaml:"save_interval" json:"save_interval"`
	SizeInterval uint64 `yaml:"size_interval" json:"size_interval"`
}

// LimitsConfig configures the compile-time-constant-in-spec limits exposed
// as tunables here.
type LimitsConfig struct {
	MaxFileSizeBytes     int64 `yaml:"max_file_size_bytes" json:"max_file_size_bytes"`
	MaxTitleChars        int   `yaml:"max_title_chars" json:"max_title_chars"`
	MaxDescriptionChars  int   `yaml:"max_description_chars" json:"max_description_chars"`
	DefaultSearchResults int   `yaml:"default_search_results" json:"default_search_results"`
	MaxSearchResults     int   `yaml:"max_search_results" json:"max_search_results"`
}

// CollaboratorConfig configures an external HTTP collaborator.
type CollaboratorConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// HTTPConfig configures the façade's listen address.
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// Default returns the documented defaults from spec.md §6.5.
func Default() *Config {
	return &Config{
		IndexDir: "./data/index",
		Pool: PoolConfig{
			ShardCount:   16,
			SaveInterval: 100,
			SizeInterval: 20,
		},
		Limits: LimitsConfig{
			MaxFileSizeBytes:     200 * 1024 * 1024,
			MaxTitleChars:        100,
			MaxDescriptionChars:  100,
			DefaultSearchResults: 20,
			MaxSearchResults:     1000,
		},
		Tokenizer: CollaboratorConfig{BaseURL: "http://localhost:8001", Timeout: 10 * time.Second},
		Scraper:   CollaboratorConfig{BaseURL: "http://localhost:8002", Timeout: 10 * time.Second},
		HTTP:      HTTPConfig{ListenAddr: ":8080"},
		LogLevel:  "info",
	}
}

// Load reads path (if it exists) over Default()'s values, then applies
// TFIDXD_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("appconfig: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("appconfig: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TFIDXD_INDEX_DIR"); v != "" {
		c.IndexDir = v
	}
	if v := os.Getenv("TFIDXD_SHARD_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pool.ShardCount = n
		}
	}
	if v := os.Getenv("TFIDXD_SAVE_INTERVAL"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Pool.SaveInterval = n
		}
	}
	if v := os.Getenv("TFIDXD_SIZE_INTERVAL"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Pool.SizeInterval = n
		}
	}
	if v := os.Getenv("TFIDXD_TOKENIZER_URL"); v != "" {
		c.Tokenizer.BaseURL = v
	}
	if v := os.Getenv("TFIDXD_SCRAPER_URL"); v != "" {
		c.Scraper.BaseURL = v
	}
	if v := os.Getenv("TFIDXD_HTTP_ADDR"); v != "" {
		c.HTTP.ListenAddr = v
	}
	if v := os.Getenv("TFIDXD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate reports a config error if any field is out of range.
func (c *Config) Validate() error {
	if c.Pool.ShardCount <= 0 {
		return fmt.Errorf("appconfig: pool.shard_count must be positive, got %d", c.Pool.ShardCount)
	}
	if c.IndexDir == "" {
		return fmt.Errorf("appconfig: index_dir must not be empty")
	}
	if c.Limits.MaxSearchResults <= 0 {
		return fmt.Errorf("appconfig: limits.max_search_results must be positive")
	}
	if c.Limits.DefaultSearchResults > c.Limits.MaxSearchResults {
		return fmt.Errorf("appconfig: limits.default_search_results exceeds limits.max_search_results")
	}
	return nil
}
