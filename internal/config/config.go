// Package config provides configuration loading for autoreplyd.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/autoreply/internal/anomaly"
	"github.com/fyrsmithlabs/autoreply/internal/cache"
	"github.com/fyrsmithlabs/autoreply/internal/embeddings"
	"github.com/fyrsmithlabs/autoreply/internal/llm"
	"github.com/fyrsmithlabs/autoreply/internal/logging"
)

// Config is the complete autoreplyd configuration.
type Config struct {
	Server      ServerConfig              `koanf:"server"`
	Logging     logging.Config            `koanf:"logging"`
	Storage     StorageConfig             `koanf:"storage"`
	Cache       cache.Config              `koanf:"cache"`
	Anomaly     anomaly.Config            `koanf:"anomaly"`
	Embeddings  embeddings.ProviderConfig `koanf:"embeddings"`
	LLM         llm.ProviderConfig        `koanf:"llm"`
	Consolidate ConsolidateConfig         `koanf:"consolidate"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig holds on-disk layout configuration. The learned stores
// and the vector index live under DataDir.
type StorageConfig struct {
	// DataDir is the root directory for durable state.
	DataDir string `koanf:"data_dir"`

	// Compress enables gzip compression of the vector index files.
	Compress bool `koanf:"compress"`
}

// CacheDir is where response cache records are persisted.
func (s StorageConfig) CacheDir() string {
	return filepath.Join(s.DataDir, "cache")
}

// PathwayDir is where pathway records are persisted.
func (s StorageConfig) PathwayDir() string {
	return filepath.Join(s.DataDir, "pathways")
}

// VectorDir is where the derived vector index is persisted.
func (s StorageConfig) VectorDir() string {
	return filepath.Join(s.DataDir, "vectors")
}

// ConsolidateConfig holds scheduled consolidation configuration.
type ConsolidateConfig struct {
	// Enabled turns the background consolidation scheduler on.
	Enabled bool `koanf:"enabled"`

	// Interval is the time between consolidation passes.
	Interval time.Duration `koanf:"interval"`

	// Threshold is the minimum similarity for entries to merge.
	Threshold float64 `koanf:"threshold"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8750
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	defaults := logging.NewDefaultConfig()
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Format
	}

	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "~/.config/autoreply/data"
	}

	cfg.Cache.ApplyDefaults()
	cfg.Anomaly.ApplyDefaults()

	if cfg.Consolidate.Interval == 0 {
		cfg.Consolidate.Interval = time.Hour
	}
	if cfg.Consolidate.Threshold == 0 {
		cfg.Consolidate.Threshold = 0.85
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir cannot be empty")
	}
	if c.Cache.SimilarityThreshold <= 0 || c.Cache.SimilarityThreshold > 1 {
		return fmt.Errorf("cache similarity_threshold must be in (0, 1], got %v", c.Cache.SimilarityThreshold)
	}
	if c.Consolidate.Threshold <= 0 || c.Consolidate.Threshold > 1 {
		return fmt.Errorf("consolidate threshold must be in (0, 1], got %v", c.Consolidate.Threshold)
	}
	return nil
}
