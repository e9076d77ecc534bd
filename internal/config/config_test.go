package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"negative shutdown", func(c *Config) { c.Server.ShutdownTimeout = -time.Second }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }},
		{"threshold above one", func(c *Config) { c.Cache.SimilarityThreshold = 1.5 }},
		{"consolidate threshold zero", func(c *Config) { c.Consolidate.Threshold = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestStorageDirLayout(t *testing.T) {
	s := StorageConfig{DataDir: "/var/lib/autoreply"}
	assert.Equal(t, filepath.Join("/var/lib/autoreply", "cache"), s.CacheDir())
	assert.Equal(t, filepath.Join("/var/lib/autoreply", "pathways"), s.PathwayDir())
	assert.Equal(t, filepath.Join("/var/lib/autoreply", "vectors"), s.VectorDir())
}
