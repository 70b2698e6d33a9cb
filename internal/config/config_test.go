package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 100, cfg.Query.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.yaml")
	raw := []byte(`
http_addr: ":9090"
database:
  driver: sqlite
  dsn: "file:shop?mode=memory&cache=shared"
  seed: true
query:
  batch_size: 10
tracing:
  enabled: true
  exporter: stdout
`)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	t.Setenv("SHOP_QUERY_BATCH_SIZE", "25")
	t.Setenv("SHOP_HTTP_ADDR", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Database.Seed)
	assert.Equal(t, 25, cfg.Query.BatchSize)
	assert.True(t, cfg.Tracing.Enabled)
	// untouched keys keep their defaults
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("SHOP_QUERY_BATCH_SIZE", "many")

	_, err := Load("")
	assert.ErrorContains(t, err, "SHOP_QUERY_BATCH_SIZE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"empty dsn", func(c *Config) { c.Database.DSN = " " }, "database.dsn"},
		{"batch too small", func(c *Config) { c.Query.BatchSize = 0 }, "batch_size"},
		{"batch too large", func(c *Config) { c.Query.BatchSize = 1001 }, "batch_size"},
		{"negative rate", func(c *Config) { c.Orders.RatePerSecond = -1 }, "rate_per_second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
