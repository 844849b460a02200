package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("org-kla")
	cfg.Events.KafkaBrokers = []string{"kafka-1:9092", "kafka-2:9092"}
	cfg.Database = DatabaseConfig{Driver: "postgres", DSN: "postgres://books@db/books?sslmode=disable"}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("org-kla")

	assert.Equal(t, "org-kla", cfg.Organization)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "UGX", cfg.Ledger.BaseCurrency)
	assert.Equal(t, 100, cfg.Journal.MaxBulk)
	assert.Equal(t, 85, cfg.Reconciliation.AutoApplyThreshold)
	assert.Equal(t, 200, cfg.Reconciliation.MaxBatch)
	assert.Empty(t, cfg.Events.KafkaBrokers)
	assert.Equal(t, "logs/ledger-events.csv", cfg.Events.LogFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FillsMissingWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("organization: org-1\nledger:\n  base_currency: KES\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "KES", cfg.Ledger.BaseCurrency)
	assert.Equal(t, 100, cfg.Journal.MaxBulk)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("org-1")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "organization: org-1")
	assert.Contains(t, contents, "base_currency: UGX")
	assert.Contains(t, contents, "auto_apply_threshold: 85")
	assert.NotContains(t, contents, "kafka_brokers")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("YOURBOOKS_DB_DRIVER", "postgres")
	t.Setenv("YOURBOOKS_DB_DSN", "postgres://x")
	t.Setenv("YOURBOOKS_KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("YOURBOOKS_HTTP_ADDR", ":9000")
	t.Setenv("YOURBOOKS_LOG_LEVEL", "debug")

	cfg := Default("org-1")
	cfg.ApplyEnv()
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://x", cfg.Database.DSN)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(filepath.Join(dir, ".env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("YOURBOOKS_HTTP_ADDR=:7070\n"), 0o644))
	t.Setenv("YOURBOOKS_HTTP_ADDR", "")
	os.Unsetenv("YOURBOOKS_HTTP_ADDR")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, ":7070", os.Getenv("YOURBOOKS_HTTP_ADDR"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"currency", func(c *Config) { c.Ledger.BaseCurrency = "US" }, "base_currency"},
		{"bulk", func(c *Config) { c.Journal.MaxBulk = 0 }, "max_bulk"},
		{"threshold", func(c *Config) { c.Reconciliation.AutoApplyThreshold = 101 }, "auto_apply_threshold"},
		{"batch", func(c *Config) { c.Reconciliation.MaxBatch = -1 }, "max_batch"},
		{"topic", func(c *Config) { c.Events.KafkaBrokers = []string{"k:9092"}; c.Events.Topic = "" }, "events.topic"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("org-1")
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
