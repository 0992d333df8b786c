package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsFromEnv(t *testing.T) {
	t.Setenv("ACCESS_SECRET", "a")
	t.Setenv("REFRESH_SECRET", "r")
	t.Setenv("STORE", "memory")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "3333", cfg.Port)
	assert.Equal(t, "memory", cfg.QueueBackend)
	assert.Equal(t, 5, cfg.QueueMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAIModel)
	assert.True(t, cfg.RunWorkers)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadReadsAppEnvFile(t *testing.T) {
	dir := t.TempDir()
	contents := "ACCESS_SECRET=file-a\nREFRESH_SECRET=file-r\nSTORE=memory\nACCESS_TTL=30m\nKAFKA_BROKERS=k1:9092, k2:9092\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(contents), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "file-a", cfg.AccessSecret)
	assert.Equal(t, 30*time.Minute, cfg.AccessTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers())
}

func TestValidate(t *testing.T) {
	base := Config{AccessSecret: "a", RefreshSecret: "r", Store: "memory", QueueBackend: "memory", Timezone: "UTC"}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing secrets", func(c *Config) { c.AccessSecret = "" }},
		{"postgres without url", func(c *Config) { c.Store = "postgres" }},
		{"unknown store", func(c *Config) { c.Store = "sqlite" }},
		{"redis without addr", func(c *Config) { c.QueueBackend = "redis" }},
		{"kafka without brokers", func(c *Config) { c.QueueBackend = "kafka" }},
		{"unknown queue", func(c *Config) { c.QueueBackend = "sqs" }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
