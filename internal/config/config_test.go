package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8084", cfg.Address())
	assert.Equal(t, "data.csv", cfg.Feed.Source)
	assert.Equal(t, 50, cfg.Feed.SampleSize)
	assert.Equal(t, 2024, cfg.Feed.SampleYear)
	assert.Equal(t, 30*time.Second, cfg.Narrative.Timeout)
	assert.Equal(t, []string{"127.0.0.1"}, cfg.Security.TrustedProxies)
	assert.Empty(t, cfg.Narrative.APIKey)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("FEED_SOURCE", "sheets://abc")
	t.Setenv("NARRATIVE_TIMEOUT", "5s")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sheets://abc", cfg.Feed.Source)
	assert.Equal(t, 5*time.Second, cfg.Narrative.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "painel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("FEED_SOURCE: gs://bucket/feed.csv\nLOG_LEVEL: debug\n"), 0o644))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "gs://bucket/feed.csv", cfg.Feed.Source)
	assert.Equal(t, "warn", cfg.Logger.Level, "environment wins over the file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SERVER_PORT", "70000"},
		{"FEED_SOURCE", " "},
		{"FEED_SAMPLE_SIZE", "0"},
		{"LOG_LEVEL", "verbose"},
		{"LOG_FORMAT", "xml"},
		{"NARRATIVE_RPS", "0"},
		{"SECURITY_RATE_LIMIT_BURST", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
