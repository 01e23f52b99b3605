package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test in an empty directory so no stray .env is picked up.
func chdirTemp(t *testing.T) string {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad_DefaultValues(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "frost", cfg.Database.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "frost-harvester", cfg.MQTT.ClientID)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)

	assert.Equal(t, "https://iot.hamburg.de/v1.1", cfg.Frost.BaseURL)
	assert.Equal(t, -1, cfg.Frost.FetchLimit)
	assert.Equal(t, 100*time.Millisecond, cfg.Frost.PageDelay)
	assert.Equal(t, 30*time.Second, cfg.Frost.Timeout)
	assert.False(t, cfg.Frost.ExpandObservedProperty)

	assert.False(t, cfg.Translation.Enabled)
	assert.Equal(t, "de", cfg.Translation.Source)
	assert.Equal(t, "en", cfg.Translation.Target)

	assert.Zero(t, cfg.Harvest.Interval)
	assert.False(t, cfg.Harvest.StoreEnabled)
	assert.Empty(t, cfg.Harvest.Stream)
	assert.Equal(t, int64(10000), cfg.Harvest.StreamMaxLen)
	assert.Empty(t, cfg.Harvest.MQTTTopic)
	assert.Empty(t, cfg.Harvest.ExportPath)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	chdirTemp(t)

	t.Setenv("FROST_BASE_URL", "https://sensorthings.example.org/v1.1/")
	t.Setenv("FROST_FETCH_LIMIT", "25")
	t.Setenv("FROST_PAGE_DELAY_MS", "250")
	t.Setenv("FROST_EXPAND_OBSERVED_PROPERTY", "true")
	t.Setenv("TRANSLATION_ENABLED", "1")
	t.Setenv("TRANSLATION_ENDPOINT", "http://translate:5000")
	t.Setenv("HARVEST_INTERVAL_SECONDS", "3600")
	t.Setenv("HARVEST_MQTT_TOPIC", "frost/things/")
	t.Setenv("DB_HOST", "pg")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://sensorthings.example.org/v1.1/", cfg.Frost.BaseURL)
	assert.Equal(t, 25, cfg.Frost.FetchLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Frost.PageDelay)
	assert.True(t, cfg.Frost.ExpandObservedProperty)
	assert.True(t, cfg.Translation.Enabled)
	assert.Equal(t, "http://translate:5000", cfg.Translation.Endpoint)
	assert.Equal(t, time.Hour, cfg.Harvest.Interval)
	assert.Equal(t, "frost/things", cfg.Harvest.MQTTTopic)
	assert.Equal(t, "pg", cfg.Database.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("FROST_BASE_URL=https://from-dotenv.example/v1.1\nHARVEST_STREAM=frost:things:stream\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("FROST_BASE_URL")
		os.Unsetenv("HARVEST_STREAM")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://from-dotenv.example/v1.1", cfg.Frost.BaseURL)
	assert.Equal(t, "frost:things:stream", cfg.Harvest.Stream)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-numeric limit", "FROST_FETCH_LIMIT", "all"},
		{"limit below sentinel", "FROST_FETCH_LIMIT", "-2"},
		{"bad bool", "TRANSLATION_ENABLED", "maybe"},
		{"negative interval", "HARVEST_INTERVAL_SECONDS", "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_Translation(t *testing.T) {
	cfg := &Config{}
	cfg.Frost.BaseURL = "https://x"
	cfg.Frost.FetchLimit = -1
	cfg.Translation.Enabled = true
	cfg.Translation.Endpoint = "http://translate"
	cfg.Translation.Source = "de"
	cfg.Translation.Target = "de"
	assert.Error(t, cfg.Validate())

	cfg.Translation.Target = "en"
	assert.NoError(t, cfg.Validate())

	cfg.Translation.Endpoint = ""
	assert.Error(t, cfg.Validate())
}
