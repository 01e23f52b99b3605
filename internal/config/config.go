package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/semantic-meta-enrichment/frost-harvester/common/config"
)

// Config is the frost-harvester service configuration.
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	Frost struct {
		BaseURL                string
		FetchLimit             int // -1 = no limit
		PageDelay              time.Duration
		Timeout                time.Duration
		ExpandObservedProperty bool
	}

	Translation struct {
		Enabled  bool
		Endpoint string // LibreTranslate base URL, /translate is appended
		Source   string
		Target   string
		APIKey   string
		Timeout  time.Duration
	}

	Harvest struct {
		Interval     time.Duration // 0 = run once and exit
		StoreEnabled bool
		Stream       string // Redis stream, empty disables
		StreamMaxLen int64
		MQTTTopic    string // topic prefix, empty disables
		ExportPath   string // .xlsx file, empty disables
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "frost"
	cfg.Database.SSLMode = "disable"
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "frost-harvester"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	var err error

	cfg.Frost.BaseURL = getEnv("FROST_BASE_URL", "https://iot.hamburg.de/v1.1")
	if cfg.Frost.FetchLimit, err = getEnvInt("FROST_FETCH_LIMIT", -1); err != nil {
		return nil, err
	}
	if cfg.Frost.PageDelay, err = getEnvMillis("FROST_PAGE_DELAY_MS", 100); err != nil {
		return nil, err
	}
	if cfg.Frost.Timeout, err = getEnvSeconds("FROST_TIMEOUT_SECONDS", 30); err != nil {
		return nil, err
	}
	if cfg.Frost.ExpandObservedProperty, err = getEnvBool("FROST_EXPAND_OBSERVED_PROPERTY", false); err != nil {
		return nil, err
	}

	if cfg.Translation.Enabled, err = getEnvBool("TRANSLATION_ENABLED", false); err != nil {
		return nil, err
	}
	cfg.Translation.Endpoint = getEnv("TRANSLATION_ENDPOINT", "http://localhost:5000")
	cfg.Translation.Source = getEnv("TRANSLATION_SOURCE", "de")
	cfg.Translation.Target = getEnv("TRANSLATION_TARGET", "en")
	cfg.Translation.APIKey = getEnv("TRANSLATION_API_KEY", "")
	if cfg.Translation.Timeout, err = getEnvSeconds("TRANSLATION_TIMEOUT_SECONDS", 30); err != nil {
		return nil, err
	}

	if cfg.Harvest.Interval, err = getEnvSeconds("HARVEST_INTERVAL_SECONDS", 0); err != nil {
		return nil, err
	}
	if cfg.Harvest.StoreEnabled, err = getEnvBool("HARVEST_STORE_ENABLED", false); err != nil {
		return nil, err
	}
	cfg.Harvest.Stream = getEnv("HARVEST_STREAM", "")
	maxLen, err := getEnvInt("HARVEST_STREAM_MAXLEN", 10000)
	if err != nil {
		return nil, err
	}
	cfg.Harvest.StreamMaxLen = int64(maxLen)
	cfg.Harvest.MQTTTopic = strings.TrimRight(getEnv("HARVEST_MQTT_TOPIC", ""), "/")
	cfg.Harvest.ExportPath = getEnv("HARVEST_EXPORT_PATH", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Frost.BaseURL == "" {
		return fmt.Errorf("FROST_BASE_URL is required")
	}
	if c.Frost.FetchLimit < -1 {
		return fmt.Errorf("FROST_FETCH_LIMIT must be -1 or a non-negative number, got %d", c.Frost.FetchLimit)
	}
	if c.Harvest.Interval < 0 {
		return fmt.Errorf("HARVEST_INTERVAL_SECONDS must not be negative")
	}
	if c.Translation.Enabled {
		if c.Translation.Endpoint == "" {
			return fmt.Errorf("TRANSLATION_ENDPOINT is required when translation is enabled")
		}
		if c.Translation.Source == "" || c.Translation.Target == "" {
			return fmt.Errorf("TRANSLATION_SOURCE and TRANSLATION_TARGET are required")
		}
		if c.Translation.Source == c.Translation.Target {
			return fmt.Errorf("TRANSLATION_SOURCE and TRANSLATION_TARGET must be different")
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func getEnvSeconds(key string, defaultValue int) (time.Duration, error) {
	v, err := getEnvInt(key, defaultValue)
	return time.Duration(v) * time.Second, err
}

func getEnvMillis(key string, defaultValue int) (time.Duration, error) {
	v, err := getEnvInt(key, defaultValue)
	return time.Duration(v) * time.Millisecond, err
}
