package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL           string `yaml:"ttl"`
		SingleAttempt bool   `yaml:"single_attempt"`
	} `yaml:"quiz"`
	Broker struct {
		Driver        string `yaml:"driver"`
		NATSURL       string `yaml:"nats_url"`
		QueueGroup    string `yaml:"queue_group"`
		DurableName   string `yaml:"durable_name"`
		AckWait       string `yaml:"ack_wait"`
		MaxDeliver    int    `yaml:"max_deliver"`
		BufferSize    int64  `yaml:"buffer_size"`
		PoisonTopic   string `yaml:"poison_topic"`
		CloseTimeout  string `yaml:"close_timeout"`
		ReconnectWait string `yaml:"reconnect_wait"`
		MaxReconnects int    `yaml:"max_reconnects"`
	} `yaml:"broker"`
	Publisher struct {
		Retry            Retry  `yaml:"retry"`
		BreakerThreshold uint32 `yaml:"breaker_threshold"`
		BreakerTimeout   string `yaml:"breaker_timeout"`
	} `yaml:"publisher"`
	Consumer struct {
		Retry        Retry `yaml:"retry"`
		CatalogRetry Retry `yaml:"catalog_retry"`
	} `yaml:"consumer"`
	Profile struct {
		HistorySize             int     `yaml:"history_size"`
		CacheTTL                string  `yaml:"cache_ttl"`
		CacheSize               int     `yaml:"cache_size"`
		DefaultTimeAvailability float64 `yaml:"default_time_availability"`
		MaxConflictRetries      int     `yaml:"max_conflict_retries"`
	} `yaml:"profile"`
}

// Retry is the YAML form of a bounded exponential backoff.
type Retry struct {
	MaxRetries      *int   `yaml:"max_retries"`
	InitialInterval string `yaml:"initial_interval"`
	MaxInterval     string `yaml:"max_interval"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// IntOr returns *v, or fallback when the key was absent.
func IntOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
