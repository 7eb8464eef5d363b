// Package config loads the static application configuration from a YAML
// file and applies environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"beermap/internal/env"

	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	DataURL      string `yaml:"data_url"`
	EventDataURL string `yaml:"event_data_url"`
	FormURL      string `yaml:"form_url"`

	HTTP  HTTPConfig  `yaml:"http"`
	Cache CacheConfig `yaml:"cache"`
	Kafka KafkaConfig `yaml:"kafka"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// Timeout bounds a single feed fetch.
	Timeout time.Duration `yaml:"timeout"`
}

type CacheConfig struct {
	Backend  string         `yaml:"backend"`
	S3       S3Config       `yaml:"s3"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type KafkaConfig struct {
	Broker      string `yaml:"broker"`
	Topic       string `yaml:"topic"`
	ReloadTopic string `yaml:"reload_topic"`
	GroupID     string `yaml:"group_id"`
}

// Enabled reports whether a broker is configured at all.
func (k KafkaConfig) Enabled() bool {
	return k.Broker != ""
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:    ":8080",
			Timeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			Backend: BackendMemory,
			S3:      S3Config{Bucket: "beermap-session"},
		},
		Kafka: KafkaConfig{
			GroupID: "beermap",
		},
	}
}

// Load reads path (when non-empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.DataURL = env.String("BEERMAP_DATA_URL", c.DataURL)
	c.EventDataURL = env.String("BEERMAP_EVENT_DATA_URL", c.EventDataURL)
	c.FormURL = env.String("BEERMAP_FORM_URL", c.FormURL)
	c.HTTP.Addr = env.String("BEERMAP_HTTP_ADDR", c.HTTP.Addr)
	c.Cache.Backend = env.String("BEERMAP_CACHE_BACKEND", c.Cache.Backend)

	c.Cache.S3.Endpoint = env.String("MINIO_ENDPOINT", c.Cache.S3.Endpoint)
	c.Cache.S3.AccessKey = env.String("MINIO_ACCESS_KEY", c.Cache.S3.AccessKey)
	c.Cache.S3.SecretKey = env.String("MINIO_SECRET_KEY", c.Cache.S3.SecretKey)
	c.Cache.S3.UseSSL = env.Bool("MINIO_USE_SSL", c.Cache.S3.UseSSL)
	c.Cache.S3.Bucket = env.String("BEERMAP_CACHE_BUCKET", c.Cache.S3.Bucket)
	c.Cache.Postgres.DSN = env.String("DATABASE_URL", c.Cache.Postgres.DSN)

	c.Kafka.Broker = env.String("KAFKA_BROKER", c.Kafka.Broker)
	c.Kafka.Topic = env.String("KAFKA_TOPIC", c.Kafka.Topic)
	c.Kafka.ReloadTopic = env.String("KAFKA_RELOAD_TOPIC", c.Kafka.ReloadTopic)
	c.Kafka.GroupID = env.String("KAFKA_GROUP_ID", c.Kafka.GroupID)
}

// Validate checks required fields and backend-specific settings.
func (c *Config) Validate() error {
	var problems []string
	if c.DataURL == "" {
		problems = append(problems, "data_url is required")
	}
	if c.EventDataURL == "" {
		problems = append(problems, "event_data_url is required")
	}
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendS3:
		if c.Cache.S3.Endpoint == "" || c.Cache.S3.AccessKey == "" || c.Cache.S3.SecretKey == "" {
			problems = append(problems, "s3 cache needs endpoint, access_key and secret_key")
		}
		if c.Cache.S3.Bucket == "" {
			problems = append(problems, "s3 cache needs a bucket")
		}
	case BackendPostgres:
		if c.Cache.Postgres.DSN == "" {
			problems = append(problems, "postgres cache needs a dsn")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" && c.Kafka.ReloadTopic == "" {
		problems = append(problems, "kafka broker set without topic or reload_topic")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
