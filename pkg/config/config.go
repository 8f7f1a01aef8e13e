// Package config loads application configuration from YAML files with
// environment-variable overrides. It provides typed structs for the HTTP
// server, the search engine, the optional Redis and Kafka integrations,
// logging and metrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Search  SearchConfig  `yaml:"search"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`

	// CORSOrigins lists the origins allowed to call the API; "*" allows any.
	// Empty disables CORS headers.
	CORSOrigins []string        `yaml:"corsOrigins"`
	RateLimit   RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig bounds requests per client address. Requests <= 0 turns
// limiting off.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// SearchConfig controls the engine, the parallel executor and the result
// collaborators built on top of it.
type SearchConfig struct {
	StopWords     string `yaml:"stopWords"`
	Workers       int    `yaml:"workers"`
	ShardCount    int    `yaml:"shardCount"`
	ChunkSize     int    `yaml:"chunkSize"`
	RequestWindow int    `yaml:"requestWindow"`
	PageSize      int    `yaml:"pageSize"`
	CacheSize     int    `yaml:"cacheSize"`
	CorpusFile    string `yaml:"corpusFile"`
}

// RedisConfig holds the connection parameters of the shared result cache.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds broker and topic settings of the document event stream.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

type KafkaTopics struct {
	Documents string `yaml:"documents"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
			RateLimit: RateLimitConfig{
				Window: time.Minute,
			},
		},
		Search: SearchConfig{
			StopWords:     "",
			ShardCount:    12,
			ChunkSize:     1024,
			RequestWindow: 1440,
			PageSize:      2,
			CacheSize:     1024,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "searchserver-group",
			Topics: KafkaTopics{
				Documents: "document-events",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SS_* environment variables and overrides the
// corresponding config fields. Unparsable numbers are ignored.
func applyEnvOverrides(cfg *Config) {
	setInt("SS_SERVER_PORT", &cfg.Server.Port)
	setInt("SS_SERVER_RATE_LIMIT", &cfg.Server.RateLimit.Requests)
	if v := os.Getenv("SS_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SS_SEARCH_STOP_WORDS"); v != "" {
		cfg.Search.StopWords = v
	}
	setInt("SS_SEARCH_WORKERS", &cfg.Search.Workers)
	setInt("SS_SEARCH_SHARD_COUNT", &cfg.Search.ShardCount)
	setInt("SS_SEARCH_REQUEST_WINDOW", &cfg.Search.RequestWindow)
	setInt("SS_SEARCH_PAGE_SIZE", &cfg.Search.PageSize)
	setInt("SS_SEARCH_CACHE_SIZE", &cfg.Search.CacheSize)
	if v := os.Getenv("SS_SEARCH_CORPUS_FILE"); v != "" {
		cfg.Search.CorpusFile = v
	}
	setBool("SS_REDIS_ENABLED", &cfg.Redis.Enabled)
	if v := os.Getenv("SS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	setBool("SS_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("SS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SS_KAFKA_TOPIC_DOCUMENTS"); v != "" {
		cfg.Kafka.Topics.Documents = v
	}
	if v := os.Getenv("SS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	setBool("SS_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setInt("SS_METRICS_PORT", &cfg.Metrics.Port)
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
