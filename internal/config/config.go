package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the churn insights service.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Dataset DatasetConfig `yaml:"dataset"`
	Logging LoggingConfig `yaml:"logging"`
	Rules   RulesConfig   `yaml:"rules"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig controls the gRPC, HTTP and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HTTPAddress     string        `yaml:"httpAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// DatasetConfig selects where the customer table comes from. Exactly one of
// Path, URL or PostgresDSN is used, in that order of preference.
type DatasetConfig struct {
	Path          string        `yaml:"path"`
	URL           string        `yaml:"url"`
	FetchTimeout  time.Duration `yaml:"fetchTimeout"`
	PostgresDSN   string        `yaml:"postgresDSN"`
	PostgresQuery string        `yaml:"postgresQuery"`
	InvalidRows   string        `yaml:"invalidRows"`
	MinGroupSize  int           `yaml:"minGroupSize"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig controls rule-pack loading for tiers and segments.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig controls memoisation of query results.
type CacheConfig struct {
	Backend      string        `yaml:"backend"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	ResultTTL    time.Duration `yaml:"resultTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CHURN_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Dataset.InvalidRows) {
	case "drop", "reject":
	default:
		return fmt.Errorf("dataset.invalidRows must be drop or reject, got %q", c.Dataset.InvalidRows)
	}
	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.Addr == "" {
			return errors.New("cache.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			HTTPAddress:     ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Dataset: DatasetConfig{
			Path:         "data/customer_churn.csv",
			FetchTimeout: 30 * time.Second,
			InvalidRows:  "drop",
			MinGroupSize: 30,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{Path: "configs/rules/default.yaml"},
		Cache: CacheConfig{
			Backend:      CacheMemory,
			ResultTTL:    10 * time.Minute,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHURN_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("CHURN_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("CHURN_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("CHURN_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("CHURN_DATASET_PATH"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := os.Getenv("CHURN_DATASET_URL"); v != "" {
		cfg.Dataset.URL = v
	}
	if v := os.Getenv("CHURN_POSTGRES_DSN"); v != "" {
		cfg.Dataset.PostgresDSN = v
	}
	if v := os.Getenv("CHURN_POSTGRES_QUERY"); v != "" {
		cfg.Dataset.PostgresQuery = v
	}
	if v := os.Getenv("CHURN_INVALID_ROWS"); v != "" {
		cfg.Dataset.InvalidRows = v
	}
	if v := os.Getenv("CHURN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CHURN_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("CHURN_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("CHURN_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("CHURN_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("CHURN_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("CHURN_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("CHURN_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("CHURN_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("CHURN_CACHE_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DialTimeout = d
		}
	}
	if v := os.Getenv("CHURN_CACHE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ReadTimeout = d
		}
	}
	if v := os.Getenv("CHURN_CACHE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.WriteTimeout = d
		}
	}
	if v := os.Getenv("CHURN_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("CHURN_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ResultTTL = d
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
