package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
	EnableCORS   bool   `yaml:"enable_cors"`
}

// DatabaseConfig holds persistence settings. Driver selects between the
// Postgres and SQLite stores.
type DatabaseConfig struct {
	Driver         string `yaml:"driver"` // "postgres" or "sqlite"
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	SSLMode        string `yaml:"ssl_mode"`
	MaxConnections int    `yaml:"max_connections"`
	SQLitePath     string `yaml:"sqlite_path"`
}

// RedisConfig holds the optional derived-row cache settings
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	TTL     int    `yaml:"ttl"` // seconds
}

// IngestConfig holds Socrata source dataset settings
type IngestConfig struct {
	BaseURL              string `yaml:"base_url"`
	OperationsDataset    string `yaml:"operations_dataset"`
	NonComplianceDataset string `yaml:"non_compliance_dataset"`
	AppToken             string `yaml:"app_token"`
	PageSize             int    `yaml:"page_size"`
	Timeout              int    `yaml:"timeout"` // seconds
}

// PipelineConfig holds batch scoring run settings
type PipelineConfig struct {
	Workers   int `yaml:"workers"`
	ChunkSize int `yaml:"chunk_size"`
}

// SchedulerConfig holds cron settings for the periodic jobs
type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	IngestSchedule string `yaml:"ingest_schedule"`
	ScoreSchedule  string `yaml:"score_schedule"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			EnableCORS:   true,
		},
		Database: DatabaseConfig{
			Driver:         "sqlite",
			Host:           "localhost",
			Port:           5432,
			User:           "daycarealert",
			Name:           "daycarealert",
			SSLMode:        "disable",
			MaxConnections: 10,
			SQLitePath:     "./data/daycarealert.db",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			TTL:     300,
		},
		Ingest: IngestConfig{
			BaseURL:              "https://data.texas.gov/resource",
			OperationsDataset:    "bc5r-88dy",
			NonComplianceDataset: "tqgd-mf4x",
			PageSize:             1000,
			Timeout:              60,
		},
		Pipeline: PipelineConfig{
			Workers:   4,
			ChunkSize: 500,
		},
		Scheduler: SchedulerConfig{
			Enabled:        false,
			IngestSchedule: "0 3 * * *",
			ScoreSchedule:  "0 5 * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from an optional YAML file and applies
// environment variable overrides on top of the defaults
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides configuration from environment variables
func (c *Config) applyEnv() {
	c.Server.Port = getEnvAsInt("PORT", c.Server.Port)
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SQLitePath = getEnv("SQLITE_PATH", c.Database.SQLitePath)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Ingest.AppToken = getEnv("SOCRATA_APP_TOKEN", c.Ingest.AppToken)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline workers must be positive")
	}
	if c.Pipeline.ChunkSize <= 0 {
		return fmt.Errorf("pipeline chunk size must be positive")
	}
	return nil
}

// IngestTimeout returns the ingest HTTP timeout as a duration
func (c *Config) IngestTimeout() time.Duration {
	return time.Duration(c.Ingest.Timeout) * time.Second
}

// CacheTTL returns the Redis cache TTL as a duration
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTL) * time.Second
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a
// default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
