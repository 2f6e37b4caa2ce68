// Package config loads service configuration from an optional YAML file with
// environment variable overrides. A .env file is honoured for local runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	// DSN empty selects the in-memory stores.
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	// MigrateOnStart applies the schema at startup in addition to the
	// /admin/init endpoint.
	MigrateOnStart bool `yaml:"migrate_on_start"`
}

type BlobConfig struct {
	// Driver is "memory" or "s3".
	Driver    string `yaml:"driver"`
	Bucket    string `yaml:"bucket"`
	KeyPrefix string `yaml:"key_prefix"`
	BaseURL   string `yaml:"base_url"`
}

type AuthConfig struct {
	// JWTSecret empty selects the fixed demo identity.
	JWTSecret string `yaml:"jwt_secret"`
	// DemoOwner and DemoName tune the fixed identity when no secret is set.
	DemoOwner string `yaml:"demo_owner"`
	DemoName  string `yaml:"demo_name"`
}

type RedisConfig struct {
	// Addr empty disables the summary cache.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type RateLimitConfig struct {
	// RequestsPerSecond of 0 disables rate limiting.
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

type AuditConfig struct {
	Size int    `yaml:"size"`
	Path string `yaml:"path"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Blob      BlobConfig      `yaml:"blob"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Audit     AuditConfig     `yaml:"audit"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			MigrateOnStart:  true,
		},
		Blob: BlobConfig{Driver: "memory"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Audit: AuditConfig{Size: 200},
	}
}

// Load reads CONFIG_PATH (default config.yaml when present) and applies
// environment overrides on top.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	path := os.Getenv("CONFIG_PATH")
	optional := path == ""
	if optional {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !optional {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "HOST")
	setInt(&cfg.Server.Port, "PORT")
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		cfg.Server.CORSOrigins = splitAndTrim(raw)
	}

	setString(&cfg.Database.DSN, "DATABASE_URL")
	setInt(&cfg.Database.MaxOpenConns, "DATABASE_MAX_OPEN_CONNS")
	setInt(&cfg.Database.MaxIdleConns, "DATABASE_MAX_IDLE_CONNS")

	setString(&cfg.Blob.Driver, "BLOB_DRIVER")
	setString(&cfg.Blob.Bucket, "BLOB_BUCKET")
	setString(&cfg.Blob.KeyPrefix, "BLOB_KEY_PREFIX")
	setString(&cfg.Blob.BaseURL, "BLOB_BASE_URL")

	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.DemoOwner, "DEMO_OWNER")
	setString(&cfg.Auth.DemoName, "DEMO_NAME")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Logging.Output, "LOG_OUTPUT")

	setInt(&cfg.RateLimit.RequestsPerSecond, "RATE_LIMIT_RPS")
	setInt(&cfg.RateLimit.Burst, "RATE_LIMIT_BURST")

	setString(&cfg.Audit.Path, "AUDIT_LOG_PATH")
	setInt(&cfg.Audit.Size, "AUDIT_LOG_SIZE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
