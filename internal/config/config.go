// Package config loads service configuration from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     int            `yaml:"port"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	API      APIConfig      `yaml:"api"`
}

type DatabaseConfig struct {
	// URL takes precedence over the discrete connection fields when set.
	URL          string `yaml:"url"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	Name         string `yaml:"name"`
	SSLMode      string `yaml:"sslmode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type APIConfig struct {
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
	MaxBatchSize    int   `yaml:"max_batch_size"`
	DefaultPageSize int   `yaml:"default_page_size"`
	MaxPageSize     int   `yaml:"max_page_size"`
}

// Load builds the configuration. When path is empty the CONFIG_FILE
// environment variable is consulted; with no file at all only defaults and
// environment variables apply. The result is validated before returning.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails when the database cannot be addressed or a limit is out of range.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}
	if c.Database.URL == "" {
		var missing []string
		for _, f := range []struct{ env, value string }{
			{"DB_USER", c.Database.User},
			{"DB_PASSWORD", c.Database.Password},
			{"DB_HOST", c.Database.Host},
			{"DB_PORT", c.Database.Port},
			{"DB_NAME", c.Database.Name},
		} {
			if strings.TrimSpace(f.value) == "" {
				missing = append(missing, f.env)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("database is not configured: missing %s", strings.Join(missing, ", "))
		}
	}
	if c.API.MaxBodyBytes <= 0 {
		return errors.New("api.max_body_bytes must be positive")
	}
	if c.API.MaxBatchSize <= 0 {
		return errors.New("api.max_batch_size must be positive")
	}
	if c.API.MaxPageSize <= 0 {
		return errors.New("api.max_page_size must be positive")
	}
	if c.API.DefaultPageSize <= 0 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size must be between 1 and %d", c.API.MaxPageSize)
	}
	return nil
}

// DSN returns the postgres connection URL.
func (c *Config) DSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Host:   net.JoinHostPort(c.Database.Host, c.Database.Port),
		Path:   "/" + c.Database.Name,
	}
	if c.Database.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.Database.SSLMode}}.Encode()
	}
	return u.String()
}

func (c *Config) applyDefaults() {
	c.Port = 8080
	c.Database.SSLMode = "disable"
	c.Database.MaxOpenConns = 25
	c.Database.MaxIdleConns = 5
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.API.MaxBodyBytes = 10 * 1024 * 1024
	c.API.MaxBatchSize = 1000
	c.API.DefaultPageSize = 20
	c.API.MaxPageSize = 200
}

// applyEnvVars overrides values with non-empty environment variables.
func (c *Config) applyEnvVars() error {
	var err error
	if c.Port, err = getIntEnv("PORT", c.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	if c.Database.MaxOpenConns, err = getIntEnv("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns); err != nil {
		return fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	if c.Database.MaxIdleConns, err = getIntEnv("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns); err != nil {
		return fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}

	c.Logging.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Logging.Level))
	c.Logging.Format = strings.ToLower(getEnv("LOG_FORMAT", c.Logging.Format))

	if c.API.MaxBodyBytes, err = getInt64Env("API_MAX_BODY_BYTES", c.API.MaxBodyBytes); err != nil {
		return fmt.Errorf("invalid API_MAX_BODY_BYTES: %w", err)
	}
	if c.API.MaxBatchSize, err = getIntEnv("API_MAX_BATCH_SIZE", c.API.MaxBatchSize); err != nil {
		return fmt.Errorf("invalid API_MAX_BATCH_SIZE: %w", err)
	}
	if c.API.DefaultPageSize, err = getIntEnv("API_DEFAULT_PAGE_SIZE", c.API.DefaultPageSize); err != nil {
		return fmt.Errorf("invalid API_DEFAULT_PAGE_SIZE: %w", err)
	}
	if c.API.MaxPageSize, err = getIntEnv("API_MAX_PAGE_SIZE", c.API.MaxPageSize); err != nil {
		return fmt.Errorf("invalid API_MAX_PAGE_SIZE: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getInt64Env(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
