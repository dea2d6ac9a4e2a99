// Package config loads tododay settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tododay/tododay/internal/observability"
)

// memoryDB selects an in-memory database instead of a file.
const memoryDB = ":memory:"

// Config holds the CLI configuration.
type Config struct {
	DataDir  string `env:"TODODAY_DATA" env-description:"data directory (default ~/.tododay)"`
	DBName   string `env:"TODODAY_DB" env-default:"todos.db" env-description:"database file name, or :memory:"`
	LogLevel string `env:"TODODAY_LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
	// Empty means the process local zone.
	TimeZone string `env:"TODODAY_TZ" env-description:"IANA time zone defining calendar days"`
}

// Load reads the environment and fills defaults.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	// Variables that are set but empty bypass env-default.
	if cfg.DBName == "" {
		cfg.DBName = "todos.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".tododay")
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DBPath returns the path handed to the store.
func (c Config) DBPath() string {
	if c.DBName == memoryDB {
		return memoryDB
	}
	return filepath.Join(c.DataDir, c.DBName)
}

// InMemory reports whether the store lives only for this process.
func (c Config) InMemory() bool {
	return c.DBName == memoryDB
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	return observability.ParseLevel(c.LogLevel)
}

// Location resolves TimeZone.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.TimeZone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("TODODAY_TZ: %w", err)
	}
	return loc, nil
}

// Usage describes the environment variables.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
