// Package config loads searchql settings from YAML, an optional .env file
// and SEARCHQL_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvDriver       = "SEARCHQL_DB_DRIVER"
	EnvDSN          = "SEARCHQL_DB_DSN"
	EnvLogLevel     = "SEARCHQL_LOG_LEVEL"
	EnvLogFormat    = "SEARCHQL_LOG_FORMAT"
	EnvStrictFields = "SEARCHQL_STRICT_FIELDS"
	EnvDumpTree     = "SEARCHQL_DUMP_TREE"
)

// Config is the complete configuration.
type Config struct {
	Database Database `yaml:"database"`
	Log      Log      `yaml:"log"`
	Query    Query    `yaml:"query"`
}

// Database selects the driver and connection string.
type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Query holds compiler switches.
type Query struct {
	StrictFields bool `yaml:"strict_fields"`
	DumpTree     bool `yaml:"dump_tree"`
}

// Drivers accepted in Database.Driver.
var Drivers = []string{"pgx", "postgres", "mysql", "sqlserver", "mssql", "sqlite"}

// Levels accepted in Log.Level.
var Levels = []string{"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"}

// Formats accepted in Log.Format.
var Formats = []string{"text", "json"}

// Default returns an in-memory SQLite configuration logging at info.
func Default() *Config {
	return &Config{
		Database: Database{Driver: "sqlite", DSN: "file::memory:?cache=shared"},
		Log:      Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, then applies .env and the environment.
// An empty path skips the file. A missing .env is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvDriver); ok {
		c.Database.Driver = v
	}
	if v, ok := os.LookupEnv(EnvDSN); ok {
		c.Database.DSN = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok {
		c.Log.Format = v
	}
	if err := envBool(EnvStrictFields, &c.Query.StrictFields); err != nil {
		return err
	}
	return envBool(EnvDumpTree, &c.Query.DumpTree)
}

func envBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

// Validate checks the driver, log level and log format.
func (c *Config) Validate() error {
	if !oneOf(c.Database.Driver, Drivers) {
		return fmt.Errorf("invalid database driver %q: must be one of %v", c.Database.Driver, Drivers)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if !oneOf(strings.ToLower(c.Log.Level), Levels) {
		return fmt.Errorf("invalid log level %q: must be one of %v", c.Log.Level, Levels)
	}
	if !oneOf(c.Log.Format, Formats) {
		return fmt.Errorf("invalid log format %q: must be one of %v", c.Log.Format, Formats)
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
