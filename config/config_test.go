package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diachronicon/searchql/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "searchql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Query.StrictFields)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
database:
  driver: pgx
  dsn: postgres://localhost/diachronicon
log:
  level: debug
query:
  strict_fields: true
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/diachronicon", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset keys keep their defaults")
	assert.True(t, cfg.Query.StrictFields)
	assert.False(t, cfg.Query.DumpTree)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "database:\n  driver: mysql\n  dsn: root@/db\n")
	t.Setenv(config.EnvDriver, "sqlite")
	t.Setenv(config.EnvDSN, "file:test.db")
	t.Setenv(config.EnvLogFormat, "json")
	t.Setenv(config.EnvDumpTree, "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Query.DumpTree)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "reading config")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "database: ["))
		assert.ErrorContains(t, err, "parsing config")
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv(config.EnvStrictFields, "sometimes")
		_, err := config.Load("")
		assert.ErrorContains(t, err, config.EnvStrictFields)
	})

	t.Run("bad driver", func(t *testing.T) {
		t.Setenv(config.EnvDriver, "oracle")
		_, err := config.Load("")
		assert.ErrorContains(t, err, "invalid database driver")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"empty dsn", func(c *config.Config) { c.Database.DSN = "" }, "dsn is required"},
		{"bad level", func(c *config.Config) { c.Log.Level = "loud" }, "invalid log level"},
		{"upper level", func(c *config.Config) { c.Log.Level = "DEBUG" }, ""},
		{"bad format", func(c *config.Config) { c.Log.Format = "xml" }, "invalid log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
