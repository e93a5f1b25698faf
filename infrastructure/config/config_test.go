package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "SERVER_ADDRESS", "ENVIRONMENT", "STORAGE_DRIVER",
		"SQLITE_PATH", "ARCHIVE_ENABLED", "AWS_REGION", "ARCHIVE_TABLE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, "refdata.db", cfg.SQLitePath)
	assert.False(t, cfg.ArchiveEnabled)
	assert.Equal(t, "refdata-facts", cfg.ArchiveTable)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("STORAGE_DRIVER", DriverSQLite)
	t.Setenv("SQLITE_PATH", "/tmp/refdata.db")
	t.Setenv("ARCHIVE_ENABLED", "true")
	t.Setenv("ARCHIVE_TABLE", "facts-prod")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, "/tmp/refdata.db", cfg.SQLitePath)
	assert.True(t, cfg.ArchiveEnabled)
	assert.Equal(t, "facts-prod", cfg.ArchiveTable)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_FileOverlayAndEnvPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server_address: \":7000\"\nstorage_driver: sqlite\nsqlite_path: file.db\nlog_level: warn\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.ServerAddress)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, "file.db", cfg.SQLitePath)
	assert.Equal(t, "error", cfg.LogLevel, "environment wins over the file")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "memory driver in development",
			mutate: func(c *Config) {},
		},
		{
			name: "unknown driver",
			mutate: func(c *Config) {
				c.StorageDriver = "postgres"
			},
			wantErr: "unknown storage driver",
		},
		{
			name: "sqlite without a path",
			mutate: func(c *Config) {
				c.StorageDriver = DriverSQLite
				c.SQLitePath = ""
			},
			wantErr: "SQLITE_PATH",
		},
		{
			name: "archive without a table",
			mutate: func(c *Config) {
				c.ArchiveEnabled = true
				c.ArchiveTable = ""
			},
			wantErr: "ARCHIVE_TABLE",
		},
		{
			name: "memory driver in production",
			mutate: func(c *Config) {
				c.Environment = "production"
			},
			wantErr: "not allowed in production",
		},
		{
			name: "sqlite in production",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.StorageDriver = DriverSQLite
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				ServerAddress: ":8080",
				Environment:   "development",
				StorageDriver: DriverMemory,
				SQLitePath:    "refdata.db",
				ArchiveTable:  "refdata-facts",
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
