package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Storage driver names
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Storage configuration
	StorageDriver string `yaml:"storage_driver"`
	SQLitePath    string `yaml:"sqlite_path"`

	// Fact archive (optional DynamoDB replica of the history ledger)
	ArchiveEnabled bool   `yaml:"archive_enabled"`
	AWSRegion      string `yaml:"aws_region"`
	ArchiveTable   string `yaml:"archive_table"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// LoadConfig loads configuration from environment variables, optionally
// overlaid on a YAML file named by CONFIG_FILE. Environment wins.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:  ":8080",
		Environment:    "development",
		StorageDriver:  DriverMemory,
		SQLitePath:     "refdata.db",
		ArchiveEnabled: false,
		AWSRegion:      "us-west-2",
		ArchiveTable:   "refdata-facts",
		LogLevel:       "info",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.StorageDriver = getEnv("STORAGE_DRIVER", cfg.StorageDriver)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.ArchiveEnabled = getEnvBool("ARCHIVE_ENABLED", cfg.ArchiveEnabled)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.ArchiveTable = getEnv("ARCHIVE_TABLE", cfg.ArchiveTable)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required with the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	if c.ArchiveEnabled && c.ArchiveTable == "" {
		return fmt.Errorf("ARCHIVE_TABLE is required when the archive is enabled")
	}

	if c.IsProduction() && c.StorageDriver == DriverMemory {
		return fmt.Errorf("the memory driver is not allowed in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
