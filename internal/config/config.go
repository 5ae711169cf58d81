// Package config loads the tool configuration from the environment, with an
// optional YAML file overlay for the settings that are awkward as variables
// (file paths, seizure type lists, patient ranges).
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/influxsink"
)

// DatabaseConfig is the PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MaxIdle  int    `yaml:"max_idle"`
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// VaultConfig points at the spreadsheets the datavault is built from and
// selects the patients and seizure types to include.
type VaultConfig struct {
	AnnotationsPath string `yaml:"annotations_path"`
	Roster2023Path  string `yaml:"roster_2023_path"`
	Roster2018Path  string `yaml:"roster_2018_path"`
	RosterPassword  string `yaml:"roster_password"`

	// Selection is "all" or "range"; Range holds [start, end] patient
	// numbers when Selection is "range".
	Selection    string   `yaml:"selection"`
	Range        []int    `yaml:"range"`
	SeizureTypes []string `yaml:"seizure_types"`
}

// Config is the full tool configuration.
type Config struct {
	Database  DatabaseConfig    `yaml:"database"`
	DBEnabled bool              `yaml:"db_enabled"`
	Influx    influxsink.Config `yaml:"influx"`
	Vault     VaultConfig       `yaml:"vault"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load builds the configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "epilepsy")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.DBEnabled = getEnv("DB_ENABLED", "false") == "true"

	cfg.Influx.Host = getEnv("INFLUX_HOST", "")
	cfg.Influx.AuthToken = getEnv("INFLUX_AUTH_TOKEN", "")
	cfg.Influx.Org = getEnv("INFLUX_ORG", "")
	cfg.Influx.Bucket = getEnv("INFLUX_BUCKET", "")

	cfg.Vault.AnnotationsPath = getEnv("VAULT_ANNOTATIONS", "")
	cfg.Vault.Roster2023Path = getEnv("VAULT_ROSTER_2023", "")
	cfg.Vault.Roster2018Path = getEnv("VAULT_ROSTER_2018", "")
	cfg.Vault.RosterPassword = getEnv("VAULT_ROSTER_PASSWORD", "")
	cfg.Vault.Selection = getEnv("VAULT_SELECTION", "all")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "console")

	return cfg, nil
}

// LoadFile loads the environment configuration and overlays it with the
// settings from a YAML file.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return defaultValue
}
