/*
MIT License

# Copyright (c) 2025 OcomSoft

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v3"

	"github.com/ocomsoft/knexdump/internal/errors"
)

const (
	EnvPrefix      = "KNEXDUMP"
	ConfigFileName = "knexdump.config.yaml"
)

// legacyEnv maps config keys to the environment variables read by earlier
// releases of the tool. They are consulted after the KNEXDUMP_ ones.
var legacyEnv = map[string]string{
	"database.name":     "MYSQL_DATABASE",
	"database.user":     "MYSQL_USER",
	"database.password": "MYSQL_PASS",
	"database.host":     "MYSQL_HOST",
	"database.table":    "MYSQL_TABLE",
	"database.view":     "MYSQL_VIEW",
}

// Config represents the knexdump configuration
type Config struct {
	// Source database connection
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Migration generation settings
	Generate GenerateConfig `yaml:"generate" mapstructure:"generate"`

	// Output settings
	Output OutputConfig `yaml:"output" mapstructure:"output"`
}

// DatabaseConfig contains the MySQL connection settings
type DatabaseConfig struct {
	Host     string            `yaml:"host" mapstructure:"host"`
	Port     int               `yaml:"port" mapstructure:"port"`
	User     string            `yaml:"user" mapstructure:"user"`
	Password string            `yaml:"password" mapstructure:"password"`
	Name     string            `yaml:"name" mapstructure:"name"`
	Table    string            `yaml:"table" mapstructure:"table"`   // Only generate this table
	View     string            `yaml:"view" mapstructure:"view"`     // Only generate this view
	Params   map[string]string `yaml:"params" mapstructure:"params"` // Extra DSN parameters
}

// GenerateConfig contains migration generation settings
type GenerateConfig struct {
	Directory       string        `yaml:"directory" mapstructure:"directory"`               // Root directory, files go to <directory>/<database>
	ForeignKeys     bool          `yaml:"foreign_keys" mapstructure:"foreign_keys"`         // Write one foreign key script per table
	Views           bool          `yaml:"views" mapstructure:"views"`                       // Write view scripts
	Workers         int           `yaml:"workers" mapstructure:"workers"`                   // Concurrent entities
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`                   // Per entity
	Retries         int           `yaml:"retries" mapstructure:"retries"`                   // Per entity, after the first attempt
	TimestampFormat string        `yaml:"timestamp_format" mapstructure:"timestamp_format"` // Go layout of the file name prefix
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Verbose      bool   `yaml:"verbose" mapstructure:"verbose"`             // Enable verbose output
	ColorEnabled bool   `yaml:"color_enabled" mapstructure:"color_enabled"` // Enable colored output
	LogLevel     string `yaml:"log_level" mapstructure:"log_level"`         // debug, info, warn, error
	LogFormat    string `yaml:"log_format" mapstructure:"log_format"`       // text or json
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:   "localhost",
			Port:   3306,
			Params: map[string]string{},
		},
		Generate: GenerateConfig{
			Directory:       "migrations",
			ForeignKeys:     false,
			Views:           true,
			Workers:         4,
			Timeout:         30 * time.Second,
			Retries:         2,
			TimestampFormat: "20060102150405", // Go timestamp format for YYYYMMDDHHMMSS
		},
		Output: OutputConfig{
			Verbose:      false,
			ColorEnabled: true,
			LogLevel:     "info",
			LogFormat:    "text",
		},
	}
}

// Load loads configuration from a .env file, the config file and environment variables
func Load(configPath string) (*Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	v := viper.New()

	// Set up environment variable binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	// Set defaults
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	// Try to read config file if it exists
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(strings.TrimSuffix(ConfigFileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("migrations")
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into our config struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("failed to bind %s: %w", legacy, err)
		}
	}
	return nil
}

// Validate reports missing connection settings and unusable generation settings
func (c *Config) Validate() error {
	var missing []string
	if c.Database.Host == "" {
		missing = append(missing, "database.host")
	}
	if c.Database.User == "" {
		missing = append(missing, "database.user")
	}
	if c.Database.Name == "" {
		missing = append(missing, "database.name")
	}
	if len(missing) > 0 {
		return errors.NewConfigError("", missing...)
	}

	switch {
	case c.Database.Port <= 0 || c.Database.Port > 65535:
		return errors.NewValidationError("database.port", fmt.Sprintf("%d is not a valid port", c.Database.Port))
	case c.Generate.Directory == "":
		return errors.NewValidationError("generate.directory", "must not be empty")
	case c.Generate.Workers < 1:
		return errors.NewValidationError("generate.workers", "must be at least 1")
	case c.Generate.Retries < 0:
		return errors.NewValidationError("generate.retries", "must not be negative")
	case c.Generate.Timeout <= 0:
		return errors.NewValidationError("generate.timeout", "must be positive")
	}

	switch strings.ToLower(c.Output.LogFormat) {
	case "", "text", "json":
	default:
		return errors.NewValidationError("output.log_format", fmt.Sprintf("unknown format %q", c.Output.LogFormat))
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to YAML
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Add header comment
	header := `# knexdump Configuration File
#
# This file contains configuration for the knexdump tool.
# All settings can be overridden using environment variables with the prefix KNEXDUMP_
# For example: KNEXDUMP_DATABASE_HOST=db.internal
#
# For nested values, use underscores: KNEXDUMP_GENERATE_FOREIGN_KEYS=true
#
# The MYSQL_HOST, MYSQL_USER, MYSQL_PASS, MYSQL_DATABASE, MYSQL_TABLE and
# MYSQL_VIEW variables are also honoured, and may be kept in a .env file.
#

`

	// Write to file
	fullContent := []byte(header + string(data))
	if err := os.WriteFile(path, fullContent, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper, cfg *Config) {
	// Database defaults
	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.user", cfg.Database.User)
	v.SetDefault("database.password", cfg.Database.Password)
	v.SetDefault("database.name", cfg.Database.Name)
	v.SetDefault("database.table", cfg.Database.Table)
	v.SetDefault("database.view", cfg.Database.View)
	v.SetDefault("database.params", cfg.Database.Params)

	// Generate defaults
	v.SetDefault("generate.directory", cfg.Generate.Directory)
	v.SetDefault("generate.foreign_keys", cfg.Generate.ForeignKeys)
	v.SetDefault("generate.views", cfg.Generate.Views)
	v.SetDefault("generate.workers", cfg.Generate.Workers)
	v.SetDefault("generate.timeout", cfg.Generate.Timeout)
	v.SetDefault("generate.retries", cfg.Generate.Retries)
	v.SetDefault("generate.timestamp_format", cfg.Generate.TimestampFormat)

	// Output defaults
	v.SetDefault("output.verbose", cfg.Output.Verbose)
	v.SetDefault("output.color_enabled", cfg.Output.ColorEnabled)
	v.SetDefault("output.log_level", cfg.Output.LogLevel)
	v.SetDefault("output.log_format", cfg.Output.LogFormat)
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	return ConfigFileName
}
