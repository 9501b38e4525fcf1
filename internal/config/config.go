// Package config loads and validates the scanner service configuration
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the scanner service
type Config struct {
	// Top-level application info
	Version  string `mapstructure:"version"`
	ServerID string `mapstructure:"server_id"`

	// Server configuration
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		Mode            string        `mapstructure:"mode"`
	} `mapstructure:"server"`

	// Database configuration
	Database struct {
		Type     string `mapstructure:"type"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"` // Sensitive
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"ssl_mode"`
		SQLite   struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"sqlite"`
		MaxOpenConns    int           `mapstructure:"max_open_conns"`
		MaxIdleConns    int           `mapstructure:"max_idle_conns"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	} `mapstructure:"database"`

	// Auth configuration for the admin trigger endpoint
	Auth AuthConfig `mapstructure:"auth"`

	// Scanner pipeline configuration
	Scanner struct {
		WorkDir         string        `mapstructure:"work_dir"`
		MaxFileSize     int64         `mapstructure:"max_file_size"`
		MaxArchiveFiles int           `mapstructure:"max_archive_files"`
		FileScanTimeout time.Duration `mapstructure:"file_scan_timeout"`
		Workers         int           `mapstructure:"workers"`

		// Capabilities replaces the original platform's runtime capability
		// probing: the active manifest formats and rule tables are declared
		// up front instead of discovered by reflection.
		Capabilities AnalyzerCapabilities `mapstructure:"capabilities"`
	} `mapstructure:"scanner"`

	// AI analyzer configuration
	AI struct {
		Enabled     bool          `mapstructure:"enabled"`
		BaseURL     string        `mapstructure:"base_url"`
		APIKey      string        `mapstructure:"api_key"` // Sensitive
		Model       string        `mapstructure:"model"`
		MaxFiles    int           `mapstructure:"max_files"`
		MaxBytes    int           `mapstructure:"max_bytes"`
		CallTimeout time.Duration `mapstructure:"call_timeout"`
		Workers     int           `mapstructure:"workers"`
		RatePerSec  float64       `mapstructure:"rate_per_sec"`
		RateBurst   int           `mapstructure:"rate_burst"`
	} `mapstructure:"ai"`

	// Logging configuration
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
}

// AuthConfig holds token verification settings. Tokens are issued by the
// marketplace identity service; this service only verifies them.
type AuthConfig struct {
	Secret   string `mapstructure:"secret"` // Sensitive
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

// AnalyzerCapabilities declares which analyzers and manifest formats are
// active for this deployment
type AnalyzerCapabilities struct {
	MalwareScanner    bool `mapstructure:"malware_scanner"`
	DependencyScanner bool `mapstructure:"dependency_scanner"`
	ConfigAuditor     bool `mapstructure:"config_auditor"`
	ComposerManifests bool `mapstructure:"composer_manifests"`
	NPMManifests      bool `mapstructure:"npm_manifests"`
}

// LoadConfig loads the configuration from file and environment
func LoadConfig() (*Config, error) {
	setDefaults()

	if err := loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	loadEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "5m")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.mode", "release")

	// Database defaults
	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.sqlite.path", "marketscan.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")

	// Auth defaults
	viper.SetDefault("auth.issuer", "marketscan")
	viper.SetDefault("auth.audience", "marketscan-admin")

	// Scanner defaults
	viper.SetDefault("scanner.work_dir", "")
	viper.SetDefault("scanner.max_file_size", 2*1024*1024)
	viper.SetDefault("scanner.max_archive_files", 5000)
	viper.SetDefault("scanner.file_scan_timeout", "10s")
	viper.SetDefault("scanner.workers", 8)
	viper.SetDefault("scanner.capabilities.malware_scanner", true)
	viper.SetDefault("scanner.capabilities.dependency_scanner", true)
	viper.SetDefault("scanner.capabilities.config_auditor", true)
	viper.SetDefault("scanner.capabilities.composer_manifests", true)
	viper.SetDefault("scanner.capabilities.npm_manifests", true)

	// AI defaults: small worker count since AI calls are the limiting resource
	viper.SetDefault("ai.enabled", true)
	viper.SetDefault("ai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("ai.model", "gpt-4o-mini")
	viper.SetDefault("ai.max_files", 20)
	viper.SetDefault("ai.max_bytes", 16384)
	viper.SetDefault("ai.call_timeout", "45s")
	viper.SetDefault("ai.workers", 3)
	viper.SetDefault("ai.rate_per_sec", 2)
	viper.SetDefault("ai.rate_burst", 4)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// loadConfigFile loads configuration from a file
func loadConfigFile() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/marketscan")

	if err := viper.ReadInConfig(); err != nil {
		// It's ok if config file is not found
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return nil
}

// loadEnvVars loads configuration from environment variables
func loadEnvVars() {
	viper.SetEnvPrefix("MARKETSCAN")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}

	if config.Scanner.Workers <= 0 {
		return fmt.Errorf("scanner.workers must be positive, got %d", config.Scanner.Workers)
	}

	if config.Scanner.MaxFileSize <= 0 {
		return fmt.Errorf("scanner.max_file_size must be positive, got %d", config.Scanner.MaxFileSize)
	}

	if config.AI.Enabled {
		if config.AI.Workers <= 0 {
			return fmt.Errorf("ai.workers must be positive, got %d", config.AI.Workers)
		}
		if config.AI.MaxBytes <= 0 {
			return fmt.Errorf("ai.max_bytes must be positive, got %d", config.AI.MaxBytes)
		}
	}

	return nil
}
