// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Auth modes supported by the API.
const (
	// AuthModeOIDC introspects opaque bearer tokens against the identity
	// provider (RFC 7662).
	AuthModeOIDC = "oidc"
	// AuthModeLocal accepts HS256 JWTs signed with JWT_SECRET. Development
	// and tests only.
	AuthModeLocal = "local"
)

// Storage drivers supported by the storage gateway.
const (
	StorageDriverGCS = "gcs"
	StorageDriverFS  = "fs"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSchema       string `mapstructure:"DB_SCHEMA"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	AuthMode         string `mapstructure:"AUTH_MODE"`
	AuthIssuer       string `mapstructure:"AUTH_ISSUER"`
	AuthClientID     string `mapstructure:"AUTH_CLIENT_ID"`
	AuthClientSecret string `mapstructure:"AUTH_CLIENT_SECRET"`
	JWTSecret        string `mapstructure:"JWT_SECRET"`

	StorageDriver      string `mapstructure:"STORAGE_DRIVER"`
	StorageBucket      string `mapstructure:"STORAGE_BUCKET"`
	StorageCredentials string `mapstructure:"STORAGE_CREDENTIALS"`
	MediaDir           string `mapstructure:"MEDIA_DIR"`
	MediaBaseURL       string `mapstructure:"MEDIA_BASE_URL"`

	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	SamplerRatio    float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The config file is optional; environment variables and defaults are
	// enough to run.
	_ = viper.ReadInConfig()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "mumble")
	viper.SetDefault("DB_PASSWORD", "mumble")
	viper.SetDefault("DB_NAME", "mumble")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "*")
	viper.SetDefault("AUTH_MODE", AuthModeOIDC)
	viper.SetDefault("JWT_SECRET", "local-development-secret")
	viper.SetDefault("STORAGE_DRIVER", StorageDriverFS)
	viper.SetDefault("MEDIA_DIR", "/tmp/mumble/media")
	viper.SetDefault("MEDIA_BASE_URL", "http://localhost:8080")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 0.1)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.AuthMode {
	case AuthModeOIDC:
		if c.AuthIssuer == "" && c.IsProduction() {
			return errors.New("AUTH_ISSUER is required in oidc auth mode")
		}
	case AuthModeLocal:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required in local auth mode")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}

	switch c.StorageDriver {
	case StorageDriverGCS:
		if c.StorageBucket == "" {
			return errors.New("STORAGE_BUCKET is required for the gcs storage driver")
		}
	case StorageDriverFS:
		if c.MediaDir == "" {
			return errors.New("MEDIA_DIR is required for the fs storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.IsProduction() {
		if c.AuthMode == AuthModeLocal {
			return errors.New("AUTH_MODE=local is not allowed in production")
		}
		if c.AuthClientID == "" || c.AuthClientSecret == "" {
			return errors.New("AUTH_CLIENT_ID and AUTH_CLIENT_SECRET are required in production")
		}
		if c.DBPassword == "mumble" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
	}

	return nil
}
