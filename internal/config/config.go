// Package config provides configuration management using the Singleton pattern.
// It loads configuration from environment variables and config.yaml using Viper.
package config

import (
	"fmt"
	"sync"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Backend session configuration
	Backend BackendConfig `json:"backend" mapstructure:"backend"`

	// Auth configuration for the /v1 routes
	Auth AuthConfig `json:"auth" mapstructure:"auth"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Credentials are the two Google session secrets. They are optional at
	// load time: when absent the chat endpoint stays unavailable.
	Credentials Credentials `json:"-" mapstructure:"credentials"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// BackendConfig holds backend session configuration.
type BackendConfig struct {
	// InitTimeoutSeconds bounds the one-time session initialization at
	// startup. It is the only timeout the backend session enforces.
	InitTimeoutSeconds int `json:"init_timeout_seconds" mapstructure:"init_timeout_seconds"`

	// SessionTimeoutSeconds is the HTTP timeout configured on the session
	// transport at construction time.
	SessionTimeoutSeconds int `json:"session_timeout_seconds" mapstructure:"session_timeout_seconds"`
}

// AuthConfig holds the optional shared-secret gate for the /v1 routes.
type AuthConfig struct {
	// APIKey is the bearer token clients must present. Empty disables auth.
	APIKey string `json:"-" mapstructure:"api_key"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`
}

// Credentials carries the cookie pair that authenticates the backend session.
type Credentials struct {
	PSID   string `json:"-" mapstructure:"psid"`
	PSIDTS string `json:"-" mapstructure:"psidts"`
}

// Present reports whether the primary secret was provided. The PSIDTS value
// is refreshed server-side and may legitimately be absent.
func (c Credentials) Present() bool {
	return c.PSID != ""
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance with a custom
// config path.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig(configPath)
	})
	return configInstance, configErr
}

// ResetConfig resets the singleton instance.
// This is primarily used for testing purposes.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
}

// Validate validates the configuration and returns an error if required
// fields are missing or out of range.
func (c *Configuration) Validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}

	if c.Backend.InitTimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "backend.init_timeout_seconds must be positive")
	}

	if c.Backend.SessionTimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "backend.session_timeout_seconds must be positive")
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
