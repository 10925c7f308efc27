// Package config provides configuration management using the Singleton pattern.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "GEMINI_WEB2API"

	// EnvPSID and EnvPSIDTS are the literal cookie names the credential
	// bootstrap persists into .env. They are read verbatim, outside the
	// normal env prefix scheme.
	EnvPSID   = "__Secure-1PSID"
	EnvPSIDTS = "__Secure-1PSIDTS"
)

// loadConfig loads the configuration from environment variables and files.
// Priority order (highest to lowest):
// 1. The literal cookie env vars (__Secure-1PSID / __Secure-1PSIDTS)
// 2. Environment variables (prefixed with GEMINI_WEB2API_)
// 3. config.yaml
// 4. Default values
func loadConfig(configPath string) (*Configuration, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.gemini-web2api")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// The secrets keep their browser cookie names; bind them explicitly so
	// the prefix scheme does not apply.
	_ = v.BindEnv("credentials.psid", EnvPSID)
	_ = v.BindEnv("credentials.psidts", EnvPSIDTS)
	_ = v.BindEnv("auth.api_key", "PROXY_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is fine; env vars and defaults cover it.
			fmt.Fprintf(os.Stderr, "config file not found, using environment variables and defaults\n")
		} else {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	// Backend defaults. The init timeout mirrors the frontend page load plus
	// token scrape; generate calls reuse the session timeout.
	v.SetDefault("backend.init_timeout_seconds", 180)
	v.SetDefault("backend.session_timeout_seconds", 300)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
