// Package config loads discovery store configuration from TOML files and
// DISCOVERY_* environment variables.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/scopeworks/discovery/errors"
)

// Config is the full configuration tree.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig configures the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// AuthConfig configures API key authentication.
type AuthConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	RateLimitPerMinute int  `mapstructure:"rate_limit_per_minute"`
}

// LogConfig configures logging output.
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "discovery.db")
	v.SetDefault("server.addr", ":8787")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.rate_limit_per_minute", 120)
	v.SetDefault("log.json", false)
}

// Load reads configuration from the given file (optional; empty path means
// defaults plus environment only) and DISCOVERY_* environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("DISCOVERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", configPath)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &config, nil
}
