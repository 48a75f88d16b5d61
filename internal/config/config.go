// Package config loads server configuration from an optional yaml file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Port        int    `yaml:"port" mapstructure:"port"`
}

// Load reads the config file (TODOLIST_CONFIG, falling back to
// ~/.todolist/config.yaml) if it exists, then applies DATABASE_URL and
// PORT from the environment on top.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("database_url", "postgres://localhost:5432/todolist")
	v.SetDefault("port", 8080)

	path := os.Getenv("TODOLIST_CONFIG")
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".todolist", "config.yaml")
		}
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		v.Set("database_url", url)
	}
	if port := os.Getenv("PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		v.Set("port", n)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
