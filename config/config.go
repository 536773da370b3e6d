// Package config loads process settings from the environment, an optional
// .env file and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort         string `mapstructure:"APP_PORT"`
	DBPath          string `mapstructure:"DB_PATH"`
	Timezone        string `mapstructure:"TZ"`
	Env             string `mapstructure:"ENV"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	RulesFile       string `mapstructure:"RULES_FILE"`
	RateLimitPerMin int    `mapstructure:"RATE_LIMIT_PER_MIN"`
	AllowedOrigins  string `mapstructure:"ALLOWED_ORIGINS"`
}

// Load reads configuration. Environment variables win over config.yaml;
// a missing .env or config.yaml is not an error.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_PATH", "./bookings.db")
	v.SetDefault("TZ", "Europe/Moscow")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RULES_FILE", "")
	v.SetDefault("RATE_LIMIT_PER_MIN", 30)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Origins splits AllowedOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
