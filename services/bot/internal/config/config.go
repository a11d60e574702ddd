package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"bookreview/services/bot/internal/session"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// Placeholder fallbacks, matching the documented environment contract.
// They keep local runs booting without secrets; real deployments set
// the environment variables.
const (
	PlaceholderTelegramToken = "telegram_bot_token"
	PlaceholderGoogleAPIKey  = "google_book_api_key"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	HealthPort        string `yaml:"healthPort"`
	LogLevel          string `yaml:"logLevel"`
	TelegramToken     string `yaml:"telegramToken"`
	APIBaseURL        string `yaml:"apiBaseURL"`
	GoogleBooksAPIKey string `yaml:"googleBooksAPIKey"`
	GoogleBooksURL    string `yaml:"googleBooksURL"`
	RedisAddr         string `yaml:"redisAddr"`
	RedisPassword     string `yaml:"redisPassword"`
	SessionTTLMinutes int    `yaml:"sessionTTLMinutes"`
}

// SessionTTL returns the configured session lifetime.
func (c FileConfig) SessionTTL() time.Duration {
	if c.SessionTTLMinutes <= 0 {
		return session.DefaultTTL
	}
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.TelegramToken = v
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("GOOGLE_BOOKS_API_KEY"); v != "" {
		cfg.GoogleBooksAPIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("SESSION_TTL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parse SESSION_TTL_MINUTES: %w", err)
		}
		cfg.SessionTTLMinutes = minutes
	}
	if cfg.TelegramToken == "" {
		cfg.TelegramToken = PlaceholderTelegramToken
	}
	if cfg.GoogleBooksAPIKey == "" {
		cfg.GoogleBooksAPIKey = PlaceholderGoogleAPIKey
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.APIBaseURL == "" {
		return errors.New("config: apiBaseURL is required (set in config.yaml or API_BASE_URL)")
	}
	return nil
}
