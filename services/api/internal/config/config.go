package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// Placeholder fallbacks, matching the documented environment contract.
// They keep local runs booting without secrets; real deployments set
// the environment variables.
const (
	PlaceholderDatabaseURL  = "default_database_url"
	PlaceholderGoogleAPIKey = "google_book_api_key"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port              string `yaml:"port"`
	LogLevel          string `yaml:"logLevel"`
	DatabaseURL       string `yaml:"databaseURL"`
	GoogleBooksAPIKey string `yaml:"googleBooksAPIKey"`
	GoogleBooksURL    string `yaml:"googleBooksURL"`
	AMQPURL           string `yaml:"amqpURL"`
	ReviewEventQueue  string `yaml:"reviewEventQueue"`
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
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("GOOGLE_BOOKS_API_KEY"); v != "" {
		cfg.GoogleBooksAPIKey = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.AMQPURL = v
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = PlaceholderDatabaseURL
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
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	return nil
}
