// Package config provides capchat configuration loaded from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds capchat configuration.
type Config struct {
	// Completion backend
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	Model        string `envconfig:"CAPCHAT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens    int    `envconfig:"CAPCHAT_MAX_TOKENS" default:"2024"`
	// MaxTurns bounds completion requests per query; 0 means unbounded.
	MaxTurns     int    `envconfig:"CAPCHAT_MAX_TURNS" default:"0"`
	SystemPrompt string `envconfig:"CAPCHAT_SYSTEM_PROMPT"`

	// Providers
	ServerConfigFile string        `envconfig:"CAPCHAT_SERVER_CONFIG"`
	ConnectTimeout   time.Duration `envconfig:"CAPCHAT_CONNECT_TIMEOUT" default:"30s"`
	InvokeTimeout    time.Duration `envconfig:"CAPCHAT_INVOKE_TIMEOUT" default:"60s"`
	ResourceScheme   string        `envconfig:"CAPCHAT_RESOURCE_SCHEME" default:"drugs"`

	// COMMS: optional event publishing; empty disables it.
	COMMSURL  string `envconfig:"COMMS_URL"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"capchat"`

	// Database: optional capability catalog; empty disables it.
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// Reference drug provider
	DrugsDBPath    string        `envconfig:"DRUGS_DB_PATH" default:"drugs.db"`
	OpenFDAURL     string        `envconfig:"OPENFDA_URL" default:"https://api.fda.gov/drug/label.json"`
	OpenFDAKey     string        `envconfig:"OPENFDA_API_KEY"`
	OpenFDATimeout time.Duration `envconfig:"OPENFDA_TIMEOUT" default:"15s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	return &c, nil
}

// ValidateForChat checks required config for the interactive chat.
func (c *Config) ValidateForChat() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%s - GEMINI_API_KEY is required for chat", logPrefix)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%s - CAPCHAT_MAX_TOKENS must be positive", logPrefix)
	}
	if c.MaxTurns < 0 {
		return fmt.Errorf("%s - CAPCHAT_MAX_TURNS must not be negative", logPrefix)
	}
	return c.ValidateForProviders()
}

// ValidateForProviders checks config needed to connect to providers.
func (c *Config) ValidateForProviders() error {
	if c.InvokeTimeout < 0 {
		return fmt.Errorf("%s - CAPCHAT_INVOKE_TIMEOUT must not be negative", logPrefix)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%s - CAPCHAT_CONNECT_TIMEOUT must be positive", logPrefix)
	}
	if strings.TrimSpace(c.ResourceScheme) == "" || strings.Contains(c.ResourceScheme, "://") {
		return fmt.Errorf("%s - CAPCHAT_RESOURCE_SCHEME must be a bare scheme name", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config for catalog commands (migrate, catalog).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// ValidateForDrugsProvider checks config for the reference drug provider.
func (c *Config) ValidateForDrugsProvider() error {
	if c.DrugsDBPath == "" {
		return fmt.Errorf("%s - DRUGS_DB_PATH is required", logPrefix)
	}
	if c.OpenFDAURL == "" {
		return fmt.Errorf("%s - OPENFDA_URL is required", logPrefix)
	}
	if c.OpenFDATimeout <= 0 {
		return fmt.Errorf("%s - OPENFDA_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// CatalogEnabled reports whether a database is configured.
func (c *Config) CatalogEnabled() bool { return c.DatabaseURL != "" }

// EventsEnabled reports whether COMMS publishing is configured.
func (c *Config) EventsEnabled() bool { return c.COMMSURL != "" }
