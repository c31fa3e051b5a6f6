package config

import (
	"os"
	"testing"
	"time"
)

var allEnv = []string{
	"GEMINI_API_KEY", "CAPCHAT_MODEL", "CAPCHAT_MAX_TOKENS", "CAPCHAT_MAX_TURNS", "CAPCHAT_SYSTEM_PROMPT",
	"CAPCHAT_SERVER_CONFIG", "CAPCHAT_CONNECT_TIMEOUT", "CAPCHAT_INVOKE_TIMEOUT", "CAPCHAT_RESOURCE_SCHEME",
	"COMMS_URL", "SERVICE_NAME", "DATABASE_URL", "RUN_MIGRATIONS", "MIGRATION_PATH",
	"DRUGS_DB_PATH", "OPENFDA_URL", "OPENFDA_API_KEY", "OPENFDA_TIMEOUT", "LOG_LEVEL",
}

// clearEnv unsets every variable for the test; an empty value would bypass defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range allEnv {
		if prev, ok := os.LookupEnv(env); ok {
			t.Cleanup(func() { os.Setenv(env, prev) })
		}
		os.Unsetenv(env)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.Model != "gemini-2.5-flash" {
		t.Errorf("config:config_test - Model = %q", cfg.Model)
	}
	if cfg.MaxTokens != 2024 {
		t.Errorf("config:config_test - MaxTokens = %d, want 2024", cfg.MaxTokens)
	}
	if cfg.MaxTurns != 0 {
		t.Errorf("config:config_test - MaxTurns = %d, want 0 (unbounded)", cfg.MaxTurns)
	}
	if cfg.InvokeTimeout != 60*time.Second {
		t.Errorf("config:config_test - InvokeTimeout = %v, want 60s", cfg.InvokeTimeout)
	}
	if cfg.ResourceScheme != "drugs" {
		t.Errorf("config:config_test - ResourceScheme = %q, want drugs", cfg.ResourceScheme)
	}
	if cfg.COMMSName != "capchat" {
		t.Errorf("config:config_test - COMMSName = %q, want capchat", cfg.COMMSName)
	}
	if cfg.CatalogEnabled() || cfg.EventsEnabled() {
		t.Error("config:config_test - catalog and events should be off by default")
	}
	if cfg.MigrationPath != "migrations" {
		t.Errorf("config:config_test - MigrationPath = %q", cfg.MigrationPath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("config:config_test - LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	overrides := map[string]string{
		"GEMINI_API_KEY":          "key",
		"CAPCHAT_MAX_TURNS":       "8",
		"CAPCHAT_INVOKE_TIMEOUT":  "5s",
		"CAPCHAT_RESOURCE_SCHEME": "papers",
		"COMMS_URL":               "nats://custom:4222",
		"DATABASE_URL":            "postgres://test@localhost/test",
		"RUN_MIGRATIONS":          "true",
		"LOG_LEVEL":               "debug",
	}
	for key, val := range overrides {
		t.Setenv(key, val)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}
	if cfg.GeminiAPIKey != "key" || cfg.MaxTurns != 8 || cfg.InvokeTimeout != 5*time.Second {
		t.Errorf("config:config_test - overrides not applied: %+v", cfg)
	}
	if cfg.ResourceScheme != "papers" {
		t.Errorf("config:config_test - ResourceScheme = %q", cfg.ResourceScheme)
	}
	if !cfg.EventsEnabled() || !cfg.CatalogEnabled() || !cfg.RunMigrations {
		t.Error("config:config_test - expected events, catalog and migrations enabled")
	}
}

func TestLoadConfig_InvalidValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAPCHAT_MAX_TURNS", "many")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("config:config_test - expected error for non-numeric CAPCHAT_MAX_TURNS")
	}
}

func TestValidateForChat(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GeminiAPIKey:   "k",
			MaxTokens:      100,
			ConnectTimeout: time.Second,
			InvokeTimeout:  time.Second,
			ResourceScheme: "drugs",
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing key", mutate: func(c *Config) { c.GeminiAPIKey = "" }, wantErr: true},
		{name: "zero tokens", mutate: func(c *Config) { c.MaxTokens = 0 }, wantErr: true},
		{name: "negative turns", mutate: func(c *Config) { c.MaxTurns = -1 }, wantErr: true},
		{name: "scheme with separator", mutate: func(c *Config) { c.ResourceScheme = "drugs://" }, wantErr: true},
		{name: "zero invoke timeout is unbounded", mutate: func(c *Config) { c.InvokeTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.ValidateForChat(); (err != nil) != tt.wantErr {
				t.Errorf("config:config_test - ValidateForChat() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateForDB(t *testing.T) {
	if err := (&Config{}).ValidateForDB(); err == nil {
		t.Error("config:config_test - expected error without DATABASE_URL")
	}
	if err := (&Config{DatabaseURL: "postgres://x"}).ValidateForDB(); err != nil {
		t.Errorf("config:config_test - unexpected error: %v", err)
	}
}
