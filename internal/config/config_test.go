package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		BotToken:         "123456:ABCDEF",
		BotName:          "testing-bot",
		BaseURL:          "https://bots.example.com",
		Port:             "8080",
		LogLevel:         "info",
		ShutdownTimeout:  30 * time.Second,
		APIBaseURL:       "https://api.telegram.org",
		APITimeout:       30 * time.Second,
		APIMaxRetries:    3,
		DataDir:          "./data",
		ReportRetention:  168 * time.Hour,
		SentrySampleRate: 1.0,
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvBotToken, "123456:ABCDEF")
	t.Setenv(EnvBaseURL, "https://bots.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.BotName != "telehost-bot" {
		t.Errorf("BotName = %q, want telehost-bot", cfg.BotName)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
	}
	if cfg.ReportRetention != 168*time.Hour {
		t.Errorf("ReportRetention = %v, want 168h", cfg.ReportRetention)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv(EnvBotToken, "")
	t.Setenv(EnvBaseURL, "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() error = nil, want validation failure")
	}
	if !strings.Contains(err.Error(), EnvBotToken) {
		t.Errorf("error %q does not mention %s", err, EnvBotToken)
	}
	if !strings.Contains(err.Error(), EnvBaseURL) {
		t.Errorf("error %q does not mention %s", err, EnvBaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(EnvBotToken, "123456:ABCDEF")
	t.Setenv(EnvBaseURL, "https://bots.example.com")
	t.Setenv(EnvPort, "9999")
	t.Setenv(EnvAPITimeout, "5s")
	t.Setenv(EnvAPIMaxRetries, "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Port)
	}
	if cfg.APITimeout != 5*time.Second {
		t.Errorf("APITimeout = %v, want 5s", cfg.APITimeout)
	}
	if cfg.APIMaxRetries != 7 {
		t.Errorf("APIMaxRetries = %d, want 7", cfg.APIMaxRetries)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing token", func(c *Config) { c.BotToken = "" }, true},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, true},
		{"negative retries", func(c *Config) { c.APIMaxRetries = -1 }, true},
		{"zero api timeout", func(c *Config) { c.APITimeout = 0 }, true},
		{"zero retention", func(c *Config) { c.ReportRetention = 0 }, true},
		{"sample rate out of range", func(c *Config) { c.SentrySampleRate = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSQLitePath(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.DataDir = "/var/lib/telehost"
	want := filepath.Join("/var/lib/telehost", "reports.db")
	if got := cfg.SQLitePath(); got != want {
		t.Errorf("SQLitePath() = %q, want %q", got, want)
	}
}
