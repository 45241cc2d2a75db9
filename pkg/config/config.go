package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	envConfigPath = "RELAY_CONFIG"

	DefaultBackendURL            = "http://bot-service:8000"
	DefaultRequestTimeoutSeconds = 30
	DefaultHealthTimeoutSeconds  = 5
	DefaultPollRetrySeconds      = 3
	DefaultStatusHost            = "0.0.0.0"
	DefaultStatusPort            = 18790
)

// ErrMissingToken is returned by Validate when no Telegram bot token is configured.
var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN is required")

// Config is the root relay configuration. It is built once at startup and passed
// explicitly to every component that needs it.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Backend  BackendConfig  `json:"backend"`
	Status   StatusConfig   `json:"status"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

// TelegramConfig configures the Telegram bot connection.
type TelegramConfig struct {
	Token            string `json:"token" env:"TELEGRAM_BOT_TOKEN"`
	PollRetrySeconds int    `json:"poll_retry_seconds" env:"TELEGRAM_POLL_RETRY_SECONDS"`
}

// BackendConfig configures the bot service the relay forwards messages to.
type BackendConfig struct {
	URL                   string `json:"url" env:"BOT_SERVICE_URL"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" env:"BOT_SERVICE_TIMEOUT_SECONDS"`
	HealthTimeoutSeconds  int    `json:"health_timeout_seconds" env:"BOT_SERVICE_HEALTH_TIMEOUT_SECONDS"`
}

// StatusConfig configures the optional HTTP status server.
type StatusConfig struct {
	Enabled bool   `json:"enabled" env:"RELAY_STATUS_ENABLED"`
	Host    string `json:"host" env:"RELAY_STATUS_HOST"`
	Port    int    `json:"port" env:"RELAY_STATUS_PORT"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// Load reads the optional config file, applies environment overrides and defaults,
// and validates the result.
func Load() (*Config, error) {
	var cfg Config

	path, err := findConfigPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	if c.Telegram.PollRetrySeconds <= 0 {
		c.Telegram.PollRetrySeconds = DefaultPollRetrySeconds
	}

	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	if c.Backend.URL == "" {
		c.Backend.URL = DefaultBackendURL
	}
	if c.Backend.RequestTimeoutSeconds <= 0 {
		c.Backend.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	if c.Backend.HealthTimeoutSeconds <= 0 {
		c.Backend.HealthTimeoutSeconds = DefaultHealthTimeoutSeconds
	}

	if strings.TrimSpace(c.Status.Host) == "" {
		c.Status.Host = DefaultStatusHost
	}
	if c.Status.Port <= 0 {
		c.Status.Port = DefaultStatusPort
	}
}

// Validate reports configuration the relay cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return ErrMissingToken
	}

	parsed, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("invalid BOT_SERVICE_URL %q: %w", c.Backend.URL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid BOT_SERVICE_URL %q: scheme must be http or https", c.Backend.URL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid BOT_SERVICE_URL %q: host is required", c.Backend.URL)
	}

	return nil
}

// RequestTimeout is the bound on one /process-message call.
func (c BackendConfig) RequestTimeout() time.Duration {
	return secondsOr(c.RequestTimeoutSeconds, DefaultRequestTimeoutSeconds)
}

// HealthTimeout is the bound on one /health call.
func (c BackendConfig) HealthTimeout() time.Duration {
	return secondsOr(c.HealthTimeoutSeconds, DefaultHealthTimeoutSeconds)
}

// PollRetry is the wait between failed getUpdates calls.
func (c TelegramConfig) PollRetry() time.Duration {
	return secondsOr(c.PollRetrySeconds, DefaultPollRetrySeconds)
}

func secondsOr(value int, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

// findConfigPath resolves the optional config file location.
//
// RELAY_CONFIG must point at a file when set. Otherwise cwd-local fallbacks are
// checked and an empty path means run from the environment alone.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	for _, candidate := range []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
