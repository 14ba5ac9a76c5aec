package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

// Config drives the pushover CLI.
type Config struct {
	AppToken      string `env:"PUSHOVER_APP_TOKEN,required=true"`
	BaseURL       string `env:"PUSHOVER_BASE_URL,default=https://api.pushover.net/1"`
	TimeoutSec    int    `env:"PUSHOVER_TIMEOUT_SEC,default=10"`
	SkipSSLVerify bool   `env:"PUSHOVER_SKIP_SSL_VERIFY,default=false"`
	LogLevel      string `env:"LOG_LEVEL,default=info"`

	// MetricsTextfile, when set, receives the client metrics in the
	// node_exporter textfile format after each invocation.
	MetricsTextfile string `env:"PUSHOVER_METRICS_TEXTFILE"`
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// MockConfig drives the mock Pushover API server.
type MockConfig struct {
	HTTPAddr string `env:"MOCK_HTTP_ADDR,default=:8089"`
	AppLimit int    `env:"MOCK_APP_LIMIT,default=10000"`
	Devices  string `env:"MOCK_DEVICES,default=iphone|desktop"`
	// RedisURL, when set, keeps the quota in Redis so several instances share it.
	RedisURL string `env:"MOCK_REDIS_URL"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// DeviceList splits Devices on '|', dropping blanks.
func (c *MockConfig) DeviceList() []string {
	devices := make([]string, 0)
	for _, device := range strings.Split(c.Devices, "|") {
		if device = strings.TrimSpace(device); device != "" {
			devices = append(devices, device)
		}
	}
	return devices
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.TimeoutSec <= 0 {
		return nil, fmt.Errorf("failed to load config: PUSHOVER_TIMEOUT_SEC must be positive, got %d", cfg.TimeoutSec)
	}
	return &cfg, nil
}

func LoadMock() (*MockConfig, error) {
	var cfg MockConfig
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load mock config: %w", err)
	}
	if cfg.AppLimit < 0 {
		return nil, fmt.Errorf("failed to load mock config: MOCK_APP_LIMIT must not be negative, got %d", cfg.AppLimit)
	}
	return &cfg, nil
}
