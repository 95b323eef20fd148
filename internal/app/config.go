package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	DataServiceURL    string        `envconfig:"DATA_SERVICE_URL" default:"http://127.0.0.1:8081"`
	BillingServiceURL string        `envconfig:"BILLING_SERVICE_URL" default:""`
	DomainTimeout     time.Duration `envconfig:"DOMAIN_FETCH_TIMEOUT" default:"5s"`
	RevenueTimeout    time.Duration `envconfig:"REVENUE_FETCH_TIMEOUT" default:"8s"`

	DashboardCacheTTL time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"5m"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.DataServiceURL == "" {
		return nil, errors.New("data service url must be provided")
	}
	if cfg.DomainTimeout <= 0 || cfg.RevenueTimeout <= 0 {
		return nil, errors.New("fetch timeouts must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
