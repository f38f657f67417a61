package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	libconfig "parkpay/backend/libs/config"
)

const defaultPort = "8001"

// Plan override values.
const (
	PlanOverrideNone     = ""
	PlanOverrideActive   = "active"
	PlanOverrideInactive = "inactive"
)

// Config defines payment service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"PAYMENT_SERVICE_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN         string `yaml:"dsn" env:"PAYMENT_POSTGRES_DSN"`
		AutoMigrate bool   `yaml:"autoMigrate" env:"PAYMENT_DB_AUTO_MIGRATE"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"PAYMENT_REDIS_ADDR"`
		Password string `yaml:"password" env:"PAYMENT_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"PAYMENT_REDIS_DB"`
	} `yaml:"redis"`
	Plan struct {
		ServiceURL string        `yaml:"serviceUrl" env:"USER_SERVICE_URL"`
		Timeout    time.Duration `yaml:"timeout" env:"PLAN_LOOKUP_TIMEOUT"`
		CacheTTL   time.Duration `yaml:"cacheTtl" env:"PLAN_CACHE_TTL"`
		// Override answers every lookup with a fixed value; for environments without a user service.
		Override string `yaml:"override" env:"PLAN_OVERRIDE"`
	} `yaml:"plan"`
	Fee struct {
		RatePerMinute string `yaml:"ratePerMinute" env:"FEE_RATE_PER_MINUTE"`
		Minimum       string `yaml:"minimum" env:"FEE_MINIMUM"`
		Maximum       string `yaml:"maximum" env:"FEE_MAXIMUM"`
	} `yaml:"fee"`
	Auth struct {
		JWTSecret string        `yaml:"jwtSecret" env:"PAYMENT_JWT_SECRET"`
		TokenTTL  time.Duration `yaml:"tokenTtl" env:"PAYMENT_TOKEN_TTL"`
	} `yaml:"auth"`
	GateFeed struct {
		WriteTimeout time.Duration `yaml:"writeTimeout" env:"GATE_FEED_WRITE_TIMEOUT"`
	} `yaml:"gateFeed"`
}

// Load configuration from file/env.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns configuration with every optional value filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = defaultPort
	cfg.Database.AutoMigrate = true
	cfg.Plan.ServiceURL = "http://user-service"
	cfg.Plan.Timeout = 2 * time.Second
	cfg.Plan.CacheTTL = 30 * time.Second
	cfg.Fee.RatePerMinute = "0.5"
	cfg.Fee.Minimum = "1"
	cfg.Fee.Maximum = "10"
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.GateFeed.WriteTimeout = 10 * time.Second
	return cfg
}

// Validate checks required values and value formats.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn required")
	}
	switch c.PlanOverride() {
	case PlanOverrideNone:
		if strings.TrimSpace(c.Plan.ServiceURL) == "" {
			return errors.New("config: plan service url required")
		}
	case PlanOverrideActive, PlanOverrideInactive:
	default:
		return fmt.Errorf("config: invalid plan override %q", c.Plan.Override)
	}
	if _, _, _, err := c.FeeSchedule(); err != nil {
		return err
	}
	return nil
}

// HTTPAddress returns :port style string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// PlanOverride returns the normalised override value.
func (c *Config) PlanOverride() string {
	return strings.ToLower(strings.TrimSpace(c.Plan.Override))
}

// FeeSchedule parses rate, minimum and maximum.
func (c *Config) FeeSchedule() (rate, minimum, maximum decimal.Decimal, err error) {
	if rate, err = decimal.NewFromString(strings.TrimSpace(c.Fee.RatePerMinute)); err != nil {
		return rate, minimum, maximum, fmt.Errorf("config: fee rate: %w", err)
	}
	if minimum, err = decimal.NewFromString(strings.TrimSpace(c.Fee.Minimum)); err != nil {
		return rate, minimum, maximum, fmt.Errorf("config: fee minimum: %w", err)
	}
	if maximum, err = decimal.NewFromString(strings.TrimSpace(c.Fee.Maximum)); err != nil {
		return rate, minimum, maximum, fmt.Errorf("config: fee maximum: %w", err)
	}
	if rate.IsNegative() || minimum.IsNegative() || maximum.LessThan(minimum) {
		return rate, minimum, maximum, errors.New("config: fee schedule must satisfy 0 <= minimum <= maximum and rate >= 0")
	}
	return rate, minimum, maximum, nil
}
