// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

// BookingConfig holds the knobs of the availability and lifecycle core.
type BookingConfig struct {
	// SlotMinutes is the slot granularity for availability and the minimum
	// bookable duration. Must be positive.
	SlotMinutes int `yaml:"slot_minutes"`
	// SweepCron schedules the status sweeper.
	SweepCron string `yaml:"sweep_cron"`
	// PendingTTLMinutes expires PENDING reservations the gateway never
	// reported on. Zero disables the expiry sweep.
	PendingTTLMinutes int `yaml:"pending_ttl_minutes"`
	// IntentGraceMinutes bounds how long after creation a payment intent may
	// be retried without re-running the conflict check.
	IntentGraceMinutes int `yaml:"intent_grace_minutes"`
}

type PaymentsConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ServerKey      string `yaml:"-"` // Loaded from environment
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	CooldownSeconds   int  `yaml:"cooldown_seconds"`
	MaxPerHour        int  `yaml:"max_per_hour"`
	MaxIPPerHour      int  `yaml:"max_ip_per_hour"`
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Booking   BookingConfig   `yaml:"booking"`
	Payments  PaymentsConfig  `yaml:"payments"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.Payments.ServerKey = os.Getenv("PAYMENT_SERVER_KEY")

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Booking.SlotMinutes == 0 {
		cfg.Booking.SlotMinutes = 60
	}
	if cfg.Booking.SweepCron == "" {
		cfg.Booking.SweepCron = "* * * * *"
	}
	if cfg.Booking.IntentGraceMinutes == 0 {
		cfg.Booking.IntentGraceMinutes = 5
	}
	if cfg.Payments.TimeoutSeconds == 0 {
		cfg.Payments.TimeoutSeconds = 10
	}
	if cfg.RateLimit.CooldownSeconds == 0 {
		cfg.RateLimit.CooldownSeconds = 2
	}
	if cfg.RateLimit.MaxPerHour == 0 {
		cfg.RateLimit.MaxPerHour = 30
	}
	if cfg.RateLimit.MaxIPPerHour == 0 {
		cfg.RateLimit.MaxIPPerHour = 120
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}
	if c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.Filename == "" {
		return fmt.Errorf("database filename is required for sqlite")
	}
	if c.Booking.SlotMinutes <= 0 {
		return fmt.Errorf("booking slot_minutes must be positive")
	}
	if c.Booking.PendingTTLMinutes < 0 {
		return fmt.Errorf("booking pending_ttl_minutes must not be negative")
	}
	return nil
}

// SlotLength returns the configured slot granularity as a duration.
func (c *Config) SlotLength() time.Duration {
	return time.Duration(c.Booking.SlotMinutes) * time.Minute
}

// PendingTTL returns the pending reservation expiry window, zero when
// disabled.
func (c *Config) PendingTTL() time.Duration {
	return time.Duration(c.Booking.PendingTTLMinutes) * time.Minute
}

// IntentGrace returns the payment intent retry grace window.
func (c *Config) IntentGrace() time.Duration {
	return time.Duration(c.Booking.IntentGraceMinutes) * time.Minute
}

// GatewayTimeout returns the bound on payment gateway calls.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Payments.TimeoutSeconds) * time.Second
}
