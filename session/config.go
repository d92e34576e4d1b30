package session

import (
	"os"
	"time"
)

const (
	// DefaultRenewInterval is the fallback delay between renewal attempts
	// when the access credential's expiry cannot be decoded, or when a tick
	// was skipped because an attempt was already in flight.
	DefaultRenewInterval = 5 * time.Minute

	// DefaultRenewSkew is the safety margin subtracted from the computed
	// time-to-expiry so renewal fires before the credential actually expires.
	DefaultRenewSkew = 30 * time.Second

	// DefaultMinDelay is the floor applied to the computed delay so a
	// nearly-expired credential does not cause a renewal tight-loop.
	DefaultMinDelay = 5 * time.Second
)

// Config defines the scheduling parameters of the renewal loop.
//
// Out-of-range values do not fail construction; the built-in default applies
// instead, so a half-configured environment still yields a working loop.
type Config struct {
	// RenewInterval must be positive, otherwise DefaultRenewInterval applies.
	RenewInterval time.Duration

	// RenewSkew must be non-negative, otherwise DefaultRenewSkew applies.
	RenewSkew time.Duration

	// MinDelay must be positive, otherwise DefaultMinDelay applies.
	MinDelay time.Duration
}

// DefaultConfig returns the built-in scheduling parameters.
func DefaultConfig() Config {
	return Config{
		RenewInterval: DefaultRenewInterval,
		RenewSkew:     DefaultRenewSkew,
		MinDelay:      DefaultMinDelay,
	}
}

// LoadConfigFromEnv loads scheduling parameters from environment variables
// (Go duration strings):
//
//   - BLOGCLIENT_RENEW_INTERVAL
//   - BLOGCLIENT_RENEW_SKEW
//   - BLOGCLIENT_MIN_DELAY
//
// Unset or unparseable variables keep the built-in defaults.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("BLOGCLIENT_RENEW_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RenewInterval = d
		}
	}
	if v := os.Getenv("BLOGCLIENT_RENEW_SKEW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RenewSkew = d
		}
	}
	if v := os.Getenv("BLOGCLIENT_MIN_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MinDelay = d
		}
	}

	return cfg.withDefaults()
}

// withDefaults replaces out-of-range values with the built-in defaults.
func (c Config) withDefaults() Config {
	if c.RenewInterval <= 0 {
		c.RenewInterval = DefaultRenewInterval
	}
	if c.RenewSkew < 0 {
		c.RenewSkew = DefaultRenewSkew
	}
	if c.MinDelay <= 0 {
		c.MinDelay = DefaultMinDelay
	}
	return c
}
