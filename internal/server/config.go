package server

import (
	"fmt"
	"time"
)

// Config holds the HTTP server configuration read from the "server" section.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Per-client token buckets. Reads and writes are limited separately.
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateBurst      int     `mapstructure:"rate_burst"`
	WriteRateLimit float64 `mapstructure:"write_rate_limit"`
	WriteRateBurst int     `mapstructure:"write_rate_burst"`

	// TrustProxy keys rate limits on X-Forwarded-For instead of the peer.
	TrustProxy bool `mapstructure:"trust_proxy"`

	// DevMode serves Swagger UI at /swagger/.
	DevMode bool `mapstructure:"dev_mode"`

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) applyDefaults() {
	if c.RateLimit <= 0 {
		c.RateLimit = 50
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 100
	}
	if c.WriteRateLimit <= 0 {
		c.WriteRateLimit = 0.5
	}
	if c.WriteRateBurst <= 0 {
		c.WriteRateBurst = 5
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 10 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
