package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds service configuration.
type Config struct {
	BaseURL           string
	RequestsPerSecond float64
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	Timeout           time.Duration
	UserAgent         string
	ListenAddr        string
	MetricsAddr       string
	AllowedOrigin     string
	ClientRateLimit   int // inbound requests per minute per client IP
	CacheSize         int
	CacheTTL          time.Duration
	Verbose           bool
}

// DefaultConfig returns conservative defaults for the public catalog API.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://api.jikan.moe/v4",
		RequestsPerSecond: 0.8,
		BackoffBase:       1 * time.Second,
		BackoffMax:        5 * time.Second,
		Timeout:           10 * time.Second,
		UserAgent:         "anidex/1.0",
		ListenAddr:        ":8080",
		MetricsAddr:       "",
		AllowedOrigin:     "*",
		ClientRateLimit:   120,
		CacheSize:         64,
		CacheTTL:          5 * time.Minute,
		Verbose:           false,
	}
}

// MinInterval is the minimum spacing between upstream dispatches.
func (c *Config) MinInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.RequestsPerSecond)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("backoff base must be positive")
	}
	if c.BackoffMax < c.BackoffBase {
		return fmt.Errorf("backoff max (%s) cannot be below backoff base (%s)", c.BackoffMax, c.BackoffBase)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.AllowedOrigin == "" {
		return fmt.Errorf("allowed origin cannot be empty")
	}
	if c.ClientRateLimit <= 0 {
		return fmt.Errorf("client rate limit must be positive")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive when the cache is enabled")
	}

	return nil
}
