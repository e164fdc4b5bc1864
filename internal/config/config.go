// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

// Package config loads and validates the Praxis server configuration.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then environment variables. See koanf.go for the loading pipeline.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Praxis server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Broker   BrokerConfig   `koanf:"broker"`
	Stream   StreamConfig   `koanf:"stream"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development or production
}

// DatabaseConfig holds the embedded entity store settings.
type DatabaseConfig struct {
	// Path is the Badger data directory. Empty means in-memory (tests).
	Path string `koanf:"path"`
}

// CacheConfig holds response-cache TTLs. Frequently mutated kinds
// (notifications, activities) get short TTLs; slower-changing kinds get
// longer ones. Invalidation on writes keeps entries fresh within the TTL.
type CacheConfig struct {
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	DefaultTTL      time.Duration `koanf:"default_ttl"`
	NotificationTTL time.Duration `koanf:"notification_ttl"`
	ActivityTTL     time.Duration `koanf:"activity_ttl"`
	PortfolioTTL    time.Duration `koanf:"portfolio_ttl"`
	SkillTTL        time.Duration `koanf:"skill_ttl"`
	RoadmapTTL      time.Duration `koanf:"roadmap_ttl"`
}

// BrokerConfig holds event-broker tunables. RingCapacity bounds the per-user
// replay buffer; SubscriberBuffer bounds each subscriber's outbound queue.
// DegradeAfterDrops is the number of dropped events after which a slow
// subscriber is closed rather than allowed to consume more memory.
type BrokerConfig struct {
	RingCapacity      int           `koanf:"ring_capacity"`
	SubscriberBuffer  int           `koanf:"subscriber_buffer"`
	DegradeAfterDrops int           `koanf:"degrade_after_drops"`
	SweepInterval     time.Duration `koanf:"sweep_interval"`
}

// StreamConfig holds stream-session settings shared by the SSE and
// WebSocket transports.
type StreamConfig struct {
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
}

// SecurityConfig holds authentication and rate-limit settings.
type SecurityConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// AdminUsername/AdminPasswordHash gate the built-in login endpoint.
	// The hash is a bcrypt hash; plain AdminPassword is accepted in
	// development only.
	AdminUsername     string `koanf:"admin_username"`
	AdminPassword     string `koanf:"admin_password"`
	AdminPasswordHash string `koanf:"admin_password_hash"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// LoginRateLimit throttles the login endpoint separately from the
	// general API limit.
	LoginRateLimit  int           `koanf:"login_rate_limit"`
	LoginRateWindow time.Duration `koanf:"login_rate_window"`

	CORSOrigins []string `koanf:"cors_origins"`

	// OIDC enables single sign-on through an external OpenID Connect
	// provider. The flow is active only when OIDCIssuer is set; the
	// built-in admin login keeps working either way.
	OIDCIssuer       string   `koanf:"oidc_issuer"`
	OIDCClientID     string   `koanf:"oidc_client_id"`
	OIDCClientSecret string   `koanf:"oidc_client_secret"`
	OIDCRedirectURL  string   `koanf:"oidc_redirect_url"`
	OIDCScopes       []string `koanf:"oidc_scopes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. These are
// overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8473,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path: "/data/praxis",
		},
		Cache: CacheConfig{
			CleanupInterval: 5 * time.Minute,
			DefaultTTL:      60 * time.Second,
			NotificationTTL: 30 * time.Second,
			ActivityTTL:     30 * time.Second,
			PortfolioTTL:    300 * time.Second,
			SkillTTL:        300 * time.Second,
			RoadmapTTL:      300 * time.Second,
		},
		Broker: BrokerConfig{
			RingCapacity:      50,
			SubscriberBuffer:  64,
			DegradeAfterDrops: 32,
			SweepInterval:     30 * time.Second,
		},
		Stream: StreamConfig{
			HeartbeatInterval: 25 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		Security: SecurityConfig{
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			AdminUsername:   "",
			AdminPassword:   "",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			LoginRateLimit:  5,
			LoginRateWindow: time.Minute,
			CORSOrigins:     []string{},
			OIDCScopes:      []string{"openid", "profile", "email"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Validate checks the configuration for values that would misbehave at
// runtime. It is called after all layers are merged.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.IsProduction() && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters in production")
	}
	if c.Broker.RingCapacity <= 0 {
		return fmt.Errorf("broker.ring_capacity must be positive")
	}
	if c.Broker.SubscriberBuffer < c.Broker.RingCapacity {
		// Replay enqueues up to RingCapacity events before live delivery
		// starts; a smaller buffer would drop replayed events immediately.
		return fmt.Errorf("broker.subscriber_buffer (%d) must be >= broker.ring_capacity (%d)",
			c.Broker.SubscriberBuffer, c.Broker.RingCapacity)
	}
	if c.Broker.DegradeAfterDrops <= 0 {
		return fmt.Errorf("broker.degrade_after_drops must be positive")
	}
	if c.Stream.HeartbeatInterval <= 0 {
		return fmt.Errorf("stream.heartbeat_interval must be positive")
	}
	if c.Security.OIDCIssuer != "" {
		if c.Security.OIDCClientID == "" {
			return fmt.Errorf("security.oidc_client_id is required when security.oidc_issuer is set")
		}
		if c.Security.OIDCRedirectURL == "" {
			return fmt.Errorf("security.oidc_redirect_url is required when security.oidc_issuer is set")
		}
	}
	return nil
}
