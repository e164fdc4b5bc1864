// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8473 {
		t.Errorf("default port = %d, want 8473", cfg.Server.Port)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("default environment = %q", cfg.Server.Environment)
	}
	if cfg.Broker.RingCapacity != 50 {
		t.Errorf("default ring capacity = %d, want 50", cfg.Broker.RingCapacity)
	}
	if cfg.Cache.NotificationTTL != 30*time.Second {
		t.Errorf("default notification TTL = %v, want 30s", cfg.Cache.NotificationTTL)
	}
	if cfg.Stream.HeartbeatInterval != 25*time.Second {
		t.Errorf("default heartbeat = %v, want 25s", cfg.Stream.HeartbeatInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("BROKER_RING_CAPACITY", "100")
	t.Setenv("BROKER_SUBSCRIBER_BUFFER", "128")
	t.Setenv("CACHE_PORTFOLIO_TTL", "10m")
	t.Setenv("CORS_ORIGINS", "https://app.example.org, https://staging.example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Broker.RingCapacity != 100 {
		t.Errorf("ring capacity = %d, want 100", cfg.Broker.RingCapacity)
	}
	if cfg.Cache.PortfolioTTL != 10*time.Minute {
		t.Errorf("portfolio TTL = %v, want 10m", cfg.Cache.PortfolioTTL)
	}
	want := []string{"https://app.example.org", "https://staging.example.org"}
	if len(cfg.Security.CORSOrigins) != len(want) {
		t.Fatalf("cors origins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	for i, origin := range want {
		if cfg.Security.CORSOrigins[i] != origin {
			t.Errorf("cors origin[%d] = %q, want %q", i, cfg.Security.CORSOrigins[i], origin)
		}
	}
}

func TestLoadUnmappedEnvIgnored(t *testing.T) {
	t.Setenv("RANDOM_UNRELATED_VAR", "true")

	if _, err := Load(); err != nil {
		t.Fatalf("Load with unmapped env var: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := strings.TrimSpace(`
server:
  port: 8080
broker:
  ring_capacity: 25
  subscriber_buffer: 32
`)
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080 from file", cfg.Server.Port)
	}
	if cfg.Broker.RingCapacity != 25 {
		t.Errorf("ring capacity = %d, want 25 from file", cfg.Broker.RingCapacity)
	}
	// Unset values keep their defaults.
	if cfg.Cache.DefaultTTL != 60*time.Second {
		t.Errorf("default TTL = %v, want 60s", cfg.Cache.DefaultTTL)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want env override 9001", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name: "production requires long jwt secret",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.Security.JWTSecret = "short"
			},
			wantErr: "jwt_secret",
		},
		{
			name:    "ring capacity positive",
			mutate:  func(c *Config) { c.Broker.RingCapacity = 0 },
			wantErr: "ring_capacity",
		},
		{
			name: "subscriber buffer covers ring",
			mutate: func(c *Config) {
				c.Broker.RingCapacity = 100
				c.Broker.SubscriberBuffer = 10
			},
			wantErr: "subscriber_buffer",
		},
		{
			name:    "degrade threshold positive",
			mutate:  func(c *Config) { c.Broker.DegradeAfterDrops = -1 },
			wantErr: "degrade_after_drops",
		},
		{
			name:    "heartbeat positive",
			mutate:  func(c *Config) { c.Stream.HeartbeatInterval = 0 },
			wantErr: "heartbeat_interval",
		},
		{
			name:    "oidc issuer requires client id",
			mutate:  func(c *Config) { c.Security.OIDCIssuer = "https://idp.example.com" },
			wantErr: "oidc_client_id",
		},
		{
			name: "oidc issuer requires redirect url",
			mutate: func(c *Config) {
				c.Security.OIDCIssuer = "https://idp.example.com"
				c.Security.OIDCClientID = "praxis-web"
			},
			wantErr: "oidc_redirect_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate returned nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	cfg := defaultConfig()
	if cfg.IsProduction() {
		t.Error("development config reports production")
	}
	cfg.Server.Environment = "production"
	if !cfg.IsProduction() {
		t.Error("production config not detected")
	}
}
