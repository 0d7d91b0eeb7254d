// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package config loads layered configuration: built-in defaults, an
// optional YAML file, then environment variables.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the full application configuration.
type Config struct {
	Upstream UpstreamConfig `koanf:"upstream"`
	Store    StoreConfig    `koanf:"store"`
	Server   ServerConfig   `koanf:"server"`
	Demo     DemoConfig     `koanf:"demo"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// UpstreamConfig points at the rate-limiting proxy in front of the
// Scout-management service.
type UpstreamConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
	// RequestsPerSecond paces the queue below the proxy's budget;
	// 0 disables client-side pacing.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// StoreConfig locates the persistent store.
type StoreConfig struct {
	// Path is the Badger directory; empty means in-memory (tests, demo).
	Path string `koanf:"path"`
}

// ServerConfig configures the local status/metrics listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DemoConfig forces demo mode on regardless of URL detection.
type DemoConfig struct {
	Enabled bool `koanf:"enabled"`
	// URL, when set, is also checked for demo activation markers
	// (demo=true query, demo. subdomain, /demo path).
	URL string `koanf:"url"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks cross-field constraints after loading.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" && !c.Demo.Enabled {
		return fmt.Errorf("upstream.base_url is required outside demo mode")
	}
	if c.Upstream.BaseURL != "" {
		u, err := url.Parse(c.Upstream.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("upstream.base_url %q is not a valid URL", c.Upstream.BaseURL)
		}
	}
	if c.Upstream.RequestsPerSecond < 0 {
		return fmt.Errorf("upstream.requests_per_second must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}
