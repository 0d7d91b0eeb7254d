// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VIKING_DEMO_MODE", "true") // base_url not required in demo mode

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 3917 {
		t.Errorf("default port: %d", cfg.Server.Port)
	}
	if cfg.Upstream.Timeout != 30*time.Second || cfg.Upstream.RequestsPerSecond != 2 {
		t.Errorf("upstream defaults: %+v", cfg.Upstream)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults: %+v", cfg.Logging)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
upstream:
  base_url: https://proxy.example.org
server:
  port: 4000
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "5000")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Upstream.BaseURL != "https://proxy.example.org" {
		t.Errorf("file value lost: %q", cfg.Upstream.BaseURL)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("env must beat file: %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("layering broken: %+v", cfg.Logging)
	}
}

func TestLoad_UnmappedEnvIsDropped(t *testing.T) {
	t.Setenv("VIKING_DEMO_MODE", "true")
	t.Setenv("UPSTREAM_BASE_URL", "https://sneaky.example.org") // not a mapped name

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Upstream.BaseURL != "" {
		t.Errorf("unmapped variable leaked in: %q", cfg.Upstream.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := defaultConfig()
		c.Upstream.BaseURL = "https://proxy.example.org"
		return c
	}

	if err := base().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	c := base()
	c.Upstream.BaseURL = ""
	if err := c.Validate(); err == nil {
		t.Error("missing base_url outside demo mode must fail")
	}
	c.Demo.Enabled = true
	if err := c.Validate(); err != nil {
		t.Errorf("demo mode must not require base_url: %v", err)
	}

	c = base()
	c.Upstream.BaseURL = "not a url"
	if err := c.Validate(); err == nil {
		t.Error("invalid base_url must fail")
	}

	c = base()
	c.Upstream.RequestsPerSecond = -1
	if err := c.Validate(); err == nil {
		t.Error("negative rate must fail")
	}

	c = base()
	c.Server.Port = 70000
	if err := c.Validate(); err == nil {
		t.Error("out-of-range port must fail")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	cases := map[string]string{
		"OSM_BASE_URL":     "upstream.base_url",
		"osm_base_url":     "upstream.base_url",
		"VIKING_DEMO_MODE": "demo.enabled",
		"PATH":             "",
		"HOME":             "",
	}
	for in, want := range cases {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
