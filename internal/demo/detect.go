// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package demo detects demo mode and seeds the demo_ key namespace with a
// deterministic fixture satisfying the same read contracts as live data.
package demo

import (
	"net/url"
	"os"
	"strings"
)

// EnvFlag activates demo mode from the environment.
const EnvFlag = "VIKING_DEMO_MODE"

// Detect reports whether rawURL or the environment requests demo mode.
// Checks in order: demo=true / mode=demo query params, a demo. subdomain,
// a /demo path prefix, then the environment flag.
func Detect(rawURL string) bool {
	if rawURL != "" {
		if u, err := url.Parse(rawURL); err == nil {
			q := u.Query()
			if q.Get("demo") == "true" || q.Get("mode") == "demo" {
				return true
			}
			if strings.HasPrefix(u.Hostname(), "demo.") {
				return true
			}
			if u.Path == "/demo" || strings.HasPrefix(u.Path, "/demo/") {
				return true
			}
		}
	}
	switch strings.ToLower(os.Getenv(EnvFlag)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
