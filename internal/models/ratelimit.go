// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package models

// RateLimitOSM is the upstream's own rate budget as reported in the
// _rateLimitInfo side channel.
type RateLimitOSM struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"resetTime"`
}

// RateLimitBackend is the proxy's per-window request counters.
type RateLimitBackend struct {
	Minute int `json:"minute"`
	Second int `json:"second"`
	Hour   int `json:"hour"`
}

// RateLimitInfo is attached by the proxy to every response, success or 429.
type RateLimitInfo struct {
	OSM     RateLimitOSM     `json:"osm"`
	Backend RateLimitBackend `json:"backend"`
}

// Warning thresholds for remaining upstream requests.
const (
	RateLimitWarnThreshold  = 20
	RateLimitErrorThreshold = 10
)
