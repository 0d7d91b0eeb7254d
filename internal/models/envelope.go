// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package models

import "time"

// Envelope wraps a cached item list with its write timestamp. Envelopes
// are written whole and never mutated in place; a replacement is always a
// fresh envelope.
type Envelope[T any] struct {
	Items          []T            `json:"items"`
	CacheTimestamp int64          `json:"_cacheTimestamp"`
	RateLimitInfo  *RateLimitInfo `json:"_rateLimitInfo,omitempty"`
}

// NewEnvelope stamps items with the current write time.
func NewEnvelope[T any](items []T, now time.Time) Envelope[T] {
	return Envelope[T]{Items: items, CacheTimestamp: now.UnixMilli()}
}

// Age returns how long ago the envelope was written.
func (e Envelope[T]) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(e.CacheTimestamp))
}

// Fresh reports whether the envelope is younger than ttl. A zero ttl means
// "fresh until explicitly refreshed".
func (e Envelope[T]) Fresh(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return true
	}
	return e.Age(now) < ttl
}

// Wrapped carries a single map-shaped entity with its write timestamp.
type Wrapped[T any] struct {
	Value          T     `json:"value"`
	CacheTimestamp int64 `json:"_cacheTimestamp"`
}

// NewWrapped stamps a single value with the current write time.
func NewWrapped[T any](value T, now time.Time) Wrapped[T] {
	return Wrapped[T]{Value: value, CacheTimestamp: now.UnixMilli()}
}

// Fresh reports whether the wrapped value is younger than ttl.
func (w Wrapped[T]) Fresh(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return true
	}
	return now.Sub(time.UnixMilli(w.CacheTimestamp)) < ttl
}
