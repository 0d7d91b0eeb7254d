// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package cache implements the offline-first read policy shared by every
// entity service: serve demo fixtures in demo mode, serve fresh cache
// while online, serve stale cache while offline or auth-gated, otherwise
// fetch upstream and persist the result in a timestamped envelope.
package cache

import (
	"context"
	"time"

	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/metrics"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/network"
	"github.com/vikingscouts/eventmgmt/internal/osm"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// Cache lifetimes. Zero means a cached value stays fresh until an
// explicit refresh or the next successful online fetch replaces it.
const (
	TTLTerms            = 30 * time.Minute
	TTLFlexiLists       = 30 * time.Minute
	TTLFlexiStructure   = time.Hour
	TTLSharedAttendance = time.Hour
	TTLForever          = time.Duration(0)
)

// Engine evaluates the read policy. It owns no entity knowledge; the
// services supply keys, TTLs and fetch closures.
type Engine struct {
	st   *store.Store
	net  *network.Sensor
	gate *osm.Gate
	demo bool

	now func() time.Time
}

// NewEngine builds an engine. demo pins every read to the demo_ mirror
// of the key namespace.
func NewEngine(st *store.Store, net *network.Sensor, gate *osm.Gate, demo bool) *Engine {
	return &Engine{st: st, net: net, gate: gate, demo: demo, now: time.Now}
}

// SetClock overrides the engine clock for tests.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// DemoMode reports whether reads are pinned to the demo fixture.
func (e *Engine) DemoMode() bool { return e.demo }

// Store exposes the underlying store for write paths that bypass the
// read policy.
func (e *Engine) Store() *store.Store { return e.st }

// Fetch is an upstream call bound to a frozen token.
type Fetch[T any] func(ctx context.Context) (T, error)

// ReadList resolves a list-shaped entity under key. tok is the frozen
// session token; an empty token degrades to cache-only. force skips the
// freshness check but still honors offline and the auth gate.
func ReadList[T any](ctx context.Context, e *Engine, key string, ttl time.Duration, tok string, force bool, fetch Fetch[[]T]) ([]T, error) {
	if e.demo {
		var env models.Envelope[T]
		if ok, err := e.st.Get(store.DemoKey(key), &env); err == nil && ok {
			metrics.CacheReads.WithLabelValues("demo").Inc()
			return env.Items, nil
		}
		metrics.CacheReads.WithLabelValues("default").Inc()
		return []T{}, nil
	}

	var cached models.Envelope[T]
	hasCached := false
	if ok, err := e.st.Get(key, &cached); err != nil {
		logging.Err(err).Str("key", key).Msg("cache read failed")
	} else {
		hasCached = ok
	}

	online := e.net.IsOnline()

	if online && !force && hasCached && cached.Fresh(e.now(), ttl) {
		metrics.CacheReads.WithLabelValues("fresh").Inc()
		return cached.Items, nil
	}

	if !online || !e.gate.ShouldMakeAPICall() || tok == "" {
		if hasCached {
			metrics.CacheReads.WithLabelValues("stale").Inc()
			return cached.Items, nil
		}
		metrics.CacheReads.WithLabelValues("default").Inc()
		return []T{}, nil
	}

	items, err := fetch(ctx)
	if err != nil {
		// Fetch failed while online: fall back to whatever we had, and
		// leave its timestamp alone so staleness stays visible.
		if hasCached {
			logging.Err(err).Str("key", key).Msg("fetch failed, serving cached value")
			metrics.CacheReads.WithLabelValues("stale").Inc()
			return cached.Items, nil
		}
		return nil, err
	}

	env := models.NewEnvelope(items, e.now())
	if perr := e.st.Put(key, env); perr != nil {
		logging.Err(perr).Str("key", key).Msg("cache write failed")
	}
	metrics.CacheReads.WithLabelValues("network").Inc()
	return items, nil
}

// ReadValue resolves a single-object entity under key. The boolean
// reports whether anything (cached or fetched) was found.
func ReadValue[T any](ctx context.Context, e *Engine, key string, ttl time.Duration, tok string, force bool, fetch Fetch[T]) (T, bool, error) {
	var zero T

	if e.demo {
		var w models.Wrapped[T]
		if ok, err := e.st.Get(store.DemoKey(key), &w); err == nil && ok {
			metrics.CacheReads.WithLabelValues("demo").Inc()
			return w.Value, true, nil
		}
		metrics.CacheReads.WithLabelValues("default").Inc()
		return zero, false, nil
	}

	var cached models.Wrapped[T]
	hasCached := false
	if ok, err := e.st.Get(key, &cached); err != nil {
		logging.Err(err).Str("key", key).Msg("cache read failed")
	} else {
		hasCached = ok
	}

	online := e.net.IsOnline()

	if online && !force && hasCached && fresh(cached.CacheTimestamp, e.now(), ttl) {
		metrics.CacheReads.WithLabelValues("fresh").Inc()
		return cached.Value, true, nil
	}

	if !online || !e.gate.ShouldMakeAPICall() || tok == "" {
		if hasCached {
			metrics.CacheReads.WithLabelValues("stale").Inc()
			return cached.Value, true, nil
		}
		metrics.CacheReads.WithLabelValues("default").Inc()
		return zero, false, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		if hasCached {
			logging.Err(err).Str("key", key).Msg("fetch failed, serving cached value")
			metrics.CacheReads.WithLabelValues("stale").Inc()
			return cached.Value, true, nil
		}
		return zero, false, err
	}

	w := models.Wrapped[T]{Value: v, CacheTimestamp: e.now().UnixMilli()}
	if perr := e.st.Put(key, w); perr != nil {
		logging.Err(perr).Str("key", key).Msg("cache write failed")
	}
	metrics.CacheReads.WithLabelValues("network").Inc()
	return v, true, nil
}

func fresh(ts int64, now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return true
	}
	return now.Sub(time.UnixMilli(ts)) < ttl
}
