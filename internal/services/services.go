// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package services exposes the entity read API: sections, terms, events,
// attendance, members, flexi records and shared-event data. Every getter
// takes a frozen token and runs through the cache engine's read policy,
// so callers get the same answer shape online, offline and in demo mode.
package services

import (
	"time"

	"github.com/vikingscouts/eventmgmt/internal/cache"
	"github.com/vikingscouts/eventmgmt/internal/osm"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// Services is the entity read layer.
type Services struct {
	eng    *cache.Engine
	st     *store.Store
	client *osm.Client
	now    func() time.Time
}

// New builds the entity services over the shared engine, store and
// upstream client.
func New(eng *cache.Engine, st *store.Store, client *osm.Client) *Services {
	return &Services{eng: eng, st: st, client: client, now: time.Now}
}

// SetClock overrides the clock for tests.
func (s *Services) SetClock(now func() time.Time) { s.now = now }

// DemoMode reports whether the engine serves the demo fixture.
func (s *Services) DemoMode() bool { return s.eng.DemoMode() }

// namespace returns the key prefix for direct store access: demo mode
// pins everything to the demo_ mirror.
func (s *Services) namespace() string {
	if s.eng.DemoMode() {
		return store.DemoPrefix
	}
	return ""
}
