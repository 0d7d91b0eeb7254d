// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package osm

import (
	"sync/atomic"

	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/metrics"
)

// Gate is the session-scoped auth circuit breaker. Once the upstream
// rejects our credentials the gate latches open and every subsequent call
// is refused locally; services treat that as "cache only". Only a
// successful login resets it.
//
// This is deliberately not gobreaker: a half-open probe would re-present
// a credential we already know is dead.
type Gate struct {
	tripped atomic.Bool
}

// NewGate returns a closed gate.
func NewGate() *Gate { return &Gate{} }

// ShouldMakeAPICall reports whether upstream calls are currently allowed.
func (g *Gate) ShouldMakeAPICall() bool {
	return !g.tripped.Load()
}

// Trip latches the gate open for the rest of the session.
func (g *Gate) Trip(reason string) {
	if g.tripped.Swap(true) {
		return
	}
	metrics.AuthGateTripped.Set(1)
	logging.Warn().Str("reason", reason).Msg("auth gate tripped, upstream calls blocked until next login")
}

// Reset closes the gate. Called from the session's login hook.
func (g *Gate) Reset() {
	if !g.tripped.Swap(false) {
		return
	}
	metrics.AuthGateTripped.Set(0)
	logging.Info().Msg("auth gate reset")
}
