// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package network reports upstream connectivity. The sensor probes the
// proxy's liveness endpoint rather than assuming a state; every cache read
// consults it to decide between fetch and stale fallback.
package network

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vikingscouts/eventmgmt/internal/logging"
)

// ProbeFunc checks actual connectivity. It returns nil when the upstream
// is reachable.
type ProbeFunc func(ctx context.Context) error

// Sensor tracks the current connectivity state and notifies listeners on
// change.
type Sensor struct {
	mu        sync.RWMutex
	online    bool
	probe     ProbeFunc
	callbacks []func(online bool)
}

// NewSensor creates a sensor and queries the actual state once. A nil
// probe cannot query anything and defaults to online (optimistic).
func NewSensor(probe ProbeFunc) *Sensor {
	s := &Sensor{probe: probe, online: true}
	if probe != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.online = probe(ctx) == nil
	}
	return s
}

// HealthProbe probes the proxy's /health endpoint.
func HealthProbe(baseURL string, client *http.Client) ProbeFunc {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", http.NoBody)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health returned %d", resp.StatusCode)
		}
		return nil
	}
}

// IsOnline reports the last observed connectivity state.
func (s *Sensor) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// OnChange registers a callback fired whenever connectivity flips.
// Callbacks run synchronously on the goroutine that observed the change.
func (s *Sensor) OnChange(cb func(online bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// Check re-probes connectivity and updates the state. With no probe
// configured the state is left as is.
func (s *Sensor) Check(ctx context.Context) bool {
	s.mu.RLock()
	probe := s.probe
	s.mu.RUnlock()

	if probe == nil {
		return s.IsOnline()
	}
	online := probe(ctx) == nil
	s.SetOnline(online)
	return online
}

// SetOnline records an observed state, firing change callbacks when it
// differs from the previous one. Exposed so transport-level failures can
// flip the sensor without waiting for the next probe.
func (s *Sensor) SetOnline(online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	callbacks := s.callbacks
	s.mu.Unlock()

	if !changed {
		return
	}
	logging.Info().Bool("online", online).Msg("connectivity changed")
	for _, cb := range callbacks {
		cb(online)
	}
}
