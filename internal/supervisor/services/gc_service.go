// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package services

import (
	"context"
	"time"

	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// StoreGCService runs periodic value-log garbage collection so the
// on-disk store does not grow unbounded under envelope rewrites.
type StoreGCService struct {
	st       *store.Store
	interval time.Duration
}

// NewStoreGCService wraps st's garbage collector as a supervised loop.
func NewStoreGCService(st *store.Store, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{st: st, interval: interval}
}

// Serve implements suture.Service.
func (g *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.st.RunGC(); err != nil {
				logging.Err(err).Msg("store garbage collection failed")
			}
		}
	}
}

func (g *StoreGCService) String() string { return "store-gc" }
