// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package services

import (
	"context"
	"time"

	"github.com/vikingscouts/eventmgmt/internal/network"
)

// NetworkMonitorService probes upstream reachability on an interval so
// the online flag recovers after an outage without user action.
type NetworkMonitorService struct {
	sensor   *network.Sensor
	interval time.Duration
}

// NewNetworkMonitorService wraps sensor as a supervised probe loop.
func NewNetworkMonitorService(sensor *network.Sensor, interval time.Duration) *NetworkMonitorService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &NetworkMonitorService{sensor: sensor, interval: interval}
}

// Serve implements suture.Service.
func (n *NetworkMonitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n.sensor.Check(ctx)
		}
	}
}

func (n *NetworkMonitorService) String() string { return "network-monitor" }
