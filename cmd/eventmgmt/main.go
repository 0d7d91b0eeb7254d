// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package main is the entry point for the Viking Event Mgmt data layer.
//
// The process owns the offline store, the upstream client with its
// rate-limit queue, and the entity services, and exposes a local surface
// for the embedding UI (liveness, metrics, status, sign-in/out).
// Components start in this order:
//
//  1. Configuration: Koanf v2 layered sources (env > file > defaults)
//  2. Store: Badger offline cache (in-memory when no path is set)
//  3. Demo mode: detection and fixture seeding
//  4. Network sensor and rate-limit queue
//  5. Upstream client behind the auth gate and circuit breaker
//  6. Supervision tree: store GC, network monitor, status server
//
// Shutdown on SIGINT/SIGTERM is graceful: the queue drains its in-flight
// call, the listener stops accepting, and the store closes last.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vikingscouts/eventmgmt/internal/api"
	"github.com/vikingscouts/eventmgmt/internal/cache"
	"github.com/vikingscouts/eventmgmt/internal/config"
	"github.com/vikingscouts/eventmgmt/internal/demo"
	"github.com/vikingscouts/eventmgmt/internal/flexi"
	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/network"
	"github.com/vikingscouts/eventmgmt/internal/osm"
	"github.com/vikingscouts/eventmgmt/internal/queue"
	"github.com/vikingscouts/eventmgmt/internal/services"
	"github.com/vikingscouts/eventmgmt/internal/session"
	"github.com/vikingscouts/eventmgmt/internal/signin"
	"github.com/vikingscouts/eventmgmt/internal/store"
	"github.com/vikingscouts/eventmgmt/internal/supervisor"
	supsvc "github.com/vikingscouts/eventmgmt/internal/supervisor/services"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting Viking Event Mgmt data layer")

	demoMode := cfg.Demo.Enabled || demo.Detect(cfg.Demo.URL)

	storePath := cfg.Store.Path
	if demoMode && storePath == "" {
		logging.Info().Msg("Demo mode with no store path, using in-memory store")
	}
	st, err := store.Open(storePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	if demoMode {
		if err := demo.NewSeeder(st).Seed(); err != nil {
			logging.Fatal().Err(err).Msg("Failed to seed demo fixture")
		}
	}

	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}
	var probe network.ProbeFunc
	if cfg.Upstream.BaseURL != "" {
		probe = network.HealthProbe(cfg.Upstream.BaseURL, httpClient)
	}
	sensor := network.NewSensor(probe)

	q := queue.New(queue.Options{RequestsPerSecond: cfg.Upstream.RequestsPerSecond})
	defer q.Stop()

	gate := osm.NewGate()
	client := osm.NewClient(cfg.Upstream.BaseURL, q, gate, st)
	client.OnTransportError = func() { sensor.SetOnline(false) }

	sess := session.NewManager()
	sess.OnLogin(gate.Reset)

	eng := cache.NewEngine(st, sensor, gate, demoMode)
	svcs := services.New(eng, st, client)
	resolver := flexi.NewResolver(st, eng, client)
	coordinator := signin.NewCoordinator(sess, svcs, resolver, client)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(supsvc.NewStoreGCService(st, 10*time.Minute))
	if probe != nil {
		tree.AddDataService(supsvc.NewNetworkMonitorService(sensor, 30*time.Second))
	}

	router := api.NewRouter(api.Deps{
		Store:       st,
		Sensor:      sensor,
		Gate:        gate,
		Queue:       q,
		Client:      client,
		Session:     sess,
		Coordinator: coordinator,
		Demo:        demoMode,
		Version:     version,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}
	tree.AddAPIService(supsvc.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Bool("demo_mode", demoMode).
		Str("listen", server.Addr).
		Str("store", storePath).
		Msg("Supervision tree starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervision tree exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("Shutdown complete")
}
