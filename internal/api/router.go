// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package api serves the local surface: liveness, Prometheus metrics, a
// status snapshot of the data layer, and the sign-in/out write operations
// for the embedding UI. It requires no authentication; it binds to the
// local host.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/network"
	"github.com/vikingscouts/eventmgmt/internal/osm"
	"github.com/vikingscouts/eventmgmt/internal/queue"
	"github.com/vikingscouts/eventmgmt/internal/session"
	"github.com/vikingscouts/eventmgmt/internal/signin"
	"github.com/vikingscouts/eventmgmt/internal/store"
	"github.com/vikingscouts/eventmgmt/internal/validation"
)

// requestsPerMinute bounds the local surface per client IP. The embedding
// UI polls status once a few seconds; anything past this is a bug.
const requestsPerMinute = 240

// Deps are the components the local surface exposes.
type Deps struct {
	Store       *store.Store
	Sensor      *network.Sensor
	Gate        *osm.Gate
	Queue       *queue.Queue
	Client      *osm.Client
	Session     *session.Manager
	Coordinator *signin.Coordinator
	Demo        bool
	Version     string
}

// Status is the /api/status response body.
type Status struct {
	Version     string      `json:"version"`
	DemoMode    bool        `json:"demo_mode"`
	Online      bool        `json:"online"`
	AuthGateOK  bool        `json:"auth_gate_ok"`
	TokenValid  bool        `json:"token_valid"`
	Breaker     string      `json:"breaker"`
	Blocked     bool        `json:"blocked"`
	Queue       queue.Stats `json:"queue"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// signRequest identifies the member a sign-in/out applies to.
type signRequest struct {
	ScoutID   models.ID `json:"scoutid" validate:"required"`
	Name      string    `json:"name"`
	Section   string    `json:"section"`
	SectionID int       `json:"sectionid" validate:"required"`
	TermID    models.ID `json:"termid" validate:"required"`
}

func (r signRequest) target() signin.Target {
	return signin.Target{
		ScoutID:   r.ScoutID,
		Name:      r.Name,
		Section:   r.Section,
		SectionID: r.SectionID,
		TermID:    r.TermID,
	}
}

// bulkClearRequest lists the sections whose sign-in fields get blanked.
type bulkClearRequest struct {
	Sections []struct {
		SectionID int       `json:"sectionid" validate:"required"`
		TermID    models.ID `json:"termid" validate:"required"`
		Section   string    `json:"section"`
	} `json:"sections" validate:"required,min=1,dive"`
}

// NewRouter builds the local router.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(requestsPerMinute, time.Minute))
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, buildStatus(deps))
		})

		if deps.Coordinator != nil {
			r.Post("/sign-in", handleSign(deps.Coordinator.SignIn))
			r.Post("/sign-out", handleSign(deps.Coordinator.SignOut))
			r.Post("/bulk-clear", handleBulkClear(deps.Coordinator))
		}
	})

	return r
}

// handleSign decodes and validates a member target, runs the sequence,
// and maps coordinator errors onto status codes.
func handleSign(run func(ctx context.Context, target signin.Target) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validation.ValidateStruct(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := run(r.Context(), req.target()); err != nil {
			writeSignError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func handleBulkClear(coord *signin.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkClearRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validation.ValidateStruct(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		scopes := make([]signin.SectionScope, 0, len(req.Sections))
		for _, s := range req.Sections {
			scopes = append(scopes, signin.SectionScope{SectionID: s.SectionID, TermID: s.TermID, Section: s.Section})
		}
		if err := coord.BulkClear(r.Context(), scopes); err != nil {
			writeSignError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func writeSignError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, signin.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNoToken), errors.Is(err, session.ErrTokenExpired), osm.IsAuthError(err):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func buildStatus(deps Deps) Status {
	st := Status{
		Version:     deps.Version,
		DemoMode:    deps.Demo,
		GeneratedAt: time.Now().UTC(),
	}
	if deps.Sensor != nil {
		st.Online = deps.Sensor.IsOnline()
	}
	if deps.Gate != nil {
		st.AuthGateOK = deps.Gate.ShouldMakeAPICall()
	}
	if deps.Session != nil {
		st.TokenValid = deps.Session.ValidTokenExists()
	}
	if deps.Client != nil {
		st.Breaker = deps.Client.BreakerState()
	}
	if deps.Queue != nil {
		st.Queue = deps.Queue.Stats()
	}
	if deps.Store != nil {
		blocked, err := deps.Store.Has(store.BlockedKey())
		if err != nil {
			logging.Err(err).Msg("blocked flag read failed")
		}
		st.Blocked = blocked
	}
	return st
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
