// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vikingscouts/eventmgmt/internal/cache"
	"github.com/vikingscouts/eventmgmt/internal/flexi"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/network"
	"github.com/vikingscouts/eventmgmt/internal/osm"
	"github.com/vikingscouts/eventmgmt/internal/queue"
	"github.com/vikingscouts/eventmgmt/internal/services"
	"github.com/vikingscouts/eventmgmt/internal/session"
	"github.com/vikingscouts/eventmgmt/internal/signin"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

func TestRouter_Healthz(t *testing.T) {
	r := NewRouter(Deps{Version: "test"})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestRouter_Metrics(t *testing.T) {
	r := NewRouter(Deps{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("metrics endpoint: %d", rec.Code)
	}
}

func TestRouter_Status(t *testing.T) {
	st, err := store.Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	gate := osm.NewGate()
	gate.Trip("test")

	sensor := network.NewSensor(nil)
	sensor.SetOnline(false)

	sess := session.NewManager()
	sess.Login("tok", time.Now().Add(time.Hour), nil)

	r := NewRouter(Deps{
		Store:   st,
		Sensor:  sensor,
		Gate:    gate,
		Session: sess,
		Demo:    true,
		Version: "1.2.3",
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint: %d", rec.Code)
	}

	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.Version != "1.2.3" || !got.DemoMode {
		t.Errorf("identity fields wrong: %+v", got)
	}
	if got.Online {
		t.Error("sensor reports offline")
	}
	if got.AuthGateOK {
		t.Error("tripped gate must report not ok")
	}
	if !got.TokenValid {
		t.Error("live session must report a valid token")
	}
	if got.Blocked {
		t.Error("no blocked flag was written")
	}
}

// signDeps wires a demo-mode coordinator so the write routes run without
// any upstream.
func signDeps(t *testing.T) (Deps, *store.Store) {
	t.Helper()

	st, err := store.Open("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	q := queue.New(queue.Options{})
	t.Cleanup(q.Stop)

	gate := osm.NewGate()
	client := osm.NewClient("http://127.0.0.1:0", q, gate, st)
	eng := cache.NewEngine(st, network.NewSensor(nil), gate, true)
	svcs := services.New(eng, st, client)
	resolver := flexi.NewResolver(st, eng, client)

	structure := models.FlexiStructure{
		ExtraID: "777",
		Name:    models.VikingRecordName,
		Config: json.RawMessage(`[
			{"id": "f_2", "name": "SignedInBy"},
			{"id": "f_3", "name": "SignedInWhen"},
			{"id": "f_4", "name": "SignedOutBy"},
			{"id": "f_5", "name": "SignedOutWhen"}
		]`),
	}
	if err := st.Put(store.DemoKey(store.FlexiStructureKey("777")), models.NewWrapped(structure, time.Now())); err != nil {
		t.Fatal(err)
	}
	rows := []models.FlexiDataRow{{ScoutID: "2001", Fields: map[string]string{}}}
	if err := st.Put(store.DemoKey(store.FlexiDataKey("777", 49097, "12345")), models.NewEnvelope(rows, time.Now())); err != nil {
		t.Fatal(err)
	}

	coord := signin.NewCoordinator(session.NewManager(), svcs, resolver, client)
	coord.SetDelay(func(context.Context, time.Duration) error { return nil })

	return Deps{Store: st, Coordinator: coord, Demo: true, Version: "test"}, st
}

func TestRouter_SignIn(t *testing.T) {
	deps, st := signDeps(t)
	r := NewRouter(deps)

	body := `{"scoutid": "2001", "name": "Alfie Anderson", "sectionid": 49097, "termid": "12345"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sign-in", strings.NewReader(body))
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in route: %d %s", rec.Code, rec.Body.String())
	}

	var env models.Envelope[models.FlexiDataRow]
	if _, err := st.Get(store.DemoKey(store.FlexiDataKey("777", 49097, "12345")), &env); err != nil {
		t.Fatal(err)
	}
	if len(env.Items) != 1 || signin.IsCleared(env.Items[0].Fields["f_2"]) {
		t.Errorf("sign-in did not reach the data layer: %+v", env.Items)
	}
}

func TestRouter_SignInRejectsBadRequest(t *testing.T) {
	deps, _ := signDeps(t)
	r := NewRouter(deps)

	// Missing scoutid and termid.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sign-in", strings.NewReader(`{"sectionid": 49097}`))
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid target must be rejected: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/sign-in", strings.NewReader("not json"))
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("garbage body must be rejected: %d", rec.Code)
	}
}

func TestRouter_BulkClear(t *testing.T) {
	deps, st := signDeps(t)
	rows := []models.FlexiDataRow{{ScoutID: "2001", Fields: map[string]string{"f_2": "Demo Leader", "f_3": "2026-09-01T10:00:00Z"}}}
	if err := st.Put(store.DemoKey(store.FlexiDataKey("777", 49097, "12345")), models.NewEnvelope(rows, time.Now())); err != nil {
		t.Fatal(err)
	}
	r := NewRouter(deps)

	body := `{"sections": [{"sectionid": 49097, "termid": "12345"}]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bulk-clear", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk-clear route: %d %s", rec.Code, rec.Body.String())
	}

	var env models.Envelope[models.FlexiDataRow]
	if _, err := st.Get(store.DemoKey(store.FlexiDataKey("777", 49097, "12345")), &env); err != nil {
		t.Fatal(err)
	}
	if !signin.IsCleared(env.Items[0].Fields["f_2"]) {
		t.Errorf("bulk clear did not reach the data layer: %+v", env.Items[0].Fields)
	}
}

func TestRouter_SignRoutesAbsentWithoutCoordinator(t *testing.T) {
	r := NewRouter(Deps{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sign-in", strings.NewReader("{}")))
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("write routes need a coordinator: %d", rec.Code)
	}
}

func TestRouter_CORSHeader(t *testing.T) {
	r := NewRouter(Deps{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://events.example.org")
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("missing CORS header, got %q", got)
	}
}

func TestRouter_RateLimitsByIP(t *testing.T) {
	r := NewRouter(Deps{})

	limited := false
	for i := 0; i < requestsPerMinute+1; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("per-IP rate limit never engaged")
	}
}
