// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package signin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
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
	"github.com/vikingscouts/eventmgmt/internal/store"
)

type recordedWrite struct {
	Token    string
	ColumnID string
	Value    string
	ScoutID  models.ID
}

type recordedMulti struct {
	Column string
	Value  string
	Scouts []models.ID
}

// harness wires a coordinator against an httptest upstream with a
// pre-cached Viking record resolution for section 49097 / term 12345.
type harness struct {
	coord  *Coordinator
	sess   *session.Manager
	st     *store.Store
	target Target

	mu      sync.Mutex
	writes  []recordedWrite
	multis  []recordedMulti
	delays  []time.Duration
	refresh int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		target: Target{ScoutID: "2001", Name: "Alice Archer", Section: "cubs", SectionID: 49097, TermID: "12345"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/get-startup-data", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"firstname": "Jane", "lastname": "Leader", "userid": 9}`))
	})
	mux.HandleFunc("/update-flexi-record", func(w http.ResponseWriter, r *http.Request) {
		var req osm.UpdateFlexiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode update: %v", err)
		}
		h.mu.Lock()
		h.writes = append(h.writes, recordedWrite{
			Token:    strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
			ColumnID: req.ColumnID,
			Value:    req.Value,
			ScoutID:  req.ScoutID,
		})
		h.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok": true}`))
	})
	mux.HandleFunc("/multi-update-flexi-record", func(w http.ResponseWriter, r *http.Request) {
		var req osm.MultiUpdateFlexiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode multi update: %v", err)
		}
		h.mu.Lock()
		h.multis = append(h.multis, recordedMulti{Column: req.Column, Value: req.Value, Scouts: req.Scouts})
		h.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok": true}`))
	})
	mux.HandleFunc("/get-single-flexi-record", func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.refresh++
		h.mu.Unlock()
		_, _ = w.Write([]byte(`{"items": []}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	st, err := store.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	h.st = st

	q := queue.New(queue.Options{})
	t.Cleanup(q.Stop)

	gate := osm.NewGate()
	client := osm.NewClient(srv.URL, q, gate, st)
	eng := cache.NewEngine(st, network.NewSensor(nil), gate, false)
	svcs := services.New(eng, st, client)
	resolver := flexi.NewResolver(st, eng, client)

	h.sess = session.NewManager()
	h.sess.Login("tok-1", time.Now().Add(time.Hour), nil)

	// Pre-cache the Viking record so resolution never hits the catalog.
	structure := models.FlexiStructure{
		ExtraID: "777",
		Name:    models.VikingRecordName,
		Config: json.RawMessage(`[
			{"id": "f_1", "name": "CampGroup"},
			{"id": "f_2", "name": "SignedInBy"},
			{"id": "f_3", "name": "SignedInWhen"},
			{"id": "f_4", "name": "SignedOutBy"},
			{"id": "f_5", "name": "SignedOutWhen"}
		]`),
	}
	if err := st.Put(store.FlexiStructureKey("777"), models.NewWrapped(structure, time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := st.Put(store.FlexiDataKey("777", 49097, "12345"), models.NewEnvelope([]models.FlexiDataRow{}, time.Now())); err != nil {
		t.Fatal(err)
	}

	h.coord = NewCoordinator(h.sess, svcs, resolver, client)
	h.coord.SetDelay(func(ctx context.Context, d time.Duration) error {
		h.mu.Lock()
		h.delays = append(h.delays, d)
		h.mu.Unlock()
		return nil
	})
	return h
}

func TestCoordinator_SignInWritesFourFieldsInOrder(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)
	h.coord.SetClock(func() time.Time { return now })

	if err := h.coord.SignIn(context.Background(), h.target); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	want := []recordedWrite{
		{Token: "tok-1", ColumnID: "f_2", Value: "Jane Leader", ScoutID: "2001"},
		{Token: "tok-1", ColumnID: "f_3", Value: "2026-09-01T14:30:00Z", ScoutID: "2001"},
		{Token: "tok-1", ColumnID: "f_4", Value: ClearedText, ScoutID: "2001"},
		{Token: "tok-1", ColumnID: "f_5", Value: ClearedTime, ScoutID: "2001"},
	}
	if len(h.writes) != len(want) {
		t.Fatalf("expected %d writes, got %+v", len(want), h.writes)
	}
	for i, w := range want {
		if h.writes[i] != w {
			t.Errorf("write %d: got %+v, want %+v", i, h.writes[i], w)
		}
	}

	// Three inter-step gaps at the protocol spacing, then a data refresh.
	if len(h.delays) != 3 {
		t.Errorf("expected 3 delays, got %v", h.delays)
	}
	for _, d := range h.delays {
		if d != stepSpacing {
			t.Errorf("unexpected spacing %v", d)
		}
	}
	if h.refresh != 1 {
		t.Errorf("expected one refresh, got %d", h.refresh)
	}
}

func TestCoordinator_SignOutWritesTwoFields(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC)
	h.coord.SetClock(func() time.Time { return now })

	if err := h.coord.SignOut(context.Background(), h.target); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	if len(h.writes) != 2 {
		t.Fatalf("expected 2 writes, got %+v", h.writes)
	}
	if h.writes[0].ColumnID != "f_4" || h.writes[0].Value != "Jane Leader" {
		t.Errorf("first write must set SignedOutBy: %+v", h.writes[0])
	}
	if h.writes[1].ColumnID != "f_5" || h.writes[1].Value != "2026-09-01T16:00:00Z" {
		t.Errorf("second write must set SignedOutWhen: %+v", h.writes[1])
	}
}

func TestCoordinator_ExpiredSessionRefusesSequence(t *testing.T) {
	h := newHarness(t)
	h.sess.Logout()

	err := h.coord.SignIn(context.Background(), h.target)
	if err == nil || !strings.Contains(err.Error(), "session expired") {
		t.Fatalf("expected session expired, got %v", err)
	}
	if len(h.writes) != 0 {
		t.Errorf("no writes may happen without a session: %+v", h.writes)
	}
}

func TestCoordinator_TokenFrozenAcrossRelogin(t *testing.T) {
	h := newHarness(t)

	// A login mid-sequence must not leak the new token into in-flight
	// writes.
	relogged := false
	h.coord.SetDelay(func(ctx context.Context, d time.Duration) error {
		if !relogged {
			h.sess.Login("tok-2", time.Now().Add(time.Hour), nil)
			relogged = true
		}
		return nil
	})

	if err := h.coord.SignIn(context.Background(), h.target); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	for i, w := range h.writes {
		if w.Token != "tok-1" {
			t.Errorf("write %d used token %q, want frozen tok-1", i, w.Token)
		}
	}
}

func TestCoordinator_CancellationStopsSequence(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	h.coord.SetDelay(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})

	err := h.coord.SignIn(ctx, h.target)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(h.writes) != 1 {
		t.Errorf("expected only the first write, got %+v", h.writes)
	}
	if h.refresh != 0 {
		t.Error("cancelled sequence must not refresh")
	}
}

func TestCoordinator_ConcurrentSequencesForSameMemberRefused(t *testing.T) {
	h := newHarness(t)

	started := make(chan struct{})
	release := make(chan struct{})
	h.coord.SetDelay(func(ctx context.Context, d time.Duration) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- h.coord.SignIn(context.Background(), h.target) }()
	<-started

	if err := h.coord.SignOut(context.Background(), h.target); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for in-flight member, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first sequence: %v", err)
	}

	// The member is free again afterwards.
	h.coord.SetDelay(func(context.Context, time.Duration) error { return nil })
	if err := h.coord.SignOut(context.Background(), h.target); err != nil {
		t.Errorf("sequence after release: %v", err)
	}
}

func TestCoordinator_BulkClear(t *testing.T) {
	h := newHarness(t)

	rows := []models.FlexiDataRow{
		{ScoutID: "1", Fields: map[string]string{"f_2": "Jane Leader", "f_3": "2026-09-01T10:00:00Z", "f_4": ClearedText, "f_5": ClearedTime}},
		{ScoutID: "2", Fields: map[string]string{"f_2": ClearedText, "f_3": ClearedTime, "f_4": ClearedText, "f_5": ClearedTime}},
		{ScoutID: "3", Fields: map[string]string{"f_2": "", "f_4": "Sam Helper"}},
	}
	if err := h.st.Put(store.FlexiDataKey("777", 49097, "12345"), models.NewEnvelope(rows, time.Now())); err != nil {
		t.Fatal(err)
	}

	scope := SectionScope{SectionID: 49097, TermID: "12345", Section: "cubs"}
	if err := h.coord.BulkClear(context.Background(), []SectionScope{scope}); err != nil {
		t.Fatalf("bulk clear: %v", err)
	}

	// One multi-write per sign-in/out field, with time columns blanked to
	// the space sentinel and text columns to the dash sentinel.
	if len(h.multis) != 4 {
		t.Fatalf("expected 4 multi writes, got %+v", h.multis)
	}
	wantValues := map[string]string{"f_2": ClearedText, "f_3": ClearedTime, "f_4": ClearedText, "f_5": ClearedTime}
	for _, m := range h.multis {
		if m.Value != wantValues[m.Column] {
			t.Errorf("column %s cleared with %q", m.Column, m.Value)
		}
		if len(m.Scouts) != 2 || m.Scouts[0] != "1" || m.Scouts[1] != "3" {
			t.Errorf("only members with live values need clearing: %+v", m.Scouts)
		}
	}
}

func TestCoordinator_BulkClearNoopWhenAllCleared(t *testing.T) {
	h := newHarness(t)

	rows := []models.FlexiDataRow{
		{ScoutID: "1", Fields: map[string]string{"f_2": ClearedText, "f_3": ClearedTime, "f_4": ClearedText, "f_5": ClearedTime}},
	}
	if err := h.st.Put(store.FlexiDataKey("777", 49097, "12345"), models.NewEnvelope(rows, time.Now())); err != nil {
		t.Fatal(err)
	}

	scope := SectionScope{SectionID: 49097, TermID: "12345"}
	if err := h.coord.BulkClear(context.Background(), []SectionScope{scope}); err != nil {
		t.Fatalf("bulk clear: %v", err)
	}
	if len(h.multis) != 0 {
		t.Errorf("fully cleared roster must issue no writes: %+v", h.multis)
	}
}

// newDemoHarness wires a coordinator over a demo-mode engine with the
// Viking record present only in the demo mirror. The upstream counts
// every request it receives; demo mode must never reach it.
func newDemoHarness(t *testing.T) (*Coordinator, *store.Store, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	st, err := store.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	q := queue.New(queue.Options{})
	t.Cleanup(q.Stop)

	gate := osm.NewGate()
	client := osm.NewClient(srv.URL, q, gate, st)
	eng := cache.NewEngine(st, network.NewSensor(nil), gate, true)
	svcs := services.New(eng, st, client)
	resolver := flexi.NewResolver(st, eng, client)

	structure := models.FlexiStructure{
		ExtraID: "777",
		Name:    models.VikingRecordName,
		Config: json.RawMessage(`[
			{"id": "f_1", "name": "CampGroup"},
			{"id": "f_2", "name": "SignedInBy"},
			{"id": "f_3", "name": "SignedInWhen"},
			{"id": "f_4", "name": "SignedOutBy"},
			{"id": "f_5", "name": "SignedOutWhen"}
		]`),
	}
	if err := st.Put(store.DemoKey(store.FlexiStructureKey("777")), models.NewWrapped(structure, time.Now())); err != nil {
		t.Fatal(err)
	}
	rows := []models.FlexiDataRow{
		{ScoutID: "2001", Fields: map[string]string{"f_1": "Group 1", "f_2": ClearedText, "f_3": ClearedTime, "f_4": ClearedText, "f_5": ClearedTime}},
	}
	if err := st.Put(store.DemoKey(store.FlexiDataKey("777", 49097, "12345")), models.NewEnvelope(rows, time.Now())); err != nil {
		t.Fatal(err)
	}
	startup := models.StartupData{Firstname: "Demo", Lastname: "Leader"}
	if err := st.Put(store.DemoKey(store.StartupKey()), models.NewWrapped(startup, time.Now())); err != nil {
		t.Fatal(err)
	}

	// No login: demo mode must work without a session.
	coord := NewCoordinator(session.NewManager(), svcs, resolver, client)
	coord.SetDelay(func(context.Context, time.Duration) error { return nil })
	return coord, st, &hits
}

func TestCoordinator_DemoModeWritesMirrorOnly(t *testing.T) {
	coord, st, hits := newDemoHarness(t)
	now := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)
	coord.SetClock(func() time.Time { return now })

	target := Target{ScoutID: "2001", Name: "Alfie Anderson", SectionID: 49097, TermID: "12345"}
	if err := coord.SignIn(context.Background(), target); err != nil {
		t.Fatalf("demo sign in: %v", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("demo mode issued %d upstream calls, want none", n)
	}

	var env models.Envelope[models.FlexiDataRow]
	found, err := st.Get(store.DemoKey(store.FlexiDataKey("777", 49097, "12345")), &env)
	if err != nil || !found || len(env.Items) != 1 {
		t.Fatalf("demo mirror unreadable: found=%v err=%v items=%d", found, err, len(env.Items))
	}
	fields := env.Items[0].Fields
	if fields["f_2"] != "Demo Leader" || fields["f_3"] != "2026-09-01T14:30:00Z" {
		t.Errorf("sign-in fields not applied to the mirror: %v", fields)
	}
	if fields["f_4"] != ClearedText || fields["f_5"] != ClearedTime {
		t.Errorf("sign-out fields must stay cleared: %v", fields)
	}
}

func TestCoordinator_DemoBulkClearWritesMirrorOnly(t *testing.T) {
	coord, st, hits := newDemoHarness(t)

	rows := []models.FlexiDataRow{
		{ScoutID: "2001", Fields: map[string]string{"f_2": "Demo Leader", "f_3": "2026-09-01T10:00:00Z", "f_4": ClearedText, "f_5": ClearedTime}},
	}
	if err := st.Put(store.DemoKey(store.FlexiDataKey("777", 49097, "12345")), models.NewEnvelope(rows, time.Now())); err != nil {
		t.Fatal(err)
	}

	scope := SectionScope{SectionID: 49097, TermID: "12345"}
	if err := coord.BulkClear(context.Background(), []SectionScope{scope}); err != nil {
		t.Fatalf("demo bulk clear: %v", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("demo mode issued %d upstream calls, want none", n)
	}

	var env models.Envelope[models.FlexiDataRow]
	if _, err := st.Get(store.DemoKey(store.FlexiDataKey("777", 49097, "12345")), &env); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"f_2", "f_3", "f_4", "f_5"} {
		if !IsCleared(env.Items[0].Fields[field]) {
			t.Errorf("field %s not cleared in the mirror: %q", field, env.Items[0].Fields[field])
		}
	}
}

func TestCoordinator_SessionUserAttributesWrites(t *testing.T) {
	h := newHarness(t)
	h.sess.Login("tok-1", time.Now().Add(time.Hour), &models.UserInfo{Firstname: "Sarah", Lastname: "Mitchell"})

	if err := h.coord.SignIn(context.Background(), h.target); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if len(h.writes) == 0 || h.writes[0].Value != "Sarah Mitchell" {
		t.Errorf("login user must win over startup data: %+v", h.writes)
	}
}

func TestIsCleared(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"", true},
		{ClearedText, true},
		{ClearedTime, true},
		{"   ", true},
		{"Jane Leader", false},
		{"2026-09-01T10:00:00Z", false},
	}
	for _, c := range cases {
		if got := IsCleared(c.value); got != c.want {
			t.Errorf("IsCleared(%q) = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestScoutsNeedingClear(t *testing.T) {
	mapping := models.FieldMapping{Fields: []models.FlexiConfigField{
		{ID: "f_2", Name: models.FieldSignedInBy},
		{ID: "f_3", Name: models.FieldSignedInWhen},
		{ID: "f_4", Name: models.FieldSignedOutBy},
		{ID: "f_5", Name: models.FieldSignedOutWhen},
	}}

	rows := []models.FlexiDataRow{
		{ScoutID: "10", Fields: map[string]string{"f_2": "Someone"}},
		{ScoutID: "11", Fields: map[string]string{}},
		{ScoutID: "12", Fields: map[string]string{"f_5": "2026-09-01T10:00:00Z"}},
	}

	got := scoutsNeedingClear(rows, mapping)
	if len(got) != 2 || got[0] != "10" || got[1] != "12" {
		t.Errorf("unexpected selection: %v", got)
	}
}
