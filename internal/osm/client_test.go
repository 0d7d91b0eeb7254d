// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package osm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vikingscouts/eventmgmt/internal/queue"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *Gate, *store.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	st, err := store.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	q := queue.New(queue.Options{})
	t.Cleanup(q.Stop)

	gate := NewGate()
	return NewClient(srv.URL, q, gate, st), gate, st
}

func TestClient_GetEventsDecodesItems(t *testing.T) {
	var gotAuth, gotSection string
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSection = r.URL.Query().Get("sectionid")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"identifier": "eventid",
			"items": [{"eventid": 100, "name": "Camp Weekend"}],
			"_rateLimitInfo": {"osm": {"limit": 500, "remaining": 499}}
		}`))
	}))

	events, err := c.GetEvents(context.Background(), "tok-1", "49097", "12345")
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("authorization header: %q", gotAuth)
	}
	if gotSection != "49097" {
		t.Errorf("sectionid query: %q", gotSection)
	}
	if len(events) != 1 || events[0].Name != "Camp Weekend" || string(events[0].EventID) != "100" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestClient_UnauthorizedTripsGate(t *testing.T) {
	calls := 0
	c, gate, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.GetTerms(context.Background(), "stale-tok")
	var ae *AuthError
	if !errors.As(err, &ae) || ae.Status != http.StatusUnauthorized {
		t.Fatalf("expected AuthError 401, got %v", err)
	}
	if gate.ShouldMakeAPICall() {
		t.Fatal("gate must latch open after a credential rejection")
	}

	// The next call is refused locally.
	_, err = c.GetTerms(context.Background(), "stale-tok")
	if !errors.Is(err, ErrAuthBlocked) {
		t.Fatalf("expected ErrAuthBlocked, got %v", err)
	}
	if calls != 1 {
		t.Errorf("gated call must not reach upstream, saw %d requests", calls)
	}

	gate.Reset()
	_, _ = c.GetTerms(context.Background(), "fresh-tok")
	if calls != 2 {
		t.Errorf("reset gate must allow calls again, saw %d requests", calls)
	}
}

func TestClient_RateLimitWithoutHintSurfaces(t *testing.T) {
	calls := 0
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "rate limited"}`))
	}))

	_, err := c.GetTerms(context.Background(), "tok")
	var rle *queue.RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rle.RetryAfter != 0 {
		t.Errorf("no hint means zero RetryAfter, got %v", rle.RetryAfter)
	}
	// Without a hint the queue must not retry.
	if calls != 1 {
		t.Errorf("expected single attempt, got %d", calls)
	}
}

func TestClient_RateLimitWithHintIsRetried(t *testing.T) {
	calls := 0
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"rateLimitInfo": {"retryAfter": 0.01}}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))

	if _, err := c.GetTerms(context.Background(), "tok"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestRetryAfterFrom(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		header string
		want   time.Duration
	}{
		{"upstream hint", `{"rateLimitInfo": {"retryAfter": 2.5}}`, "", 2500 * time.Millisecond},
		{"proxy hint", `{"rateLimit": {"retryAfter": 1}}`, "", time.Second},
		{"header fallback", `{}`, "3", 3 * time.Second},
		{"body wins over header", `{"rateLimitInfo": {"retryAfter": 1}}`, "9", time.Second},
		{"no hint", `{}`, "", 0},
		{"garbage body", `not json`, "", 0},
	}
	for _, c := range cases {
		h := http.Header{}
		if c.header != "" {
			h.Set("Retry-After", c.header)
		}
		if got := retryAfterFrom([]byte(c.body), h); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestClient_BlockedResponsePersistsFlag(t *testing.T) {
	// 401/403 trip the auth gate instead, so blocked detection is only
	// reachable on other error statuses.
	c, _, st := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "your account is permanently blocked"}`))
	}))

	_, err := c.GetTerms(context.Background(), "tok")
	var be *BlockedError
	if !errors.As(err, &be) {
		t.Fatalf("expected BlockedError, got %v", err)
	}
	blocked, err := st.Has(store.BlockedKey())
	if err != nil {
		t.Fatal(err)
	}
	if !blocked {
		t.Error("blocked flag must be persisted")
	}
}

func TestClient_TransportErrorNotifies(t *testing.T) {
	st, err := store.Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	q := queue.New(queue.Options{})
	defer q.Stop()

	c := NewClient("http://127.0.0.1:1", q, NewGate(), st)
	notified := false
	c.OnTransportError = func() { notified = true }

	_, err = c.GetTerms(context.Background(), "tok")
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !notified {
		t.Error("transport failure must invoke OnTransportError")
	}
}

func TestClient_UpdateFlexiValidatesColumn(t *testing.T) {
	calls := 0
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))

	err := c.UpdateFlexiRecord(context.Background(), "tok", UpdateFlexiRequest{
		SectionID:     "49097",
		ScoutID:       "1",
		FlexiRecordID: "777",
		ColumnID:      "DROP TABLE",
		TermID:        "12345",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if calls != 0 {
		t.Error("invalid request must not reach upstream")
	}

	err = c.UpdateFlexiRecord(context.Background(), "tok", UpdateFlexiRequest{
		SectionID:     "49097",
		ScoutID:       "1",
		FlexiRecordID: "777",
		ColumnID:      "f_2",
		Value:         "Jane Leader",
		TermID:        "12345",
	})
	if err != nil {
		t.Fatalf("valid update: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected one upstream call, got %d", calls)
	}
}

func TestClient_HealthBypassesGate(t *testing.T) {
	c, gate, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	gate.Trip("test")
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("health must work with the gate open: %v", err)
	}
}
