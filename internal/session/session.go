// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package session holds the upstream access token, its expiry, and the
// logged-in user. Operations freeze the token at entry (Snapshot) so a
// concurrent refresh cannot swap credentials mid-flight.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/models"
)

// Token taxonomy errors.
var (
	// ErrNoToken means no token is held; read paths fall back to cache.
	ErrNoToken = errors.New("session: no token")
	// ErrTokenExpired means the token is locally known to be expired; no
	// upstream request is made and write paths refuse.
	ErrTokenExpired = errors.New("session: token expired")
)

// Token is a frozen credential snapshot taken at operation entry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Manager is the process-wide session. It is safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	user      *models.UserInfo
	onLogin   []func()

	now func() time.Time
}

// NewManager creates a session manager.
func NewManager() *Manager {
	return &Manager{now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Login installs a fresh credential and fires login hooks (the auth gate
// resets on successful login, nowhere else).
func (m *Manager) Login(token string, expiresAt time.Time, user *models.UserInfo) {
	m.mu.Lock()
	m.token = token
	m.expiresAt = expiresAt
	m.user = user
	hooks := m.onLogin
	m.mu.Unlock()

	logging.Info().Time("expires_at", expiresAt).Msg("session established")
	for _, h := range hooks {
		h()
	}
}

// Logout clears the credential. Cached data stays; reads go offline-style.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.token = ""
	m.expiresAt = time.Time{}
	m.user = nil
	m.mu.Unlock()
	logging.Info().Msg("session cleared")
}

// OnLogin registers a hook fired after each successful login.
func (m *Manager) OnLogin(h func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogin = append(m.onLogin, h)
}

// GetToken returns the raw token, or "" when none is held.
func (m *Manager) GetToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// IsTokenExpired reports true when no token is held or its expiry has
// passed.
func (m *Manager) IsTokenExpired() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return true
	}
	return !m.expiresAt.IsZero() && !m.now().Before(m.expiresAt)
}

// ValidTokenExists answers cheaply whether an unexpired token is held.
func (m *Manager) ValidTokenExists() bool {
	return !m.IsTokenExpired()
}

// CheckWritePermission fails when the session cannot back a write.
func (m *Manager) CheckWritePermission() error {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()
	if token == "" {
		return ErrNoToken
	}
	if m.IsTokenExpired() {
		return ErrTokenExpired
	}
	return nil
}

// Snapshot freezes the current credential for the duration of one
// operation. Returns ErrNoToken/ErrTokenExpired when unusable.
func (m *Manager) Snapshot() (Token, error) {
	m.mu.RLock()
	tok := Token{Value: m.token, ExpiresAt: m.expiresAt}
	m.mu.RUnlock()
	if tok.Value == "" {
		return Token{}, ErrNoToken
	}
	if !tok.ExpiresAt.IsZero() && !m.now().Before(tok.ExpiresAt) {
		return Token{}, ErrTokenExpired
	}
	return tok, nil
}

// CurrentUser returns the user captured at login. The zero value means
// the session holds none; callers fall back to cached startup data.
func (m *Manager) CurrentUser() models.UserInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user != nil {
		return *m.user
	}
	return models.UserInfo{}
}
