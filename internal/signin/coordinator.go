// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package signin drives the sign-in/out write protocol against the Viking
// Event Mgmt flexi record: a fixed sequence of field writes per member,
// strictly ordered, spaced at least 150ms apart, all under one frozen
// token and one resolved field mapping.
package signin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vikingscouts/eventmgmt/internal/flexi"
	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/metrics"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/osm"
	"github.com/vikingscouts/eventmgmt/internal/services"
	"github.com/vikingscouts/eventmgmt/internal/session"
)

// Upstream sentinel values for cleared fields. The single space is what
// the upstream requires to blank a time column.
const (
	ClearedText = "---"
	ClearedTime = " "
)

// stepSpacing is the minimum gap between consecutive writes of one
// sequence.
const stepSpacing = 150 * time.Millisecond

// ErrBusy reports that a member already has a sequence in flight.
var ErrBusy = errors.New("signin: operation already in progress for member")

// IsCleared reports whether a field value counts as cleared: absent,
// either sentinel, or whitespace-only.
func IsCleared(value string) bool {
	return value == "" || value == ClearedText || strings.TrimSpace(value) == ""
}

// Target identifies one member within one section and term.
type Target struct {
	ScoutID models.ID
	Name    string
	Section string
	// SectionID and TermID scope the flexi record resolution.
	SectionID int
	TermID    models.ID
}

// SectionScope identifies one section's roster for bulk operations.
type SectionScope struct {
	SectionID int
	TermID    models.ID
	Section   string
}

type step struct {
	field string
	value string
}

// Coordinator executes sign-in/out sequences. Safe for concurrent use;
// per-member sequences are mutually exclusive, distinct members may run
// concurrently (the queue still serializes their upstream writes).
type Coordinator struct {
	sess     *session.Manager
	svcs     *services.Services
	resolver *flexi.Resolver
	client   *osm.Client

	now   func() time.Time
	delay func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	inFlight map[models.ID]bool
}

// NewCoordinator builds a coordinator over the session, services,
// resolver and upstream client.
func NewCoordinator(sess *session.Manager, svcs *services.Services, resolver *flexi.Resolver, client *osm.Client) *Coordinator {
	return &Coordinator{
		sess:     sess,
		svcs:     svcs,
		resolver: resolver,
		client:   client,
		now:      time.Now,
		delay:    sleepCtx,
		inFlight: make(map[models.ID]bool),
	}
}

// SetClock overrides the timestamp clock for tests.
func (c *Coordinator) SetClock(now func() time.Time) { c.now = now }

// SetDelay overrides the inter-step delay for tests.
func (c *Coordinator) SetDelay(delay func(ctx context.Context, d time.Duration) error) {
	c.delay = delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SignIn records target as signed in: who, when, and cleared sign-out
// fields, in that order. Partial failures are not rolled back.
func (c *Coordinator) SignIn(ctx context.Context, target Target) error {
	if err := c.acquire(target.ScoutID); err != nil {
		return err
	}
	defer c.release(target.ScoutID)

	err := c.runSequence(ctx, "sign_in", target, func(user string) []step {
		return []step{
			{models.FieldSignedInBy, user},
			{models.FieldSignedInWhen, c.timestamp()},
			{models.FieldSignedOutBy, ClearedText},
			{models.FieldSignedOutWhen, ClearedTime},
		}
	})
	if err != nil {
		return fmt.Errorf("failed to sign in %s: %w", target.Name, err)
	}
	return nil
}

// SignOut records target as signed out: who and when.
func (c *Coordinator) SignOut(ctx context.Context, target Target) error {
	if err := c.acquire(target.ScoutID); err != nil {
		return err
	}
	defer c.release(target.ScoutID)

	err := c.runSequence(ctx, "sign_out", target, func(user string) []step {
		return []step{
			{models.FieldSignedOutBy, user},
			{models.FieldSignedOutWhen, c.timestamp()},
		}
	})
	if err != nil {
		return fmt.Errorf("failed to sign out %s: %w", target.Name, err)
	}
	return nil
}

func (c *Coordinator) acquire(id models.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[id] {
		return ErrBusy
	}
	c.inFlight[id] = true
	return nil
}

func (c *Coordinator) release(id models.ID) {
	c.mu.Lock()
	delete(c.inFlight, id)
	c.mu.Unlock()
}

// runSequence freezes the token, resolves the field mapping once, then
// applies the steps one at a time. The token and mapping never change
// mid-sequence even if a login happens concurrently. Demo mode needs no
// session: writes land in the demo mirror instead of the upstream.
func (c *Coordinator) runSequence(ctx context.Context, operation string, target Target, build func(user string) []step) error {
	demo := c.svcs.DemoMode()

	var tok string
	if !demo {
		if err := c.sess.CheckWritePermission(); err != nil {
			metrics.SignInSequences.WithLabelValues(operation, "expired").Inc()
			return fmt.Errorf("session expired: %w", err)
		}
		snap, err := c.sess.Snapshot()
		if err != nil {
			metrics.SignInSequences.WithLabelValues(operation, "expired").Inc()
			return fmt.Errorf("session expired: %w", err)
		}
		tok = snap.Value
	}

	user := "Unknown"
	if u := c.sess.CurrentUser(); u.DisplayName() != "" {
		user = u.DisplayName()
	} else if u, found, err := c.svcs.GetCurrentUser(ctx, tok); err == nil && found && u.DisplayName() != "" {
		user = u.DisplayName()
	}

	res, err := c.resolver.Resolve(ctx, target.SectionID, target.TermID, tok)
	if err != nil {
		metrics.SignInSequences.WithLabelValues(operation, "error").Inc()
		return err
	}

	steps := build(user)
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			metrics.SignInSequences.WithLabelValues(operation, "cancelled").Inc()
			return err
		}
		if i > 0 {
			if err := c.delay(ctx, stepSpacing); err != nil {
				metrics.SignInSequences.WithLabelValues(operation, "cancelled").Inc()
				return err
			}
		}
		if !demo && c.sess.IsTokenExpired() {
			metrics.SignInSequences.WithLabelValues(operation, "expired").Inc()
			return fmt.Errorf("session expired: %w", session.ErrTokenExpired)
		}

		if err := c.writeField(ctx, tok, demo, target, res, st); err != nil {
			metrics.SignInSteps.WithLabelValues(operation, "error").Inc()
			metrics.SignInSequences.WithLabelValues(operation, "error").Inc()
			if osm.IsAuthError(err) {
				return fmt.Errorf("session expired: %w", err)
			}
			return err
		}
		metrics.SignInSteps.WithLabelValues(operation, "success").Inc()
	}

	metrics.SignInSequences.WithLabelValues(operation, "success").Inc()
	c.refresh(ctx, tok, res.ExtraID, target.SectionID, target.TermID)
	return nil
}

// writeField submits one field write through the queue. In demo mode the
// value is applied to the demo flexi-data mirror instead.
func (c *Coordinator) writeField(ctx context.Context, tok string, demo bool, target Target, res *flexi.Resolution, st step) error {
	columnID, err := flexi.RequireField(res.Mapping, st.field)
	if err != nil {
		return err
	}
	if demo {
		return c.svcs.ApplyLocalFlexiValues(res.ExtraID, target.SectionID, target.TermID, []models.ID{target.ScoutID}, columnID, st.value)
	}
	return c.client.UpdateFlexiRecord(ctx, tok, osm.UpdateFlexiRequest{
		SectionID:     models.ID(strconv.Itoa(target.SectionID)),
		ScoutID:       target.ScoutID,
		FlexiRecordID: string(res.ExtraID),
		ColumnID:      columnID,
		Value:         st.value,
		TermID:        string(target.TermID),
		Section:       target.Section,
	})
}

// refresh re-fetches the flexi data so readers observe the new state.
// Best effort: the writes already landed.
func (c *Coordinator) refresh(ctx context.Context, tok string, extraID models.ID, sectionID int, termID models.ID) {
	if ctx.Err() != nil {
		return
	}
	if _, err := c.svcs.RefreshFlexiData(ctx, tok, extraID, sectionID, termID); err != nil {
		logging.Err(err).Int("sectionid", sectionID).Msg("flexi data refresh after write failed")
	}
}

func (c *Coordinator) timestamp() string {
	return c.now().UTC().Format(time.RFC3339)
}

// clearValueFor maps a sign-in/out field to its cleared sentinel.
func clearValueFor(field string) string {
	switch field {
	case models.FieldSignedInWhen, models.FieldSignedOutWhen:
		return ClearedTime
	default:
		return ClearedText
	}
}

// BulkClear blanks the four sign-in/out fields for every member that has
// any non-cleared value, section by section. Each section resolves its
// own record and issues one multi-member write per field.
func (c *Coordinator) BulkClear(ctx context.Context, scopes []SectionScope) error {
	var tok string
	if !c.svcs.DemoMode() {
		if err := c.sess.CheckWritePermission(); err != nil {
			return fmt.Errorf("session expired: %w", err)
		}
		snap, err := c.sess.Snapshot()
		if err != nil {
			return fmt.Errorf("session expired: %w", err)
		}
		tok = snap.Value
	}

	for _, scope := range scopes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.clearSection(ctx, tok, scope); err != nil {
			return fmt.Errorf("bulk clear failed for section %d: %w", scope.SectionID, err)
		}
	}
	return nil
}

func (c *Coordinator) clearSection(ctx context.Context, tok string, scope SectionScope) error {
	demo := c.svcs.DemoMode()
	res, err := c.resolver.Resolve(ctx, scope.SectionID, scope.TermID, tok)
	if err != nil {
		return err
	}

	rows, err := c.svcs.GetFlexiData(ctx, tok, res.ExtraID, scope.SectionID, scope.TermID, false)
	if err != nil {
		return err
	}

	scouts := scoutsNeedingClear(rows, res.Mapping)
	if len(scouts) == 0 {
		return nil
	}

	for i, field := range models.SignInOutFields {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			if err := c.delay(ctx, stepSpacing); err != nil {
				return err
			}
		}
		columnID, err := flexi.RequireField(res.Mapping, field)
		if err != nil {
			return err
		}
		if demo {
			err = c.svcs.ApplyLocalFlexiValues(res.ExtraID, scope.SectionID, scope.TermID, scouts, columnID, clearValueFor(field))
		} else {
			err = c.client.MultiUpdateFlexiRecord(ctx, tok, osm.MultiUpdateFlexiRequest{
				SectionID:     models.ID(strconv.Itoa(scope.SectionID)),
				Scouts:        scouts,
				Value:         clearValueFor(field),
				Column:        columnID,
				FlexiRecordID: string(res.ExtraID),
			})
		}
		if err != nil {
			return err
		}
	}

	c.refresh(ctx, tok, res.ExtraID, scope.SectionID, scope.TermID)
	return nil
}

// scoutsNeedingClear selects members with any non-cleared sign-in/out
// value, in row order.
func scoutsNeedingClear(rows []models.FlexiDataRow, mapping models.FieldMapping) []models.ID {
	var out []models.ID
	for _, row := range rows {
		for _, field := range models.SignInOutFields {
			id, ok := mapping.IDFor(field)
			if !ok {
				continue
			}
			if !IsCleared(row.Fields[id]) {
				out = append(out, row.ScoutID)
				break
			}
		}
	}
	return out
}
