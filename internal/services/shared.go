// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package services

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/vikingscouts/eventmgmt/internal/cache"
	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// ViewModeShared is the roster view that pulls combined attendance across
// every section of a shared event.
const ViewModeShared = "shared"

// GetSharingStatus returns the persisted topology of a shared event: all
// participating sections keyed to their own event ids, and whether the
// reading section owns the event.
func (s *Services) GetSharingStatus(ctx context.Context, tok string, event models.Event, force bool) (models.SharedEventMetadata, bool, error) {
	return cache.ReadValue(ctx, s.eng, store.SharedMetadataKey(event.EventID), cache.TTLForever, tok, force,
		func(ctx context.Context) (models.SharedEventMetadata, error) {
			sections, err := s.client.GetEventSharingStatus(ctx, tok, string(event.EventID), strconv.Itoa(event.SectionID))
			if err != nil {
				return models.SharedEventMetadata{}, err
			}

			meta := models.SharedEventMetadata{
				IsSharedEvent: len(sections) > 0,
				AllSections:   sections,
				SourceEvent:   event,
			}
			for _, sec := range sections {
				if sec.SectionID == event.SectionID && sec.Status == models.SharedOwner {
					meta.IsOwner = true
					break
				}
			}
			return meta, nil
		})
}

// GetSharedAttendance returns the combined attendance of one shared event
// as seen by one participating section, cached for an hour.
func (s *Services) GetSharedAttendance(ctx context.Context, tok string, eventID models.ID, sectionID int, force bool) ([]models.SharedAttendee, error) {
	return cache.ReadList(ctx, s.eng, store.SharedAttendanceKey(eventID, sectionID), cache.TTLSharedAttendance, tok, force,
		func(ctx context.Context) ([]models.SharedAttendee, error) {
			return s.client.GetSharedEventAttendance(ctx, tok, string(eventID), strconv.Itoa(sectionID))
		})
}

// GetCombinedSharedAttendance merges the rosters of every shared event in
// the set into one deduplicated list sorted youngest first. It returns nil
// unless the shared view is active and at least one event is shared.
func (s *Services) GetCombinedSharedAttendance(ctx context.Context, tok, viewMode string, events []models.Event, force bool) ([]models.SharedAttendee, error) {
	if viewMode != ViewModeShared || !models.HasSharedEvents(events) {
		return nil, nil
	}

	var combined []models.SharedAttendee
	for _, ev := range events {
		if !ev.Shared {
			continue
		}
		attendees, err := s.GetSharedAttendance(ctx, tok, ev.EventID, ev.SectionID, force)
		if err != nil {
			logging.Err(err).Str("eventid", ev.EventID.String()).Msg("shared attendance fetch failed, continuing")
			continue
		}
		combined = append(combined, attendees...)
	}

	return dedupeAttendees(combined), nil
}

// dedupeAttendees keeps the first occurrence of each scout and orders the
// roster youngest first. Adult "25+" entries sort last.
func dedupeAttendees(in []models.SharedAttendee) []models.SharedAttendee {
	seen := make(map[models.ID]bool, len(in))
	out := make([]models.SharedAttendee, 0, len(in))
	for _, a := range in {
		if a.ScoutID.IsZero() || seen[a.ScoutID] {
			continue
		}
		seen[a.ScoutID] = true
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return ageMonths(out[i].Age) < ageMonths(out[j].Age)
	})
	return out
}

// ageMonths converts the upstream "YY / MM" age string into total months
// for sorting. "25+" means adult and sorts last; unparseable ages sort
// just before the adults.
func ageMonths(age string) int {
	age = strings.TrimSpace(age)
	if age == "" {
		return math.MaxInt32 - 1
	}
	if strings.HasSuffix(age, "+") {
		return math.MaxInt32
	}
	parts := strings.SplitN(age, "/", 2)
	years, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return math.MaxInt32 - 1
	}
	months := 0
	if len(parts) == 2 {
		if m, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			months = m
		}
	}
	return years*12 + months
}
