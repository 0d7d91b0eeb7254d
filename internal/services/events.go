// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/vikingscouts/eventmgmt/internal/cache"
	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// GetEvents returns one section's events for a term. Live responses are
// scrubbed of demo fixture leakage and annotated with their section and
// term before caching; a bare-array copy lands under the per-term
// compatibility key.
func (s *Services) GetEvents(ctx context.Context, tok string, sectionID int, termID models.ID, force bool) ([]models.Event, error) {
	return cache.ReadList(ctx, s.eng, store.EventsKey(sectionID), cache.TTLForever, tok, force,
		func(ctx context.Context) ([]models.Event, error) {
			raw, err := s.client.GetEvents(ctx, tok, strconv.Itoa(sectionID), string(termID))
			if err != nil {
				return nil, err
			}

			events := make([]models.Event, 0, len(raw))
			for _, ev := range raw {
				if strings.HasPrefix(string(ev.EventID), "demo_event_") {
					continue
				}
				ev.SectionID = sectionID
				ev.TermID = termID
				events = append(events, ev)
			}

			if err := s.st.Put(store.EventsTermKey(sectionID, termID), events); err != nil {
				logging.Err(err).Int("sectionid", sectionID).Msg("compat events write failed")
			}
			return events, nil
		})
}

// GetEventSummary returns the cached rollup for one event.
func (s *Services) GetEventSummary(ctx context.Context, tok string, eventID models.ID, force bool) (models.EventSummary, bool, error) {
	return cache.ReadValue(ctx, s.eng, store.EventSummaryKey(eventID), cache.TTLForever, tok, force,
		func(ctx context.Context) (models.EventSummary, error) {
			sum, err := s.client.GetEventSummary(ctx, tok, string(eventID))
			if err != nil {
				return models.EventSummary{}, err
			}
			return *sum, nil
		})
}
