// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package services

import (
	"context"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/vikingscouts/eventmgmt/internal/cache"
	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// GetSections returns the sections the user can access, sorted by id.
func (s *Services) GetSections(ctx context.Context, tok string, force bool) ([]models.Section, error) {
	return cache.ReadList(ctx, s.eng, store.SectionsKey(), cache.TTLForever, tok, force,
		func(ctx context.Context) ([]models.Section, error) {
			roles, err := s.client.GetUserRoles(ctx, tok)
			if err != nil {
				return nil, err
			}
			return normalizeSections(roles), nil
		})
}

// SectionByID looks a section up in the cached list.
func (s *Services) SectionByID(ctx context.Context, tok string, sectionID int) (models.Section, bool, error) {
	sections, err := s.GetSections(ctx, tok, false)
	if err != nil {
		return models.Section{}, false, err
	}
	for _, sec := range sections {
		if sec.SectionID == sectionID {
			return sec, true, nil
		}
	}
	return models.Section{}, false, nil
}

// normalizeSections turns the raw user-roles object into Section records.
// The upstream mixes status flags into the same map; only integer keys are
// section entries.
func normalizeSections(roles map[string]json.RawMessage) []models.Section {
	sections := make([]models.Section, 0, len(roles))
	for key, raw := range roles {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		var sec models.Section
		if err := json.Unmarshal(raw, &sec); err != nil {
			logging.Warn().Str("sectionid", key).Err(err).Msg("skipping unparseable section entry")
			continue
		}
		if sec.SectionID == 0 {
			sec.SectionID = id
		}
		sections = append(sections, sec)
	}
	sort.Slice(sections, func(i, j int) bool {
		return sections[i].SectionID < sections[j].SectionID
	})
	return sections
}
