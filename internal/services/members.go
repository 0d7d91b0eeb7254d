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

// GetMembersGrid returns one section's member rows for a term. Rows
// without a usable scout id are dropped; person type and photo presence
// are derived at decode time.
func (s *Services) GetMembersGrid(ctx context.Context, tok string, sectionID int, termID models.ID, force bool) ([]models.Member, error) {
	return cache.ReadList(ctx, s.eng, store.MembersSectionKey(sectionID), cache.TTLForever, tok, force,
		func(ctx context.Context) ([]models.Member, error) {
			raw, err := s.client.GetMembersGrid(ctx, tok, strconv.Itoa(sectionID), string(termID))
			if err != nil {
				return nil, err
			}

			rows := make([]models.Member, 0, len(raw))
			for _, m := range raw {
				if !usableScoutID(m.ScoutID) {
					logging.Debug().Str("scoutid", m.ScoutID.String()).Int("sectionid", sectionID).Msg("dropping member row without usable id")
					continue
				}
				if m.SectionID == 0 {
					m.SectionID = sectionID
				}
				rows = append(rows, m)
			}
			return rows, nil
		})
}

// GetMembers returns the merged cross-section member list: one record per
// scout, sections as a set union, Young Leaders dominating the merged
// person type.
func (s *Services) GetMembers(ctx context.Context, tok string, force bool) ([]models.Member, error) {
	return cache.ReadList(ctx, s.eng, store.MembersKey(), cache.TTLForever, tok, force,
		func(ctx context.Context) ([]models.Member, error) {
			sections, err := s.GetSections(ctx, tok, false)
			if err != nil {
				return nil, err
			}
			current, err := s.CurrentTerms(ctx, tok)
			if err != nil {
				return nil, err
			}

			var rows []models.Member
			for _, sec := range sections {
				term, ok := current[sec.SectionID]
				if !ok {
					logging.Debug().Int("sectionid", sec.SectionID).Msg("section has no current term, skipping members")
					continue
				}
				grid, err := s.GetMembersGrid(ctx, tok, sec.SectionID, term.TermID, force)
				if err != nil {
					// Partial aggregation: one bad section must not hide
					// the rest of the account.
					logging.Err(err).Int("sectionid", sec.SectionID).Msg("members grid failed, continuing without section")
					continue
				}
				for i := range grid {
					if grid[i].SectionName == "" {
						grid[i].SectionName = sec.SectionName
					}
				}
				rows = append(rows, grid...)
			}

			merged := models.MergeMembers(rows)
			if err := s.st.Put(store.MembersComprehensiveKey(), merged); err != nil {
				logging.Err(err).Msg("comprehensive members write failed")
			}
			return merged, nil
		})
}

// usableScoutID rejects ids that are empty or non-numeric junk from the
// upstream grid. Seeded fixture ids are accepted.
func usableScoutID(id models.ID) bool {
	if id.IsZero() {
		return false
	}
	if _, ok := id.Int(); ok {
		return true
	}
	return strings.HasPrefix(string(id), "demo_")
}
