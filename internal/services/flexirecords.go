// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vikingscouts/eventmgmt/internal/cache"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// GetFlexiRecords returns a section's flexi-record catalog, cached for 30
// minutes.
func (s *Services) GetFlexiRecords(ctx context.Context, tok string, sectionID int, force bool) ([]models.FlexiRecordListItem, error) {
	return cache.ReadList(ctx, s.eng, store.FlexiListsKey(sectionID), cache.TTLFlexiLists, tok, force,
		func(ctx context.Context) ([]models.FlexiRecordListItem, error) {
			return s.client.GetFlexiRecords(ctx, tok, strconv.Itoa(sectionID), false)
		})
}

// GetFlexiStructure returns one record's column structure, cached for an
// hour.
func (s *Services) GetFlexiStructure(ctx context.Context, tok string, extraID models.ID, sectionID int, termID models.ID, force bool) (models.FlexiStructure, bool, error) {
	return cache.ReadValue(ctx, s.eng, store.FlexiStructureKey(extraID), cache.TTLFlexiStructure, tok, force,
		func(ctx context.Context) (models.FlexiStructure, error) {
			st, err := s.client.GetFlexiStructure(ctx, tok, string(extraID), strconv.Itoa(sectionID), string(termID))
			if err != nil {
				return models.FlexiStructure{}, err
			}
			return *st, nil
		})
}

// GetFlexiData returns one record's per-member rows for a section/term.
func (s *Services) GetFlexiData(ctx context.Context, tok string, extraID models.ID, sectionID int, termID models.ID, force bool) ([]models.FlexiDataRow, error) {
	return cache.ReadList(ctx, s.eng, store.FlexiDataKey(extraID, sectionID, termID), cache.TTLForever, tok, force,
		func(ctx context.Context) ([]models.FlexiDataRow, error) {
			return s.client.GetSingleFlexiRecord(ctx, tok, string(extraID), strconv.Itoa(sectionID), string(termID))
		})
}

// RefreshFlexiData re-fetches flexi data, bypassing freshness. Used after
// successful sign-in/out writes so the cache reflects the new field
// values.
func (s *Services) RefreshFlexiData(ctx context.Context, tok string, extraID models.ID, sectionID int, termID models.ID) ([]models.FlexiDataRow, error) {
	return s.GetFlexiData(ctx, tok, extraID, sectionID, termID, true)
}

// ApplyLocalFlexiValues writes one column value for a set of members
// straight into the demo flexi-data mirror. Demo mode has no upstream;
// sign-in/out writes land here so readers observe the new state.
func (s *Services) ApplyLocalFlexiValues(extraID models.ID, sectionID int, termID models.ID, scouts []models.ID, columnID, value string) error {
	key := store.DemoKey(store.FlexiDataKey(extraID, sectionID, termID))

	var env models.Envelope[models.FlexiDataRow]
	found, err := s.st.Get(key, &env)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no demo flexi data for record %s in section %d", extraID, sectionID)
	}

	want := make(map[models.ID]bool, len(scouts))
	for _, id := range scouts {
		want[id] = true
	}
	for i := range env.Items {
		if !want[env.Items[i].ScoutID] {
			continue
		}
		if env.Items[i].Fields == nil {
			env.Items[i].Fields = make(map[string]string)
		}
		env.Items[i].Fields[columnID] = value
	}

	return s.st.Put(key, models.NewEnvelope(env.Items, s.now()))
}
