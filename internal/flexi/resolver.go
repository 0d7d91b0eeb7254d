// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package flexi

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/vikingscouts/eventmgmt/internal/cache"
	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/osm"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// ErrNoVikingRecord reports that the section has no usable Viking Event
// Mgmt flexi record.
var ErrNoVikingRecord = errors.New("flexi: no Viking Event Mgmt record found for section")

// Resolution is a resolved Viking record: the record id, its structure,
// and the parsed field mapping used for every sign-in/out write.
type Resolution struct {
	ExtraID   models.ID
	Structure *models.FlexiStructure
	Mapping   models.FieldMapping
}

// Resolver locates the Viking Event Mgmt record for a section. Cached
// structures are tried first so resolution works offline; discovery via
// the catalog is the online fallback.
type Resolver struct {
	st     *store.Store
	eng    *cache.Engine
	client *osm.Client
}

// NewResolver builds a resolver over the shared store, cache engine and
// upstream client.
func NewResolver(st *store.Store, eng *cache.Engine, client *osm.Client) *Resolver {
	return &Resolver{st: st, eng: eng, client: client}
}

// Resolve returns the Viking record resolution for (sectionID, termID).
// tok is the frozen session token used for any fetches.
func (r *Resolver) Resolve(ctx context.Context, sectionID int, termID models.ID, tok string) (*Resolution, error) {
	if res := r.fromCachedStructures(sectionID, termID); res != nil {
		return res, nil
	}
	return r.discover(ctx, sectionID, termID, tok)
}

// fromCachedStructures scans already-cached structures for one that has
// the four sign-in/out fields and data cached for this section.
func (r *Resolver) fromCachedStructures(sectionID int, termID models.ID) *Resolution {
	ns := ""
	if r.eng.DemoMode() {
		ns = store.DemoPrefix
	}

	extraIDs, err := r.st.FlexiStructureKeys(ns)
	if err != nil {
		logging.Err(err).Msg("flexi structure scan failed")
		return nil
	}

	for _, raw := range extraIDs {
		extraID := models.ID(raw)

		var w models.Wrapped[models.FlexiStructure]
		ok, err := r.st.Get(ns+store.FlexiStructureKey(extraID), &w)
		if err != nil || !ok {
			continue
		}

		mapping, err := ParseStructure(&w.Value)
		if err != nil || !mapping.HasSignInOutFields() {
			continue
		}

		hasData, err := r.st.Has(ns + store.FlexiDataKey(extraID, sectionID, termID))
		if err != nil || !hasData {
			continue
		}

		return &Resolution{ExtraID: extraID, Structure: &w.Value, Mapping: mapping}
	}
	return nil
}

// discover fetches the section's catalog, picks the first record whose
// name contains "Viking Event", and caches its structure.
func (r *Resolver) discover(ctx context.Context, sectionID int, termID models.ID, tok string) (*Resolution, error) {
	sectionStr := strconv.Itoa(sectionID)

	lists, err := cache.ReadList(ctx, r.eng, store.FlexiListsKey(sectionID), cache.TTLFlexiLists, tok, false,
		func(ctx context.Context) ([]models.FlexiRecordListItem, error) {
			return r.client.GetFlexiRecords(ctx, tok, sectionStr, false)
		})
	if err != nil {
		return nil, err
	}

	var extraID models.ID
	for _, item := range lists {
		if strings.Contains(strings.ToLower(item.Name), "viking event") {
			extraID = item.ExtraID
			break
		}
	}
	if extraID.IsZero() {
		return nil, ErrNoVikingRecord
	}

	structure, found, err := cache.ReadValue(ctx, r.eng, store.FlexiStructureKey(extraID), cache.TTLFlexiStructure, tok, false,
		func(ctx context.Context) (models.FlexiStructure, error) {
			s, err := r.client.GetFlexiStructure(ctx, tok, string(extraID), sectionStr, string(termID))
			if err != nil {
				return models.FlexiStructure{}, err
			}
			return *s, nil
		})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoVikingRecord
	}

	mapping, err := ParseStructure(&structure)
	if err != nil {
		return nil, err
	}
	if !mapping.HasSignInOutFields() {
		for _, name := range models.SignInOutFields {
			if _, ok := mapping.IDFor(name); !ok {
				return nil, &FieldNotFoundError{Field: name, Available: mapping.Names()}
			}
		}
	}

	return &Resolution{ExtraID: extraID, Structure: &structure, Mapping: mapping}, nil
}
