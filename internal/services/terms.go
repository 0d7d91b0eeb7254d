// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package services

import (
	"context"
	"strconv"

	"github.com/vikingscouts/eventmgmt/internal/cache"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// GetTerms returns all terms grouped by section id, cached for 30 minutes.
func (s *Services) GetTerms(ctx context.Context, tok string, force bool) (models.TermsBySection, error) {
	terms, _, err := cache.ReadValue(ctx, s.eng, store.TermsKey(), cache.TTLTerms, tok, force,
		func(ctx context.Context) (models.TermsBySection, error) {
			return s.client.GetTerms(ctx, tok)
		})
	if terms == nil {
		terms = models.TermsBySection{}
	}
	return terms, err
}

// CurrentTerms derives the per-section current-term table from the cached
// terms map.
func (s *Services) CurrentTerms(ctx context.Context, tok string) (map[int]models.Term, error) {
	terms, err := s.GetTerms(ctx, tok, false)
	if err != nil {
		return nil, err
	}
	current := make(map[int]models.Term, len(terms))
	for key, list := range terms {
		id, convErr := strconv.Atoi(key)
		if convErr != nil {
			continue
		}
		if t, ok := models.CurrentTerm(list); ok {
			current[id] = t
		}
	}
	return current, nil
}

// CurrentTermID returns the current term id for one section. ok is false
// when the section has no terms.
func (s *Services) CurrentTermID(ctx context.Context, tok string, sectionID int) (models.ID, bool, error) {
	current, err := s.CurrentTerms(ctx, tok)
	if err != nil {
		return "", false, err
	}
	t, ok := current[sectionID]
	if !ok {
		return "", false, nil
	}
	return t.TermID, true, nil
}
