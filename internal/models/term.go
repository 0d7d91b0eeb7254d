// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package models

import "time"

// Term is an upstream-defined time window ("Autumn 2025") scoping events
// and member rosters. Term ids are unique within a section.
type Term struct {
	TermID    ID     `json:"termid"`
	Name      string `json:"name"`
	StartDate string `json:"startdate"`
	EndDate   string `json:"enddate"`
}

// End parses the term end date. Returns the zero time when the date does
// not parse, which sorts such terms before any valid one.
func (t Term) End() time.Time {
	d, err := time.Parse("2006-01-02", t.EndDate)
	if err != nil {
		return time.Time{}
	}
	return d
}

// CurrentTerm selects the term with the latest end date, the upstream's
// definition of "current". Returns false for an empty slice.
func CurrentTerm(terms []Term) (Term, bool) {
	if len(terms) == 0 {
		return Term{}, false
	}
	best := terms[0]
	for _, t := range terms[1:] {
		if t.End().After(best.End()) {
			best = t
		}
	}
	return best, true
}

// TermsBySection is the map shape under viking_terms_offline.
type TermsBySection map[string][]Term
