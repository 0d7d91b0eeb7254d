// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package models

// Event is addressable by the (sectionid, eventid) pair. Shared events are
// visible across multiple sections; each participating section holds its
// own receiving event with a distinct eventid.
type Event struct {
	EventID     ID     `json:"eventid"`
	Name        string `json:"name"`
	SectionID   int    `json:"sectionid"`
	SectionName string `json:"sectionname"`
	TermID      ID     `json:"termid"`
	StartDate   string `json:"startdate"`
	EndDate     string `json:"enddate"`
	Location    string `json:"location"`
	Notes       string `json:"notes"`
	Cost        string `json:"cost"`
	Shared      bool   `json:"shared,omitempty"`
}

// EventSummary is the upstream per-event rollup from /get-event-summary.
type EventSummary struct {
	EventID    ID     `json:"eventid"`
	Name       string `json:"name"`
	Attending  int    `json:"attending"`
	Invited    int    `json:"invited"`
	NotInvited int    `json:"notinvited"`
	Declined   int    `json:"declined"`
}

// HasSharedEvents reports whether any event in the set is shared.
func HasSharedEvents(events []Event) bool {
	for _, e := range events {
		if e.Shared {
			return true
		}
	}
	return false
}
