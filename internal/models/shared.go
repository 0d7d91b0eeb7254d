// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package models

// SharedSectionStatus is a participating section's standing on a shared
// event.
type SharedSectionStatus string

// Shared-event participation statuses.
const (
	SharedOwner    SharedSectionStatus = "Owner"
	SharedAccepted SharedSectionStatus = "Accepted"
	SharedPending  SharedSectionStatus = "Pending"
)

// SharedSection maps one participating section to its local eventid for a
// shared event.
type SharedSection struct {
	SectionID   int                 `json:"sectionid"`
	SectionName string              `json:"sectionname"`
	GroupName   string              `json:"groupname"`
	EventID     ID                  `json:"eventid"`
	Status      SharedSectionStatus `json:"status"`
	Attendance  int                 `json:"attendance"`
	None        int                 `json:"none"`
}

// SharedEventMetadata is the persisted topology of one shared event: every
// participating section keyed to its own eventid, plus the source event as
// seen by the reading section.
type SharedEventMetadata struct {
	IsSharedEvent bool            `json:"_isSharedEvent"`
	AllSections   []SharedSection `json:"_allSections"`
	SourceEvent   Event           `json:"_sourceEvent"`
	IsOwner       bool            `json:"_isOwner"`
}

// SharedAttendee is one roster row of a shared event's combined attendance,
// annotated with its origin section.
type SharedAttendee struct {
	ScoutID     ID     `json:"scoutid"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Age         string `json:"age"`
	SectionID   int    `json:"sectionid"`
	SectionName string `json:"sectionname"`
	GroupName   string `json:"groupname"`
}
