// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package models

import (
	"sort"

	"github.com/goccy/go-json"
)

// PersonType classifies a member within a section. It is derived once at
// ingest from the patrol id and the cached value is authoritative.
type PersonType string

// Person types, derived from patrol_id: -2 Leaders, -3 Young Leaders,
// anything else Young People.
const (
	PersonYoungPeople  PersonType = "Young People"
	PersonYoungLeaders PersonType = "Young Leaders"
	PersonLeaders      PersonType = "Leaders"
)

// PersonTypeFromPatrol derives the person type from a patrol id.
func PersonTypeFromPatrol(patrolID int) PersonType {
	switch patrolID {
	case -2:
		return PersonLeaders
	case -3:
		return PersonYoungLeaders
	default:
		return PersonYoungPeople
	}
}

// Member is one scout or leader. The upstream flattens arbitrary custom
// fields into member rows; known fields are typed here and everything else
// is kept verbatim in Extras so no data is lost across a cache round trip.
type Member struct {
	ScoutID     ID         `json:"scoutid"`
	Firstname   string     `json:"firstname"`
	Lastname    string     `json:"lastname"`
	SectionID   int        `json:"sectionid"`
	SectionName string     `json:"sectionname"`
	Patrol      string     `json:"patrol"`
	PatrolID    int        `json:"patrol_id"`
	PersonType  PersonType `json:"person_type"`
	DateOfBirth string     `json:"dateofbirth"`
	AgeYears    int        `json:"age_years"`
	AgeMonths   int        `json:"age_months"`
	PhotoGUID   string     `json:"photo_guid,omitempty"`
	HasPhoto    bool       `json:"has_photo"`

	// Sections lists every section name this member belongs to. Membership
	// is tracked by name here and resolved against the section table by id
	// at read time; no member holds a Section pointer.
	Sections []string `json:"sections"`

	// SectionPersonTypes records the person type per contributing section
	// name, checked before the top-level PersonType when they disagree.
	SectionPersonTypes map[string]PersonType `json:"section_person_types,omitempty"`

	// Extras carries unrecognized upstream fields (contact groups, custom
	// data columns) through the cache untouched.
	Extras map[string]json.RawMessage `json:"extras,omitempty"`
}

// memberKnown mirrors Member's typed fields for two-pass decoding.
type memberKnown struct {
	ScoutID     ID         `json:"scoutid"`
	Firstname   string     `json:"firstname"`
	Lastname    string     `json:"lastname"`
	SectionID   int        `json:"sectionid"`
	SectionName string     `json:"sectionname"`
	Patrol      string     `json:"patrol"`
	PatrolID    int        `json:"patrol_id"`
	PersonType  PersonType `json:"person_type"`
	DateOfBirth string     `json:"dateofbirth"`
	AgeYears    int        `json:"age_years"`
	AgeMonths   int        `json:"age_months"`
	PhotoGUID   string     `json:"photo_guid"`
	HasPhoto    bool       `json:"has_photo"`
	Sections    []string   `json:"sections"`

	SectionPersonTypes map[string]PersonType      `json:"section_person_types"`
	Extras             map[string]json.RawMessage `json:"extras"`
}

// knownMemberFields are stripped from the flattened row before the
// remainder lands in Extras.
var knownMemberFields = map[string]bool{
	"scoutid": true, "firstname": true, "lastname": true,
	"sectionid": true, "sectionname": true,
	"patrol": true, "patrol_id": true, "person_type": true,
	"dateofbirth": true, "age_years": true, "age_months": true,
	"photo_guid": true, "has_photo": true, "pic": true,
	"sections": true, "section_person_types": true, "extras": true,
}

// UnmarshalJSON decodes a member row, splitting unknown flattened fields
// into Extras and deriving PersonType and HasPhoto when absent.
func (m *Member) UnmarshalJSON(data []byte) error {
	var known memberKnown
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = Member{
		ScoutID:            known.ScoutID,
		Firstname:          known.Firstname,
		Lastname:           known.Lastname,
		SectionID:          known.SectionID,
		SectionName:        known.SectionName,
		Patrol:             known.Patrol,
		PatrolID:           known.PatrolID,
		PersonType:         known.PersonType,
		DateOfBirth:        known.DateOfBirth,
		AgeYears:           known.AgeYears,
		AgeMonths:          known.AgeMonths,
		PhotoGUID:          known.PhotoGUID,
		HasPhoto:           known.HasPhoto,
		Sections:           known.Sections,
		SectionPersonTypes: known.SectionPersonTypes,
		Extras:             known.Extras,
	}

	if m.PersonType == "" {
		m.PersonType = PersonTypeFromPatrol(m.PatrolID)
	}

	// Any of three upstream fields marks a photo as present.
	if !m.HasPhoto {
		m.HasPhoto = m.PhotoGUID != "" || truthyRaw(raw["pic"]) || truthyRaw(raw["has_photo"])
	}

	for k, v := range raw {
		if knownMemberFields[k] {
			continue
		}
		if m.Extras == nil {
			m.Extras = make(map[string]json.RawMessage)
		}
		if _, exists := m.Extras[k]; !exists {
			m.Extras[k] = v
		}
	}

	return nil
}

// truthyRaw reports whether a raw JSON value is a non-empty, non-false,
// non-zero scalar.
func truthyRaw(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	switch string(raw) {
	case "null", "false", "0", `""`, `"0"`, `"false"`:
		return false
	}
	return true
}

// EffectivePersonType resolves a member's person type for one section,
// preferring the section-specific value over the top-level one.
func (m Member) EffectivePersonType(sectionName string) PersonType {
	if pt, ok := m.SectionPersonTypes[sectionName]; ok && pt != "" {
		return pt
	}
	if m.PersonType != "" {
		return m.PersonType
	}
	return PersonTypeFromPatrol(m.PatrolID)
}

// MergeMembers combines per-section member rows into one record per scout.
// The sections list is the set union of contributing section names, and a
// member who is a Young Leader in any section is a Young Leader overall.
// Output order is by scout id for stable results.
func MergeMembers(rows []Member) []Member {
	byID := make(map[ID]*Member)
	var order []ID

	for i := range rows {
		row := rows[i]
		existing, ok := byID[row.ScoutID]
		if !ok {
			merged := row
			merged.Sections = nil
			merged.SectionPersonTypes = make(map[string]PersonType)
			byID[row.ScoutID] = &merged
			order = append(order, row.ScoutID)
			existing = &merged
		}
		existing.addMembership(row)
	}

	out := make([]Member, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScoutID < out[j].ScoutID
	})
	return out
}

// addMembership folds one per-section row into the merged record.
func (m *Member) addMembership(row Member) {
	name := row.SectionName
	if name != "" && !containsString(m.Sections, name) {
		m.Sections = append(m.Sections, name)
	}

	pt := row.PersonType
	if pt == "" {
		pt = PersonTypeFromPatrol(row.PatrolID)
	}
	if name != "" {
		m.SectionPersonTypes[name] = pt
	}

	// Young Leaders dominance: any YL membership makes the merged record YL.
	if pt == PersonYoungLeaders {
		m.PersonType = PersonYoungLeaders
	}
	if row.HasPhoto {
		m.HasPhoto = true
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
