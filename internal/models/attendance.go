// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package models

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// AttendanceStatus is the canonical attendance value. The upstream encodes
// it as either a string ("Yes") or a number (1); the parser is total over
// both forms and downstream code only ever sees the canonical constants.
type AttendanceStatus string

// Canonical attendance statuses.
const (
	AttendanceYes        AttendanceStatus = "Yes"
	AttendanceNo         AttendanceStatus = "No"
	AttendanceInvited    AttendanceStatus = "Invited"
	AttendanceNotInvited AttendanceStatus = "Not Invited"
)

// ParseAttendanceStatus normalizes any upstream encoding to a canonical
// status. Numeric mapping: 1=Yes, 0=No, 2=Invited, 3=Not Invited.
func ParseAttendanceStatus(v any) (AttendanceStatus, error) {
	switch s := v.(type) {
	case AttendanceStatus:
		return ParseAttendanceStatus(string(s))
	case string:
		switch s {
		case "Yes", "yes", "1":
			return AttendanceYes, nil
		case "No", "no", "0":
			return AttendanceNo, nil
		case "Invited", "invited", "2":
			return AttendanceInvited, nil
		case "Not Invited", "not invited", "NotInvited", "3":
			return AttendanceNotInvited, nil
		}
		return "", fmt.Errorf("unknown attendance status %q", s)
	case float64:
		return attendanceFromInt(int(s))
	case int:
		return attendanceFromInt(s)
	case json.Number:
		n, err := s.Int64()
		if err != nil {
			return "", fmt.Errorf("attendance status %q is not an integer", s)
		}
		return attendanceFromInt(int(n))
	default:
		return "", fmt.Errorf("attendance status has unsupported type %T", v)
	}
}

func attendanceFromInt(n int) (AttendanceStatus, error) {
	switch n {
	case 1:
		return AttendanceYes, nil
	case 0:
		return AttendanceNo, nil
	case 2:
		return AttendanceInvited, nil
	case 3:
		return AttendanceNotInvited, nil
	}
	return "", fmt.Errorf("unknown attendance status %d", n)
}

// UnmarshalJSON accepts both numeric and string encodings. Unknown values
// decode to the empty status rather than failing the whole row; readers
// treat empty as Not Invited.
func (a *AttendanceStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	status, err := ParseAttendanceStatus(raw)
	if err != nil {
		*a = ""
		return nil
	}
	*a = status
	return nil
}

// AttendanceRecord is one member's response to one event.
type AttendanceRecord struct {
	ScoutID   ID               `json:"scoutid"`
	EventID   ID               `json:"eventid"`
	SectionID int              `json:"sectionid"`
	Firstname string           `json:"firstname"`
	Lastname  string           `json:"lastname"`
	Attending AttendanceStatus `json:"attending"`
	Patrol    string           `json:"patrol,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}

// Status returns the canonical status, mapping the empty value to
// Not Invited so callers always see one of the four statuses.
func (r AttendanceRecord) Status() AttendanceStatus {
	if r.Attending == "" {
		return AttendanceNotInvited
	}
	return r.Attending
}
