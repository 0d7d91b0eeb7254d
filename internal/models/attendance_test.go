// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package models

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestParseAttendanceStatus_AllEncodings(t *testing.T) {
	cases := []struct {
		in   any
		want AttendanceStatus
	}{
		{"Yes", AttendanceYes},
		{"yes", AttendanceYes},
		{1, AttendanceYes},
		{float64(1), AttendanceYes},
		{"No", AttendanceNo},
		{0, AttendanceNo},
		{"Invited", AttendanceInvited},
		{2, AttendanceInvited},
		{"Not Invited", AttendanceNotInvited},
		{3, AttendanceNotInvited},
	}
	for _, c := range cases {
		got, err := ParseAttendanceStatus(c.in)
		if err != nil {
			t.Errorf("ParseAttendanceStatus(%v): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseAttendanceStatus(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseAttendanceStatus_Unknown(t *testing.T) {
	if _, err := ParseAttendanceStatus("Maybe"); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := ParseAttendanceStatus(7); err == nil {
		t.Error("expected error for unknown numeric status")
	}
}

func TestAttendanceStatus_UnmarshalTolerant(t *testing.T) {
	// Unknown values must not fail the whole row.
	var rec AttendanceRecord
	data := []byte(`{"scoutid": 1, "attending": "Maybe"}`)
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.Attending != "" {
		t.Errorf("expected empty status for unknown value, got %q", rec.Attending)
	}
	if rec.Status() != AttendanceNotInvited {
		t.Errorf("empty status must read as Not Invited, got %q", rec.Status())
	}
}

func TestAttendanceRecord_NumericAttending(t *testing.T) {
	var rec AttendanceRecord
	data := []byte(`{"scoutid": 1, "attending": 1}`)
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.Attending != AttendanceYes {
		t.Errorf("expected Yes, got %q", rec.Attending)
	}
}
