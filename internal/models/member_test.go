// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package models

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestMember_UnmarshalDerivesPersonType(t *testing.T) {
	cases := []struct {
		patrolID int
		want     PersonType
	}{
		{-2, PersonLeaders},
		{-3, PersonYoungLeaders},
		{7, PersonYoungPeople},
		{0, PersonYoungPeople},
	}
	for _, c := range cases {
		data := []byte(`{"scoutid": 1, "patrol_id": ` + itoa(c.patrolID) + `}`)
		var m Member
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if m.PersonType != c.want {
			t.Errorf("patrol_id %d: expected %q, got %q", c.patrolID, c.want, m.PersonType)
		}
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestMember_HasPhotoFromAnySource(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{`{"scoutid":1,"photo_guid":"abc-123"}`, true},
		{`{"scoutid":1,"pic":true}`, true},
		{`{"scoutid":1,"has_photo":1}`, true},
		{`{"scoutid":1,"pic":false}`, false},
		{`{"scoutid":1}`, false},
	}
	for _, c := range cases {
		var m Member
		if err := json.Unmarshal([]byte(c.body), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", c.body, err)
		}
		if m.HasPhoto != c.want {
			t.Errorf("%s: expected has_photo=%v, got %v", c.body, c.want, m.HasPhoto)
		}
	}
}

func TestMember_ExtrasPreserved(t *testing.T) {
	data := []byte(`{"scoutid":1,"firstname":"Alfie","custom_data_swim":"gold","patrol":"Red Six"}`)
	var m Member
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	raw, ok := m.Extras["custom_data_swim"]
	if !ok {
		t.Fatal("expected custom field preserved in Extras")
	}
	if string(raw) != `"gold"` {
		t.Errorf("expected raw value preserved, got %s", raw)
	}
	if _, known := m.Extras["firstname"]; known {
		t.Error("typed fields must not leak into Extras")
	}
}

func TestMergeMembers_SectionUnion(t *testing.T) {
	rows := []Member{
		{ScoutID: "10", Firstname: "Bella", SectionName: "Beavers", PatrolID: 5},
		{ScoutID: "10", Firstname: "Bella", SectionName: "Cubs", PatrolID: 5},
		{ScoutID: "11", Firstname: "Max", SectionName: "Cubs", PatrolID: 5},
	}
	merged := MergeMembers(rows)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged records, got %d", len(merged))
	}
	bella := merged[0]
	if bella.ScoutID != "10" {
		t.Fatalf("expected sorted order by scoutid, got %q first", bella.ScoutID)
	}
	if len(bella.Sections) != 2 || bella.Sections[0] != "Beavers" || bella.Sections[1] != "Cubs" {
		t.Errorf("expected section union [Beavers Cubs], got %v", bella.Sections)
	}
}

func TestMergeMembers_YoungLeaderDominates(t *testing.T) {
	rows := []Member{
		{ScoutID: "10", SectionName: "Cubs", PatrolID: 5},
		{ScoutID: "10", SectionName: "Explorers", PatrolID: -3},
	}
	merged := MergeMembers(rows)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged record, got %d", len(merged))
	}
	if merged[0].PersonType != PersonYoungLeaders {
		t.Errorf("YL membership must dominate, got %q", merged[0].PersonType)
	}
	if merged[0].SectionPersonTypes["Cubs"] != PersonYoungPeople {
		t.Errorf("per-section type lost: %v", merged[0].SectionPersonTypes)
	}
}

func TestMember_EffectivePersonType(t *testing.T) {
	m := Member{
		PersonType:         PersonYoungLeaders,
		SectionPersonTypes: map[string]PersonType{"Cubs": PersonYoungPeople},
	}
	if got := m.EffectivePersonType("Cubs"); got != PersonYoungPeople {
		t.Errorf("section-specific type must win, got %q", got)
	}
	if got := m.EffectivePersonType("Beavers"); got != PersonYoungLeaders {
		t.Errorf("fallback to top-level type, got %q", got)
	}
}
