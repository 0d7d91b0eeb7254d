// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package models

import (
	"strings"

	"github.com/goccy/go-json"
)

// VikingRecordName is the flexi record that backs event sign-in/out.
// Discovery matches on a substring of this name, case-insensitively.
const VikingRecordName = "Viking Event Mgmt"

// FlexiRecordListItem is one entry in a section's catalog of custom-field
// records.
type FlexiRecordListItem struct {
	ExtraID ID     `json:"extraid"`
	Name    string `json:"name"`
}

// FlexiConfigField is one column definition from a structure's config.
type FlexiConfigField struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Width json.RawMessage `json:"width,omitempty"`
}

// FlexiStructureRow is one row of the fallback structure layout, used when
// config is absent or unparseable.
type FlexiStructureRow struct {
	Name  string `json:"name"`
	Field string `json:"field"`
}

// FlexiStructureBlock groups structure rows.
type FlexiStructureBlock struct {
	Rows []FlexiStructureRow `json:"rows"`
}

// FlexiStructure describes one custom-field record's columns. Config is
// kept raw because the upstream sometimes double-encodes it as a JSON
// string; internal/flexi owns the parse.
type FlexiStructure struct {
	ExtraID   ID                    `json:"extraid"`
	Name      string                `json:"name"`
	Config    json.RawMessage       `json:"config,omitempty"`
	Structure []FlexiStructureBlock `json:"structure,omitempty"`
}

// FieldMapping is the ordered f_<n> -> human-name table parsed from a
// FlexiStructure.
type FieldMapping struct {
	Fields []FlexiConfigField
}

// IDFor returns the column id for a field name, matched case-insensitively.
func (m FieldMapping) IDFor(name string) (string, bool) {
	for _, f := range m.Fields {
		if strings.EqualFold(f.Name, name) {
			return f.ID, true
		}
	}
	return "", false
}

// NameFor returns the human name for a column id.
func (m FieldMapping) NameFor(id string) (string, bool) {
	for _, f := range m.Fields {
		if f.ID == id {
			return f.Name, true
		}
	}
	return "", false
}

// Names lists the mapped field names in column order.
func (m FieldMapping) Names() []string {
	names := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Sign-in/out field names within the Viking Event Mgmt record.
const (
	FieldCampGroup     = "CampGroup"
	FieldSignedInBy    = "SignedInBy"
	FieldSignedInWhen  = "SignedInWhen"
	FieldSignedOutBy   = "SignedOutBy"
	FieldSignedOutWhen = "SignedOutWhen"
)

// SignInOutFields are the four fields every usable Viking mapping must
// contain.
var SignInOutFields = []string{
	FieldSignedInBy, FieldSignedInWhen, FieldSignedOutBy, FieldSignedOutWhen,
}

// HasSignInOutFields reports whether the mapping contains all four
// sign-in/out fields (case-insensitive).
func (m FieldMapping) HasSignInOutFields() bool {
	for _, name := range SignInOutFields {
		if _, ok := m.IDFor(name); !ok {
			return false
		}
	}
	return true
}

// FlexiDataRow is one member's values within a flexi record. Column values
// (f_1, f_2, ...) are collected into Fields.
type FlexiDataRow struct {
	ScoutID   ID                `json:"scoutid"`
	Firstname string            `json:"firstname"`
	Lastname  string            `json:"lastname"`
	Fields    map[string]string `json:"-"`
}

// MarshalJSON flattens Fields back into the row, preserving the upstream
// shape across cache round trips.
func (r FlexiDataRow) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+3)
	flat["scoutid"] = r.ScoutID
	flat["firstname"] = r.Firstname
	flat["lastname"] = r.Lastname
	for k, v := range r.Fields {
		flat[k] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON collects f_<n> columns into Fields.
func (r *FlexiDataRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = FlexiDataRow{Fields: make(map[string]string)}
	for k, v := range raw {
		switch k {
		case "scoutid":
			if err := json.Unmarshal(v, &r.ScoutID); err != nil {
				return err
			}
		case "firstname":
			if err := json.Unmarshal(v, &r.Firstname); err != nil {
				return err
			}
		case "lastname":
			if err := json.Unmarshal(v, &r.Lastname); err != nil {
				return err
			}
		default:
			if !strings.HasPrefix(k, "f_") {
				continue
			}
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				// Numeric or null column value; keep the raw text.
				s = strings.Trim(string(v), `"`)
				if s == "null" {
					s = ""
				}
			}
			r.Fields[k] = s
		}
	}
	return nil
}
