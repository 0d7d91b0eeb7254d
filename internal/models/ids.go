// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package models defines the typed entities exchanged with the upstream
// Scout-management service and persisted in the offline store.
//
// The upstream is loosely typed: identifiers arrive as JSON numbers or
// strings depending on the endpoint, and attendance statuses arrive in both
// numeric and string form. These types absorb that looseness at the decode
// boundary so downstream code never compares raw values.
package models

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// ID is an upstream identifier that may arrive as a JSON number or string.
// Event, scout, term and flexi-record ids all use this type. Demo fixtures
// use non-numeric ids (e.g. "demo_event_11107_2"), so the canonical form
// is a string.
type ID string

// UnmarshalJSON accepts both string and numeric encodings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the canonical string form.
func (id ID) String() string { return string(id) }

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool { return id == "" }

// Int returns the numeric value of the id, or false when the id is not a
// finite integer (demo ids, empty ids).
func (id ID) Int() (int, bool) {
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return 0, false
	}
	return n, true
}
