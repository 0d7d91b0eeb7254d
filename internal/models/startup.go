// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package models

import "github.com/goccy/go-json"

// StartupData carries the upstream's login-time globals. Only the user
// identity is typed; the rest rides along raw for future consumers.
type StartupData struct {
	Firstname string          `json:"firstname"`
	Lastname  string          `json:"lastname"`
	UserID    ID              `json:"userid"`
	Email     string          `json:"email"`
	Globals   json.RawMessage `json:"globals,omitempty"`
}

// User maps the globals to a UserInfo.
func (s StartupData) User() UserInfo {
	return UserInfo{
		Firstname: s.Firstname,
		Lastname:  s.Lastname,
		UserID:    s.UserID,
		Email:     s.Email,
	}
}
