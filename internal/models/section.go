// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package models

// Permissions holds the per-area permission levels the upstream grants the
// logged-in user for a section. Levels are upstream-defined integers where
// 0 means no access and higher values grant read/write.
type Permissions struct {
	Badge         int `json:"badge"`
	Member        int `json:"member"`
	User          int `json:"user"`
	Register      int `json:"register"`
	Programme     int `json:"programme"`
	Events        int `json:"events"`
	Flexi         int `json:"flexi"`
	Finance       int `json:"finance"`
	Quartermaster int `json:"quartermaster"`
}

// Section is a Scout operating unit (Beavers, Cubs, ...) with its own
// members, events and permissions. SectionID is globally unique across the
// active account.
type Section struct {
	SectionID   int         `json:"sectionid"`
	SectionName string      `json:"sectionname"`
	Section     string      `json:"section"`
	SectionType string      `json:"sectiontype"`
	IsDefault   bool        `json:"isDefault"`
	Permissions Permissions `json:"permissions"`
}

// UserInfo identifies the logged-in leader, derived from startup data.
type UserInfo struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	UserID    ID     `json:"userid"`
	Email     string `json:"email"`
}

// DisplayName returns "Firstname Lastname" for sign-in attribution.
func (u UserInfo) DisplayName() string {
	switch {
	case u.Firstname == "" && u.Lastname == "":
		return ""
	case u.Lastname == "":
		return u.Firstname
	case u.Firstname == "":
		return u.Lastname
	default:
		return u.Firstname + " " + u.Lastname
	}
}
