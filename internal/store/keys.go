// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package store

import (
	"fmt"

	"github.com/vikingscouts/eventmgmt/internal/models"
)

// DemoPrefix mirrors every key into the demo namespace. Demo mode reads and
// writes only demo_-prefixed keys so live data is never touched.
const DemoPrefix = "demo_"

// Fixed keys.
const (
	keySections = "viking_sections_offline"
	keyTerms    = "viking_terms_offline"
	keyStartup  = "viking_startup_data_offline"
	keyMembers  = "viking_members_offline"
	keyMembersC = "viking_members_comprehensive_offline"
	keyBlocked  = "viking_blocked"
)

// SectionsKey addresses the cached section list.
func SectionsKey() string { return keySections }

// TermsKey addresses the sectionid -> terms map.
func TermsKey() string { return keyTerms }

// StartupKey addresses the cached startup data globals.
func StartupKey() string { return keyStartup }

// MembersKey addresses the merged cross-section member list.
func MembersKey() string { return keyMembers }

// MembersComprehensiveKey addresses the full member detail list.
func MembersComprehensiveKey() string { return keyMembersC }

// BlockedKey addresses the sticky upstream-blocked flag.
func BlockedKey() string { return keyBlocked }

// EventsKey addresses a section's event envelope.
func EventsKey(sectionID int) string {
	return fmt.Sprintf("viking_events_%d_offline", sectionID)
}

// EventsTermKey addresses the bare-array compatibility copy of a section's
// events for one term.
func EventsTermKey(sectionID int, termID models.ID) string {
	return fmt.Sprintf("viking_events_%d_%s_offline", sectionID, termID)
}

// AttendanceKey addresses one event's attendance envelope.
func AttendanceKey(sectionID int, termID, eventID models.ID) string {
	return fmt.Sprintf("viking_attendance_%d_%s_%s_offline", sectionID, termID, eventID)
}

// MembersSectionKey addresses one section's member grid.
func MembersSectionKey(sectionID int) string {
	return fmt.Sprintf("viking_members_%d_offline", sectionID)
}

// FlexiListsKey addresses a section's flexi-record catalog.
func FlexiListsKey(sectionID int) string {
	return fmt.Sprintf("viking_flexi_lists_%d_offline", sectionID)
}

// FlexiStructureKey addresses one flexi record's structure.
func FlexiStructureKey(extraID models.ID) string {
	return fmt.Sprintf("viking_flexi_structure_%s_offline", extraID)
}

// FlexiDataKey addresses one flexi record's data rows for a section/term.
func FlexiDataKey(extraID models.ID, sectionID int, termID models.ID) string {
	return fmt.Sprintf("viking_flexi_data_%s_%d_%s_offline", extraID, sectionID, termID)
}

// EventSummaryKey addresses one event's cached summary rollup.
func EventSummaryKey(eventID models.ID) string {
	return fmt.Sprintf("viking_event_summary_%s_offline", eventID)
}

// SharedMetadataKey addresses a shared event's topology.
func SharedMetadataKey(eventID models.ID) string {
	return fmt.Sprintf("viking_shared_metadata_%s", eventID)
}

// SharedAttendanceKey addresses the combined attendance for a shared event
// as seen by one participating section.
func SharedAttendanceKey(eventID models.ID, sectionID int) string {
	return fmt.Sprintf("viking_shared_attendance_%s_%d_offline", eventID, sectionID)
}

// DemoKey mirrors a key into the demo namespace.
func DemoKey(key string) string { return DemoPrefix + key }
