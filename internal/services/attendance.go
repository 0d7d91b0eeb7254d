// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package services

import (
	"context"
	"strconv"

	"github.com/vikingscouts/eventmgmt/internal/cache"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// GetEventAttendance returns one event's attendance rows.
func (s *Services) GetEventAttendance(ctx context.Context, tok string, sectionID int, termID, eventID models.ID, force bool) ([]models.AttendanceRecord, error) {
	return cache.ReadList(ctx, s.eng, store.AttendanceKey(sectionID, termID, eventID), cache.TTLForever, tok, force,
		func(ctx context.Context) ([]models.AttendanceRecord, error) {
			return s.client.GetEventAttendance(ctx, tok, strconv.Itoa(sectionID), string(termID), string(eventID))
		})
}
