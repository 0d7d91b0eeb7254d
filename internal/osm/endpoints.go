// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package osm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/validation"
)

// itemsResponse is the common upstream list envelope.
type itemsResponse[T any] struct {
	Identifier string `json:"identifier"`
	Label      string `json:"label"`
	Items      []T    `json:"items"`
}

// GetUserRoles returns the raw roles map keyed by section id. Keys that
// are not integers (upstream mixes flags into the same object) are left
// for the sections service to filter.
func (c *Client) GetUserRoles(ctx context.Context, tok string) (map[string]json.RawMessage, error) {
	var out map[string]json.RawMessage
	err := c.call(ctx, "get-user-roles", http.MethodGet, "/get-user-roles", tok, nil, nil, &out)
	return out, err
}

// GetStartupData returns the signed-in user's profile and globals.
func (c *Client) GetStartupData(ctx context.Context, tok string) (*models.StartupData, error) {
	var out models.StartupData
	if err := c.call(ctx, "get-startup-data", http.MethodGet, "/get-startup-data", tok, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTerms returns all terms grouped by section id.
func (c *Client) GetTerms(ctx context.Context, tok string) (models.TermsBySection, error) {
	var out models.TermsBySection
	err := c.call(ctx, "get-terms", http.MethodGet, "/get-terms", tok, nil, nil, &out)
	return out, err
}

// GetEvents returns the events for one section and term.
func (c *Client) GetEvents(ctx context.Context, tok, sectionID, termID string) ([]models.Event, error) {
	q := url.Values{}
	q.Set("sectionid", sectionID)
	q.Set("termid", termID)
	var out itemsResponse[models.Event]
	err := c.call(ctx, "get-events", http.MethodGet, "/get-events", tok, q, nil, &out)
	return out.Items, err
}

// GetEventAttendance returns attendance rows for one event.
func (c *Client) GetEventAttendance(ctx context.Context, tok, sectionID, termID, eventID string) ([]models.AttendanceRecord, error) {
	q := url.Values{}
	q.Set("sectionid", sectionID)
	q.Set("termid", termID)
	q.Set("eventid", eventID)
	var out itemsResponse[models.AttendanceRecord]
	err := c.call(ctx, "get-event-attendance", http.MethodGet, "/get-event-attendance", tok, q, nil, &out)
	return out.Items, err
}

// GetMembersGrid returns the member rows for one section and term.
func (c *Client) GetMembersGrid(ctx context.Context, tok, sectionID, termID string) ([]models.Member, error) {
	q := url.Values{}
	q.Set("sectionid", sectionID)
	q.Set("termid", termID)
	var out itemsResponse[models.Member]
	err := c.call(ctx, "get-members-grid", http.MethodGet, "/get-members-grid", tok, q, nil, &out)
	return out.Items, err
}

// GetEventSummary returns the aggregate summary for one event.
func (c *Client) GetEventSummary(ctx context.Context, tok, eventID string) (*models.EventSummary, error) {
	q := url.Values{}
	q.Set("eventid", eventID)
	var out models.EventSummary
	if err := c.call(ctx, "get-event-summary", http.MethodGet, "/get-event-summary", tok, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEventSharingStatus returns the sharing topology of an event: every
// section it is shared with and their acceptance state.
func (c *Client) GetEventSharingStatus(ctx context.Context, tok, eventID, sectionID string) ([]models.SharedSection, error) {
	q := url.Values{}
	q.Set("eventid", eventID)
	q.Set("sectionid", sectionID)
	var out itemsResponse[models.SharedSection]
	err := c.call(ctx, "get-event-sharing-status", http.MethodGet, "/get-event-sharing-status", tok, q, nil, &out)
	return out.Items, err
}

// GetSharedEventAttendance returns the combined attendance across all
// sections participating in a shared event.
func (c *Client) GetSharedEventAttendance(ctx context.Context, tok, eventID, sectionID string) ([]models.SharedAttendee, error) {
	q := url.Values{}
	q.Set("eventid", eventID)
	q.Set("sectionid", sectionID)
	var out itemsResponse[models.SharedAttendee]
	err := c.call(ctx, "get-shared-event-attendance", http.MethodGet, "/get-shared-event-attendance", tok, q, nil, &out)
	return out.Items, err
}

// GetFlexiRecords returns the flexi-record catalog for a section.
func (c *Client) GetFlexiRecords(ctx context.Context, tok, sectionID string, archived bool) ([]models.FlexiRecordListItem, error) {
	q := url.Values{}
	q.Set("sectionid", sectionID)
	q.Set("archived", boolParam(archived))
	var out itemsResponse[models.FlexiRecordListItem]
	err := c.call(ctx, "get-flexi-records", http.MethodGet, "/get-flexi-records", tok, q, nil, &out)
	return out.Items, err
}

// GetFlexiStructure returns the column structure of one flexi record.
func (c *Client) GetFlexiStructure(ctx context.Context, tok, flexiRecordID, sectionID, termID string) (*models.FlexiStructure, error) {
	q := url.Values{}
	q.Set("flexirecordid", flexiRecordID)
	q.Set("sectionid", sectionID)
	q.Set("termid", termID)
	var out models.FlexiStructure
	if err := c.call(ctx, "get-flexi-structure", http.MethodGet, "/get-flexi-structure", tok, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSingleFlexiRecord returns the per-member data rows of one flexi
// record.
func (c *Client) GetSingleFlexiRecord(ctx context.Context, tok, flexiRecordID, sectionID, termID string) ([]models.FlexiDataRow, error) {
	q := url.Values{}
	q.Set("flexirecordid", flexiRecordID)
	q.Set("sectionid", sectionID)
	q.Set("termid", termID)
	var out itemsResponse[models.FlexiDataRow]
	err := c.call(ctx, "get-single-flexi-record", http.MethodGet, "/get-single-flexi-record", tok, q, nil, &out)
	return out.Items, err
}

// UpdateFlexiRequest is the body of a single-member field write.
type UpdateFlexiRequest struct {
	SectionID     models.ID `json:"sectionid" validate:"required"`
	ScoutID       models.ID `json:"scoutid" validate:"required"`
	FlexiRecordID string    `json:"flexirecordid" validate:"required"`
	ColumnID      string    `json:"columnid" validate:"required,flexicolumn"`
	Value         string    `json:"value"`
	TermID        string    `json:"termid" validate:"required"`
	Section       string    `json:"section"`
}

// MultiUpdateFlexiRequest is the body of a same-field write across
// several members.
type MultiUpdateFlexiRequest struct {
	SectionID     models.ID   `json:"sectionid" validate:"required"`
	Scouts        []models.ID `json:"scouts" validate:"required,min=1"`
	Value         string      `json:"value"`
	Column        string      `json:"column" validate:"required,flexicolumn"`
	FlexiRecordID string      `json:"flexirecordid" validate:"required"`
}

type updateResponse struct {
	OK bool `json:"ok"`
}

// UpdateFlexiRecord writes one field value for one member. The column id
// is validated locally before anything is queued.
func (c *Client) UpdateFlexiRecord(ctx context.Context, tok string, req UpdateFlexiRequest) error {
	if err := validation.ValidateStruct(&req); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var out updateResponse
	return c.call(ctx, "update-flexi-record", http.MethodPost, "/update-flexi-record", tok, nil, &req, &out)
}

// MultiUpdateFlexiRecord writes the same field value for several members
// in one upstream call.
func (c *Client) MultiUpdateFlexiRecord(ctx context.Context, tok string, req MultiUpdateFlexiRequest) error {
	if err := validation.ValidateStruct(&req); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var out updateResponse
	return c.call(ctx, "multi-update-flexi-record", http.MethodPost, "/multi-update-flexi-record", tok, nil, &req, &out)
}

// Health checks upstream liveness. It bypasses the queue and the auth
// gate: it carries no credentials and must work while the gate is open.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func boolParam(b bool) string {
	if b {
		return "y"
	}
	return "n"
}
