// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package flexi parses flexi-record structures into field mappings and
// resolves the Viking Event Mgmt record for a section.
package flexi

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vikingscouts/eventmgmt/internal/models"
)

var columnIDPattern = regexp.MustCompile(`^f_\d+$`)

// ErrEmptyStructure reports a structure with no parseable custom columns.
var ErrEmptyStructure = errors.New("flexi: structure has no custom columns")

// FieldNotFoundError reports a sign-in/out field missing from a mapping,
// listing what the record actually has.
type FieldNotFoundError struct {
	Field     string
	Available []string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("flexi: field %q not found (available: %s)", e.Field, strings.Join(e.Available, ", "))
}

// ParseStructure extracts the ordered column-id to field-name mapping.
// The config blob is preferred; it may arrive double-encoded as a JSON
// string. When config is absent or unusable the structure rows are used
// instead.
func ParseStructure(s *models.FlexiStructure) (models.FieldMapping, error) {
	if fields, ok := parseConfig(s.Config); ok {
		return models.FieldMapping{Fields: fields}, nil
	}

	var fields []models.FlexiConfigField
	for _, block := range s.Structure {
		for _, row := range block.Rows {
			if !columnIDPattern.MatchString(row.Field) {
				continue
			}
			fields = append(fields, models.FlexiConfigField{ID: row.Field, Name: row.Name})
		}
	}
	if len(fields) == 0 {
		return models.FieldMapping{}, ErrEmptyStructure
	}
	return models.FieldMapping{Fields: fields}, nil
}

// parseConfig handles both encodings of the config blob: a JSON array, or
// that same array double-encoded as a JSON string.
func parseConfig(raw json.RawMessage) ([]models.FlexiConfigField, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	data := []byte(raw)
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, false
		}
		data = []byte(inner)
	}

	var fields []models.FlexiConfigField
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false
	}

	out := fields[:0]
	for _, f := range fields {
		if columnIDPattern.MatchString(f.ID) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// RequireField returns the column id for name or a FieldNotFoundError
// naming everything the mapping does contain.
func RequireField(m models.FieldMapping, name string) (string, error) {
	if id, ok := m.IDFor(name); ok {
		return id, nil
	}
	return "", &FieldNotFoundError{Field: name, Available: m.Names()}
}
