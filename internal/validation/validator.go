// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package validation provides struct validation using go-playground/validator
// v10 behind a thread-safe singleton, with custom rules for upstream write
// payloads.
//
// Custom validators:
//   - flexicolumn: a flexi-record column id of the form f_<n>
//
// Example:
//
//	type UpdateFlexiRequest struct {
//	    ColumnID string `validate:"required,flexicolumn"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    return fmt.Errorf("%w: %v", osm.ErrValidation, err)
//	}
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// flexiColumnPattern matches upstream flexi column ids.
var flexiColumnPattern = regexp.MustCompile(`^f_\d+$`)

// Validator returns the singleton validator, initializing it on first use.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Registration only fails for an empty tag; safe to ignore here.
		_ = validate.RegisterValidation("flexicolumn", func(fl validator.FieldLevel) bool {
			return flexiColumnPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidationError describes a single failed field, formatted for error
// surfaces.
type ValidationError struct {
	Field   string
	Tag     string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ValidationErrors aggregates per-field failures.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Message
	}
	return strings.Join(msgs, "; ")
}

// ValidateStruct validates s and translates failures into
// ValidationErrors. Returns nil when s is valid.
func ValidateStruct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return fmt.Errorf("validation: %w", err)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, &ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: messageFor(fe),
		})
	}
	return out
}

// messageFor builds a human-readable message for one field failure.
func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "flexicolumn":
		return fmt.Sprintf("%s must match f_<n> (got %v)", fe.Field(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
