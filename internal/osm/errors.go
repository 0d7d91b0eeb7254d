// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package osm

import (
	"errors"
	"fmt"
)

// ErrAuthBlocked is returned locally when the auth gate is open; no
// request was made.
var ErrAuthBlocked = errors.New("osm: auth gate open, call refused")

// ErrValidation marks a request payload the upstream would reject; the
// call is not recoverable without fixing the payload.
var ErrValidation = errors.New("osm: invalid request")

// AuthError reports an unrecoverable credential rejection (401/403). It
// trips the auth gate for the rest of the session.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("osm: upstream rejected credentials (status %d)", e.Status)
}

// BlockedError reports that the upstream has blocked this account or
// client. The flag is sticky in the store and surfaced prominently.
type BlockedError struct {
	Detail string
}

func (e *BlockedError) Error() string {
	return "osm: access blocked by upstream: " + e.Detail
}

// NetworkError wraps a transport-level failure; cached values are
// returned when present.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "osm: network failure: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is a credential rejection.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
