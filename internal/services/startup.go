// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package services

import (
	"context"

	"github.com/vikingscouts/eventmgmt/internal/cache"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// GetStartupData returns the login-time globals, cached until the next
// explicit refresh. found is false when there is neither cache nor a way
// to fetch.
func (s *Services) GetStartupData(ctx context.Context, tok string, force bool) (models.StartupData, bool, error) {
	return cache.ReadValue(ctx, s.eng, store.StartupKey(), cache.TTLForever, tok, force,
		func(ctx context.Context) (models.StartupData, error) {
			data, err := s.client.GetStartupData(ctx, tok)
			if err != nil {
				return models.StartupData{}, err
			}
			return *data, nil
		})
}

// GetCurrentUser derives the user identity from startup data.
func (s *Services) GetCurrentUser(ctx context.Context, tok string) (models.UserInfo, bool, error) {
	data, found, err := s.GetStartupData(ctx, tok, false)
	if err != nil || !found {
		return models.UserInfo{}, found, err
	}
	return data.User(), true, nil
}
