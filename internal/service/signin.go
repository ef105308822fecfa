package service

import (
	"context"
	"errors"
	"strings"

	"github.com/petermazzocco/project-journal/internal/store"
	"github.com/petermazzocco/project-journal/models"
)

const msgNoAccess = "User not authorized."

// SignIn records the profile an identity provider returned. Name and image
// are refreshed; a role is never granted here, so unknown people end up as
// role-less users who cannot get past the gate.
func (s *Service) SignIn(ctx context.Context, profile models.User) (*models.User, error) {
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	if profile.Email == "" {
		return nil, newError(KindInvalid, "Invalid data: provider returned no email")
	}
	profile.Role = nil
	u, err := s.store.UpsertUser(ctx, profile)
	if err != nil {
		return nil, err
	}
	if !u.HasAccess() {
		s.log.Info("sign in without role", "user_id", u.ID)
		return nil, newError(KindUnauthorized, msgNoAccess)
	}
	return u, nil
}

// SignInByEmail resolves a verified email link. Only existing users with a
// role may sign in this way.
func (s *Service) SignInByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindUnauthorized, msgNoAccess)
		}
		return nil, err
	}
	if !u.HasAccess() {
		return nil, newError(KindUnauthorized, msgNoAccess)
	}
	return u, nil
}
