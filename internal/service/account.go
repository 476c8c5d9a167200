package service

import (
	"context"
	"regexp"
	"time"

	"github.com/fitsnap/fitsnap/internal/models"
)

var usernameRE = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

// RegisterProfile creates a profile at first authentication. The
// password is already hashed by the caller; the core never sees
// plaintext credentials.
func (s *Social) RegisterProfile(ctx context.Context, username, passwordHash string) (*models.Profile, error) {
	if !usernameRE.MatchString(username) {
		return nil, ValidationError("username must be 3-32 lowercase letters, digits or underscores")
	}
	if passwordHash == "" {
		return nil, ValidationError("password is required")
	}

	existing, err := s.store.Profiles().GetByUsername(ctx, username)
	if err != nil {
		return nil, StoreError("load profile", err)
	}
	if existing != nil {
		return nil, ValidationError("username %q is already taken", username)
	}

	now := time.Now().UTC()
	profile := &models.Profile{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Profiles().Create(ctx, profile); err != nil {
		return nil, StoreError("create profile", err)
	}
	return profile, nil
}

// Credentials returns the profile for a login attempt, including its
// password hash. Not-found is reported as such; the caller folds it
// into a generic invalid-credentials response.
func (s *Social) Credentials(ctx context.Context, username string) (*models.Profile, error) {
	profile, err := s.store.Profiles().GetByUsername(ctx, username)
	if err != nil {
		return nil, StoreError("load profile", err)
	}
	if profile == nil {
		return nil, NotFoundError("profile %q not found", username)
	}
	return profile, nil
}
