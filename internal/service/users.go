package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/tailor/internal/apperror"
	"github.com/sakif/tailor/internal/model"
	"github.com/sakif/tailor/internal/repository"
)

const (
	MaxDisplayNameLength = 80
	MaxBioLength         = 1000
)

// UserService is the user directory: identity records keyed by the
// provider's subject id.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// GetBySubject returns the directory record for a subject.
func (s *UserService) GetBySubject(ctx context.Context, subjectID string) (*model.User, error) {
	u, err := s.users.GetBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("service/users: getting %q: %w", subjectID, err)
	}
	return u, nil
}

// UpsertFromLogin creates or refreshes the record after a successful login.
// email and avatar always refresh; display_name only fills an empty one.
func (s *UserService) UpsertFromLogin(ctx context.Context, identity model.Identity) (*model.User, error) {
	identity = cleanIdentity(identity)
	if identity.SubjectID == "" {
		return nil, apperror.ValidationFailed("subject_id", "identity subject is required")
	}

	u, err := s.users.Upsert(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("service/users: upserting %q: %w", identity.SubjectID, err)
	}
	return u, nil
}

// UpdateProfile changes the caller's display name and bio.
func (s *UserService) UpdateProfile(ctx context.Context, subjectID, displayName, bio string) (*model.User, error) {
	displayName = strings.TrimSpace(displayName)
	bio = strings.TrimSpace(bio)

	if displayName == "" {
		return nil, apperror.ValidationFailed("display_name", "display name is required")
	}
	if utf8.RuneCountInString(displayName) > MaxDisplayNameLength {
		return nil, apperror.ValidationFailed("display_name",
			fmt.Sprintf("display name must be %d characters or less", MaxDisplayNameLength))
	}
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return nil, apperror.ValidationFailed("bio",
			fmt.Sprintf("bio must be %d characters or less", MaxBioLength))
	}

	u, err := s.users.UpdateProfile(ctx, subjectID, displayName, bio)
	if err != nil {
		return nil, fmt.Errorf("service/users: updating profile of %q: %w", subjectID, err)
	}

	s.logger.Info("profile updated", slog.Int64("user_id", u.ID))
	return u, nil
}

// EnsureFromSession resolves the record behind a session, creating it when
// missing. A session cookie can outlive the row it was issued for (the
// store was reset, or the row was removed by hand); the caller should not
// have to log in again for that.
func (s *UserService) EnsureFromSession(ctx context.Context, identity model.Identity) (*model.User, error) {
	u, err := s.users.GetBySubject(ctx, identity.SubjectID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/users: resolving session user: %w", err)
	}

	u, err = s.UpsertFromLogin(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user provisioned from session",
		slog.Int64("user_id", u.ID),
		slog.String("subject_id", u.SubjectID),
	)
	return u, nil
}

// cleanIdentity trims the provider's fields. An empty display name is
// kept empty so a later login can still fill it.
func cleanIdentity(id model.Identity) model.Identity {
	id.SubjectID = strings.TrimSpace(id.SubjectID)
	id.Email = strings.TrimSpace(id.Email)
	id.DisplayName = strings.TrimSpace(id.DisplayName)
	id.AvatarURL = strings.TrimSpace(id.AvatarURL)
	return id
}
