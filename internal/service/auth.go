package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/tailor/internal/auth"
	"github.com/sakif/tailor/internal/model"
)

// AuthService turns a verified provider identity into a local session.
//
//	AuthHandler (HTTP) → AuthService → UserService → UserRepository (DB)
//	                               ↘ TokenService (JWT)
//
// It never sets cookies or reads requests; that stays in the handler.
type AuthService struct {
	users  *UserService
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(users *UserService, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResult bundles the user record and the issued session token so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Login handles the end of the OAuth callback: it upserts the directory row
// and signs a session token for it.
//
// The token carries the stored row's profile, not the provider's, so a
// display name the user chose survives later logins.
func (s *AuthService) Login(ctx context.Context, identity model.Identity) (*AuthResult, error) {
	user, err := s.users.UpsertFromLogin(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("subject_id", user.SubjectID),
	)

	token, err := s.tokens.Generate(model.Identity{
		SubjectID:   user.SubjectID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// SessionTTL is the lifetime of issued tokens, used for the cookie MaxAge.
func (s *AuthService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}
