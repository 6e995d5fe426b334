package sqldb

import (
	"context"
	"fmt"

	"github.com/sakif/tailor/internal/apperror"
	"github.com/sakif/tailor/internal/model"
	"github.com/sakif/tailor/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the user directory.
type UserDB struct {
	db *DB
}

const selectUsers = `SELECT id, subject_id, email, display_name, avatar_url, bio, created_at, updated_at FROM users`

func scanUser(row Row) *model.User {
	return &model.User{
		ID:          row.Int64("id"),
		SubjectID:   row.String("subject_id"),
		Email:       row.String("email"),
		DisplayName: row.String("display_name"),
		AvatarURL:   row.String("avatar_url"),
		Bio:         row.String("bio"),
		CreatedAt:   row.Time("created_at"),
		UpdatedAt:   row.Time("updated_at"),
	}
}

// GetBySubject returns the user for an external subject id.
// Returns apperror.ErrNotFound if nobody with that subject has logged in.
func (s *UserDB) GetBySubject(ctx context.Context, subjectID string) (*model.User, error) {
	row, err := s.db.QueryOne(ctx, selectUsers+` WHERE subject_id = ?`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("sqldb: getting user %q: %w", subjectID, err)
	}
	if row == nil {
		return nil, apperror.NotFound("user", subjectID)
	}
	return scanUser(row), nil
}

// Upsert creates the user on first login and refreshes it afterwards.
//
// A single INSERT ... ON CONFLICT statement does both:
//   - email and avatar_url always take the provider's latest values
//   - display_name only fills an empty slot, so a name the user picked
//     (or the first one the provider sent) survives later logins
func (s *UserDB) Upsert(ctx context.Context, identity model.Identity) (*model.User, error) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (subject_id, email, display_name, avatar_url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (subject_id) DO UPDATE SET
			email = excluded.email,
			avatar_url = excluded.avatar_url,
			display_name = CASE
				WHEN users.display_name = '' THEN excluded.display_name
				ELSE users.display_name
			END,
			updated_at = CURRENT_TIMESTAMP`,
		identity.SubjectID,
		identity.Email,
		identity.DisplayName,
		identity.AvatarURL,
	)
	if err != nil {
		return nil, fmt.Errorf("sqldb: upserting user %q: %w", identity.SubjectID, err)
	}

	return s.GetBySubject(ctx, identity.SubjectID)
}

// UpdateProfile sets the user-editable profile fields.
func (s *UserDB) UpdateProfile(ctx context.Context, subjectID, displayName, bio string) (*model.User, error) {
	n, err := s.db.Exec(ctx,
		`UPDATE users SET display_name = ?, bio = ?, updated_at = CURRENT_TIMESTAMP WHERE subject_id = ?`,
		displayName, bio, subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqldb: updating profile of %q: %w", subjectID, err)
	}
	if n == 0 {
		return nil, apperror.NotFound("user", subjectID)
	}

	return s.GetBySubject(ctx, subjectID)
}
