package model

import "time"

// User is the directory record for one external identity.
//
// SubjectID is the identity provider's stable subject ("sub" claim from
// Google). It is UNIQUE in the users table, so one Google account maps to
// exactly one row. We still use our own integer ID for ownership columns
// so part and build rows do not depend on the provider's numbering.
type User struct {
	ID          int64     `json:"id"`
	SubjectID   string    `json:"subject_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Bio         string    `json:"bio"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Identity is what a completed login tells us about the caller. It is also
// the payload of the session cookie, which lets a valid session rebuild its
// directory row after the store was reset.
type Identity struct {
	SubjectID   string `json:"subject_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}
