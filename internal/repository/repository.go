// Package repository declares the persistence contracts the service layer
// depends on. The sqldb sub-package implements them over database/sql.
package repository

import (
	"context"

	"github.com/sakif/tailor/internal/model"
)

// PartRepository stores catalog parts. Every mutating method folds the
// ownership check into the statement's WHERE clause, so a part owned by
// someone else behaves exactly like a missing one.
type PartRepository interface {
	List(ctx context.Context, t model.PartType) ([]model.Part, error)
	ListByOwner(ctx context.Context, t model.PartType, ownerID int64) ([]model.Part, error)
	Get(ctx context.Context, t model.PartType, id int64) (*model.Part, error)
	GetOwned(ctx context.Context, t model.PartType, id, ownerID int64) (*model.Part, error)
	Create(ctx context.Context, t model.PartType, fields model.PartFields, ownerID int64) (*model.Part, error)
	Update(ctx context.Context, t model.PartType, id, ownerID int64, fields model.PartFields) (*model.Part, error)
	Delete(ctx context.Context, t model.PartType, id, ownerID int64) (bool, error)
}

// MovementTypeRepository resolves movement type names to lookup rows.
type MovementTypeRepository interface {
	Resolve(ctx context.Context, name string) (int64, error)
	List(ctx context.Context) ([]model.MovementType, error)
}

// BuildRepository stores user builds.
type BuildRepository interface {
	Create(ctx context.Context, ownerID int64, refs model.PartRefs) (*model.Build, error)
	Get(ctx context.Context, ownerID, id int64) (*model.Build, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Build, error)
	Delete(ctx context.Context, ownerID, id int64) (bool, error)
	SetPublished(ctx context.Context, ownerID, id int64, published bool) (bool, error)
}

// UserRepository is the user directory keyed by external subject id.
type UserRepository interface {
	GetBySubject(ctx context.Context, subjectID string) (*model.User, error)
	Upsert(ctx context.Context, identity model.Identity) (*model.User, error)
	UpdateProfile(ctx context.Context, subjectID, displayName, bio string) (*model.User, error)
}
