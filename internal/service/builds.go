package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/tailor/internal/apperror"
	"github.com/sakif/tailor/internal/model"
	"github.com/sakif/tailor/internal/repository"
)

// BuildService handles business logic for builds.
type BuildService struct {
	builds repository.BuildRepository
	logger *slog.Logger
}

// NewBuildService creates a new BuildService.
func NewBuildService(builds repository.BuildRepository, logger *slog.Logger) *BuildService {
	return &BuildService{builds: builds, logger: logger}
}

// ParseRefs reads part references from a request body. For each type the
// keys "movements_id", "movement_id", "movements" and "movement" are all
// accepted. Null or missing means an empty slot; unknown keys are ignored.
func ParseRefs(input map[string]any) (model.PartRefs, error) {
	refs := model.PartRefs{}
	for _, t := range model.PartTypes {
		keys := []string{t.RefColumn(), t.Singular() + "_id", string(t), t.Singular()}
		for _, key := range keys {
			raw, ok := input[key]
			if !ok || raw == nil {
				continue
			}
			id, err := parseID(key, raw)
			if err != nil {
				return nil, err
			}
			refs[t] = id
			break
		}
	}
	return refs, nil
}

// Create stores a build for ownerID. The total price is computed by the
// repository at insert time and never recomputed afterwards.
func (s *BuildService) Create(ctx context.Context, ownerID int64, refs model.PartRefs) (*model.Build, error) {
	for t, id := range refs {
		if id <= 0 {
			return nil, apperror.ValidationFailed(t.RefColumn(), fmt.Sprintf("%s must be a positive integer id", t.RefColumn()))
		}
	}

	b, err := s.builds.Create(ctx, ownerID, refs)
	if err != nil {
		return nil, fmt.Errorf("service/builds: creating build: %w", err)
	}

	s.logger.Info("build created",
		slog.Int64("id", b.ID),
		slog.Int64("owner_id", ownerID),
		slog.String("total_price", b.TotalPrice.StringFixed(2)),
	)

	return b, nil
}

// List returns the caller's builds, newest first.
func (s *BuildService) List(ctx context.Context, ownerID int64) ([]model.Build, error) {
	builds, err := s.builds.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service/builds: listing builds: %w", err)
	}
	if builds == nil {
		builds = []model.Build{}
	}
	return builds, nil
}

// Delete removes one of the caller's builds.
func (s *BuildService) Delete(ctx context.Context, ownerID, id int64) error {
	ok, err := s.builds.Delete(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("service/builds: deleting build %d: %w", id, err)
	}
	if !ok {
		return apperror.NotFound("build", id)
	}

	s.logger.Info("build deleted", slog.Int64("id", id), slog.Int64("owner_id", ownerID))
	return nil
}

// Publish sets the published flag on one of the caller's builds and
// returns the updated row. Zero matched rows is NotFound.
func (s *BuildService) Publish(ctx context.Context, ownerID, id int64, published bool) (*model.Build, error) {
	ok, err := s.builds.SetPublished(ctx, ownerID, id, published)
	if err != nil {
		return nil, fmt.Errorf("service/builds: publishing build %d: %w", id, err)
	}
	if !ok {
		return nil, apperror.NotFound("build", id)
	}

	s.logger.Info("build publish state changed",
		slog.Int64("id", id),
		slog.Bool("published", published),
	)

	b, err := s.builds.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("service/builds: reloading build %d: %w", id, err)
	}
	return b, nil
}
