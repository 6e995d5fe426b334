// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the relational store
//
// Services take repository interfaces, never the concrete sqldb types, so
// tests can run them against in-memory fakes. They return apperror values;
// mapping those to HTTP status codes is the handler's job.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/tailor/internal/apperror"
	"github.com/sakif/tailor/internal/model"
	"github.com/sakif/tailor/internal/repository"
)

// PartService handles business logic for catalog parts.
type PartService struct {
	parts  repository.PartRepository
	types  repository.MovementTypeRepository
	logger *slog.Logger
}

// NewPartService creates a new PartService.
func NewPartService(parts repository.PartRepository, types repository.MovementTypeRepository, logger *slog.Logger) *PartService {
	return &PartService{
		parts:  parts,
		types:  types,
		logger: logger,
	}
}

// ParsePartType validates a part type name from the URL.
func ParsePartType(name string) (model.PartType, error) {
	t, ok := model.ParsePartType(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		return "", apperror.ValidationFailed("part_type", fmt.Sprintf("unknown part type %q", name))
	}
	return t, nil
}

// List returns every part of a type, newest first. Public.
func (s *PartService) List(ctx context.Context, typeName string) ([]model.Part, error) {
	t, err := ParsePartType(typeName)
	if err != nil {
		return nil, err
	}

	parts, err := s.parts.List(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("service/parts: listing %s: %w", t, err)
	}
	return parts, nil
}

// Get returns a single part. Public.
func (s *PartService) Get(ctx context.Context, typeName string, id int64) (*model.Part, error) {
	t, err := ParsePartType(typeName)
	if err != nil {
		return nil, err
	}

	p, err := s.parts.Get(ctx, t, id)
	if err != nil {
		return nil, fmt.Errorf("service/parts: getting %s %d: %w", t, id, err)
	}
	return p, nil
}

// Create validates the client payload and stores a part owned by ownerID.
//
// The payload is untrusted: aliases are normalized, every key outside the
// type's schema is dropped, values are converted to their column kinds,
// and brand/model/price must survive all of that.
func (s *PartService) Create(ctx context.Context, typeName string, input map[string]any, ownerID int64) (*model.Part, error) {
	t, err := ParsePartType(typeName)
	if err != nil {
		return nil, err
	}

	fields, err := s.prepare(ctx, t, input, true)
	if err != nil {
		return nil, err
	}

	p, err := s.parts.Create(ctx, t, fields, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service/parts: creating %s: %w", t, err)
	}

	s.logger.Info("part created",
		slog.String("part_type", string(t)),
		slog.Int64("id", p.ID),
		slog.Int64("owner_id", ownerID),
	)

	return p, nil
}

// Update applies a partial update. A part the caller does not own is
// reported as NotFound, never Forbidden.
func (s *PartService) Update(ctx context.Context, typeName string, id int64, input map[string]any, ownerID int64) (*model.Part, error) {
	t, err := ParsePartType(typeName)
	if err != nil {
		return nil, err
	}

	fields, err := s.prepare(ctx, t, input, false)
	if err != nil {
		return nil, err
	}

	p, err := s.parts.Update(ctx, t, id, ownerID, fields)
	if err != nil {
		return nil, fmt.Errorf("service/parts: updating %s %d: %w", t, id, err)
	}

	if len(fields) > 0 {
		s.logger.Info("part updated",
			slog.String("part_type", string(t)),
			slog.Int64("id", id),
			slog.Int("fields", len(fields)),
		)
	}

	return p, nil
}

// Delete removes a part the caller owns.
func (s *PartService) Delete(ctx context.Context, typeName string, id, ownerID int64) error {
	t, err := ParsePartType(typeName)
	if err != nil {
		return err
	}

	ok, err := s.parts.Delete(ctx, t, id, ownerID)
	if err != nil {
		return fmt.Errorf("service/parts: deleting %s %d: %w", t, id, err)
	}
	if !ok {
		return apperror.NotFound(t.Singular(), id)
	}

	s.logger.Info("part deleted", slog.String("part_type", string(t)), slog.Int64("id", id))
	return nil
}

// ListByOwner returns the caller's parts grouped by type. Every type is
// present in the result, with an empty slice when the caller has none.
func (s *PartService) ListByOwner(ctx context.Context, ownerID int64) (map[model.PartType][]model.Part, error) {
	out := make(map[model.PartType][]model.Part, len(model.PartTypes))
	for _, t := range model.PartTypes {
		parts, err := s.parts.ListByOwner(ctx, t, ownerID)
		if err != nil {
			return nil, fmt.Errorf("service/parts: listing %s of user %d: %w", t, ownerID, err)
		}
		if parts == nil {
			parts = []model.Part{}
		}
		out[t] = parts
	}
	return out, nil
}

// MovementTypes lists the known movement types.
func (s *PartService) MovementTypes(ctx context.Context) ([]model.MovementType, error) {
	types, err := s.types.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/parts: listing movement types: %w", err)
	}
	return types, nil
}

// prepare turns an untrusted payload into validated columns.
func (s *PartService) prepare(ctx context.Context, t model.PartType, input map[string]any, creating bool) (model.PartFields, error) {
	normalized := normalizeKeys(input)
	// The lookup id is only ever set from a movement type name.
	delete(normalized, "movement_type_id")

	fields, err := filterFields(t, normalized)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(t, fields, creating); err != nil {
		return nil, err
	}

	if t == model.Movements {
		if err := s.resolveMovementType(ctx, normalized, fields); err != nil {
			return nil, err
		}
	}

	return fields, nil
}

// resolveMovementType turns a movement type name into movement_type_id,
// creating the lookup row on first use.
func (s *PartService) resolveMovementType(ctx context.Context, in map[string]any, fields model.PartFields) error {
	for _, key := range movementTypeKeys {
		raw, ok := in[key]
		if !ok {
			continue
		}
		if raw == nil {
			fields["movement_type_id"] = nil
			return nil
		}

		name, ok := raw.(string)
		if !ok {
			return apperror.ValidationFailed(key, "movement type must be a string")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			fields["movement_type_id"] = nil
			return nil
		}

		id, err := s.types.Resolve(ctx, name)
		if err != nil {
			return fmt.Errorf("service/parts: resolving movement type %q: %w", name, err)
		}
		fields["movement_type_id"] = id
		return nil
	}
	return nil
}
