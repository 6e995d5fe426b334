package sqldb

import (
	"context"
	"fmt"

	"github.com/sakif/tailor/internal/model"
	"github.com/sakif/tailor/internal/repository"
)

var _ repository.MovementTypeRepository = (*MovementTypeDB)(nil)

// MovementTypeDB is the movement_types lookup table.
type MovementTypeDB struct {
	db *DB
}

// Resolve returns the id for name, inserting the row when it is new.
//
// ON CONFLICT DO NOTHING returns no row when the name already exists, so a
// plain SELECT follows in that case. Two concurrent first uses of the same
// name both end up with the single stored id.
func (s *MovementTypeDB) Resolve(ctx context.Context, name string) (int64, error) {
	row, err := s.db.QueryOne(ctx,
		`INSERT INTO movement_types (type_name) VALUES (?) ON CONFLICT (type_name) DO NOTHING RETURNING id`,
		name,
	)
	if err != nil {
		return 0, fmt.Errorf("sqldb: inserting movement type %q: %w", name, err)
	}
	if row != nil {
		return row.Int64("id"), nil
	}

	row, err = s.db.QueryOne(ctx, `SELECT id FROM movement_types WHERE type_name = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("sqldb: looking up movement type %q: %w", name, err)
	}
	if row == nil {
		return 0, fmt.Errorf("sqldb: movement type %q vanished after insert", name)
	}
	return row.Int64("id"), nil
}

// List returns every known movement type ordered by name.
func (s *MovementTypeDB) List(ctx context.Context) ([]model.MovementType, error) {
	rows, err := s.db.Query(ctx, `SELECT id, type_name FROM movement_types ORDER BY type_name`)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing movement types: %w", err)
	}

	types := make([]model.MovementType, 0, len(rows))
	for _, row := range rows {
		types = append(types, model.MovementType{ID: row.Int64("id"), Name: row.String("type_name")})
	}
	return types, nil
}
