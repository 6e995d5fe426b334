package sqldb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sakif/tailor/internal/apperror"
	"github.com/sakif/tailor/internal/model"
	"github.com/sakif/tailor/internal/repository"
)

// compile-time check that *PartDB implements repository.PartRepository
var _ repository.PartRepository = (*PartDB)(nil)

// PartDB stores the six part tables. The table name always comes from a
// validated model.PartType and column names from its static schema, never
// from client input.
type PartDB struct {
	db *DB
}

func selectParts(t model.PartType) string {
	cols := []string{"p.id", "p.owner_id", "p.created_at", "p.updated_at"}
	for _, f := range t.Fields() {
		cols = append(cols, "p."+f.Name)
	}

	if t == model.Movements {
		return fmt.Sprintf(
			`SELECT %s, mt.type_name AS movement_type FROM movements p LEFT JOIN movement_types mt ON mt.id = p.movement_type_id`,
			strings.Join(cols, ", "),
		)
	}
	return fmt.Sprintf(`SELECT %s FROM %s p`, strings.Join(cols, ", "), t.Table())
}

func scanPart(t model.PartType, row Row) model.Part {
	p := model.Part{
		ID:           row.Int64("id"),
		Type:         t,
		Brand:        row.String("brand"),
		Model:        row.String("model"),
		Price:        row.Decimal("price"),
		ImageURL:     row.String("image_url"),
		Description:  row.String("description"),
		ProductLink:  row.String("product_link"),
		OwnerID:      row.NullInt64("owner_id"),
		MovementType: row.String("movement_type"),
		Attributes:   make(map[string]any, len(t.VariantFields())),
		CreatedAt:    row.Time("created_at"),
		UpdatedAt:    row.Time("updated_at"),
	}
	if meta := row.String("metadata"); meta != "" && json.Valid([]byte(meta)) {
		p.Metadata = json.RawMessage(meta)
	}

	for _, f := range t.VariantFields() {
		if row.IsNull(f.Name) {
			p.Attributes[f.Name] = nil
			continue
		}
		switch f.Kind {
		case model.KindDecimal:
			p.Attributes[f.Name] = row.Decimal(f.Name)
		case model.KindInt:
			p.Attributes[f.Name] = row.Int64(f.Name)
		default:
			p.Attributes[f.Name] = row.String(f.Name)
		}
	}
	return p
}

// sortedColumns checks every key against the schema and returns them in a
// stable order, so generated statements are deterministic.
func sortedColumns(t model.PartType, fields model.PartFields) ([]string, error) {
	cols := make([]string, 0, len(fields))
	for name := range fields {
		if _, ok := t.Field(name); !ok {
			return nil, fmt.Errorf("sqldb: %s has no writable column %q", t, name)
		}
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols, nil
}

func (s *PartDB) list(ctx context.Context, t model.PartType, where string, args ...any) ([]model.Part, error) {
	rows, err := s.db.Query(ctx, selectParts(t)+where+` ORDER BY p.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing %s: %w", t, err)
	}

	parts := make([]model.Part, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, scanPart(t, row))
	}
	return parts, nil
}

// List returns every part of the type, newest first.
func (s *PartDB) List(ctx context.Context, t model.PartType) ([]model.Part, error) {
	return s.list(ctx, t, "")
}

// ListByOwner returns the owner's parts of the type, newest first.
func (s *PartDB) ListByOwner(ctx context.Context, t model.PartType, ownerID int64) ([]model.Part, error) {
	return s.list(ctx, t, ` WHERE p.owner_id = ?`, ownerID)
}

// Get returns a part by id regardless of owner.
// Returns apperror.ErrNotFound if no part exists with that ID.
func (s *PartDB) Get(ctx context.Context, t model.PartType, id int64) (*model.Part, error) {
	row, err := s.db.QueryOne(ctx, selectParts(t)+` WHERE p.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("sqldb: getting %s %d: %w", t, id, err)
	}
	if row == nil {
		return nil, apperror.NotFound(t.Singular(), id)
	}
	p := scanPart(t, row)
	return &p, nil
}

// GetOwned returns the part only when ownerID owns it.
func (s *PartDB) GetOwned(ctx context.Context, t model.PartType, id, ownerID int64) (*model.Part, error) {
	row, err := s.db.QueryOne(ctx, selectParts(t)+` WHERE p.id = ? AND p.owner_id = ?`, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqldb: getting %s %d: %w", t, id, err)
	}
	if row == nil {
		return nil, apperror.NotFound(t.Singular(), id)
	}
	p := scanPart(t, row)
	return &p, nil
}

// Create inserts a part owned by ownerID and returns the stored row.
func (s *PartDB) Create(ctx context.Context, t model.PartType, fields model.PartFields, ownerID int64) (*model.Part, error) {
	cols, err := sortedColumns(t, fields)
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		args = append(args, fields[c])
	}
	cols = append(cols, "owner_id")
	args = append(args, ownerID)

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		t.Table(),
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
	)

	row, err := s.db.QueryOne(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb: inserting %s: %w", t, err)
	}
	if row == nil {
		return nil, fmt.Errorf("sqldb: inserting %s: no id returned", t)
	}

	return s.Get(ctx, t, row.Int64("id"))
}

// Update applies fields to the part if, and only if, ownerID owns it.
// Ownership lives in the WHERE clause, so there is no check-then-write gap:
// zero affected rows means "missing or not yours", reported as NotFound.
func (s *PartDB) Update(ctx context.Context, t model.PartType, id, ownerID int64, fields model.PartFields) (*model.Part, error) {
	if len(fields) == 0 {
		return s.GetOwned(ctx, t, id, ownerID)
	}

	cols, err := sortedColumns(t, fields)
	if err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+2)
	for _, c := range cols {
		sets = append(sets, c+" = ?")
		args = append(args, fields[c])
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id, ownerID)

	n, err := s.db.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET %s WHERE id = ? AND owner_id = ?`, t.Table(), strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqldb: updating %s %d: %w", t, id, err)
	}
	if n == 0 {
		return nil, apperror.NotFound(t.Singular(), id)
	}

	return s.GetOwned(ctx, t, id, ownerID)
}

// Delete removes the part when ownerID owns it and reports whether a row
// was deleted.
func (s *PartDB) Delete(ctx context.Context, t model.PartType, id, ownerID int64) (bool, error) {
	n, err := s.db.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND owner_id = ?`, t.Table()),
		id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("sqldb: deleting %s %d: %w", t, id, err)
	}
	return n > 0, nil
}
