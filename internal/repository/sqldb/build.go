package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/tailor/internal/apperror"
	"github.com/sakif/tailor/internal/model"
	"github.com/sakif/tailor/internal/repository"
)

var _ repository.BuildRepository = (*BuildDB)(nil)

// BuildDB stores builds.
type BuildDB struct {
	db *DB
}

var (
	// selectBuilds joins each referenced part's model name. LEFT JOIN keeps
	// builds whose parts were deleted; the model column is then NULL.
	selectBuilds = buildSelect()

	// totalPriceQuery sums the prices of whichever referenced parts exist
	// in one statement. A NULL or unknown id matches nothing and adds zero.
	totalPriceQuery = buildTotalQuery()
)

func buildSelect() string {
	cols := []string{"b.id", "b.owner_id", "b.total_price", "b.published", "b.created_at", "b.updated_at"}
	joins := make([]string, 0, len(model.PartTypes))
	for i, t := range model.PartTypes {
		alias := fmt.Sprintf("p%d", i)
		cols = append(cols,
			"b."+t.RefColumn(),
			fmt.Sprintf("%s.model AS %s", alias, t.ModelColumn()),
		)
		joins = append(joins, fmt.Sprintf("LEFT JOIN %s %s ON %s.id = b.%s", t.Table(), alias, alias, t.RefColumn()))
	}
	return fmt.Sprintf("SELECT %s FROM builds b %s", strings.Join(cols, ", "), strings.Join(joins, " "))
}

func buildTotalQuery() string {
	parts := make([]string, 0, len(model.PartTypes))
	for _, t := range model.PartTypes {
		parts = append(parts, fmt.Sprintf("SELECT price FROM %s WHERE id = ?", t.Table()))
	}
	return fmt.Sprintf("SELECT COALESCE(SUM(price), 0) AS total FROM (%s) t", strings.Join(parts, " UNION ALL "))
}

func scanBuild(row Row) model.Build {
	b := model.Build{
		ID:         row.Int64("id"),
		OwnerID:    row.Int64("owner_id"),
		Refs:       model.PartRefs{},
		Models:     map[model.PartType]string{},
		TotalPrice: row.Decimal("total_price").Round(2),
		Published:  row.Bool("published"),
		CreatedAt:  row.Time("created_at"),
		UpdatedAt:  row.Time("updated_at"),
	}
	for _, t := range model.PartTypes {
		if id := row.NullInt64(t.RefColumn()); id != nil {
			b.Refs[t] = *id
		}
		if !row.IsNull(t.ModelColumn()) {
			b.Models[t] = row.String(t.ModelColumn())
		}
	}
	return b
}

// refArgs returns one argument per part type in model.PartTypes order,
// nil for empty slots.
func refArgs(refs model.PartRefs) []any {
	args := make([]any, 0, len(model.PartTypes))
	for _, t := range model.PartTypes {
		if id, ok := refs[t]; ok {
			args = append(args, id)
		} else {
			args = append(args, nil)
		}
	}
	return args
}

// Create prices and inserts a build in one transaction, so the total is
// read against the same snapshot of part rows the insert commits with.
func (s *BuildDB) Create(ctx context.Context, ownerID int64, refs model.PartRefs) (*model.Build, error) {
	var created *model.Build

	err := s.db.WithTx(ctx, func(tx *DB) error {
		refVals := refArgs(refs)

		row, err := tx.QueryOne(ctx, totalPriceQuery, refVals...)
		if err != nil {
			return fmt.Errorf("sqldb: pricing build: %w", err)
		}
		total := row.Decimal("total").Round(2)

		cols := []string{"owner_id"}
		args := []any{ownerID}
		for i, t := range model.PartTypes {
			cols = append(cols, t.RefColumn())
			args = append(args, refVals[i])
		}
		cols = append(cols, "total_price")
		args = append(args, total)

		row, err = tx.QueryOne(ctx,
			fmt.Sprintf(`INSERT INTO builds (%s) VALUES (%s) RETURNING id`,
				strings.Join(cols, ", "),
				strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
			),
			args...,
		)
		if err != nil {
			return fmt.Errorf("sqldb: inserting build: %w", err)
		}
		if row == nil {
			return fmt.Errorf("sqldb: inserting build: no id returned")
		}

		created, err = tx.Builds().Get(ctx, ownerID, row.Int64("id"))
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Get returns one build owned by ownerID.
func (s *BuildDB) Get(ctx context.Context, ownerID, id int64) (*model.Build, error) {
	row, err := s.db.QueryOne(ctx, selectBuilds+` WHERE b.id = ? AND b.owner_id = ?`, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqldb: getting build %d: %w", id, err)
	}
	if row == nil {
		return nil, apperror.NotFound("build", id)
	}
	b := scanBuild(row)
	return &b, nil
}

// ListByOwner returns the owner's builds, newest first. A user without
// builds gets an empty slice.
func (s *BuildDB) ListByOwner(ctx context.Context, ownerID int64) ([]model.Build, error) {
	rows, err := s.db.Query(ctx, selectBuilds+` WHERE b.owner_id = ? ORDER BY b.id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing builds for user %d: %w", ownerID, err)
	}

	builds := make([]model.Build, 0, len(rows))
	for _, row := range rows {
		builds = append(builds, scanBuild(row))
	}
	return builds, nil
}

// Delete removes the build when ownerID owns it.
func (s *BuildDB) Delete(ctx context.Context, ownerID, id int64) (bool, error) {
	n, err := s.db.Exec(ctx, `DELETE FROM builds WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("sqldb: deleting build %d: %w", id, err)
	}
	return n > 0, nil
}

// SetPublished flips the published flag. It reports success only when a
// row owned by ownerID was actually matched.
func (s *BuildDB) SetPublished(ctx context.Context, ownerID, id int64, published bool) (bool, error) {
	n, err := s.db.Exec(ctx,
		`UPDATE builds SET published = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND owner_id = ?`,
		published, id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("sqldb: publishing build %d: %w", id, err)
	}
	return n > 0, nil
}
