package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one result row keyed by column name. Values are normalized at scan
// time: []byte becomes string, everything else is kept as the driver
// returned it. Use the typed getters to read columns whose driver type
// differs between SQLite and Postgres (numerics, booleans, timestamps).
type Row map[string]any

// Query runs a statement and returns every row.
//
// rows.Close is deferred immediately, so the pooled connection goes back
// to the pool on every exit path including scan errors.
func (db *DB) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := db.q.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqldb: reading columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqldb: scanning row: %w", err)
		}

		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = vals[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: iterating rows: %w", err)
	}

	return out, nil
}

// QueryOne returns the first row, or nil when the statement produced none.
func (db *DB) QueryOne(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Exec runs a statement and returns the number of rows it affected. Callers
// use the count to decide ownership-qualified success.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := db.q.ExecContext(ctx, db.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("sqldb: exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqldb: rows affected: %w", err)
	}
	return n, nil
}

// WithTx runs fn inside a transaction. fn receives a DB bound to the
// transaction; it must use that value and not the outer one. The
// transaction commits when fn returns nil and rolls back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *DB) error) error {
	if _, nested := db.q.(*sql.Tx); nested {
		return fn(db)
	}

	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqldb: begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&DB{conn: db.conn, q: sqlTx, dialect: db.dialect}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("sqldb: commit tx: %w", err)
	}
	committed = true
	return nil
}

// rebind rewrites "?" placeholders to "$n" for Postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != Postgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inString := false
	for _, r := range query {
		switch {
		case r == '\'':
			inString = !inString
			b.WriteRune(r)
		case r == '?' && !inString:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Int64 returns the column as int64, 0 for NULL.
func (r Row) Int64(col string) int64 {
	if p := r.NullInt64(col); p != nil {
		return *p
	}
	return 0
}

// NullInt64 returns nil for NULL.
func (r Row) NullInt64(col string) *int64 {
	var n int64
	switch v := r[col].(type) {
	case nil:
		return nil
	case int64:
		n = v
	case int32:
		n = int64(v)
	case int:
		n = int64(v)
	case float64:
		n = int64(v)
	case bool:
		if v {
			n = 1
		}
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

// String returns the column as a string, "" for NULL.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// IsNull reports whether the column is NULL or missing.
func (r Row) IsNull(col string) bool {
	return r[col] == nil
}

// Decimal returns the column as a decimal, zero for NULL. SQLite hands back
// NUMERIC columns as int64 or float64, Postgres as text. A non-finite float
// (an overflowed SUM, or a value written outside the column's range) also
// reads as zero.
func (r Row) Decimal(col string) decimal.Decimal {
	switch v := r[col].(type) {
	case int64:
		return decimal.NewFromInt(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(v)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// Bool reads BOOLEAN columns, which SQLite stores as 0/1.
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false
		}
		return b
	default:
		return false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Time reads timestamp columns. SQLite's CURRENT_TIMESTAMP is UTC text.
func (r Row) Time(col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
