// Package introspect reads the live schema of a database into a
// schema.Schema snapshot.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/satishbabariya/lift/internal/debug"
	"github.com/satishbabariya/lift/migrate/database"
	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/schema"
)

// Introspector reads the tables of one schema namespace.
type Introspector interface {
	Introspect(ctx context.Context, schemaName string) (schema.Schema, error)
}

// New returns the introspector for d running on conn.
func New(conn database.Conn, d dialect.Dialect) (Introspector, error) {
	switch d.Name() {
	case dialect.SQLite:
		return &SQLiteIntrospector{conn: conn, dialect: d}, nil
	case dialect.Postgres:
		return &PostgresIntrospector{conn: conn, dialect: d}, nil
	case dialect.MySQL:
		return &MySQLIntrospector{conn: conn, dialect: d}, nil
	default:
		return nil, fmt.Errorf("%w: %s", dialect.ErrUnsupportedProvider, d.Name())
	}
}

// tableReader reads one table at a time. Every query is drained before the
// next one starts, so a single pinned connection is enough.
type tableReader interface {
	tableNames(ctx context.Context, schemaName string) ([]string, error)
	readTable(ctx context.Context, schemaName, name string) (schema.Table, error)
}

func introspect(ctx context.Context, r tableReader, schemaName string) (schema.Schema, error) {
	names, err := r.tableNames(ctx, schemaName)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("failed to list tables: %w", err)
	}

	s := schema.Schema{Tables: make([]schema.Table, 0, len(names))}
	for _, name := range names {
		t, err := r.readTable(ctx, schemaName, name)
		if err != nil {
			return schema.Schema{}, fmt.Errorf("failed to introspect table %s: %w", name, err)
		}
		s.Tables = append(s.Tables, t)
	}

	debug.Debug("Introspected schema", "schema", schemaName, "tables", len(s.Tables))
	return s, nil
}

// queryEach runs query and calls scan once per row.
func queryEach(ctx context.Context, conn database.Conn, query string, args []any, scan func(*sql.Rows) error) error {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func queryStrings(ctx context.Context, conn database.Conn, query string, args ...any) ([]string, error) {
	var out []string
	err := queryEach(ctx, conn, query, args, func(rows *sql.Rows) error {
		var s string
		if err := rows.Scan(&s); err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// indexBuilder groups per-column rows into indexes, keeping first-seen order.
type indexBuilder struct {
	order   []string
	indexes map[string]*schema.Index
}

func (b *indexBuilder) add(name, column string, unique bool) {
	if b.indexes == nil {
		b.indexes = make(map[string]*schema.Index)
	}
	idx, ok := b.indexes[name]
	if !ok {
		idx = &schema.Index{Name: name, Unique: unique}
		b.indexes[name] = idx
		b.order = append(b.order, name)
	}
	idx.Columns = append(idx.Columns, column)
}

func (b *indexBuilder) build(skip func(schema.Index) bool) []schema.Index {
	var out []schema.Index
	for _, name := range b.order {
		if idx := *b.indexes[name]; skip == nil || !skip(idx) {
			out = append(out, idx)
		}
	}
	return out
}

// foreignKeyBuilder groups per-column rows into foreign keys by id.
type foreignKeyBuilder struct {
	order []string
	keys  map[string]*schema.ForeignKey
}

func (b *foreignKeyBuilder) add(id, name, column, refTable, refColumn, onDelete string) error {
	if b.keys == nil {
		b.keys = make(map[string]*schema.ForeignKey)
	}
	fk, ok := b.keys[id]
	if !ok {
		action, valid := schema.ParseOnDelete(strings.ToUpper(onDelete))
		if !valid {
			action, valid = schema.ParseOnDelete(onDelete)
		}
		if !valid {
			return fmt.Errorf("unknown referential action %q on %s", onDelete, name)
		}
		fk = &schema.ForeignKey{Name: name, ReferencedTable: refTable, OnDelete: action}
		b.keys[id] = fk
		b.order = append(b.order, id)
	}
	fk.Columns = append(fk.Columns, column)
	fk.ReferencedColumns = append(fk.ReferencedColumns, refColumn)
	return nil
}

func (b *foreignKeyBuilder) build() []schema.ForeignKey {
	var out []schema.ForeignKey
	for _, id := range b.order {
		out = append(out, *b.keys[id])
	}
	return out
}

func arity(nullable bool) schema.Arity {
	if nullable {
		return schema.Nullable
	}
	return schema.Required
}

// normalizeDefault turns a default expression as stored by the database
// into the bare literal the calculator produces: quotes and type casts
// are removed, escaped quotes are unescaped.
func normalizeDefault(expr sql.NullString) *string {
	if !expr.Valid {
		return nil
	}
	v := strings.TrimSpace(expr.String)
	for len(v) >= 2 && v[0] == '(' && v[len(v)-1] == ')' {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	if v == "" || strings.EqualFold(v, "NULL") {
		return nil
	}

	if v[0] == '\'' {
		var b strings.Builder
		for i := 1; i < len(v); i++ {
			if v[i] == '\'' {
				if i+1 < len(v) && v[i+1] == '\'' {
					b.WriteByte('\'')
					i++
					continue
				}
				break
			}
			b.WriteByte(v[i])
		}
		s := b.String()
		return &s
	}

	if i := strings.Index(v, "::"); i > 0 {
		v = strings.TrimSpace(v[:i])
	}
	return &v
}
