package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/satishbabariya/lift/migrate/database"
	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/schema"
)

// SQLiteIntrospector implements introspection for SQLite
type SQLiteIntrospector struct {
	conn    database.Conn
	dialect dialect.Dialect
}

// Introspect reads every table of the attached database schemaName,
// usually "main".
func (i *SQLiteIntrospector) Introspect(ctx context.Context, schemaName string) (schema.Schema, error) {
	return introspect(ctx, i, schemaName)
}

func (i *SQLiteIntrospector) master(schemaName string) string {
	return i.dialect.QualifiedName(schemaName, "sqlite_master")
}

func (i *SQLiteIntrospector) pragma(schemaName, name, arg string) string {
	return fmt.Sprintf("PRAGMA %s.%s(%s)", i.dialect.Quote(schemaName), name, i.dialect.Quote(arg))
}

func (i *SQLiteIntrospector) tableNames(ctx context.Context, schemaName string) ([]string, error) {
	query := fmt.Sprintf(`SELECT name FROM %s WHERE type = 'table' AND name NOT LIKE 'sqlite_%%' ORDER BY name`, i.master(schemaName))
	return queryStrings(ctx, i.conn, query)
}

func (i *SQLiteIntrospector) readTable(ctx context.Context, schemaName, name string) (schema.Table, error) {
	table := schema.Table{Name: name}

	var ddl string
	query := fmt.Sprintf(`SELECT sql FROM %s WHERE type = 'table' AND name = ?`, i.master(schemaName))
	if err := i.conn.QueryRowContext(ctx, query, name).Scan(&ddl); err != nil {
		return table, fmt.Errorf("failed to read table definition: %w", err)
	}

	type pkColumn struct {
		name     string
		position int
	}
	var pk []pkColumn
	err := queryEach(ctx, i.conn, i.pragma(schemaName, "table_info", name), nil, func(rows *sql.Rows) error {
		var (
			cid, notNull, position int
			col                    schema.Column
			rawType                string
			dflt                   sql.NullString
		)
		if err := rows.Scan(&cid, &col.Name, &rawType, &notNull, &dflt, &position); err != nil {
			return err
		}
		col.Type = schema.ColumnType{Raw: rawType, Family: i.dialect.ColumnFamily(rawType)}
		col.Arity = arity(notNull == 0 && position == 0)
		col.Default = normalizeDefault(dflt)
		if position > 0 {
			pk = append(pk, pkColumn{name: col.Name, position: position})
		}
		table.Columns = append(table.Columns, col)
		return nil
	})
	if err != nil {
		return table, fmt.Errorf("failed to read columns: %w", err)
	}

	if len(pk) > 0 {
		slices.SortFunc(pk, func(a, b pkColumn) int { return a.position - b.position })
		table.PrimaryKey = &schema.PrimaryKey{}
		for _, c := range pk {
			table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, c.name)
		}
		// Only a single INTEGER PRIMARY KEY can be declared AUTOINCREMENT.
		if len(pk) == 1 && strings.Contains(strings.ToUpper(ddl), "AUTOINCREMENT") {
			if col, ok := table.Column(pk[0].name); ok && col.Type.Family == schema.FamilyInt {
				col.AutoIncrement = true
				col.Default = nil
			}
		}
	}

	if table.Indexes, err = i.readIndexes(ctx, schemaName, name); err != nil {
		return table, fmt.Errorf("failed to read indexes: %w", err)
	}
	if table.ForeignKeys, err = i.readForeignKeys(ctx, schemaName, name); err != nil {
		return table, fmt.Errorf("failed to read foreign keys: %w", err)
	}
	return table, nil
}

// readIndexes returns the indexes created with CREATE INDEX. Indexes that
// back PRIMARY KEY or UNIQUE constraints are skipped.
func (i *SQLiteIntrospector) readIndexes(ctx context.Context, schemaName, table string) ([]schema.Index, error) {
	type entry struct {
		name   string
		unique bool
	}
	var entries []entry
	err := queryEach(ctx, i.conn, i.pragma(schemaName, "index_list", table), nil, func(rows *sql.Rows) error {
		var (
			seq, unique, partial int
			name, origin         string
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return err
		}
		if origin == "c" {
			entries = append(entries, entry{name: name, unique: unique == 1})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.name, b.name) })

	var b indexBuilder
	for _, e := range entries {
		err := queryEach(ctx, i.conn, i.pragma(schemaName, "index_info", e.name), nil, func(rows *sql.Rows) error {
			var (
				seqno, cid int
				column     sql.NullString
			)
			if err := rows.Scan(&seqno, &cid, &column); err != nil {
				return err
			}
			if column.Valid {
				b.add(e.name, column.String, e.unique)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return b.build(nil), nil
}

func (i *SQLiteIntrospector) readForeignKeys(ctx context.Context, schemaName, table string) ([]schema.ForeignKey, error) {
	type row struct {
		id, seq                      int
		refTable, from, to, onDelete string
	}
	var rowsOut []row
	err := queryEach(ctx, i.conn, i.pragma(schemaName, "foreign_key_list", table), nil, func(rows *sql.Rows) error {
		var (
			r               row
			to              sql.NullString
			onUpdate, match string
		)
		if err := rows.Scan(&r.id, &r.seq, &r.refTable, &r.from, &to, &onUpdate, &r.onDelete, &match); err != nil {
			return err
		}
		r.to = to.String
		rowsOut = append(rowsOut, r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// foreign_key_list reports the most recently declared key first.
	slices.SortStableFunc(rowsOut, func(a, b row) int {
		if a.id != b.id {
			return b.id - a.id
		}
		return a.seq - b.seq
	})

	var b foreignKeyBuilder
	for _, r := range rowsOut {
		if err := b.add(strconv.Itoa(r.id), "", r.from, r.refTable, r.to, r.onDelete); err != nil {
			return nil, err
		}
	}
	return b.build(), nil
}
