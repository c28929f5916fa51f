package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/satishbabariya/lift/migrate/database"
	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/schema"
)

// MySQLIntrospector implements introspection for MySQL
type MySQLIntrospector struct {
	conn    database.Conn
	dialect dialect.Dialect
}

// Introspect reads the base tables of the MySQL database schemaName.
func (i *MySQLIntrospector) Introspect(ctx context.Context, schemaName string) (schema.Schema, error) {
	if schemaName == "" {
		if err := i.conn.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&schemaName); err != nil {
			return schema.Schema{}, fmt.Errorf("failed to get database name: %w", err)
		}
	}
	return introspect(ctx, i, schemaName)
}

func (i *MySQLIntrospector) tableNames(ctx context.Context, schemaName string) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	return queryStrings(ctx, i.conn, query, schemaName)
}

func (i *MySQLIntrospector) readTable(ctx context.Context, schemaName, name string) (schema.Table, error) {
	table := schema.Table{Name: name}
	var err error

	if table.Columns, err = i.readColumns(ctx, schemaName, name); err != nil {
		return table, fmt.Errorf("failed to read columns: %w", err)
	}
	if table.ForeignKeys, err = i.readForeignKeys(ctx, schemaName, name); err != nil {
		return table, fmt.Errorf("failed to read foreign keys: %w", err)
	}

	var b indexBuilder
	err = queryEach(ctx, i.conn, `
		SELECT index_name, column_name, non_unique
		FROM information_schema.statistics
		WHERE table_schema = ?
		  AND table_name = ?
		ORDER BY index_name, seq_in_index
	`, []any{schemaName, name}, func(rows *sql.Rows) error {
		var (
			index, column string
			nonUnique     int
		)
		if err := rows.Scan(&index, &column, &nonUnique); err != nil {
			return err
		}
		b.add(index, column, nonUnique == 0)
		return nil
	})
	if err != nil {
		return table, fmt.Errorf("failed to read indexes: %w", err)
	}

	if pk, ok := b.indexes["PRIMARY"]; ok {
		table.PrimaryKey = &schema.PrimaryKey{Columns: pk.Columns}
	}
	// InnoDB creates an index named after every foreign key that has none.
	table.Indexes = b.build(func(idx schema.Index) bool {
		if idx.Name == "PRIMARY" {
			return true
		}
		for _, fk := range table.ForeignKeys {
			if fk.Name == idx.Name {
				return true
			}
		}
		return false
	})
	return table, nil
}

func (i *MySQLIntrospector) readColumns(ctx context.Context, schemaName, table string) ([]schema.Column, error) {
	query := `
		SELECT column_name, column_type, is_nullable, column_default, extra
		FROM information_schema.columns
		WHERE table_schema = ?
		  AND table_name = ?
		ORDER BY ordinal_position
	`
	var columns []schema.Column
	err := queryEach(ctx, i.conn, query, []any{schemaName, table}, func(rows *sql.Rows) error {
		var (
			col                  schema.Column
			columnType, nullable string
			dflt, extra          sql.NullString
		)
		if err := rows.Scan(&col.Name, &columnType, &nullable, &dflt, &extra); err != nil {
			return err
		}
		col.Type = schema.ColumnType{Raw: columnType, Family: i.dialect.ColumnFamily(columnType)}
		col.Arity = arity(nullable == "YES")
		col.AutoIncrement = strings.Contains(strings.ToLower(extra.String), "auto_increment")
		if !col.AutoIncrement {
			col.Default = normalizeDefault(dflt)
		}
		columns = append(columns, col)
		return nil
	})
	return columns, err
}

func (i *MySQLIntrospector) readForeignKeys(ctx context.Context, schemaName, table string) ([]schema.ForeignKey, error) {
	query := `
		SELECT kcu.constraint_name, kcu.column_name, kcu.referenced_table_name, kcu.referenced_column_name, rc.delete_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = kcu.constraint_schema
			AND rc.constraint_name = kcu.constraint_name
			AND rc.table_name = kcu.table_name
		WHERE kcu.table_schema = ?
		  AND kcu.table_name = ?
		  AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position
	`
	var b foreignKeyBuilder
	err := queryEach(ctx, i.conn, query, []any{schemaName, table}, func(rows *sql.Rows) error {
		var name, column, refTable, refColumn, action string
		if err := rows.Scan(&name, &column, &refTable, &refColumn, &action); err != nil {
			return err
		}
		return b.add(name, name, column, refTable, refColumn, action)
	})
	if err != nil {
		return nil, err
	}
	return b.build(), nil
}
