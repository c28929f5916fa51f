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

// PostgresIntrospector implements introspection for PostgreSQL
type PostgresIntrospector struct {
	conn    database.Conn
	dialect dialect.Dialect
}

// Introspect reads the base tables of the Postgres schema schemaName.
func (i *PostgresIntrospector) Introspect(ctx context.Context, schemaName string) (schema.Schema, error) {
	return introspect(ctx, i, schemaName)
}

func (i *PostgresIntrospector) tableNames(ctx context.Context, schemaName string) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	return queryStrings(ctx, i.conn, query, schemaName)
}

func (i *PostgresIntrospector) readTable(ctx context.Context, schemaName, name string) (schema.Table, error) {
	table := schema.Table{Name: name}
	var err error

	if table.Columns, err = i.readColumns(ctx, schemaName, name); err != nil {
		return table, fmt.Errorf("failed to read columns: %w", err)
	}

	pk, err := i.readPrimaryKey(ctx, schemaName, name)
	if err != nil {
		return table, fmt.Errorf("failed to read primary key: %w", err)
	}
	if len(pk) > 0 {
		table.PrimaryKey = &schema.PrimaryKey{Columns: pk}
	}

	if table.Indexes, err = i.readIndexes(ctx, schemaName, name); err != nil {
		return table, fmt.Errorf("failed to read indexes: %w", err)
	}
	if table.ForeignKeys, err = i.readForeignKeys(ctx, schemaName, name); err != nil {
		return table, fmt.Errorf("failed to read foreign keys: %w", err)
	}
	return table, nil
}

func (i *PostgresIntrospector) readColumns(ctx context.Context, schemaName, table string) ([]schema.Column, error) {
	query := `
		SELECT column_name, data_type, udt_name, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		ORDER BY ordinal_position
	`
	var columns []schema.Column
	err := queryEach(ctx, i.conn, query, []any{schemaName, table}, func(rows *sql.Rows) error {
		var (
			col                         schema.Column
			dataType, udtName, nullable string
			dflt                        sql.NullString
		)
		if err := rows.Scan(&col.Name, &dataType, &udtName, &nullable, &dflt); err != nil {
			return err
		}

		raw := dataType
		if dataType == "USER-DEFINED" || dataType == "ARRAY" {
			raw = udtName
		}
		col.Type = schema.ColumnType{Raw: raw, Family: i.dialect.ColumnFamily(raw)}
		col.Arity = arity(nullable == "YES")

		if dflt.Valid && strings.HasPrefix(strings.ToLower(dflt.String), "nextval(") {
			col.AutoIncrement = true
		} else {
			col.Default = normalizeDefault(dflt)
		}

		columns = append(columns, col)
		return nil
	})
	return columns, err
}

func (i *PostgresIntrospector) readPrimaryKey(ctx context.Context, schemaName, table string) ([]string, error) {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`
	return queryStrings(ctx, i.conn, query, schemaName, table)
}

// readIndexes returns every index except the primary key, one row per
// indexed column in key order.
func (i *PostgresIntrospector) readIndexes(ctx context.Context, schemaName, table string) ([]schema.Index, error) {
	query := `
		SELECT i.relname, a.attname, ix.indisunique
		FROM pg_class t
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_index ix ON ix.indrelid = t.oid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN generate_subscripts(ix.indkey, 1) AS k(position) ON true
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ix.indkey[k.position]
		WHERE n.nspname = $1
		  AND t.relname = $2
		  AND NOT ix.indisprimary
		ORDER BY i.relname, k.position
	`
	var b indexBuilder
	err := queryEach(ctx, i.conn, query, []any{schemaName, table}, func(rows *sql.Rows) error {
		var (
			name, column string
			unique       bool
		)
		if err := rows.Scan(&name, &column, &unique); err != nil {
			return err
		}
		b.add(name, column, unique)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b.build(nil), nil
}

func (i *PostgresIntrospector) readForeignKeys(ctx context.Context, schemaName, table string) ([]schema.ForeignKey, error) {
	query := `
		SELECT con.conname, att.attname, ref.relname, ref_att.attname, con.confdeltype
		FROM pg_constraint con
		JOIN pg_class cl ON cl.oid = con.conrelid
		JOIN pg_namespace ns ON ns.oid = cl.relnamespace
		JOIN pg_class ref ON ref.oid = con.confrelid
		JOIN generate_subscripts(con.conkey, 1) AS k(position) ON true
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = con.conkey[k.position]
		JOIN pg_attribute ref_att ON ref_att.attrelid = con.confrelid AND ref_att.attnum = con.confkey[k.position]
		WHERE con.contype = 'f'
		  AND ns.nspname = $1
		  AND cl.relname = $2
		ORDER BY con.conname, k.position
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
