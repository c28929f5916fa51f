package dialect

import (
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

// NewPostgres creates a new PostgreSQL dialect
func NewPostgres() Dialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) Name() Name { return Postgres }

func (d *PostgresDialect) Quote(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

func (d *PostgresDialect) QualifiedName(schemaName, name string) string {
	if schemaName == "" {
		return d.Quote(name)
	}
	return pgx.Identifier{schemaName, name}.Sanitize()
}

func (d *PostgresDialect) RenderType(c schema.Column) string {
	switch c.Type.Family {
	case schema.FamilyBoolean:
		return "boolean"
	case schema.FamilyInt:
		if c.AutoIncrement {
			return "SERIAL"
		}
		return "integer"
	case schema.FamilyFloat:
		return "Decimal(65,30)"
	case schema.FamilyString:
		return "text"
	case schema.FamilyDateTime:
		return "timestamp(3)"
	case schema.FamilyBinary:
		return "bytea"
	case schema.FamilyJSON:
		return "jsonb"
	case schema.FamilyUUID:
		return "uuid"
	}
	if c.Type.Raw != "" {
		return c.Type.Raw
	}
	return "text"
}

func (d *PostgresDialect) RenderDefault(c schema.Column) (string, bool) {
	return renderDefault(c)
}

func (d *PostgresDialect) NeedsRebuild(step.TableChange) bool { return false }

func (d *PostgresDialect) InlineForeignKeys() bool { return true }

func (d *PostgresDialect) ColumnFamily(raw string) schema.Family {
	switch baseType(raw) {
	case "integer", "int", "int2", "int4", "int8", "smallint", "bigint", "serial", "bigserial", "smallserial":
		return schema.FamilyInt
	case "numeric", "decimal", "real", "double precision", "float4", "float8", "money":
		return schema.FamilyFloat
	case "boolean", "bool":
		return schema.FamilyBoolean
	case "text", "character varying", "varchar", "character", "char", "bpchar", "citext", "name":
		return schema.FamilyString
	case "timestamp", "timestamp without time zone", "timestamp with time zone", "timestamptz",
		"date", "time", "time without time zone", "time with time zone", "timetz":
		return schema.FamilyDateTime
	case "bytea":
		return schema.FamilyBinary
	case "json", "jsonb":
		return schema.FamilyJSON
	case "uuid":
		return schema.FamilyUUID
	case "point", "line", "lseg", "box", "path", "polygon", "circle":
		return schema.FamilyGeometric
	}
	return schema.FamilyUnsupported
}

func (d *PostgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
