package dialect

import (
	"strings"

	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLite creates a new SQLite dialect
func NewSQLite() Dialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() Name { return SQLite }

func (d *SQLiteDialect) Quote(ident string) string {
	return quoteWith(`"`, ident)
}

func (d *SQLiteDialect) QualifiedName(schemaName, name string) string {
	if schemaName == "" {
		return d.Quote(name)
	}
	return d.Quote(schemaName) + "." + d.Quote(name)
}

func (d *SQLiteDialect) RenderType(c schema.Column) string {
	switch c.Type.Family {
	case schema.FamilyBoolean:
		return "boolean"
	case schema.FamilyInt:
		return "integer"
	case schema.FamilyFloat:
		return "Decimal(65,30)"
	case schema.FamilyString, schema.FamilyUUID, schema.FamilyJSON:
		return "text"
	case schema.FamilyDateTime:
		return "DATE"
	case schema.FamilyBinary:
		return "blob"
	}
	if c.Type.Raw != "" {
		return c.Type.Raw
	}
	return "text"
}

func (d *SQLiteDialect) RenderDefault(c schema.Column) (string, bool) {
	return renderDefault(c)
}

// NeedsRebuild is true for everything ALTER TABLE cannot do in place:
// dropping or changing columns and adding NOT NULL columns.
func (d *SQLiteDialect) NeedsRebuild(change step.TableChange) bool {
	switch c := change.(type) {
	case step.AddColumn:
		return c.Column.Arity == schema.Required
	case step.DropColumn, step.AlterColumn:
		return true
	}
	return false
}

func (d *SQLiteDialect) InlineForeignKeys() bool { return true }

// ColumnFamily follows SQLite's type affinity rules, extended with the
// names this package renders.
func (d *SQLiteDialect) ColumnFamily(raw string) schema.Family {
	t := baseType(raw)
	switch {
	case strings.Contains(t, "bool"):
		return schema.FamilyBoolean
	case strings.Contains(t, "int"):
		return schema.FamilyInt
	case strings.Contains(t, "char"), strings.Contains(t, "text"), strings.Contains(t, "clob"):
		return schema.FamilyString
	case strings.Contains(t, "blob"):
		return schema.FamilyBinary
	case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"),
		strings.Contains(t, "decimal"), strings.Contains(t, "numeric"):
		return schema.FamilyFloat
	case strings.Contains(t, "date"), strings.Contains(t, "time"):
		return schema.FamilyDateTime
	case strings.Contains(t, "json"):
		return schema.FamilyJSON
	}
	return schema.FamilyUnsupported
}

func (d *SQLiteDialect) Placeholder(int) string { return "?" }
