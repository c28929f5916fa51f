package dialect

import (
	"strings"

	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQL creates a new MySQL dialect
func NewMySQL() Dialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) Name() Name { return MySQL }

func (d *MySQLDialect) Quote(ident string) string {
	return quoteWith("`", ident)
}

func (d *MySQLDialect) QualifiedName(schemaName, name string) string {
	if schemaName == "" {
		return d.Quote(name)
	}
	return d.Quote(schemaName) + "." + d.Quote(name)
}

func (d *MySQLDialect) RenderType(c schema.Column) string {
	switch c.Type.Family {
	case schema.FamilyBoolean:
		return "boolean"
	case schema.FamilyInt:
		return "int"
	case schema.FamilyFloat:
		return "Decimal(65,30)"
	case schema.FamilyString:
		return "varchar(1000)"
	case schema.FamilyDateTime:
		return "datetime(3)"
	case schema.FamilyBinary:
		return "longblob"
	case schema.FamilyJSON:
		return "json"
	case schema.FamilyUUID:
		return "char(36)"
	}
	if c.Type.Raw != "" {
		return c.Type.Raw
	}
	return "varchar(1000)"
}

// RenderDefault skips JSON columns, which MySQL does not allow literal
// defaults on.
func (d *MySQLDialect) RenderDefault(c schema.Column) (string, bool) {
	if c.Type.Family == schema.FamilyJSON {
		return "", false
	}
	return renderDefault(c)
}

func (d *MySQLDialect) NeedsRebuild(step.TableChange) bool { return false }

func (d *MySQLDialect) InlineForeignKeys() bool { return false }

func (d *MySQLDialect) ColumnFamily(raw string) schema.Family {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "tinyint(1)") {
		return schema.FamilyBoolean
	}
	switch baseType(raw) {
	case "int", "integer", "bigint", "smallint", "mediumint", "tinyint",
		"int unsigned", "bigint unsigned":
		return schema.FamilyInt
	case "decimal", "numeric", "float", "double", "real":
		return schema.FamilyFloat
	case "bool", "boolean":
		return schema.FamilyBoolean
	case "varchar", "char", "text", "tinytext", "mediumtext", "longtext", "enum", "set":
		return schema.FamilyString
	case "datetime", "timestamp", "date", "time", "year":
		return schema.FamilyDateTime
	case "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary":
		return schema.FamilyBinary
	case "json":
		return schema.FamilyJSON
	case "geometry", "point", "linestring", "polygon", "multipoint", "multilinestring", "multipolygon":
		return schema.FamilyGeometric
	}
	return schema.FamilyUnsupported
}

func (d *MySQLDialect) Placeholder(int) string { return "?" }
