// Package dialect holds the per-database strategy used by the planner and
// the SQL renderer: identifier quoting, type names, default literals and
// which column changes need a table rebuild.
package dialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

// ErrUnsupportedProvider is returned for unknown provider names.
var ErrUnsupportedProvider = errors.New("unsupported database provider")

// Name identifies a dialect.
type Name string

const (
	SQLite   Name = "sqlite"
	Postgres Name = "postgresql"
	MySQL    Name = "mysql"
)

// Dialect provides database specific rendering decisions.
type Dialect interface {
	Name() Name

	// Quote quotes a single identifier.
	Quote(ident string) string

	// QualifiedName quotes name prefixed by schemaName. An empty schema name
	// leaves the identifier unqualified.
	QualifiedName(schemaName, name string) string

	// RenderType returns the DDL type of a column, without nullability.
	RenderType(c schema.Column) string

	// RenderDefault returns the DEFAULT literal for c. It reports false when
	// no default clause must be emitted.
	RenderDefault(c schema.Column) (string, bool)

	// NeedsRebuild reports whether change can only be carried out by
	// recreating the table.
	NeedsRebuild(change step.TableChange) bool

	// InlineForeignKeys reports whether foreign keys are written as a
	// REFERENCES clause on the column itself.
	InlineForeignKeys() bool

	// ColumnFamily maps a type name reported by the database to a family.
	ColumnFamily(raw string) schema.Family

	// Placeholder returns the n-th (1-based) bind parameter marker.
	Placeholder(n int) string
}

// ForName returns the dialect for a provider name.
func ForName(provider string) (Dialect, error) {
	switch strings.ToLower(provider) {
	case "sqlite", "sqlite3", "file":
		return NewSQLite(), nil
	case "postgresql", "postgres":
		return NewPostgres(), nil
	case "mysql":
		return NewMySQL(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}

// renderDefault implements the literal formatting shared by all dialects.
func renderDefault(c schema.Column) (string, bool) {
	if c.Default == nil || c.Arity != schema.Required || c.AutoIncrement {
		return "", false
	}
	value := *c.Default
	switch c.Type.Family {
	case schema.FamilyBoolean:
		switch strings.ToLower(value) {
		case "true", "1", "t":
			return "true", true
		}
		return "false", true
	case schema.FamilyInt, schema.FamilyFloat:
		if isNumeric(value) {
			return value, true
		}
		return quoteString(value), true
	case schema.FamilyDateTime:
		return quoteString(strings.TrimSuffix(value, " UTC")), true
	case schema.FamilyBinary:
		return "", false
	default:
		return quoteString(value), true
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	seenDot := false
	for i, r := range s {
		switch {
		case r == '-' && i == 0:
		case r == '.' && !seenDot:
			seenDot = true
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != "-" && s != "."
}

// baseType strips a length or precision suffix and lowercases a raw type.
func baseType(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(raw, '('); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return raw
}

func quoteWith(q, ident string) string {
	return q + strings.ReplaceAll(ident, q, q+q) + q
}
