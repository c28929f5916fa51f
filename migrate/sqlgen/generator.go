// Package sqlgen renders migration steps into literal SQL statements for a
// dialect and schema.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/errs"
	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

// Renderer turns migration steps into SQL. It is a pure function of the
// step, the dialect and the schema name.
type Renderer struct {
	dialect    dialect.Dialect
	schemaName string
}

// NewRenderer creates a renderer for the given dialect and schema
func NewRenderer(d dialect.Dialect, schemaName string) *Renderer {
	return &Renderer{dialect: d, schemaName: schemaName}
}

// Render returns the statements implementing s, in execution order.
func (r *Renderer) Render(s step.Step) ([]string, error) {
	switch s := s.(type) {
	case step.CreateTable:
		return []string{r.createTable(s.Table)}, nil
	case step.DropTable:
		return r.dropTables([]string{s.Name}), nil
	case step.DropTables:
		return r.dropTables(s.Names), nil
	case step.RenameTable:
		return []string{r.renameTable(s)}, nil
	case step.AlterTable:
		return r.alterTable(s)
	case step.CreateIndex:
		return []string{r.createIndex(s)}, nil
	case step.DropIndex:
		return []string{r.dropIndex(s)}, nil
	case step.RawSQL:
		return []string{s.SQL}, nil
	default:
		return nil, fmt.Errorf("unsupported migration step %T", s)
	}
}

// RenderAll renders every step and concatenates the statements.
func (r *Renderer) RenderAll(steps step.List) ([]string, error) {
	var out []string
	for _, s := range steps {
		stmts, err := r.Render(s)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	return out, nil
}

func (r *Renderer) table(name string) string {
	return r.dialect.QualifiedName(r.schemaName, name)
}

func (r *Renderer) quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = r.dialect.Quote(n)
	}
	return strings.Join(quoted, ", ")
}

// referencedTable returns the table name used in a REFERENCES clause.
// SQLite only accepts unqualified names there.
func (r *Renderer) referencedTable(name string) string {
	if r.dialect.Name() == dialect.SQLite {
		return r.dialect.Quote(name)
	}
	return r.table(name)
}

func (r *Renderer) references(fk schema.ForeignKey) string {
	return fmt.Sprintf("REFERENCES %s(%s) ON DELETE %s",
		r.referencedTable(fk.ReferencedTable), r.quoteAll(fk.ReferencedColumns), fk.OnDelete.SQL())
}

func (r *Renderer) foreignKeyClause(fk schema.ForeignKey) string {
	return fmt.Sprintf("FOREIGN KEY (%s) %s", r.quoteAll(fk.Columns), r.references(fk))
}

// columnDefinition renders name, type, nullability, default and, for
// dialects that inline them, the foreign key of a column.
func (r *Renderer) columnDefinition(c schema.Column, fk *schema.ForeignKey, inlinePrimaryKey bool) string {
	var b strings.Builder
	b.WriteString(r.dialect.Quote(c.Name))
	b.WriteByte(' ')
	b.WriteString(r.dialect.RenderType(c))
	if inlinePrimaryKey {
		b.WriteString(" PRIMARY KEY AUTOINCREMENT")
	}
	if c.Arity == schema.Required {
		b.WriteString(" NOT NULL")
	}
	if def, ok := r.dialect.RenderDefault(c); ok {
		b.WriteString(" DEFAULT ")
		b.WriteString(def)
	}
	if c.AutoIncrement && r.dialect.Name() == dialect.MySQL {
		b.WriteString(" AUTO_INCREMENT")
	}
	if fk != nil && r.dialect.InlineForeignKeys() {
		b.WriteByte(' ')
		b.WriteString(r.references(*fk))
	}
	return b.String()
}

func unsupported(table, column, reason string) error {
	return &errs.UnsupportedChangeError{Table: table, Column: column, Reason: reason}
}
