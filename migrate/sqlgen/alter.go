package sqlgen

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

func (r *Renderer) alterTable(s step.AlterTable) ([]string, error) {
	if len(s.Changes) == 0 {
		return nil, nil
	}
	if r.dialect.Name() == dialect.SQLite {
		return r.alterTableSQLite(s)
	}

	var parts []string
	for _, change := range s.Changes {
		switch c := change.(type) {
		case step.AddColumn:
			parts = append(parts, "ADD COLUMN "+r.columnDefinition(c.Column, c.ForeignKey, false))
			if c.ForeignKey != nil && !r.dialect.InlineForeignKeys() {
				parts = append(parts, "ADD CONSTRAINT "+r.foreignKeyClause(*c.ForeignKey))
			}
		case step.DropColumn:
			if c.ForeignKey != nil && r.dialect.Name() == dialect.MySQL {
				if name := r.foreignKeyName(s.Table, c.Name, c.ForeignKey); name != "" {
					parts = append(parts, "DROP FOREIGN KEY "+r.dialect.Quote(name))
				}
			}
			parts = append(parts, "DROP COLUMN "+r.dialect.Quote(c.Name))
		case step.AlterColumn:
			if r.dialect.Name() == dialect.MySQL {
				parts = append(parts, r.alterColumnMySQL(s.Table, c)...)
			} else {
				parts = append(parts, r.alterColumnPostgres(s.Table, c)...)
			}
		default:
			return nil, fmt.Errorf("unsupported table change %T", change)
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return []string{fmt.Sprintf("ALTER TABLE %s %s", r.table(s.Table), strings.Join(parts, ",\n  "))}, nil
}

// alterTableSQLite renders one statement per added column. Anything else
// has to go through a table rebuild.
func (r *Renderer) alterTableSQLite(s step.AlterTable) ([]string, error) {
	var stmts []string
	for _, change := range s.Changes {
		if r.dialect.NeedsRebuild(change) {
			column := ""
			switch c := change.(type) {
			case step.AddColumn:
				column = c.Column.Name
			case step.DropColumn:
				column = c.Name
			case step.AlterColumn:
				column = c.Name
			}
			return nil, unsupported(s.Table, column, fmt.Sprintf("%s requires a table rebuild on SQLite", change.Kind()))
		}
		add := change.(step.AddColumn)
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
			r.table(s.Table), r.columnDefinition(add.Column, add.ForeignKey, false)))
	}
	return stmts, nil
}

func (r *Renderer) alterColumnPostgres(table string, c step.AlterColumn) []string {
	var parts []string
	col := r.dialect.Quote(c.Name)

	if c.TypeChanged() {
		plain := c.Column
		plain.AutoIncrement = false
		typ := r.dialect.RenderType(plain)
		parts = append(parts, fmt.Sprintf("ALTER COLUMN %s SET DATA TYPE %s USING %s::%s", col, typ, col, typ))
	}
	if c.Previous.Arity != c.Column.Arity {
		if c.Column.Arity == schema.Required {
			parts = append(parts, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", col))
		} else {
			parts = append(parts, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", col))
		}
	}
	if !c.Column.AutoIncrement && (c.TypeChanged() || c.Previous.Arity != c.Column.Arity) {
		if def, ok := r.dialect.RenderDefault(c.Column); ok {
			parts = append(parts, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", col, def))
		} else {
			parts = append(parts, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", col))
		}
	}
	return append(parts, r.foreignKeyChanges(table, c)...)
}

func (r *Renderer) alterColumnMySQL(table string, c step.AlterColumn) []string {
	parts := r.dropForeignKey(table, c)
	parts = append(parts, "MODIFY COLUMN "+r.columnDefinition(c.Column, nil, false))
	if c.ForeignKey != nil && !c.ForeignKey.SameTarget(c.PreviousForeignKey) {
		parts = append(parts, "ADD CONSTRAINT "+r.foreignKeyClause(*c.ForeignKey))
	}
	return parts
}

func (r *Renderer) foreignKeyChanges(table string, c step.AlterColumn) []string {
	if c.ForeignKey.SameTarget(c.PreviousForeignKey) {
		return nil
	}
	parts := r.dropForeignKey(table, c)
	if c.ForeignKey != nil {
		parts = append(parts, "ADD "+r.foreignKeyClause(*c.ForeignKey))
	}
	return parts
}

func (r *Renderer) dropForeignKey(table string, c step.AlterColumn) []string {
	if c.PreviousForeignKey == nil || c.ForeignKey.SameTarget(c.PreviousForeignKey) {
		return nil
	}
	name := r.foreignKeyName(table, c.Name, c.PreviousForeignKey)
	if name == "" {
		return nil
	}
	if r.dialect.Name() == dialect.MySQL {
		return []string{"DROP FOREIGN KEY " + r.dialect.Quote(name)}
	}
	return []string{"DROP CONSTRAINT " + r.dialect.Quote(name)}
}

// foreignKeyName returns the constraint name of fk, falling back to the
// name Postgres generates for an unnamed single-column key.
func (r *Renderer) foreignKeyName(table, column string, fk *schema.ForeignKey) string {
	if fk.Name != "" {
		return fk.Name
	}
	if r.dialect.Name() == dialect.Postgres {
		return fmt.Sprintf("%s_%s_fkey", table, column)
	}
	return ""
}
