package sqlgen

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

func (r *Renderer) createTable(t schema.Table) string {
	inlinePK := r.sqliteAutoIncrementKey(t)

	var lines []string
	for _, c := range t.Columns {
		var fk *schema.ForeignKey
		if r.dialect.InlineForeignKeys() {
			fk = t.ForeignKeyFor(c.Name)
		}
		lines = append(lines, r.columnDefinition(c, fk, inlinePK == c.Name))
	}
	if pk := t.PrimaryKeyColumns(); len(pk) > 0 && inlinePK == "" {
		lines = append(lines, fmt.Sprintf("PRIMARY KEY (%s)", r.quoteAll(pk)))
	}
	for _, fk := range t.ForeignKeys {
		if r.dialect.InlineForeignKeys() && len(fk.Columns) == 1 {
			continue
		}
		lines = append(lines, r.foreignKeyClause(fk))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", r.table(t.Name), strings.Join(lines, ",\n  "))
}

// sqliteAutoIncrementKey returns the column that must be declared as
// INTEGER PRIMARY KEY AUTOINCREMENT, or "".
func (r *Renderer) sqliteAutoIncrementKey(t schema.Table) string {
	if r.dialect.Name() != dialect.SQLite {
		return ""
	}
	pk := t.PrimaryKeyColumns()
	if len(pk) != 1 {
		return ""
	}
	if c, ok := t.Column(pk[0]); ok && c.AutoIncrement && c.Type.Family == schema.FamilyInt {
		return c.Name
	}
	return ""
}

func (r *Renderer) dropTables(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	qualified := make([]string, len(names))
	for i, n := range names {
		qualified[i] = r.table(n)
	}

	switch r.dialect.Name() {
	case dialect.Postgres:
		return []string{fmt.Sprintf("DROP TABLE %s CASCADE", strings.Join(qualified, ", "))}
	case dialect.MySQL:
		// Tables referenced by tables that are dropped later in the same
		// migration cannot be dropped with key checks on.
		return []string{
			"SET FOREIGN_KEY_CHECKS=0",
			"DROP TABLE " + strings.Join(qualified, ", "),
			"SET FOREIGN_KEY_CHECKS=1",
		}
	default:
		if len(names) == 1 {
			return []string{"DROP TABLE " + qualified[0]}
		}
		stmts := []string{"PRAGMA foreign_keys=OFF"}
		for _, q := range qualified {
			stmts = append(stmts, "DROP TABLE "+q)
		}
		return append(stmts, "PRAGMA foreign_keys=ON")
	}
}

func (r *Renderer) renameTable(s step.RenameTable) string {
	if r.dialect.Name() == dialect.MySQL {
		return fmt.Sprintf("RENAME TABLE %s TO %s", r.table(s.Name), r.table(s.NewName))
	}
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", r.table(s.Name), r.dialect.Quote(s.NewName))
}

func (r *Renderer) createIndex(s step.CreateIndex) string {
	kind := "INDEX"
	if s.Index.Unique {
		kind = "UNIQUE INDEX"
	}
	columns := r.quoteAll(s.Index.Columns)

	if r.dialect.Name() == dialect.SQLite {
		return fmt.Sprintf("CREATE %s %s ON %s(%s)", kind, r.table(s.Index.Name), r.dialect.Quote(s.Table), columns)
	}
	return fmt.Sprintf("CREATE %s %s ON %s(%s)", kind, r.dialect.Quote(s.Index.Name), r.table(s.Table), columns)
}

func (r *Renderer) dropIndex(s step.DropIndex) string {
	if r.dialect.Name() == dialect.MySQL {
		return fmt.Sprintf("DROP INDEX %s ON %s", r.dialect.Quote(s.Name), r.table(s.Table))
	}
	return "DROP INDEX " + r.table(s.Name)
}
