package planner

import (
	"fmt"
	"slices"
	"strings"

	"github.com/satishbabariya/lift/internal/debug"
	"github.com/satishbabariya/lift/migrate/diff"
	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

// delayForeignKeyCreation moves foreign key columns that reference a table
// created in the same diff out of their CREATE TABLE and into a later
// AlterTable, so both ends exist before any cross reference is added.
// Primary key columns and join tables keep their keys inline. Introspected
// join tables carry no Join mark, but their key columns are the primary key.
func delayForeignKeyCreation(d diff.Diff) step.List {
	created := make(map[string]bool, len(d.CreateTables))
	for _, ct := range d.CreateTables {
		created[ct.Table.Name] = true
	}

	creates := make([]step.CreateTable, 0, len(d.CreateTables))
	var delayed []step.AlterTable
	for _, ct := range d.CreateTables {
		table := ct.Table
		if table.Join {
			creates = append(creates, ct)
			continue
		}

		var later []step.TableChange
		kept := table.Clone()
		kept.Columns = kept.Columns[:0]
		kept.ForeignKeys = kept.ForeignKeys[:0]
		for _, col := range table.Columns {
			fk := table.ForeignKeyFor(col.Name)
			if fk != nil && created[fk.ReferencedTable] && !table.IsPrimaryKeyColumn(col.Name) {
				c := fk.Clone()
				later = append(later, step.AddColumn{Column: col.Clone(), ForeignKey: &c})
				continue
			}
			kept.Columns = append(kept.Columns, col.Clone())
		}
		for _, fk := range table.ForeignKeys {
			if len(fk.Columns) == 1 && !kept.HasColumn(fk.Columns[0]) {
				continue
			}
			kept.ForeignKeys = append(kept.ForeignKeys, fk.Clone())
		}

		creates = append(creates, step.CreateTable{Table: kept})
		if len(later) > 0 {
			debug.Debug("Delaying foreign key columns", "table", table.Name, "columns", len(later))
			delayed = append(delayed, step.AlterTable{Table: table.Name, Changes: later})
		}
	}

	d.CreateTables = creates
	d.AlterTables = append(slices.Clone(d.AlterTables), delayed...)
	return d.IntoSteps()
}

// fixIDColumnTypeChange discards the incremental plan when a column of a
// current primary key changes its type family. The replacement drops every
// table but the history table and recreates the target from scratch.
func fixIDColumnTypeChange(from, to schema.Schema, renames map[string]string, steps step.List) (step.List, bool, error) {
	if !changesPrimaryKeyType(from, renames, steps) {
		return steps, false, nil
	}

	var names []string
	for _, t := range from.Tables {
		if t.Name != schema.MigrationTable {
			names = append(names, t.Name)
		}
	}
	debug.Warn("Primary key type change detected, recreating all tables", "tables", len(names))

	radical := step.List{step.DropTables{Names: names}}
	radical = append(radical, delayForeignKeyCreation(diff.Compute(schema.Empty(), to))...)
	return radical, true, nil
}

func changesPrimaryKeyType(from schema.Schema, renames map[string]string, steps step.List) bool {
	for _, s := range steps {
		alter, ok := s.(step.AlterTable)
		if !ok {
			continue
		}
		current, err := from.Table(previousName(alter.Table, renames))
		if err != nil {
			continue
		}
		for _, change := range alter.Changes {
			ac, ok := change.(step.AlterColumn)
			if !ok || !current.IsPrimaryKeyColumn(ac.Name) {
				continue
			}
			if col, ok := current.Column(ac.Name); ok && col.Type.Family != ac.Column.Type.Family {
				return true
			}
		}
	}
	return false
}

// fixStupidSqlite replaces every AlterTable SQLite cannot run in place with
// a table rebuild: create new_<table> in the target shape, copy the shared
// columns, drop the original, rename the copy into place and recreate its
// indexes, with foreign key enforcement off for the duration.
func (p *Planner) fixStupidSqlite(d diff.Diff, from, to schema.Schema, renames map[string]string) (step.List, error) {
	var result step.List
	rebuilt := make(map[string]bool)

	for _, s := range d.IntoSteps() {
		switch s := s.(type) {
		case step.AlterTable:
			if !p.needsRebuild(s) {
				result = append(result, s)
				continue
			}
			current, err := from.Table(previousName(s.Table, renames))
			if err != nil {
				return nil, err
			}
			next, err := to.Table(s.Table)
			if err != nil {
				return nil, err
			}
			// A renamed table already carries its new name when the rebuild
			// runs, as RenameTable steps come first.
			source := current.Clone()
			source.Name = next.Name
			debug.Debug("Rebuilding table", "table", next.Name, "previous", current.Name)
			result = append(result, p.rebuild(&source, next)...)
			rebuilt[next.Name] = true
		case step.CreateIndex:
			if !rebuilt[s.Table] {
				result = append(result, s)
			}
		default:
			result = append(result, s)
		}
	}
	return result, nil
}

func (p *Planner) needsRebuild(alter step.AlterTable) bool {
	for _, change := range alter.Changes {
		if p.dialect.NeedsRebuild(change) {
			return true
		}
	}
	return false
}

func (p *Planner) rebuild(current, next *schema.Table) step.List {
	temporary := next.Clone()
	temporary.Name = "new_" + next.Name
	temporary.Indexes = nil

	steps := step.List{
		step.RawSQL{SQL: "PRAGMA foreign_keys=OFF;"},
		step.CreateTable{Table: temporary},
	}

	var shared []string
	for _, name := range next.ColumnNames() {
		if current.HasColumn(name) {
			shared = append(shared, p.dialect.Quote(name))
		}
	}
	if len(shared) > 0 {
		columns := strings.Join(shared, ", ")
		steps = append(steps, step.RawSQL{SQL: fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			p.dialect.QualifiedName(p.schemaName, temporary.Name), columns, columns,
			p.dialect.QualifiedName(p.schemaName, current.Name))})
	}

	steps = append(steps,
		step.DropTable{Name: current.Name},
		step.RenameTable{Name: temporary.Name, NewName: next.Name},
	)
	for _, idx := range next.Indexes {
		steps = append(steps, step.CreateIndex{Table: next.Name, Index: idx})
	}
	return append(steps,
		step.RawSQL{SQL: fmt.Sprintf("PRAGMA %s.foreign_key_check;", p.dialect.Quote(p.schemaName))},
		step.RawSQL{SQL: "PRAGMA foreign_keys=ON;"},
	)
}
