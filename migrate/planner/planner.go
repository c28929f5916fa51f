// Package planner infers forward and rollback migrations from two schema
// snapshots and applies the per-dialect ordering fix-ups.
package planner

import (
	"fmt"

	"github.com/satishbabariya/lift/internal/debug"
	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/diff"
	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

// Migration is a planned change between two snapshots. Before is what was
// introspected at planning time, After is the calculated target.
type Migration struct {
	Before   schema.Schema `json:"before"`
	After    schema.Schema `json:"after"`
	Steps    step.List     `json:"steps"`
	Rollback step.List     `json:"rollback"`
	// Destructive is set when the plan was replaced by a drop-and-recreate
	// of every table.
	Destructive bool     `json:"destructive,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// IsEmpty reports whether the migration has no forward steps.
func (m *Migration) IsEmpty() bool {
	return len(m.Steps) == 0
}

// Options tune inference.
type Options struct {
	// Renames maps current table names to target table names.
	Renames map[string]string
}

// Planner generates migrations for one dialect and schema.
type Planner struct {
	dialect    dialect.Dialect
	schemaName string
}

// NewPlanner creates a new migration planner
func NewPlanner(d dialect.Dialect, schemaName string) *Planner {
	return &Planner{dialect: d, schemaName: schemaName}
}

// Infer plans the migration from current to target. The rollback list is
// inferred independently with both snapshots swapped. Any lookup failure
// aborts the whole inference.
func (p *Planner) Infer(current, target schema.Schema, opts Options) (*Migration, error) {
	steps, destructive, err := p.infer(current, target, opts.Renames)
	if err != nil {
		return nil, fmt.Errorf("failed to infer migration steps: %w", err)
	}
	rollback, _, err := p.infer(target, current, invert(opts.Renames))
	if err != nil {
		return nil, fmt.Errorf("failed to infer rollback steps: %w", err)
	}

	m := &Migration{
		Before:      current,
		After:       target,
		Steps:       steps,
		Rollback:    rollback,
		Destructive: destructive,
		Warnings:    warnings(steps, destructive),
	}

	debug.Debug("Inferred migration",
		"dialect", p.dialect.Name(),
		"steps", len(m.Steps),
		"rollback_steps", len(m.Rollback),
		"destructive", m.Destructive)

	return m, nil
}

func (p *Planner) infer(from, to schema.Schema, renames map[string]string) (step.List, bool, error) {
	from = p.alignStoredTypes(from, to, renames)
	to = p.alignStoredTypes(to, from, invert(renames))
	d := diff.NewDiffer(from, to, renames).Diff()

	if p.dialect.Name() == dialect.SQLite {
		steps, err := p.fixStupidSqlite(d, from, to, renames)
		return steps, false, err
	}

	steps := delayForeignKeyCreation(d)
	return fixIDColumnTypeChange(from, to, renames, steps)
}

// alignStoredTypes gives introspected columns of live the family of their
// calculated counterpart in other when the database stores both the same
// way. Json and String are both text on SQLite, for instance.
func (p *Planner) alignStoredTypes(live, other schema.Schema, renames map[string]string) schema.Schema {
	out := live.Clone()
	for i := range out.Tables {
		t := &out.Tables[i]
		name := t.Name
		if n, ok := renames[name]; ok {
			name = n
		}
		counterpart, err := other.Table(name)
		if err != nil {
			continue
		}
		for j := range t.Columns {
			c := &t.Columns[j]
			want, ok := counterpart.Column(c.Name)
			if !ok || c.Type.Raw == "" || want.Type.Raw != "" || c.Type.Family == want.Type.Family {
				continue
			}
			if p.dialect.ColumnFamily(p.dialect.RenderType(*want)) == c.Type.Family {
				c.Type.Family = want.Type.Family
			}
		}
	}
	return out
}

func invert(renames map[string]string) map[string]string {
	if renames == nil {
		return nil
	}
	out := make(map[string]string, len(renames))
	for from, to := range renames {
		out[to] = from
	}
	return out
}

// previousName resolves a target table name to its current name.
func previousName(table string, renames map[string]string) string {
	for from, to := range renames {
		if to == table {
			return from
		}
	}
	return table
}

func warnings(steps step.List, destructive bool) []string {
	var out []string
	if destructive {
		out = append(out, "The primary key type of an existing table changes: every table will be dropped and recreated, all data will be lost")
	}
	for _, s := range steps {
		switch s := s.(type) {
		case step.DropTable:
			out = append(out, fmt.Sprintf("Table %q will be dropped together with its data", s.Name))
		case step.AlterTable:
			for _, c := range s.Changes {
				switch c := c.(type) {
				case step.DropColumn:
					out = append(out, fmt.Sprintf("Column %q of table %q will be dropped together with its data", c.Name, s.Table))
				case step.AlterColumn:
					if c.TypeChanged() {
						out = append(out, fmt.Sprintf("Column %q of table %q changes type from %s to %s", c.Name, s.Table, c.Previous.Type.Family, c.Column.Type.Family))
					}
					if c.Previous.Arity != schema.Required && c.Column.Arity == schema.Required {
						out = append(out, fmt.Sprintf("Column %q of table %q becomes required and fails if NULL values exist", c.Name, s.Table))
					}
				}
			}
		}
	}
	return out
}
