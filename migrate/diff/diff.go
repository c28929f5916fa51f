// Package diff compares two relational schema snapshots and groups the
// differences by kind of change.
package diff

import (
	"github.com/satishbabariya/lift/migrate/step"
)

// Diff is the grouped result of comparing two snapshots. It makes no promise
// about cross-table dependencies; ordering fix-ups belong to the planner.
type Diff struct {
	DropIndexes   []step.DropIndex
	DropTables    []step.DropTable
	RenameTables  []step.RenameTable
	CreateTables  []step.CreateTable
	AlterTables   []step.AlterTable
	CreateIndexes []step.CreateIndex
}

// IsEmpty reports whether the diff contains no change at all.
func (d *Diff) IsEmpty() bool {
	return len(d.DropIndexes) == 0 &&
		len(d.DropTables) == 0 &&
		len(d.RenameTables) == 0 &&
		len(d.CreateTables) == 0 &&
		len(d.AlterTables) == 0 &&
		len(d.CreateIndexes) == 0
}

// IntoSteps flattens the diff into a single step list. Indexes are dropped
// before their tables go away and created once every table exists.
func (d *Diff) IntoSteps() step.List {
	steps := make(step.List, 0, d.len())
	steps = appendSteps(steps, d.DropIndexes)
	steps = appendSteps(steps, d.DropTables)
	steps = appendSteps(steps, d.RenameTables)
	steps = appendSteps(steps, d.CreateTables)
	steps = appendSteps(steps, d.AlterTables)
	steps = appendSteps(steps, d.CreateIndexes)
	return steps
}

func (d *Diff) len() int {
	return len(d.DropIndexes) + len(d.DropTables) + len(d.RenameTables) +
		len(d.CreateTables) + len(d.AlterTables) + len(d.CreateIndexes)
}

func appendSteps[S step.Step](steps step.List, group []S) step.List {
	for _, s := range group {
		steps = append(steps, s)
	}
	return steps
}
