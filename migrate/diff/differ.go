package diff

import (
	"github.com/satishbabariya/lift/internal/debug"
	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

// MigrationPair holds the previous and next version of a schema element.
type MigrationPair[T any] struct {
	Previous T
	Next     T
}

// Differ compares two schema snapshots.
type Differ struct {
	previous schema.Schema
	next     schema.Schema
	// renames maps previous table names to next table names.
	renames map[string]string
}

// NewDiffer creates a differ. renames maps previous table names to their
// new names; it may be nil.
func NewDiffer(previous, next schema.Schema, renames map[string]string) *Differ {
	return &Differ{previous: previous, next: next, renames: renames}
}

// Compute compares previous and next without any table renames.
func Compute(previous, next schema.Schema) Diff {
	return NewDiffer(previous, next, nil).Diff()
}

// Diff computes the grouped changes turning the previous snapshot into the
// next one. The migration history table is never touched.
func (d *Differ) Diff() Diff {
	var result Diff
	pairs := d.tablePairs()
	renamedFrom := make(map[string]bool, len(pairs))
	pairedNext := make(map[string]bool, len(pairs))

	for _, pair := range pairs {
		renamedFrom[pair.Previous.Name] = true
		pairedNext[pair.Next.Name] = true
		if pair.Previous.Name != pair.Next.Name {
			result.RenameTables = append(result.RenameTables, step.RenameTable{
				Name:    pair.Previous.Name,
				NewName: pair.Next.Name,
			})
		}
	}

	for _, prev := range d.previous.Tables {
		if ignored(prev.Name) || renamedFrom[prev.Name] {
			continue
		}
		result.DropTables = append(result.DropTables, step.DropTable{Name: prev.Name})
	}

	for _, next := range d.next.Tables {
		if ignored(next.Name) || pairedNext[next.Name] {
			continue
		}
		result.CreateTables = append(result.CreateTables, step.CreateTable{Table: next.Clone()})
		for _, idx := range next.Indexes {
			result.CreateIndexes = append(result.CreateIndexes, step.CreateIndex{Table: next.Name, Index: idx})
		}
	}

	for _, pair := range pairs {
		td := NewTableDiffer(pair.Previous, pair.Next)
		if changes := td.ColumnChanges(); len(changes) > 0 {
			result.AlterTables = append(result.AlterTables, step.AlterTable{Table: pair.Next.Name, Changes: changes})
		}
		dropped, created := td.IndexChanges()
		for _, idx := range dropped {
			result.DropIndexes = append(result.DropIndexes, step.DropIndex{Table: pair.Previous.Name, Name: idx.Name})
		}
		for _, idx := range created {
			result.CreateIndexes = append(result.CreateIndexes, step.CreateIndex{Table: pair.Next.Name, Index: idx})
		}
	}

	debug.Debug("Computed schema diff",
		"create_tables", len(result.CreateTables),
		"drop_tables", len(result.DropTables),
		"rename_tables", len(result.RenameTables),
		"alter_tables", len(result.AlterTables),
		"create_indexes", len(result.CreateIndexes),
		"drop_indexes", len(result.DropIndexes))

	return result
}

// tablePairs matches previous and next tables, by rename hint first and by
// name otherwise, in next schema order.
func (d *Differ) tablePairs() []MigrationPair[*schema.Table] {
	nextToPrevious := make(map[string]string, len(d.renames))
	for from, to := range d.renames {
		if d.previous.HasTable(from) && d.next.HasTable(to) && !d.next.HasTable(from) && !d.previous.HasTable(to) {
			nextToPrevious[to] = from
		}
	}

	var pairs []MigrationPair[*schema.Table]
	for i := range d.next.Tables {
		next := &d.next.Tables[i]
		if ignored(next.Name) {
			continue
		}
		name := next.Name
		if from, ok := nextToPrevious[name]; ok {
			name = from
		}
		prev, err := d.previous.Table(name)
		if err != nil {
			continue
		}
		pairs = append(pairs, MigrationPair[*schema.Table]{Previous: prev, Next: next})
	}
	return pairs
}

func ignored(table string) bool {
	return table == schema.MigrationTable
}
