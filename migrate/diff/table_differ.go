package diff

import (
	"slices"

	"github.com/satishbabariya/lift/migrate/schema"
	"github.com/satishbabariya/lift/migrate/step"
)

// TableDiffer compares two versions of one table
type TableDiffer struct {
	prevTable *schema.Table
	nextTable *schema.Table
}

// NewTableDiffer creates a new TableDiffer
func NewTableDiffer(prevTable, nextTable *schema.Table) *TableDiffer {
	return &TableDiffer{prevTable: prevTable, nextTable: nextTable}
}

// ColumnChanges returns dropped, added and altered columns, in that order.
func (td *TableDiffer) ColumnChanges() []step.TableChange {
	var changes []step.TableChange

	for _, prev := range td.prevTable.Columns {
		if !td.nextTable.HasColumn(prev.Name) {
			changes = append(changes, step.DropColumn{
				Name:       prev.Name,
				ForeignKey: cloneForeignKey(td.prevTable.ForeignKeyFor(prev.Name)),
			})
		}
	}

	for _, next := range td.nextTable.Columns {
		if !td.prevTable.HasColumn(next.Name) {
			changes = append(changes, step.AddColumn{
				Column:     next.Clone(),
				ForeignKey: cloneForeignKey(td.nextTable.ForeignKeyFor(next.Name)),
			})
		}
	}

	for _, next := range td.nextTable.Columns {
		prev, ok := td.prevTable.Column(next.Name)
		if !ok {
			continue
		}
		pair := MigrationPair[*schema.Column]{Previous: prev, Next: &next}
		prevFK := td.prevTable.ForeignKeyFor(next.Name)
		nextFK := td.nextTable.ForeignKeyFor(next.Name)
		if allColumnChanges(pair, prevFK, nextFK).DiffersInSomething() {
			changes = append(changes, step.AlterColumn{
				Name:               next.Name,
				Column:             next.Clone(),
				ForeignKey:         cloneForeignKey(nextFK),
				Previous:           prev.Clone(),
				PreviousForeignKey: cloneForeignKey(prevFK),
			})
		}
	}

	return changes
}

// IndexChanges returns the indexes to drop and to create. A changed index
// is dropped and created again.
func (td *TableDiffer) IndexChanges() (dropped, created []schema.Index) {
	for _, prev := range td.prevTable.Indexes {
		next, ok := td.nextTable.Index(prev.Name)
		if !ok || !indexesMatch(prev, *next) {
			dropped = append(dropped, prev)
		}
	}
	for _, next := range td.nextTable.Indexes {
		prev, ok := td.prevTable.Index(next.Name)
		if !ok || !indexesMatch(*prev, next) {
			created = append(created, next)
		}
	}
	return dropped, created
}

func indexesMatch(a, b schema.Index) bool {
	return a.Unique == b.Unique && slices.Equal(a.Columns, b.Columns)
}

func cloneForeignKey(fk *schema.ForeignKey) *schema.ForeignKey {
	if fk == nil {
		return nil
	}
	c := fk.Clone()
	return &c
}
