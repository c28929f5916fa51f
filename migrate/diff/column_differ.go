package diff

import (
	"github.com/satishbabariya/lift/migrate/schema"
)

// ColumnChanges tracks all changes to a column. Defaults are not compared:
// introspected default literals rarely match calculated ones verbatim.
type ColumnChanges struct {
	TypeChanged          bool
	ArityChanged         bool
	AutoIncrementChanged bool
	ForeignKeyChanged    bool
}

// allColumnChanges detects all changes between two columns
func allColumnChanges(pair MigrationPair[*schema.Column], prevFK, nextFK *schema.ForeignKey) ColumnChanges {
	prev, next := pair.Previous, pair.Next
	return ColumnChanges{
		TypeChanged:          prev.Type.Family != next.Type.Family,
		ArityChanged:         prev.Arity != next.Arity,
		AutoIncrementChanged: prev.AutoIncrement != next.AutoIncrement,
		ForeignKeyChanged:    !prevFK.SameTarget(nextFK),
	}
}

// DiffersInSomething returns true if any change was detected
func (c ColumnChanges) DiffersInSomething() bool {
	return c.TypeChanged || c.ArityChanged || c.AutoIncrementChanged || c.ForeignKeyChanged
}
