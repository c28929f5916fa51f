// Package schema holds the in-memory relational schema snapshot that the
// calculator produces and the introspectors read from a live database.
package schema

import (
	"slices"

	"github.com/satishbabariya/lift/migrate/errs"
)

// MigrationTable is the history table. It is never diffed or dropped.
const MigrationTable = "_Migration"

// Schema is an ordered set of tables.
type Schema struct {
	Tables []Table `json:"tables"`
}

// Table represents a database table
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  *PrimaryKey  `json:"primaryKey,omitempty"`
	Indexes     []Index      `json:"indexes,omitempty"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty"`
	// Join marks the table of a many-to-many relation. It is only set on
	// calculated schemas.
	Join bool `json:"join,omitempty"`
}

// Column represents a table column
type Column struct {
	Name          string     `json:"name"`
	Type          ColumnType `json:"type"`
	Arity         Arity      `json:"arity"`
	Default       *string    `json:"default,omitempty"`
	AutoIncrement bool       `json:"autoIncrement,omitempty"`
}

// ColumnType pairs the type string a database reported with its normalized
// family. Raw is empty for calculated columns.
type ColumnType struct {
	Raw    string `json:"raw,omitempty"`
	Family Family `json:"family"`
}

// PrimaryKey represents a primary key constraint
type PrimaryKey struct {
	Columns []string `json:"columns"`
}

// Index represents a database index
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique,omitempty"`
}

// ForeignKey represents a foreign key constraint. Name is only known for
// introspected keys.
type ForeignKey struct {
	Name              string   `json:"name,omitempty"`
	Columns           []string `json:"columns"`
	ReferencedTable   string   `json:"referencedTable"`
	ReferencedColumns []string `json:"referencedColumns"`
	OnDelete          OnDelete `json:"onDelete"`
}

// Pure returns a column type of the given family without a raw type.
func Pure(f Family) ColumnType {
	return ColumnType{Family: f}
}

// Empty returns a schema without tables.
func Empty() Schema {
	return Schema{}
}

// Table returns the table with the given name.
func (s *Schema) Table(name string) (*Table, error) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], nil
		}
	}
	return nil, errs.Lookup("table", name, "")
}

// HasTable reports whether the schema contains the table.
func (s *Schema) HasTable(name string) bool {
	_, err := s.Table(name)
	return err == nil
}

// TableNames returns all table names in schema order.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// HasColumn reports whether the table has the column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// ColumnNames returns column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// IsPrimaryKeyColumn reports whether column is part of the primary key.
func (t *Table) IsPrimaryKeyColumn(column string) bool {
	return t.PrimaryKey != nil && slices.Contains(t.PrimaryKey.Columns, column)
}

// PrimaryKeyColumns returns the primary key columns, or nil.
func (t *Table) PrimaryKeyColumns() []string {
	if t.PrimaryKey == nil {
		return nil
	}
	return t.PrimaryKey.Columns
}

// ForeignKeyFor returns the single-column foreign key owned by column.
func (t *Table) ForeignKeyFor(column string) *ForeignKey {
	for i := range t.ForeignKeys {
		fk := &t.ForeignKeys[i]
		if len(fk.Columns) == 1 && fk.Columns[0] == column {
			return fk
		}
	}
	return nil
}

// Index returns the index with the given name.
func (t *Table) Index(name string) (*Index, bool) {
	for i := range t.Indexes {
		if t.Indexes[i].Name == name {
			return &t.Indexes[i], true
		}
	}
	return nil, false
}

// IsRequired reports whether the column is NOT NULL.
func (c *Column) IsRequired() bool {
	return c.Arity == Required
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := Table{
		Name:        t.Name,
		Columns:     slices.Clone(t.Columns),
		Indexes:     slices.Clone(t.Indexes),
		ForeignKeys: slices.Clone(t.ForeignKeys),
		Join:        t.Join,
	}
	for i, c := range t.Columns {
		out.Columns[i] = c.Clone()
	}
	if t.PrimaryKey != nil {
		out.PrimaryKey = &PrimaryKey{Columns: slices.Clone(t.PrimaryKey.Columns)}
	}
	for i, idx := range t.Indexes {
		out.Indexes[i] = Index{Name: idx.Name, Columns: slices.Clone(idx.Columns), Unique: idx.Unique}
	}
	for i, fk := range t.ForeignKeys {
		out.ForeignKeys[i] = fk.Clone()
	}
	return out
}

// Clone returns a deep copy of the column.
func (c Column) Clone() Column {
	if c.Default != nil {
		d := *c.Default
		c.Default = &d
	}
	return c
}

// Clone returns a deep copy of the foreign key.
func (fk ForeignKey) Clone() ForeignKey {
	fk.Columns = slices.Clone(fk.Columns)
	fk.ReferencedColumns = slices.Clone(fk.ReferencedColumns)
	return fk
}

// SameTarget reports whether two foreign keys reference the same table and
// columns with the same action, ignoring constraint names.
func (fk *ForeignKey) SameTarget(other *ForeignKey) bool {
	if fk == nil || other == nil {
		return fk == other
	}
	return fk.ReferencedTable == other.ReferencedTable &&
		slices.Equal(fk.Columns, other.Columns) &&
		slices.Equal(fk.ReferencedColumns, other.ReferencedColumns) &&
		fk.OnDelete == other.OnDelete
}

// Clone returns a deep copy of the schema.
func (s Schema) Clone() Schema {
	out := Schema{Tables: slices.Clone(s.Tables)}
	for i, t := range s.Tables {
		out.Tables[i] = t.Clone()
	}
	return out
}
