// Package step defines the migration steps produced by the differ and
// consumed by the renderer and applier.
package step

import (
	"github.com/satishbabariya/lift/migrate/schema"
)

// Step is one DDL level operation. The concrete types below are the only
// implementations.
type Step interface {
	// Kind names the step variant.
	Kind() string
	isStep()
}

// CreateTable creates a table with its columns, primary key and foreign keys.
// Indexes are created by separate CreateIndex steps.
type CreateTable struct {
	Table schema.Table `json:"table"`
}

// DropTable drops a single table.
type DropTable struct {
	Name string `json:"name"`
}

// DropTables drops several tables at once.
type DropTables struct {
	Names []string `json:"names"`
}

// RenameTable renames a table.
type RenameTable struct {
	Name    string `json:"name"`
	NewName string `json:"newName"`
}

// AlterTable applies column changes to one table, in order.
type AlterTable struct {
	Table   string        `json:"table"`
	Changes []TableChange `json:"changes"`
}

// CreateIndex creates an index on Table.
type CreateIndex struct {
	Table string       `json:"table"`
	Index schema.Index `json:"index"`
}

// DropIndex drops the named index of Table.
type DropIndex struct {
	Table string `json:"table"`
	Name  string `json:"name"`
}

// RawSQL is executed verbatim.
type RawSQL struct {
	SQL string `json:"sql"`
}

func (CreateTable) Kind() string { return "CreateTable" }
func (DropTable) Kind() string   { return "DropTable" }
func (DropTables) Kind() string  { return "DropTables" }
func (RenameTable) Kind() string { return "RenameTable" }
func (AlterTable) Kind() string  { return "AlterTable" }
func (CreateIndex) Kind() string { return "CreateIndex" }
func (DropIndex) Kind() string   { return "DropIndex" }
func (RawSQL) Kind() string      { return "RawSql" }

func (CreateTable) isStep() {}
func (DropTable) isStep()   {}
func (DropTables) isStep()  {}
func (RenameTable) isStep() {}
func (AlterTable) isStep()  {}
func (CreateIndex) isStep() {}
func (DropIndex) isStep()   {}
func (RawSQL) isStep()      {}

// TableChange is one column operation inside an AlterTable.
type TableChange interface {
	Kind() string
	isTableChange()
}

// AddColumn adds Column. ForeignKey is set when the column references
// another table.
type AddColumn struct {
	Column     schema.Column      `json:"column"`
	ForeignKey *schema.ForeignKey `json:"foreignKey,omitempty"`
}

// DropColumn drops a column. ForeignKey is the key the column owned, if
// any; some databases need it dropped first.
type DropColumn struct {
	Name       string             `json:"name"`
	ForeignKey *schema.ForeignKey `json:"foreignKey,omitempty"`
}

// AlterColumn changes the definition of column Name to Column. Previous and
// PreviousForeignKey describe the column before the change.
type AlterColumn struct {
	Name               string             `json:"name"`
	Column             schema.Column      `json:"column"`
	ForeignKey         *schema.ForeignKey `json:"foreignKey,omitempty"`
	Previous           schema.Column      `json:"previous"`
	PreviousForeignKey *schema.ForeignKey `json:"previousForeignKey,omitempty"`
}

func (AddColumn) Kind() string   { return "AddColumn" }
func (DropColumn) Kind() string  { return "DropColumn" }
func (AlterColumn) Kind() string { return "AlterColumn" }

func (AddColumn) isTableChange()   {}
func (DropColumn) isTableChange()  {}
func (AlterColumn) isTableChange() {}

// TypeChanged reports whether the column changes type family.
func (c AlterColumn) TypeChanged() bool {
	return c.Previous.Type.Family != c.Column.Type.Family
}
