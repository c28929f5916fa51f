// Package datamodel describes the validated data model the migration engine
// plans against: models, their scalar, enum and relation fields, and enums.
package datamodel

import (
	"sort"

	"github.com/satishbabariya/lift/migrate/errs"
)

// Datamodel is a resolved data model.
type Datamodel struct {
	Datasource *Datasource
	Models     []*Model
	Enums      []*Enum
}

// Datasource is the optional connection block of a data model file.
type Datasource struct {
	Name     string
	Provider string
	URL      string
	// URLEnv is set when the url is read from the environment via env("...").
	URLEnv string
}

// Enum is a named set of string literals.
type Enum struct {
	Name   string
	Values []string
}

// Model maps to one table.
type Model struct {
	Name    string
	DBName  string
	Fields  []*Field
	Indexes []ModelIndex
}

// ModelIndex is a multi-field @@index or @@unique.
type ModelIndex struct {
	Fields []string
	Unique bool
}

// FieldKind tells scalars, enum references and relations apart.
type FieldKind int

const (
	ScalarField FieldKind = iota
	EnumField
	RelationField
)

// Arity is the cardinality of a field.
type Arity int

const (
	Required Arity = iota
	Optional
	List
)

// Scalar type names understood by the calculator.
const (
	Int      = "Int"
	Float    = "Float"
	Boolean  = "Boolean"
	String   = "String"
	DateTime = "DateTime"
	JSON     = "Json"
	Bytes    = "Bytes"
)

// IsScalarType reports whether name is a built-in scalar type.
func IsScalarType(name string) bool {
	switch name {
	case Int, Float, Boolean, String, DateTime, JSON, Bytes:
		return true
	}
	return false
}

// Field is a model field.
type Field struct {
	Name   string
	DBName string
	Kind   FieldKind
	// Type is the scalar type name, the enum name or the related model name.
	Type     string
	Arity    Arity
	IsID     bool
	IsUnique bool
	Default  *Value
	// RelationName disambiguates several relations between the same models.
	RelationName string
}

// ValueKind classifies default values.
type ValueKind int

const (
	BoolValue ValueKind = iota
	NumberValue
	StringValue
	// ConstantValue is a bare identifier, used for enum literals.
	ConstantValue
	// FuncValue is a generator such as autoincrement() or now().
	FuncValue
)

// Value is a default value as written in the data model.
type Value struct {
	Kind ValueKind
	Raw  string
}

// Model returns the model with the given name.
func (d *Datamodel) Model(name string) (*Model, error) {
	for _, m := range d.Models {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, errs.Lookup("model", name, "")
}

// Enum returns the enum with the given name.
func (d *Datamodel) Enum(name string) (*Enum, error) {
	for _, e := range d.Enums {
		if e.Name == name {
			return e, nil
		}
	}
	return nil, errs.Lookup("enum", name, "")
}

// TableName is the physical table name of the model.
func (m *Model) TableName() string {
	if m.DBName != "" {
		return m.DBName
	}
	return m.Name
}

// Field returns the field with the given name.
func (m *Model) Field(name string) (*Field, error) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, errs.Lookup("field", name, m.Name)
}

// IDField returns the field marked @id.
func (m *Model) IDField() (*Field, error) {
	for _, f := range m.Fields {
		if f.IsID {
			return f, nil
		}
	}
	return nil, errs.Lookup("id field", "@id", m.Name)
}

// ColumnName is the physical column name of the field.
func (f *Field) ColumnName() string {
	if f.DBName != "" {
		return f.DBName
	}
	return f.Name
}

// IsList reports whether the field is list valued.
func (f *Field) IsList() bool { return f.Arity == List }

// IsScalar reports whether the field stores a scalar or enum value.
func (f *Field) IsScalar() bool { return f.Kind == ScalarField || f.Kind == EnumField }

// IsRelation reports whether the field points at another model.
func (f *Field) IsRelation() bool { return f.Kind == RelationField }

// IsAutoIncrement reports whether the field defaults to autoincrement().
func (f *Field) IsAutoIncrement() bool {
	return f.Default != nil && f.Default.Kind == FuncValue && f.Default.Raw == "autoincrement"
}

// RelatedField resolves the other side of relation field f on model m. The
// returned field is nil when the relation is only declared on one side.
func (d *Datamodel) RelatedField(m *Model, f *Field) (*Model, *Field, error) {
	related, err := d.Model(f.Type)
	if err != nil {
		return nil, nil, err
	}
	for _, candidate := range related.Fields {
		if candidate == f || !candidate.IsRelation() || candidate.Type != m.Name {
			continue
		}
		if candidate.RelationName == f.RelationName {
			return related, candidate, nil
		}
	}
	return related, nil, nil
}

// RelationName returns the explicit relation name of f or the default one
// derived from both model names in sorted order.
func RelationName(m *Model, f *Field) string {
	if f.RelationName != "" {
		return f.RelationName
	}
	names := []string{m.Name, f.Type}
	sort.Strings(names)
	return names[0] + "To" + names[1]
}
