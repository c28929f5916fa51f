package datamodel

import "slices"

// StepType names a data model level change.
type StepType string

const (
	CreateModel StepType = "CreateModel"
	DeleteModel StepType = "DeleteModel"
	UpdateModel StepType = "UpdateModel"
	CreateField StepType = "CreateField"
	DeleteField StepType = "DeleteField"
	UpdateField StepType = "UpdateField"
	CreateEnum  StepType = "CreateEnum"
	DeleteEnum  StepType = "DeleteEnum"
	UpdateEnum  StepType = "UpdateEnum"
)

// Step is one data model change, recorded alongside each migration.
type Step struct {
	Type  StepType `json:"stepType"`
	Model string   `json:"model,omitempty"`
	Field string   `json:"field,omitempty"`
	Enum  string   `json:"enum,omitempty"`
	// DBName and PreviousDBName carry a table name change on UpdateModel.
	DBName         string `json:"dbName,omitempty"`
	PreviousDBName string `json:"previousDbName,omitempty"`
}

// Diff lists the data model changes between prev and next. A nil prev is
// treated as an empty data model.
func Diff(prev, next *Datamodel) []Step {
	if prev == nil {
		prev = &Datamodel{}
	}
	if next == nil {
		next = &Datamodel{}
	}

	var steps []Step
	for _, m := range next.Models {
		old, err := prev.Model(m.Name)
		if err != nil {
			steps = append(steps, Step{Type: CreateModel, Model: m.Name})
			for _, f := range m.Fields {
				steps = append(steps, Step{Type: CreateField, Model: m.Name, Field: f.Name})
			}
			continue
		}
		if old.TableName() != m.TableName() {
			steps = append(steps, Step{
				Type:           UpdateModel,
				Model:          m.Name,
				DBName:         m.TableName(),
				PreviousDBName: old.TableName(),
			})
		}
		steps = append(steps, diffFields(old, m)...)
	}
	for _, m := range prev.Models {
		if _, err := next.Model(m.Name); err != nil {
			steps = append(steps, Step{Type: DeleteModel, Model: m.Name})
		}
	}

	for _, e := range next.Enums {
		old, err := prev.Enum(e.Name)
		switch {
		case err != nil:
			steps = append(steps, Step{Type: CreateEnum, Enum: e.Name})
		case !slices.Equal(old.Values, e.Values):
			steps = append(steps, Step{Type: UpdateEnum, Enum: e.Name})
		}
	}
	for _, e := range prev.Enums {
		if _, err := next.Enum(e.Name); err != nil {
			steps = append(steps, Step{Type: DeleteEnum, Enum: e.Name})
		}
	}
	return steps
}

func diffFields(prev, next *Model) []Step {
	var steps []Step
	for _, f := range next.Fields {
		old, err := prev.Field(f.Name)
		if err != nil {
			steps = append(steps, Step{Type: CreateField, Model: next.Name, Field: f.Name})
			continue
		}
		if !sameField(old, f) {
			steps = append(steps, Step{Type: UpdateField, Model: next.Name, Field: f.Name})
		}
	}
	for _, f := range prev.Fields {
		if _, err := next.Field(f.Name); err != nil {
			steps = append(steps, Step{Type: DeleteField, Model: next.Name, Field: f.Name})
		}
	}
	return steps
}

func sameField(a, b *Field) bool {
	if a.Type != b.Type || a.Kind != b.Kind || a.Arity != b.Arity ||
		a.IsID != b.IsID || a.IsUnique != b.IsUnique ||
		a.ColumnName() != b.ColumnName() || a.RelationName != b.RelationName {
		return false
	}
	if (a.Default == nil) != (b.Default == nil) {
		return false
	}
	return a.Default == nil || *a.Default == *b.Default
}

// TableRenames maps previous table names to new ones for every model whose
// physical name changed.
func TableRenames(steps []Step) map[string]string {
	renames := map[string]string{}
	for _, s := range steps {
		if s.Type == UpdateModel && s.PreviousDBName != "" && s.DBName != s.PreviousDBName {
			renames[s.PreviousDBName] = s.DBName
		}
	}
	return renames
}
