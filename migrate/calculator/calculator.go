// Package calculator turns a data model into the relational schema it needs.
package calculator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/satishbabariya/lift/datamodel"
	"github.com/satishbabariya/lift/internal/debug"
	"github.com/satishbabariya/lift/migrate/errs"
	"github.com/satishbabariya/lift/migrate/schema"
)

// Columns of scalar list tables.
const (
	NodeIDColumn   = "nodeId"
	PositionColumn = "position"
	ValueColumn    = "value"
)

// Columns of relation join tables.
const (
	JoinColumnA = "A"
	JoinColumnB = "B"
)

// migrationEpoch is the default of required DateTime columns.
const migrationEpoch = "1970-01-01 00:00:00"

// Calculate computes the target schema of dm: one table per model, one per
// scalar list field and one per many-to-many relation.
func Calculate(dm *datamodel.Datamodel) (schema.Schema, error) {
	c := &calculator{dm: dm}

	modelTables, err := c.modelTables()
	if err != nil {
		return schema.Schema{}, err
	}
	listTables, err := c.scalarListTables()
	if err != nil {
		return schema.Schema{}, err
	}
	joinTables, err := c.joinTables()
	if err != nil {
		return schema.Schema{}, err
	}

	var out schema.Schema
	out.Tables = append(out.Tables, modelTables...)
	out.Tables = append(out.Tables, listTables...)
	out.Tables = append(out.Tables, joinTables...)

	for i := range out.Tables {
		cols := out.Tables[i].Columns
		sort.SliceStable(cols, func(a, b int) bool { return cols[a].Name < cols[b].Name })
	}

	debug.Debug("Calculated schema", "models", len(modelTables), "list_tables", len(listTables), "join_tables", len(joinTables))
	return out, nil
}

type calculator struct {
	dm *datamodel.Datamodel
}

func (c *calculator) modelTables() ([]schema.Table, error) {
	tables := make([]schema.Table, 0, len(c.dm.Models))
	for _, m := range c.dm.Models {
		id, err := m.IDField()
		if err != nil {
			return nil, err
		}
		table := schema.Table{
			Name:       m.TableName(),
			PrimaryKey: &schema.PrimaryKey{Columns: []string{id.ColumnName()}},
		}

		for _, f := range m.Fields {
			switch {
			case f.IsScalar() && !f.IsList():
				col, err := c.scalarColumn(f)
				if err != nil {
					return nil, fmt.Errorf("model %s: %w", m.Name, err)
				}
				table.Columns = append(table.Columns, col)
				if f.IsUnique && !f.IsID {
					table.Indexes = append(table.Indexes, schema.Index{
						Name:    uniqueIndexName(table.Name, []string{col.Name}),
						Columns: []string{col.Name},
						Unique:  true,
					})
				}
			case f.IsRelation() && !f.IsList():
				if err := c.addInlineRelation(&table, m, f); err != nil {
					return nil, err
				}
			}
		}

		for _, idx := range m.Indexes {
			cols := make([]string, 0, len(idx.Fields))
			for _, name := range idx.Fields {
				f, err := m.Field(name)
				if err != nil {
					return nil, err
				}
				if !table.HasColumn(f.ColumnName()) {
					return nil, errs.Lookup("column", f.ColumnName(), table.Name)
				}
				cols = append(cols, f.ColumnName())
			}
			name := fmt.Sprintf("%s.%s._INDEX", table.Name, strings.Join(cols, "_"))
			if idx.Unique {
				name = uniqueIndexName(table.Name, cols)
			}
			table.Indexes = append(table.Indexes, schema.Index{Name: name, Columns: cols, Unique: idx.Unique})
		}

		tables = append(tables, table)
	}
	return tables, nil
}

// addInlineRelation adds the foreign key column of f to table when f owns
// the relation.
func (c *calculator) addInlineRelation(table *schema.Table, m *datamodel.Model, f *datamodel.Field) error {
	related, relatedField, err := c.dm.RelatedField(m, f)
	if err != nil {
		return err
	}
	if Embed(sideOf(m, f), optionalSide(related, relatedField)) != EmbedHere {
		return nil
	}

	relatedID, err := related.IDField()
	if err != nil {
		return err
	}
	arity := schema.Required
	if f.Arity == datamodel.Optional {
		arity = schema.Nullable
	}
	table.Columns = append(table.Columns, schema.Column{
		Name:  f.ColumnName(),
		Type:  columnType(relatedID),
		Arity: arity,
	})
	table.ForeignKeys = append(table.ForeignKeys, schema.ForeignKey{
		Columns:           []string{f.ColumnName()},
		ReferencedTable:   related.TableName(),
		ReferencedColumns: []string{relatedID.ColumnName()},
		OnDelete:          schema.SetNull,
	})
	if f.IsUnique {
		table.Indexes = append(table.Indexes, schema.Index{
			Name:    uniqueIndexName(table.Name, []string{f.ColumnName()}),
			Columns: []string{f.ColumnName()},
			Unique:  true,
		})
	}
	return nil
}

func (c *calculator) scalarListTables() ([]schema.Table, error) {
	var tables []schema.Table
	for _, m := range c.dm.Models {
		for _, f := range m.Fields {
			if !f.IsScalar() || !f.IsList() {
				continue
			}
			id, err := m.IDField()
			if err != nil {
				return nil, err
			}
			tables = append(tables, schema.Table{
				Name: fmt.Sprintf("%s_%s", m.TableName(), f.ColumnName()),
				Columns: []schema.Column{
					{Name: NodeIDColumn, Type: columnType(id), Arity: schema.Required},
					{Name: PositionColumn, Type: schema.Pure(schema.FamilyInt), Arity: schema.Required},
					{Name: ValueColumn, Type: columnType(f), Arity: schema.Required},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{NodeIDColumn, PositionColumn}},
				ForeignKeys: []schema.ForeignKey{{
					Columns:           []string{NodeIDColumn},
					ReferencedTable:   m.TableName(),
					ReferencedColumns: []string{id.ColumnName()},
					OnDelete:          schema.Cascade,
				}},
			})
		}
	}
	return tables, nil
}

func (c *calculator) joinTables() ([]schema.Table, error) {
	var tables []schema.Table
	for _, m := range c.dm.Models {
		for _, f := range m.Fields {
			if !f.IsRelation() || !f.IsList() {
				continue
			}
			related, relatedField, err := c.dm.RelatedField(m, f)
			if err != nil {
				return nil, err
			}
			if !EmitsJoinTable(sideOf(m, f), optionalSide(related, relatedField)) {
				continue
			}

			modelA, modelB := m, related
			if modelB.Name < modelA.Name {
				modelA, modelB = modelB, modelA
			}
			idA, err := modelA.IDField()
			if err != nil {
				return nil, err
			}
			idB, err := modelB.IDField()
			if err != nil {
				return nil, err
			}

			tables = append(tables, schema.Table{
				Name: "_" + datamodel.RelationName(m, f),
				Columns: []schema.Column{
					{Name: JoinColumnA, Type: columnType(idA), Arity: schema.Required},
					{Name: JoinColumnB, Type: columnType(idB), Arity: schema.Required},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{JoinColumnA, JoinColumnB}},
				Join:       true,
				ForeignKeys: []schema.ForeignKey{
					{
						Columns:           []string{JoinColumnA},
						ReferencedTable:   modelA.TableName(),
						ReferencedColumns: []string{idA.ColumnName()},
						OnDelete:          schema.Cascade,
					},
					{
						Columns:           []string{JoinColumnB},
						ReferencedTable:   modelB.TableName(),
						ReferencedColumns: []string{idB.ColumnName()},
						OnDelete:          schema.Cascade,
					},
				},
			})
		}
	}
	return tables, nil
}

func (c *calculator) scalarColumn(f *datamodel.Field) (schema.Column, error) {
	col := schema.Column{
		Name:          f.ColumnName(),
		Type:          columnType(f),
		Arity:         schema.Required,
		AutoIncrement: f.IsAutoIncrement(),
	}
	if f.Arity == datamodel.Optional {
		col.Arity = schema.Nullable
	}
	if col.AutoIncrement {
		return col, nil
	}
	def, err := c.migrationValue(f)
	if err != nil {
		return schema.Column{}, err
	}
	col.Default = def
	return col, nil
}

// migrationValue is the literal a column is created with: the declared
// default, or a neutral value of the field type so that required columns can
// be added to tables that already hold rows.
func (c *calculator) migrationValue(f *datamodel.Field) (*string, error) {
	if v := f.Default; v != nil && v.Kind != datamodel.FuncValue {
		raw := v.Raw
		if f.Type == datamodel.DateTime {
			raw = formatDateTime(raw)
		}
		return &raw, nil
	}

	var value string
	switch {
	case f.Kind == datamodel.EnumField:
		e, err := c.dm.Enum(f.Type)
		if err != nil {
			return nil, err
		}
		if len(e.Values) == 0 {
			return nil, fmt.Errorf("enum %s has no values", e.Name)
		}
		value = e.Values[0]
	case f.Type == datamodel.Boolean:
		value = "false"
	case f.Type == datamodel.Int, f.Type == datamodel.Float:
		value = "0"
	case f.Type == datamodel.String:
		value = ""
	case f.Type == datamodel.DateTime:
		value = migrationEpoch
	default:
		return nil, nil
	}
	return &value, nil
}

func formatDateTime(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return strings.TrimSuffix(t.UTC().Format("2006-01-02 15:04:05 MST"), " UTC")
}

func columnType(f *datamodel.Field) schema.ColumnType {
	if f.Kind == datamodel.EnumField {
		return schema.Pure(schema.FamilyString)
	}
	switch f.Type {
	case datamodel.Int:
		return schema.Pure(schema.FamilyInt)
	case datamodel.Float:
		return schema.Pure(schema.FamilyFloat)
	case datamodel.Boolean:
		return schema.Pure(schema.FamilyBoolean)
	case datamodel.DateTime:
		return schema.Pure(schema.FamilyDateTime)
	case datamodel.JSON:
		return schema.Pure(schema.FamilyJSON)
	case datamodel.Bytes:
		return schema.Pure(schema.FamilyBinary)
	default:
		return schema.Pure(schema.FamilyString)
	}
}

func uniqueIndexName(table string, columns []string) string {
	return fmt.Sprintf("%s.%s._UNIQUE", table, strings.Join(columns, "_"))
}

func sideOf(m *datamodel.Model, f *datamodel.Field) Side {
	return Side{Model: m.Name, Field: f.Name, List: f.IsList()}
}

func optionalSide(m *datamodel.Model, f *datamodel.Field) *Side {
	if f == nil {
		return nil
	}
	s := sideOf(m, f)
	return &s
}
