package step

import (
	"encoding/json"
	"fmt"
)

// envelope tags a serialized step or change with its variant name.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// List is a step slice that serializes with variant tags.
type List []Step

// MarshalJSON implements json.Marshaler.
func (l List) MarshalJSON() ([]byte, error) {
	out := make([]envelope, 0, len(l))
	for _, s := range l {
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", s.Kind(), err)
		}
		out = append(out, envelope{Type: s.Kind(), Data: data})
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *List) UnmarshalJSON(data []byte) error {
	var raw []envelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	steps := make(List, 0, len(raw))
	for _, e := range raw {
		s, err := decodeStep(e)
		if err != nil {
			return err
		}
		steps = append(steps, s)
	}
	*l = steps
	return nil
}

func decodeStep(e envelope) (Step, error) {
	switch e.Type {
	case "CreateTable":
		return decodeAs[CreateTable](e.Data)
	case "DropTable":
		return decodeAs[DropTable](e.Data)
	case "DropTables":
		return decodeAs[DropTables](e.Data)
	case "RenameTable":
		return decodeAs[RenameTable](e.Data)
	case "AlterTable":
		return decodeAs[AlterTable](e.Data)
	case "CreateIndex":
		return decodeAs[CreateIndex](e.Data)
	case "DropIndex":
		return decodeAs[DropIndex](e.Data)
	case "RawSql":
		return decodeAs[RawSQL](e.Data)
	}
	return nil, fmt.Errorf("unknown migration step %q", e.Type)
}

func decodeAs[T Step](data json.RawMessage) (Step, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

type alterTableJSON struct {
	Table   string     `json:"table"`
	Changes []envelope `json:"changes"`
}

// MarshalJSON implements json.Marshaler.
func (a AlterTable) MarshalJSON() ([]byte, error) {
	out := alterTableJSON{Table: a.Table, Changes: make([]envelope, 0, len(a.Changes))}
	for _, c := range a.Changes {
		data, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		out.Changes = append(out.Changes, envelope{Type: c.Kind(), Data: data})
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *AlterTable) UnmarshalJSON(data []byte) error {
	var in alterTableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	a.Table = in.Table
	a.Changes = make([]TableChange, 0, len(in.Changes))
	for _, e := range in.Changes {
		var (
			c   TableChange
			err error
		)
		switch e.Type {
		case "AddColumn":
			var v AddColumn
			err = json.Unmarshal(e.Data, &v)
			c = v
		case "DropColumn":
			var v DropColumn
			err = json.Unmarshal(e.Data, &v)
			c = v
		case "AlterColumn":
			var v AlterColumn
			err = json.Unmarshal(e.Data, &v)
			c = v
		default:
			return fmt.Errorf("unknown table change %q", e.Type)
		}
		if err != nil {
			return err
		}
		a.Changes = append(a.Changes, c)
	}
	return nil
}
