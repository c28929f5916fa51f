package schema

import "fmt"

// Family is the normalized type family of a column.
type Family int

const (
	FamilyInt Family = iota
	FamilyFloat
	FamilyBoolean
	FamilyString
	FamilyDateTime
	FamilyBinary
	FamilyJSON
	FamilyUUID
	FamilyGeometric
	FamilyUnsupported
)

var familyNames = map[Family]string{
	FamilyInt:         "Int",
	FamilyFloat:       "Float",
	FamilyBoolean:     "Boolean",
	FamilyString:      "String",
	FamilyDateTime:    "DateTime",
	FamilyBinary:      "Binary",
	FamilyJSON:        "Json",
	FamilyUUID:        "Uuid",
	FamilyGeometric:   "Geometric",
	FamilyUnsupported: "Unsupported",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Family) UnmarshalText(text []byte) error {
	for k, v := range familyNames {
		if v == string(text) {
			*f = k
			return nil
		}
	}
	return fmt.Errorf("unknown column type family %q", text)
}

// Arity is the cardinality of a column.
type Arity int

const (
	Required Arity = iota
	Nullable
	List
)

var arityNames = map[Arity]string{
	Required: "Required",
	Nullable: "Nullable",
	List:     "List",
}

func (a Arity) String() string {
	if name, ok := arityNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Arity(%d)", int(a))
}

func (a Arity) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Arity) UnmarshalText(text []byte) error {
	for k, v := range arityNames {
		if v == string(text) {
			*a = k
			return nil
		}
	}
	return fmt.Errorf("unknown column arity %q", text)
}

// OnDelete is the referential action of a foreign key.
type OnDelete int

const (
	NoAction OnDelete = iota
	Restrict
	Cascade
	SetNull
	SetDefault
)

var onDeleteNames = map[OnDelete]string{
	NoAction:   "NO ACTION",
	Restrict:   "RESTRICT",
	Cascade:    "CASCADE",
	SetNull:    "SET NULL",
	SetDefault: "SET DEFAULT",
}

// SQL returns the action as it appears in an ON DELETE clause.
func (o OnDelete) SQL() string {
	if name, ok := onDeleteNames[o]; ok {
		return name
	}
	return "NO ACTION"
}

func (o OnDelete) String() string { return o.SQL() }

func (o OnDelete) MarshalText() ([]byte, error) {
	return []byte(o.SQL()), nil
}

func (o *OnDelete) UnmarshalText(text []byte) error {
	parsed, ok := ParseOnDelete(string(text))
	if !ok {
		return fmt.Errorf("unknown on delete action %q", text)
	}
	*o = parsed
	return nil
}

// ParseOnDelete maps a database reported action name onto OnDelete.
func ParseOnDelete(s string) (OnDelete, bool) {
	switch s {
	case "", "NO ACTION", "NO_ACTION", "a":
		return NoAction, true
	case "RESTRICT", "r":
		return Restrict, true
	case "CASCADE", "c":
		return Cascade, true
	case "SET NULL", "SET_NULL", "n":
		return SetNull, true
	case "SET DEFAULT", "SET_DEFAULT", "d":
		return SetDefault, true
	}
	return NoAction, false
}
