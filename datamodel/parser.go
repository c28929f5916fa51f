package datamodel

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// dslLexer tokenizes data model files.
var dslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	// Block attribute prefix (must come before single @)
	{Name: "BlockAttr", Pattern: `@@`},
	{Name: "FieldAttr", Pattern: `@`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Punct", Pattern: `[{}()\[\]:,=?]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

type rawFile struct {
	Blocks []*rawBlock `@@*`
}

type rawBlock struct {
	Datasource *rawConfig `  "datasource" @@`
	Generator  *rawConfig `| "generator" @@`
	Model      *rawModel  `| @@`
	Enum       *rawEnum   `| @@`
}

type rawConfig struct {
	Name  string         `@Ident "{"`
	Props []*rawProperty `@@* "}"`
}

type rawProperty struct {
	Key   string   `@Ident "="`
	Value *rawExpr `@@`
}

type rawModel struct {
	Pos     lexer.Position
	Name    string       `"model" @Ident "{"`
	Members []*rawMember `@@* "}"`
}

type rawMember struct {
	BlockAttr *rawAttribute `  "@@" @@`
	Field     *rawField     `| @@`
}

type rawField struct {
	Pos      lexer.Position
	Name     string          `@Ident`
	Type     string          `@Ident`
	List     bool            `@( "[" "]" )?`
	Optional bool            `@"?"?`
	Attrs    []*rawAttribute `( "@" @@ )*`
}

type rawAttribute struct {
	Pos  lexer.Position
	Name string    `@Ident`
	Args []*rawArg `( "(" ( @@ ( "," @@ )* )? ")" )?`
}

type rawArg struct {
	Name  string   `( @Ident ":" )?`
	Value *rawExpr `@@`
}

type rawExpr struct {
	Call   *rawCall   `  @@`
	List   []*rawExpr `| "[" ( @@ ( "," @@ )* )? "]"`
	String *string    `| @String`
	Number *string    `| @Number`
	Ident  *string    `| @Ident`
}

type rawCall struct {
	Name string     `@Ident "("`
	Args []*rawExpr `( @@ ( "," @@ )* )? ")"`
}

type rawEnum struct {
	Name   string   `"enum" @Ident "{"`
	Values []string `@Ident* "}"`
}

var parser = participle.MustBuild[rawFile](
	participle.Lexer(dslLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(4),
)

// Parse reads a data model from r and resolves every field type.
func Parse(filename string, r io.Reader) (*Datamodel, error) {
	raw, err := parser.Parse(filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data model: %w", err)
	}
	return convert(raw)
}

// ParseString parses a data model held in memory.
func ParseString(filename, input string) (*Datamodel, error) {
	return Parse(filename, strings.NewReader(input))
}

// MustParseString parses a data model and panics on error.
func MustParseString(input string) *Datamodel {
	dm, err := ParseString("datamodel.prisma", input)
	if err != nil {
		panic(err)
	}
	return dm
}

func convert(raw *rawFile) (*Datamodel, error) {
	dm := &Datamodel{}
	enums := map[string]bool{}
	models := map[string]bool{}
	for _, b := range raw.Blocks {
		switch {
		case b.Enum != nil:
			enums[b.Enum.Name] = true
		case b.Model != nil:
			if models[b.Model.Name] {
				return nil, fmt.Errorf("%s: model %q is declared twice", b.Model.Pos, b.Model.Name)
			}
			models[b.Model.Name] = true
		}
	}

	for _, b := range raw.Blocks {
		switch {
		case b.Datasource != nil:
			ds, err := convertDatasource(b.Datasource)
			if err != nil {
				return nil, err
			}
			dm.Datasource = ds
		case b.Enum != nil:
			if len(b.Enum.Values) == 0 {
				return nil, fmt.Errorf("enum %q has no values", b.Enum.Name)
			}
			dm.Enums = append(dm.Enums, &Enum{Name: b.Enum.Name, Values: b.Enum.Values})
		case b.Model != nil:
			m, err := convertModel(b.Model, enums, models)
			if err != nil {
				return nil, err
			}
			dm.Models = append(dm.Models, m)
		}
	}
	return dm, nil
}

func convertDatasource(raw *rawConfig) (*Datasource, error) {
	ds := &Datasource{Name: raw.Name}
	for _, p := range raw.Props {
		switch p.Key {
		case "provider":
			if p.Value.String == nil {
				return nil, fmt.Errorf("datasource %s: provider must be a string", raw.Name)
			}
			ds.Provider = *p.Value.String
		case "url":
			switch {
			case p.Value.String != nil:
				ds.URL = *p.Value.String
			case p.Value.Call != nil && p.Value.Call.Name == "env" && len(p.Value.Call.Args) == 1 && p.Value.Call.Args[0].String != nil:
				ds.URLEnv = *p.Value.Call.Args[0].String
			default:
				return nil, fmt.Errorf("datasource %s: url must be a string or env(\"NAME\")", raw.Name)
			}
		}
	}
	return ds, nil
}

func convertModel(raw *rawModel, enums, models map[string]bool) (*Model, error) {
	m := &Model{Name: raw.Name}
	for _, member := range raw.Members {
		if member.BlockAttr != nil {
			if err := applyBlockAttribute(m, member.BlockAttr); err != nil {
				return nil, fmt.Errorf("%s: model %s: %w", member.BlockAttr.Pos, m.Name, err)
			}
			continue
		}
		f, err := convertField(member.Field, enums, models)
		if err != nil {
			return nil, fmt.Errorf("%s: field %s.%s: %w", member.Field.Pos, m.Name, member.Field.Name, err)
		}
		m.Fields = append(m.Fields, f)
	}
	return m, nil
}

func convertField(raw *rawField, enums, models map[string]bool) (*Field, error) {
	f := &Field{Name: raw.Name, Type: raw.Type}
	switch {
	case IsScalarType(raw.Type):
		f.Kind = ScalarField
	case enums[raw.Type]:
		f.Kind = EnumField
	case models[raw.Type]:
		f.Kind = RelationField
	default:
		return nil, fmt.Errorf("unknown type %q", raw.Type)
	}
	switch {
	case raw.List && raw.Optional:
		return nil, fmt.Errorf("list fields cannot be optional")
	case raw.List:
		f.Arity = List
	case raw.Optional:
		f.Arity = Optional
	}

	for _, attr := range raw.Attrs {
		switch attr.Name {
		case "id":
			f.IsID = true
		case "unique":
			f.IsUnique = true
		case "map":
			name, err := stringArg(attr)
			if err != nil {
				return nil, err
			}
			f.DBName = name
		case "default":
			if len(attr.Args) != 1 {
				return nil, fmt.Errorf("@default takes exactly one argument")
			}
			v, err := convertValue(attr.Args[0].Value)
			if err != nil {
				return nil, err
			}
			f.Default = v
		case "relation":
			if f.Kind != RelationField {
				return nil, fmt.Errorf("@relation on a non-relation field")
			}
			for _, arg := range attr.Args {
				if (arg.Name == "" || arg.Name == "name") && arg.Value.String != nil {
					f.RelationName = *arg.Value.String
				}
			}
		case "updatedAt":
		default:
			return nil, fmt.Errorf("unknown attribute @%s", attr.Name)
		}
	}
	return f, nil
}

func applyBlockAttribute(m *Model, attr *rawAttribute) error {
	switch attr.Name {
	case "map":
		name, err := stringArg(attr)
		if err != nil {
			return err
		}
		m.DBName = name
	case "unique", "index":
		if len(attr.Args) != 1 || attr.Args[0].Value.List == nil {
			return fmt.Errorf("@@%s expects a list of fields", attr.Name)
		}
		idx := ModelIndex{Unique: attr.Name == "unique"}
		for _, e := range attr.Args[0].Value.List {
			if e.Ident == nil {
				return fmt.Errorf("@@%s expects field names", attr.Name)
			}
			idx.Fields = append(idx.Fields, *e.Ident)
		}
		m.Indexes = append(m.Indexes, idx)
	default:
		return fmt.Errorf("unknown block attribute @@%s", attr.Name)
	}
	return nil
}

func stringArg(attr *rawAttribute) (string, error) {
	if len(attr.Args) != 1 || attr.Args[0].Value.String == nil {
		return "", fmt.Errorf("@%s expects a single string argument", attr.Name)
	}
	return *attr.Args[0].Value.String, nil
}

func convertValue(e *rawExpr) (*Value, error) {
	switch {
	case e.Call != nil:
		return &Value{Kind: FuncValue, Raw: e.Call.Name}, nil
	case e.String != nil:
		return &Value{Kind: StringValue, Raw: *e.String}, nil
	case e.Number != nil:
		return &Value{Kind: NumberValue, Raw: *e.Number}, nil
	case e.Ident != nil:
		if *e.Ident == "true" || *e.Ident == "false" {
			return &Value{Kind: BoolValue, Raw: *e.Ident}, nil
		}
		return &Value{Kind: ConstantValue, Raw: *e.Ident}, nil
	}
	return nil, fmt.Errorf("unsupported default value")
}
