package datamodel

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Render prints the data model in the same syntax Parse reads. The output is
// stored with every migration so later runs can diff against it.
func Render(dm *Datamodel) string {
	var b strings.Builder

	if ds := dm.Datasource; ds != nil {
		fmt.Fprintf(&b, "datasource %s {\n", ds.Name)
		tw := tabwriter.NewWriter(&b, 0, 2, 1, ' ', 0)
		if ds.Provider != "" {
			fmt.Fprintf(tw, "  provider\t= %s\n", strconv.Quote(ds.Provider))
		}
		switch {
		case ds.URLEnv != "":
			fmt.Fprintf(tw, "  url\t= env(%s)\n", strconv.Quote(ds.URLEnv))
		case ds.URL != "":
			fmt.Fprintf(tw, "  url\t= %s\n", strconv.Quote(ds.URL))
		}
		tw.Flush()
		b.WriteString("}\n\n")
	}

	for _, m := range dm.Models {
		fmt.Fprintf(&b, "model %s {\n", m.Name)
		tw := tabwriter.NewWriter(&b, 0, 2, 1, ' ', 0)
		for _, f := range m.Fields {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.Name, renderFieldType(f), strings.Join(renderFieldAttributes(f), " "))
		}
		tw.Flush()
		for _, idx := range m.Indexes {
			name := "index"
			if idx.Unique {
				name = "unique"
			}
			fmt.Fprintf(&b, "  @@%s([%s])\n", name, strings.Join(idx.Fields, ", "))
		}
		if m.DBName != "" {
			fmt.Fprintf(&b, "  @@map(%s)\n", strconv.Quote(m.DBName))
		}
		b.WriteString("}\n\n")
	}

	for _, e := range dm.Enums {
		fmt.Fprintf(&b, "enum %s {\n", e.Name)
		for _, v := range e.Values {
			fmt.Fprintf(&b, "  %s\n", v)
		}
		b.WriteString("}\n\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderFieldType(f *Field) string {
	switch f.Arity {
	case List:
		return f.Type + "[]"
	case Optional:
		return f.Type + "?"
	}
	return f.Type
}

func renderFieldAttributes(f *Field) []string {
	var attrs []string
	if f.IsID {
		attrs = append(attrs, "@id")
	}
	if f.IsUnique {
		attrs = append(attrs, "@unique")
	}
	if f.Default != nil {
		attrs = append(attrs, "@default("+renderValue(f.Default)+")")
	}
	if f.RelationName != "" {
		attrs = append(attrs, "@relation("+strconv.Quote(f.RelationName)+")")
	}
	if f.DBName != "" {
		attrs = append(attrs, "@map("+strconv.Quote(f.DBName)+")")
	}
	return attrs
}

func renderValue(v *Value) string {
	switch v.Kind {
	case StringValue:
		return strconv.Quote(v.Raw)
	case FuncValue:
		return v.Raw + "()"
	}
	return v.Raw
}
