package query

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Variables are the values sent along with a query.
type Variables map[string]interface{}

// DeclaredVariables returns the variable names in declaration order.
func (doc *Document) DeclaredVariables() []string {
	names := make([]string, len(doc.Variables))
	for idx, def := range doc.Variables {
		names[idx] = def.Name
	}
	return names
}

// FilterVariables keeps exactly the declared variables. Undeclared keys
// are dropped; declared keys missing from vars are sent as nil.
func (doc *Document) FilterVariables(vars Variables) Variables {
	filtered := make(Variables, len(doc.Variables))
	for _, def := range doc.Variables {
		filtered[def.Name] = vars[def.Name]
	}
	return filtered
}

// Key encodes vars so that equal variable sets have equal keys.
// encoding/json sorts map keys, so insertion order doesn't matter.
func (vars Variables) Key() string {
	if len(vars) == 0 {
		return "{}"
	}
	encoded, err := json.Marshal(vars)
	if err != nil {
		// unencodable values can't be sent anyway; fall back to
		// something stable per value
		return "!" + err.Error()
	}
	return string(encoded)
}

func (vars Variables) Equal(other Variables) bool {
	return vars.Key() == other.Key()
}

// Resolve returns the value of the argument given the query variables.
func (v *Value) Resolve(vars Variables) interface{} {
	if v.Variable != "" {
		return vars[v.Variable]
	}
	if v.Number != "" {
		if f, err := strconv.ParseFloat(v.Number, 64); err == nil {
			return f
		}
		return v.Number
	}
	switch v.Literal {
	case "":
		return v.String
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	// enum value
	return v.Literal
}

// String prints the document in a canonical single-line form. Two
// documents that differ only in whitespace print the same.
func (doc *Document) String() string {
	buf := &strings.Builder{}
	buf.WriteString(doc.Operation)
	if doc.Name != "" {
		buf.WriteString(" ")
		buf.WriteString(doc.Name)
	}
	if len(doc.Variables) > 0 {
		buf.WriteString("(")
		for idx, def := range doc.Variables {
			if idx > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString("$" + def.Name + ": " + def.Type)
			if def.NonNull {
				buf.WriteString("!")
			}
		}
		buf.WriteString(")")
	}
	buf.WriteString(" ")
	writeSelections(buf, doc.Selections)
	return buf.String()
}

func writeSelections(buf *strings.Builder, fields []*Field) {
	buf.WriteString("{ ")
	for idx, field := range fields {
		if idx > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(field.Name)
		if len(field.Arguments) > 0 {
			buf.WriteString("(")
			for argIdx, arg := range field.Arguments {
				if argIdx > 0 {
					buf.WriteString(", ")
				}
				buf.WriteString(arg.Name + ": " + arg.Value.format())
			}
			buf.WriteString(")")
		}
		if len(field.Selections) > 0 {
			buf.WriteString(" ")
			writeSelections(buf, field.Selections)
		}
	}
	buf.WriteString(" }")
}

func (v *Value) format() string {
	switch {
	case v.Variable != "":
		return "$" + v.Variable
	case v.Number != "":
		return v.Number
	case v.Literal != "":
		return v.Literal
	}
	return strconv.Quote(v.String)
}
