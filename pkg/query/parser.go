package query

import (
	"github.com/alecthomas/participle"
	"github.com/alecthomas/participle/lexer"
	"github.com/pkg/errors"
)

var (
	// commas are insignificant, as in GraphQL
	queryLexer = lexer.Unquote(lexer.Must(lexer.Regexp(`(\s+|,)`+
		`|(?P<Ident>[a-zA-Z_][a-zA-Z0-9_]*)`+
		`|(?P<Number>[-+]?\d*\.?\d+([eE][-+]?\d+)?)`+
		`|(?P<String>"[^"]*")`+
		`|(?P<Operators>[$!:(){}])`,
	)), "String")
	queryParser = participle.MustBuild(&Document{}, queryLexer)
)

// Document is a parsed query, e.g.
//
//	query($beNice: Boolean) {
//	  GreetingQuery(beNice: $beNice) {
//	    greeting
//	  }
//	}
type Document struct {
	Operation  string         `@"query"`
	Name       string         `[ @Ident ]`
	Variables  []*VariableDef `[ "(" @@ { @@ } ")" ]`
	Selections []*Field       `"{" @@ { @@ } "}"`
}

type VariableDef struct {
	Name    string `"$" @Ident ":"`
	Type    string `@Ident`
	NonNull bool   `[ @"!" ]`
}

type Field struct {
	Name       string      `@Ident`
	Arguments  []*Argument `[ "(" @@ { @@ } ")" ]`
	Selections []*Field    `[ "{" @@ { @@ } "}" ]`
}

type Argument struct {
	Name  string `@Ident ":"`
	Value *Value `@@`
}

// Value is an argument value. Exactly one field is set, except for the
// empty string literal, where none are.
type Value struct {
	Variable string `  "$" @Ident`
	Number   string `| @Number`
	Literal  string `| @Ident`
	String   string `| @String`
}

func Parse(text string) (*Document, error) {
	doc := &Document{}
	if err := queryParser.ParseString(text, doc); err != nil {
		return nil, &parseError{error: err}
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// MustParse is for queries defined as package-level values.
func MustParse(text string) *Document {
	doc, err := Parse(text)
	if err != nil {
		panic(errors.Wrapf(err, "parsing %q", text))
	}
	return doc
}

// validate checks that every variable used in an argument is declared
// exactly once.
func (doc *Document) validate() error {
	declared := map[string]bool{}
	for _, def := range doc.Variables {
		if declared[def.Name] {
			return &duplicateVariable{Name: def.Name}
		}
		declared[def.Name] = true
	}
	var check func(fields []*Field) error
	check = func(fields []*Field) error {
		for _, field := range fields {
			for _, arg := range field.Arguments {
				if arg.Value.Variable != "" && !declared[arg.Value.Variable] {
					return &undeclaredVariable{Name: arg.Value.Variable, Field: field.Name}
				}
			}
			if err := check(field.Selections); err != nil {
				return err
			}
		}
		return nil
	}
	return check(doc.Selections)
}
