package server

import (
	"github.com/boltdb/bolt"
	"github.com/vilterp/querybind/pkg/query"
)

var greetingsBucket = []byte("greetings")

// Greeting keys. Which one is read depends on the beNice argument.
const (
	NiceGreeting    = "nice"
	MeanGreeting    = "mean"
	DefaultGreeting = "default"
)

type resolver func(tx *bolt.Tx, args map[string]interface{}) (map[string]interface{}, error)

type rootField struct {
	name     string
	typeName string
	// argument name => type name
	arguments map[string]string
	fields    map[string]bool
	resolve   resolver
}

type schema struct {
	rootFields map[string]*rootField
}

func greetingSchema() *schema {
	return &schema{
		rootFields: map[string]*rootField{
			"GreetingQuery": {
				name:      "GreetingQuery",
				typeName:  "Greeting",
				arguments: map[string]string{"beNice": "Boolean"},
				fields:    map[string]bool{"greeting": true},
				resolve:   resolveGreeting,
			},
		},
	}
}

func (s *schema) validate(doc *query.Document) error {
	for _, selection := range doc.Selections {
		field, ok := s.rootFields[selection.Name]
		if !ok {
			return &noSuchField{TypeName: "Query", FieldName: selection.Name}
		}
		for _, arg := range selection.Arguments {
			if _, ok := field.arguments[arg.Name]; !ok {
				return &noSuchArgument{FieldName: field.name, ArgumentName: arg.Name}
			}
		}
		if len(selection.Selections) == 0 {
			return &missingSelection{FieldName: field.name}
		}
		for _, sub := range selection.Selections {
			if !field.fields[sub.Name] {
				return &noSuchField{TypeName: field.typeName, FieldName: sub.Name}
			}
			if len(sub.Selections) > 0 {
				return &scalarSelection{FieldName: sub.Name}
			}
		}
	}
	return nil
}

func greetingKey(beNice interface{}) (string, error) {
	switch nice := beNice.(type) {
	case nil:
		return DefaultGreeting, nil
	case bool:
		if nice {
			return NiceGreeting, nil
		}
		return MeanGreeting, nil
	}
	return "", &wrongArgumentType{ArgumentName: "beNice", Wanted: "Boolean", Got: beNice}
}

func resolveGreeting(tx *bolt.Tx, args map[string]interface{}) (map[string]interface{}, error) {
	key, err := greetingKey(args["beNice"])
	if err != nil {
		return nil, err
	}
	var greeting interface{}
	if bucket := tx.Bucket(greetingsBucket); bucket != nil {
		if value := bucket.Get([]byte(key)); value != nil {
			greeting = string(value)
		}
	}
	return map[string]interface{}{"greeting": greeting}, nil
}

// project keeps only the selected fields of a resolved object.
func project(object map[string]interface{}, selections []*query.Field) map[string]interface{} {
	out := make(map[string]interface{}, len(selections))
	for _, selection := range selections {
		out[selection.Name] = object[selection.Name]
	}
	return out
}
