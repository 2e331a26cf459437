package query

import "fmt"

type parseError struct {
	error error
}

func (e *parseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.error.Error())
}

type duplicateVariable struct {
	Name string
}

func (e *duplicateVariable) Error() string {
	return fmt.Sprintf("variable $%s declared more than once", e.Name)
}

type undeclaredVariable struct {
	Name  string
	Field string
}

func (e *undeclaredVariable) Error() string {
	return fmt.Sprintf("field %s uses undeclared variable $%s", e.Field, e.Name)
}

type noMockedResponse struct {
	Query     string
	Variables string
}

func (e *noMockedResponse) Error() string {
	return fmt.Sprintf("No more mocked responses for the query: %s, variables: %s", e.Query, e.Variables)
}
