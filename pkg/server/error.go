package server

import "fmt"

type noSuchField struct {
	TypeName  string
	FieldName string
}

func (e *noSuchField) Error() string {
	return fmt.Sprintf("no such field on %s: %s", e.TypeName, e.FieldName)
}

type noSuchArgument struct {
	FieldName    string
	ArgumentName string
}

func (e *noSuchArgument) Error() string {
	return fmt.Sprintf("field %s has no argument %s", e.FieldName, e.ArgumentName)
}

type missingSelection struct {
	FieldName string
}

func (e *missingSelection) Error() string {
	return fmt.Sprintf("field %s must have a selection of subfields", e.FieldName)
}

type scalarSelection struct {
	FieldName string
}

func (e *scalarSelection) Error() string {
	return fmt.Sprintf("field %s is a scalar and can't have subfields", e.FieldName)
}

type wrongArgumentType struct {
	ArgumentName string
	Wanted       string
	Got          interface{}
}

func (e *wrongArgumentType) Error() string {
	return fmt.Sprintf("argument %s must be a %s; got %v", e.ArgumentName, e.Wanted, e.Got)
}

type parseError struct {
	error error
}

func (e *parseError) Error() string {
	return e.error.Error()
}

type validationError struct {
	error error
}

func (e *validationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.error.Error())
}

type badRequest struct {
	error error
}

func (e *badRequest) Error() string {
	return fmt.Sprintf("bad request: %s", e.error.Error())
}
