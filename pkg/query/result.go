package query

import (
	"context"
	"strings"
)

// Transport sends a query and waits for its result. A non-nil error
// means the request never got an answer (network failure, cancelled
// context); errors reported by the server arrive in Result.Errors.
type Transport interface {
	Execute(ctx context.Context, doc *Document, vars Variables) (*Result, error)
}

// Result is what a server answers to a query.
type Result struct {
	Data   map[string]interface{} `json:"data,omitempty" yaml:"data"`
	Errors []string               `json:"errors,omitempty" yaml:"errors"`
}

type Status int

const (
	Loading Status = iota
	Success
	Failure
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Failure:
		return "failure"
	}
	return "unknown"
}

// Error describes a failed query. It is passed to views as data.
type Error struct {
	Message       string
	GraphQLErrors []string
	NetworkError  error
}

func (e *Error) Error() string {
	return e.Message
}

func NewNetworkError(err error) *Error {
	return &Error{
		Message:      "Network error: " + err.Error(),
		NetworkError: err,
	}
}

func NewServerError(messages []string) *Error {
	return &Error{
		Message:       "GraphQL error: " + strings.Join(messages, "; "),
		GraphQLErrors: messages,
	}
}

// Fields flattens the error into props.
func (e *Error) Fields() map[string]interface{} {
	var networkError interface{}
	if e.NetworkError != nil {
		networkError = e.NetworkError.Error()
	}
	graphQLErrors := e.GraphQLErrors
	if graphQLErrors == nil {
		graphQLErrors = []string{}
	}
	return map[string]interface{}{
		"message":       e.Message,
		"graphQLErrors": graphQLErrors,
		"networkError":  networkError,
	}
}

// Outcome is one settled (or pending) query invocation.
type Outcome struct {
	Status Status
	Data   map[string]interface{}
	Error  *Error
}

// Settle turns what a transport returned into an Outcome. Success and
// failure are exclusive: a result carrying errors is a failure even if
// it also carries data.
func Settle(result *Result, err error) *Outcome {
	if err != nil {
		return &Outcome{Status: Failure, Error: NewNetworkError(err)}
	}
	if result == nil {
		return &Outcome{Status: Success, Data: map[string]interface{}{}}
	}
	if len(result.Errors) > 0 {
		return &Outcome{Status: Failure, Error: NewServerError(result.Errors)}
	}
	data := result.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Outcome{Status: Success, Data: data}
}
