package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vilterp/querybind/pkg/store"
)

const helpText = `\h	help
nice true|false|clear	set beNice; the greeting view re-queries
greet <text>	set the store's greeting; the connected heading re-renders
greet	clear the store's greeting
state	print the store's state`

type unknownCommand struct {
	Command string
}

func (e *unknownCommand) Error() string {
	return fmt.Sprintf(`unknown command %q; \h for help`, e.Command)
}

type badArgument struct {
	Command  string
	Argument string
	Wanted   string
}

func (e *badArgument) Error() string {
	return fmt.Sprintf("%s: expected %s; got %q", e.Command, e.Wanted, e.Argument)
}

// runCommand runs one line of shell input against the store.
func runCommand(line string, actions *store.ActionCreators, s *store.Store, out io.Writer) error {
	line = strings.Trim(line, "\t ")
	if line == "" {
		return nil
	}
	command, rest := line, ""
	if idx := strings.IndexAny(line, "\t "); idx >= 0 {
		command, rest = line[:idx], strings.Trim(line[idx+1:], "\t ")
	}

	switch command {
	case `\h`:
		fmt.Fprintln(out, helpText)
	case "nice":
		switch rest {
		case "true":
			actions.SetNice(store.Bool(true))
		case "false":
			actions.SetNice(store.Bool(false))
		case "clear":
			actions.SetNice(nil)
		default:
			return &badArgument{Command: command, Argument: rest, Wanted: "true, false or clear"}
		}
	case "greet":
		if rest == "" {
			actions.SetGreeting(nil)
		} else {
			actions.SetGreeting(store.String(rest))
		}
	case "state":
		return printState(s.GetState(), out)
	default:
		return &unknownCommand{Command: command}
	}
	return nil
}

func printState(state *store.State, out io.Writer) error {
	indented, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "state:\n%s\n", indented)
	return nil
}
