package view

// Heading renders value inside an h3, or an empty h3 if there is no value.
func Heading(value interface{}) *Node {
	return TextEl("h3", display(value))
}

// HelloWorld renders static markup.
func HelloWorld(Props) *Node {
	return TextEl("h3", "HELLO WORLD")
}

// GreetingFromProps renders the greeting prop. It is what gets bound to
// the store's greeting.
func GreetingFromProps(props Props) *Node {
	return Heading(props["greeting"])
}

// GreetingView renders GreetingQuery.greeting when the query result is
// present and has that shape; anything else renders an empty heading.
func GreetingView(props Props) *Node {
	greeting, ok := greetingFromQuery(props["GreetingQuery"])
	if !ok {
		return Heading(nil)
	}
	return Heading(greeting)
}

func greetingFromQuery(value interface{}) (interface{}, bool) {
	switch result := value.(type) {
	case map[string]interface{}:
		greeting, ok := result["greeting"]
		if !ok {
			return nil, false
		}
		switch greeting.(type) {
		case nil, string:
			return greeting, true
		}
		return nil, false
	case Props:
		return greetingFromQuery(map[string]interface{}(result))
	}
	return nil, false
}

// WithProps renders the greeting prop and an inner component, which only
// shows up when fully mounted.
func WithProps(props Props) *Node {
	return El("div",
		Heading(props["greeting"]),
		C("Internal", internal, Props{"greeting": props["greeting"]}),
	)
}

func internal(Props) *Node {
	return TextEl("h4", "INTERNAL")
}
