package binding

import (
	"github.com/vilterp/querybind/pkg/query"
	"github.com/vilterp/querybind/pkg/store"
	"github.com/vilterp/querybind/pkg/view"
)

// GreetingQuery asks for a greeting that is nice or not.
var GreetingQuery = query.MustParse(`
	query($beNice: Boolean) {
		GreetingQuery(beNice: $beNice) {
			greeting
		}
	}
`)

// MapNice takes beNice from the state. The greeting itself comes from
// the query, not the store.
func MapNice(state *store.State) view.Props {
	var beNice interface{}
	if nice := store.GetNice(state); nice != nil {
		beNice = *nice
	}
	return view.Props{"beNice": beNice}
}

// NiceVariables derives the query variables from the inbound props.
func NiceVariables(props view.Props) query.Variables {
	return query.Variables{"beNice": props["beNice"]}
}

// MapGreeting takes the greeting from the state, for views that show
// the store's greeting directly.
func MapGreeting(state *store.State) view.Props {
	var greeting interface{}
	if g := store.GetGreeting(state); g != nil {
		greeting = *g
	}
	return view.Props{"greeting": greeting}
}

// NewGreeting binds GreetingView to the store's beNice flag through
// GreetingQuery.
func NewGreeting(s *store.Store, transport query.Transport, props view.Props) *Binding {
	return New(Config{
		Store:     s,
		Query:     GreetingQuery,
		Transport: transport,
		MapState:  MapNice,
		Variables: NiceVariables,
		Name:      "GreetingView",
		Component: view.GreetingView,
		Props:     props,
	})
}

// NewConnectedGreeting binds GreetingFromProps to the store's greeting,
// with no query.
func NewConnectedGreeting(s *store.Store, props view.Props) *Binding {
	return New(Config{
		Store:     s,
		MapState:  MapGreeting,
		Name:      "GreetingFromProps",
		Component: view.GreetingFromProps,
		Props:     props,
	})
}
