package store

// State is the whole of the application state. A nil field means the
// value was never set.
type State struct {
	Greeting *string `json:"greeting"`
	BeNice   *bool   `json:"beNice"`
}

func DefaultState() *State {
	return &State{}
}

const (
	SetGreetingType = "SET_GREETING"
	BeNiceType      = "BE_NICE"
)

type Action interface {
	Type() string
}

type SetGreetingAction struct {
	Greeting *string
}

func (SetGreetingAction) Type() string { return SetGreetingType }

type SetNiceAction struct {
	BeNice *bool
}

func (SetNiceAction) Type() string { return BeNiceType }

// TypedAction is an action carrying nothing but its type. The reducer
// doesn't know any of these, so dispatching one is a no-op.
type TypedAction string

func (a TypedAction) Type() string { return string(a) }

// Reducer maps (previous state, action) to the next state.
type Reducer func(state *State, action Action) *State

// Reduce is the reducer for State. A nil state is replaced by
// DefaultState. Unrecognized actions return the state pointer they were
// given; callers compare pointers to detect changes.
func Reduce(state *State, action Action) *State {
	if state == nil {
		state = DefaultState()
	}
	switch a := action.(type) {
	case SetGreetingAction:
		next := *state
		next.Greeting = a.Greeting
		return &next
	case *SetGreetingAction:
		if a == nil {
			return state
		}
		next := *state
		next.Greeting = a.Greeting
		return &next
	case SetNiceAction:
		next := *state
		next.BeNice = a.BeNice
		return &next
	case *SetNiceAction:
		if a == nil {
			return state
		}
		next := *state
		next.BeNice = a.BeNice
		return &next
	}
	return state
}

// Selectors.

func GetGreeting(state *State) *string {
	if state == nil {
		return nil
	}
	return state.Greeting
}

func GetNice(state *State) *bool {
	if state == nil {
		return nil
	}
	return state.BeNice
}

// Action creators. Values are wrapped as given, nil included.

func SetGreeting(greeting *string) Action {
	return SetGreetingAction{Greeting: greeting}
}

func SetNice(beNice *bool) Action {
	return SetNiceAction{BeNice: beNice}
}

func String(s string) *string { return &s }

func Bool(b bool) *bool { return &b }

// ActionCreators dispatches the result of each action creator straight
// to the store it was bound to.
type ActionCreators struct {
	dispatch func(Action)
}

func BindActionCreators(dispatch func(Action)) *ActionCreators {
	return &ActionCreators{dispatch: dispatch}
}

func (ac *ActionCreators) SetGreeting(greeting *string) {
	ac.dispatch(SetGreeting(greeting))
}

func (ac *ActionCreators) SetNice(beNice *bool) {
	ac.dispatch(SetNice(beNice))
}
