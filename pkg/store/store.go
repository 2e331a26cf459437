package store

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	clog "github.com/vilterp/querybind/pkg/log"
)

// Store owns the current state. Dispatch is the only way to change it.
type Store struct {
	reducer Reducer
	context context.Context

	mu        sync.Mutex
	state     *State
	listeners *listenerList

	metrics *metrics
}

type Option func(*Store)

// WithInitialState starts the store from state instead of asking the
// reducer for its default.
func WithInitialState(state *State) Option {
	return func(s *Store) {
		s.state = state
	}
}

func WithContext(ctx context.Context) Option {
	return func(s *Store) {
		s.context = ctx
	}
}

func New(reducer Reducer, opts ...Option) *Store {
	s := &Store{
		reducer:   reducer,
		context:   context.Background(),
		listeners: newListenerList(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.state == nil {
		// an init action nothing matches, so the reducer
		// hands back its default state
		s.state = reducer(nil, TypedAction("@@INIT"))
	}
	s.metrics = newMetrics(s)
	return s
}

func (s *Store) Ctx() context.Context {
	return s.context
}

func (s *Store) Registry() *prometheus.Registry {
	return s.metrics.registry
}

func (s *Store) GetState() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch runs the reducer and, if the state changed, calls every
// listener before returning.
func (s *Store) Dispatch(action Action) {
	s.metrics.dispatches.Inc()

	s.mu.Lock()
	prev := s.state
	next := s.reducer(prev, action)
	s.state = next
	var listeners []Listener
	if next != prev {
		listeners = s.listeners.snapshot()
	}
	s.mu.Unlock()

	if next == prev {
		return
	}
	s.metrics.stateChanges.Inc()
	if action != nil {
		clog.Println(s, "dispatched", action.Type(), "to", len(listeners), "listeners")
	}
	for _, listener := range listeners {
		listener()
	}
}

// Subscribe adds a listener. The returned func removes it and is safe to
// call more than once.
func (s *Store) Subscribe(listener Listener) func() {
	s.mu.Lock()
	id := s.listeners.addListener(listener)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners.removeListener(id)
	}
}
