// Package binding connects a store to a query and a view.
//
// A Binding maps the store's state to props, derives the query variables
// from those props, runs the query whenever the variables change by
// value, and renders its component with the caller's props, the mapped
// state and the query's data or error merged together.
package binding

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	clog "github.com/vilterp/querybind/pkg/log"
	"github.com/vilterp/querybind/pkg/query"
	"github.com/vilterp/querybind/pkg/store"
	"github.com/vilterp/querybind/pkg/view"
)

// ActionsProp is the prop holding the store's bound action creators.
const ActionsProp = "actions"

type Config struct {
	Store *store.Store
	// Query and Transport are optional. Without a Query the binding only
	// maps state to props and is always settled.
	Query     *query.Document
	Transport query.Transport

	// MapState picks the props this binding takes from the state.
	MapState func(state *store.State) view.Props
	// Variables derives query variables from the inbound props. Only
	// variables the query declares are ever sent, whatever this returns.
	// If nil, the inbound props themselves are filtered.
	Variables func(props view.Props) query.Variables

	Name      string
	Component view.Component
	// Props are the caller's props, forwarded to the component.
	Props view.Props
}

type Binding struct {
	id      string
	context context.Context
	cfg     Config
	actions *store.ActionCreators
	metrics *metrics

	mu          sync.Mutex
	mounted     bool
	closed      bool
	unsubscribe func()
	stateProps  view.Props
	vars        query.Variables
	varsKey     string
	token       int
	cancel      context.CancelFunc
	pending     chan struct{}
	outcome     *query.Outcome
	node        *view.Node
	renderSeq   int
	listeners   []func(*view.Node)

	// notifyMu serializes render callbacks; Close takes it so nothing
	// is delivered once Close returns.
	notifyMu     sync.Mutex
	publishedSeq int

	workers sync.WaitGroup
}

func New(cfg Config) *Binding {
	if cfg.Name == "" {
		cfg.Name = "Binding"
	}
	if cfg.MapState == nil {
		cfg.MapState = func(*store.State) view.Props { return nil }
	}
	outcome := &query.Outcome{Status: query.Loading}
	if cfg.Query == nil {
		outcome = &query.Outcome{Status: query.Success, Data: map[string]interface{}{}}
	}
	id := uuid.New().String()
	return &Binding{
		id:      id,
		context: context.WithValue(cfg.Store.Ctx(), clog.BindingIDKey, id),
		cfg:     cfg,
		actions: store.BindActionCreators(cfg.Store.Dispatch),
		metrics: newMetrics(),
		outcome: outcome,
	}
}

func (b *Binding) Ctx() context.Context {
	return b.context
}

func (b *Binding) Registry() *prometheus.Registry {
	return b.metrics.registry
}

// OnRender registers a callback for every new render. Callbacks run on
// the goroutine that caused the render (a dispatch or a query result),
// one at a time, and never after Close has returned. A callback must not
// dispatch to the store synchronously.
func (b *Binding) OnRender(listener func(*view.Node)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

// Mount subscribes to the store and renders for the current state,
// issuing the first query.
func (b *Binding) Mount() {
	b.mu.Lock()
	if b.mounted || b.closed {
		b.mu.Unlock()
		return
	}
	b.mounted = true
	b.unsubscribe = b.cfg.Store.Subscribe(b.handleStateChange)
	node, seq := b.evaluateLocked(false)
	b.mu.Unlock()

	b.publish(node, seq)
}

func (b *Binding) handleStateChange() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	node, seq := b.evaluateLocked(false)
	b.mu.Unlock()

	b.publish(node, seq)
}

// Refetch runs the query again with the current variables. It only
// re-renders a binding without a query.
func (b *Binding) Refetch() {
	b.mu.Lock()
	if !b.mounted || b.closed {
		b.mu.Unlock()
		return
	}
	node, seq := b.evaluateLocked(true)
	b.mu.Unlock()

	b.publish(node, seq)
}

// evaluateLocked recomputes the inbound props and variables, issues a
// query if the variables changed (or force is set), and renders.
func (b *Binding) evaluateLocked(force bool) (*view.Node, int) {
	b.stateProps = b.cfg.MapState(b.cfg.Store.GetState())
	if b.cfg.Query == nil {
		return b.renderLocked()
	}
	inbound := b.inboundPropsLocked()

	var derived query.Variables
	if b.cfg.Variables != nil {
		derived = b.cfg.Variables(inbound)
	} else {
		derived = query.Variables(inbound)
	}
	vars := b.cfg.Query.FilterVariables(derived)
	key := vars.Key()
	if force || b.vars == nil || key != b.varsKey {
		b.issueLocked(vars, key)
	}
	return b.renderLocked()
}

// inboundPropsLocked merges what the component gets before any query
// result: caller props < mapped state < bound actions.
func (b *Binding) inboundPropsLocked() view.Props {
	return view.Merge(b.cfg.Props, b.stateProps, view.Props{ActionsProp: b.actions})
}

func (b *Binding) issueLocked(vars query.Variables, key string) {
	if b.cancel != nil {
		b.cancel()
	}
	b.token++
	token := b.token
	b.vars = vars
	b.varsKey = key
	b.outcome = &query.Outcome{Status: query.Loading}

	ctx, cancel := context.WithCancel(b.context)
	b.cancel = cancel
	done := make(chan struct{})
	b.pending = done

	b.metrics.queriesIssued.Inc()
	clog.Println(b, "issuing query", token, "with variables", key)

	b.workers.Add(1)
	go b.run(ctx, token, vars, done)
}

func (b *Binding) run(ctx context.Context, token int, vars query.Variables, done chan struct{}) {
	defer b.workers.Done()
	defer close(done)

	startTime := time.Now()
	result, err := b.cfg.Transport.Execute(ctx, b.cfg.Query, vars)
	outcome := query.Settle(result, err)
	b.metrics.queryLatency.Observe(float64(time.Since(startTime).Nanoseconds()))

	b.mu.Lock()
	if b.closed || token != b.token {
		b.mu.Unlock()
		b.metrics.staleResults.Inc()
		clog.Println(b, "discarding result of query", token)
		return
	}
	b.outcome = outcome
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	if outcome.Status == query.Failure {
		b.metrics.queryFailures.Inc()
		clog.Println(b, "query", token, "failed:", outcome.Error.Message)
	}
	node, seq := b.renderLocked()
	b.mu.Unlock()

	b.publish(node, seq)
}

// propsLocked merges the component's props: inbound < data < error.
func (b *Binding) propsLocked() view.Props {
	inbound := b.inboundPropsLocked()
	switch b.outcome.Status {
	case query.Success:
		return view.Merge(inbound, view.Props(b.outcome.Data))
	case query.Failure:
		return view.Merge(inbound, view.Props(b.outcome.Error.Fields()))
	}
	return inbound
}

func (b *Binding) renderLocked() (*view.Node, int) {
	b.node = b.cfg.Component(b.propsLocked())
	b.renderSeq++
	b.metrics.renders.Inc()
	return b.node, b.renderSeq
}

func (b *Binding) publish(node *view.Node, seq int) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()
	if seq <= b.publishedSeq {
		// a newer render was already delivered
		return
	}
	b.publishedSeq = seq

	b.mu.Lock()
	closed := b.closed
	listeners := make([]func(*view.Node), len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	if closed {
		return
	}
	for _, listener := range listeners {
		listener(node)
	}
}

// Props returns the props the component was last rendered with.
func (b *Binding) Props() view.Props {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.propsLocked()
}

// InboundProps returns the props the binding itself receives: the
// caller's props with the mapped state and bound actions.
func (b *Binding) InboundProps() view.Props {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inboundPropsLocked()
}

// View returns the last render.
func (b *Binding) View() *view.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.node
}

// Wrapper returns the last render as a shallow wrapper of the bound
// component.
func (b *Binding) Wrapper() *view.Wrapper {
	b.mu.Lock()
	props := b.propsLocked()
	b.mu.Unlock()
	return view.Shallow(b.cfg.Name, b.cfg.Component, props)
}

// SentVariables returns the variables of the current query.
func (b *Binding) SentVariables() query.Variables {
	b.mu.Lock()
	defer b.mu.Unlock()
	vars := make(query.Variables, len(b.vars))
	for k, v := range b.vars {
		vars[k] = v
	}
	return vars
}

func (b *Binding) Status() query.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outcome.Status
}

// WaitIdle blocks until the current query has settled, or ctx is done.
// If the variables change while waiting, it waits for the new query.
func (b *Binding) WaitIdle(ctx context.Context) error {
	for {
		b.mu.Lock()
		pending := b.pending
		b.mu.Unlock()
		if pending == nil {
			return nil
		}
		select {
		case <-pending:
		case <-ctx.Done():
			return ctx.Err()
		}
		// done is closed after the result was rendered; if no newer
		// query replaced it in the meantime, we're idle
		b.mu.Lock()
		current := b.pending == pending
		b.mu.Unlock()
		if current {
			return nil
		}
	}
}

// Close unsubscribes from the store, cancels the query in flight and
// waits for it to return. No render callbacks run after Close returns.
func (b *Binding) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.pending = nil
	b.mu.Unlock()

	// wait out a callback that's already running
	b.notifyMu.Lock()
	b.notifyMu.Unlock()

	b.workers.Wait()
	clog.Println(b, "closed")
}
