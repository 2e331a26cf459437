package binding

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	clog "github.com/vilterp/querybind/pkg/log"
	"github.com/vilterp/querybind/pkg/query"
	"github.com/vilterp/querybind/pkg/store"
	"github.com/vilterp/querybind/pkg/view"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	clog.SetLogger(zap.NewNop())
	goleak.VerifyTestMain(m)
}

var greetingMocks = []query.Mock{
	{
		Request: query.MockRequest{Query: GreetingQuery.String(), Variables: query.Variables{"beNice": true}},
		Result: &query.Result{Data: map[string]interface{}{
			"GreetingQuery": map[string]interface{}{"greeting": "Howdy!"},
		}},
	},
	{
		Request: query.MockRequest{Query: GreetingQuery.String(), Variables: query.Variables{"beNice": false}},
		Result: &query.Result{Data: map[string]interface{}{
			"GreetingQuery": map[string]interface{}{"greeting": "Bugger Off!"},
		}},
	},
}

// gatedTransport holds each request until the test releases it.
type gatedTransport struct {
	inner query.Transport
	// ignoreCancel simulates a result that is already on its way back.
	ignoreCancel bool

	mu    sync.Mutex
	gates map[string]chan struct{}
}

func newGatedTransport(t *testing.T, ignoreCancel bool) *gatedTransport {
	inner, err := query.NewMockTransport(greetingMocks...)
	if err != nil {
		t.Fatal(err)
	}
	return &gatedTransport{
		inner:        inner,
		ignoreCancel: ignoreCancel,
		gates:        map[string]chan struct{}{},
	}
}

func (gt *gatedTransport) gate(key string) chan struct{} {
	gt.mu.Lock()
	defer gt.mu.Unlock()
	gate, ok := gt.gates[key]
	if !ok {
		gate = make(chan struct{})
		gt.gates[key] = gate
	}
	return gate
}

func (gt *gatedTransport) release(vars query.Variables) {
	close(gt.gate(vars.Key()))
}

func (gt *gatedTransport) Execute(ctx context.Context, doc *query.Document, vars query.Variables) (*query.Result, error) {
	gate := gt.gate(vars.Key())
	if gt.ignoreCancel {
		<-gate
	} else {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return gt.inner.Execute(context.Background(), doc, vars)
}

func waitIdle(t *testing.T, b *Binding) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.WaitIdle(ctx); err != nil {
		t.Fatalf("waiting for query: %v", err)
	}
}

func greetingOf(t *testing.T, props view.Props) interface{} {
	t.Helper()
	result, ok := props["GreetingQuery"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected GreetingQuery prop; got %v", props)
	}
	return result["greeting"]
}

func TestGreetingBinding(t *testing.T) {
	s := store.New(store.Reduce)
	transport := newGatedTransport(t, false)
	b := NewGreeting(s, transport, nil)
	defer b.Close()

	var renders []string
	var rendersMu sync.Mutex
	b.OnRender(func(n *view.Node) {
		rendersMu.Lock()
		defer rendersMu.Unlock()
		renders = append(renders, view.HTML(n))
	})
	b.Mount()

	// default state, nothing fetched yet
	if state := s.GetState(); state.Greeting != nil || state.BeNice != nil {
		t.Fatalf("expected default state; got %+v", state)
	}
	if html := view.HTML(b.View()); html != "<h3></h3>" {
		t.Fatalf("expected empty heading; got %s", html)
	}

	s.Dispatch(store.SetNice(store.Bool(true)))

	// the state changed right away, the greeting didn't
	if state := s.GetState(); state.Greeting != nil || *state.BeNice != true {
		t.Fatalf("unexpected state %+v", state)
	}
	if b.Status() != query.Loading {
		t.Fatalf("expected loading; got %s", b.Status())
	}
	if html := view.HTML(b.View()); html != "<h3></h3>" {
		t.Fatalf("expected empty heading while loading; got %s", html)
	}

	transport.release(query.Variables{"beNice": true})
	waitIdle(t, b)

	if beNice := b.InboundProps()["beNice"]; beNice != true {
		t.Fatalf("expected beNice prop true; got %v", beNice)
	}
	sent := b.SentVariables()
	if len(sent) != 1 || sent["beNice"] != true {
		t.Fatalf("expected variables {beNice: true}; got %v", sent)
	}
	if greeting := greetingOf(t, b.Props()); greeting != "Howdy!" {
		t.Fatalf("expected Howdy!; got %v", greeting)
	}
	if html := b.Wrapper().HTML(); html != "<h3>Howdy!</h3>" {
		t.Fatalf("expected <h3>Howdy!</h3>; got %s", html)
	}

	// only declared variables reached the transport
	for _, request := range transport.inner.(*query.MockTransport).Requests() {
		var keys []string
		for k := range request.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) != 1 || keys[0] != "beNice" {
			t.Fatalf("unexpected variable keys %v", keys)
		}
	}

	rendersMu.Lock()
	defer rendersMu.Unlock()
	if last := renders[len(renders)-1]; last != "<h3>Howdy!</h3>" {
		t.Fatalf("expected last render to show the greeting; got %v", renders)
	}
}

func TestCallerPropsDriveQuery(t *testing.T) {
	s := store.New(store.Reduce)
	mocks, err := query.NewMockTransport(greetingMocks...)
	if err != nil {
		t.Fatal(err)
	}
	// no state mapping: the caller's beNice goes straight to the query
	b := New(Config{
		Store:     s,
		Query:     GreetingQuery,
		Transport: mocks,
		Component: view.GreetingView,
		Props:     view.Props{"beNice": true, "loading": true, "refetch": "nope", "someprop": "BLATZ"},
	})
	defer b.Close()
	b.Mount()
	waitIdle(t, b)

	requests := mocks.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected one request; got %d", len(requests))
	}
	if len(requests[0].Variables) != 1 || requests[0].Variables["beNice"] != true {
		t.Fatalf("expected only beNice to be sent; got %v", requests[0].Variables)
	}

	props := b.Props()
	if greeting := greetingOf(t, props); greeting != "Howdy!" {
		t.Fatalf("expected Howdy!; got %v", greeting)
	}
	// caller props pass through untouched
	if props["someprop"] != "BLATZ" || props["beNice"] != true || props["loading"] != true {
		t.Fatalf("caller props not forwarded: %v", props)
	}
	// data is flattened, not nested under "data"
	if _, ok := props["data"]; ok {
		t.Fatalf("expected data to be flattened; got %v", props)
	}
}

func TestQueryDataOverridesCallerProps(t *testing.T) {
	s := store.New(store.Reduce)
	transport := newGatedTransport(t, false)
	b := New(Config{
		Store:     s,
		Query:     GreetingQuery,
		Transport: transport,
		Component: view.GreetingView,
		Props:     view.Props{"beNice": false, "GreetingQuery": map[string]interface{}{"greeting": "from caller"}},
	})
	defer b.Close()
	b.Mount()

	// before the result arrives the caller's props are all there is
	if greeting := greetingOf(t, b.Props()); greeting != "from caller" {
		t.Fatalf("expected caller's prop while loading; got %v", greeting)
	}

	transport.release(query.Variables{"beNice": false})
	waitIdle(t, b)
	if greeting := greetingOf(t, b.Props()); greeting != "Bugger Off!" {
		t.Fatalf("expected query data to win; got %v", greeting)
	}
}

func TestStaleResultDiscarded(t *testing.T) {
	s := store.New(store.Reduce, store.WithInitialState(&store.State{BeNice: store.Bool(true)}))
	transport := newGatedTransport(t, true)
	b := NewGreeting(s, transport, nil)
	defer b.Close()

	var mu sync.Mutex
	var renders []string
	b.OnRender(func(n *view.Node) {
		mu.Lock()
		defer mu.Unlock()
		renders = append(renders, view.HTML(n))
	})
	b.Mount()

	// switch before the first answer arrives
	s.Dispatch(store.SetNice(store.Bool(false)))

	// the old answer comes back late and must not show up
	transport.release(query.Variables{"beNice": true})
	deadline := time.Now().Add(5 * time.Second)
	for staleCount(t, b) < 1 {
		if time.Now().After(deadline) {
			t.Fatal("stale result was never discarded")
		}
		time.Sleep(time.Millisecond)
	}
	if html := view.HTML(b.View()); html != "<h3></h3>" {
		t.Fatalf("expected empty heading; got %s", html)
	}

	transport.release(query.Variables{"beNice": false})
	waitIdle(t, b)
	if html := view.HTML(b.View()); html != "<h3>Bugger Off!</h3>" {
		t.Fatalf("expected current greeting; got %s", html)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, html := range renders {
		if html == "<h3>Howdy!</h3>" {
			t.Fatalf("stale greeting was rendered: %v", renders)
		}
	}
}

func staleCount(t *testing.T, b *Binding) float64 {
	metric := &dto.Metric{}
	if err := b.metrics.staleResults.Write(metric); err != nil {
		t.Fatal(err)
	}
	return metric.GetCounter().GetValue()
}

func TestUnrelatedStateChangeDoesNotRequery(t *testing.T) {
	s := store.New(store.Reduce)
	mocks, err := query.NewMockTransport(greetingMocks...)
	if err != nil {
		t.Fatal(err)
	}
	b := NewGreeting(s, mocks, nil)
	defer b.Close()
	b.Mount()
	s.Dispatch(store.SetNice(store.Bool(true)))
	waitIdle(t, b)
	before := len(mocks.Requests())

	s.Dispatch(store.SetGreeting(store.String("Hello!")))
	s.Dispatch(store.SetNice(store.Bool(true)))
	waitIdle(t, b)

	if after := len(mocks.Requests()); after != before {
		t.Fatalf("expected no new requests; went from %d to %d", before, after)
	}
	if *s.GetState().Greeting != "Hello!" || !*s.GetState().BeNice {
		t.Fatalf("unexpected state %+v", s.GetState())
	}
	if greeting := greetingOf(t, b.Props()); greeting != "Howdy!" {
		t.Fatalf("expected result to survive; got %v", greeting)
	}
}

func TestFailureIsData(t *testing.T) {
	s := store.New(store.Reduce)
	mocks, err := query.NewMockTransport(append(greetingMocks, query.Mock{
		Request: query.MockRequest{Query: GreetingQuery.String(), Variables: query.Variables{"beNice": nil}},
		Error:   "connection refused",
	})...)
	if err != nil {
		t.Fatal(err)
	}
	b := NewGreeting(s, mocks, view.Props{"message": "from caller"})
	defer b.Close()
	b.Mount()
	waitIdle(t, b)

	if b.Status() != query.Failure {
		t.Fatalf("expected failure; got %s", b.Status())
	}
	props := b.Props()
	if props["message"] != "Network error: connection refused" {
		t.Fatalf("expected error to override caller's message; got %v", props["message"])
	}
	if props["networkError"] != "connection refused" {
		t.Fatalf("unexpected networkError %v", props["networkError"])
	}
	if _, ok := props["GreetingQuery"]; ok {
		t.Fatal("failure should not carry data")
	}
	if html := view.HTML(b.View()); html != "<h3></h3>" {
		t.Fatalf("expected empty heading; got %s", html)
	}

	// not retried on its own
	time.Sleep(10 * time.Millisecond)
	if n := len(mocks.Requests()); n != 1 {
		t.Fatalf("expected a single attempt; got %d", n)
	}

	// the next qualifying change tries again
	s.Dispatch(store.SetNice(store.Bool(true)))
	waitIdle(t, b)
	if b.Status() != query.Success {
		t.Fatalf("expected success; got %s", b.Status())
	}
	if _, ok := b.Props()["networkError"]; ok {
		t.Fatal("error fields should be gone after success")
	}
}

func TestServerErrorsAreData(t *testing.T) {
	s := store.New(store.Reduce)
	mocks, err := query.NewMockTransport(query.Mock{
		Request: query.MockRequest{Query: GreetingQuery.String(), Variables: query.Variables{"beNice": nil}},
		Result:  &query.Result{Errors: []string{"no greeting"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	b := NewGreeting(s, mocks, nil)
	defer b.Close()
	b.Mount()
	waitIdle(t, b)

	props := b.Props()
	if props["message"] != "GraphQL error: no greeting" {
		t.Fatalf("unexpected message %v", props["message"])
	}
	if errs, ok := props["graphQLErrors"].([]string); !ok || len(errs) != 1 {
		t.Fatalf("unexpected graphQLErrors %v", props["graphQLErrors"])
	}
	if props["networkError"] != nil {
		t.Fatalf("unexpected networkError %v", props["networkError"])
	}
}

func TestCloseStopsRenders(t *testing.T) {
	s := store.New(store.Reduce)
	transport := newGatedTransport(t, false)
	b := NewGreeting(s, transport, nil)

	var mu sync.Mutex
	rendersAfterClose := 0
	closed := false
	b.OnRender(func(*view.Node) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			rendersAfterClose++
		}
	})
	b.Mount()
	s.Dispatch(store.SetNice(store.Bool(true)))

	b.Close()
	mu.Lock()
	closed = true
	mu.Unlock()

	// a late answer and later dispatches reach nobody
	transport.release(query.Variables{"beNice": true})
	s.Dispatch(store.SetNice(store.Bool(false)))
	b.Close()

	mu.Lock()
	defer mu.Unlock()
	if rendersAfterClose != 0 {
		t.Fatalf("got %d renders after close", rendersAfterClose)
	}
	if n := len(transport.inner.(*query.MockTransport).Requests()); n != 0 {
		t.Fatalf("expected cancelled requests to never reach the mocks; got %d", n)
	}
}

func TestRefetch(t *testing.T) {
	s := store.New(store.Reduce, store.WithInitialState(&store.State{BeNice: store.Bool(false)}))
	mocks, err := query.NewMockTransport(greetingMocks...)
	if err != nil {
		t.Fatal(err)
	}
	b := NewGreeting(s, mocks, nil)
	defer b.Close()

	// not mounted yet: nothing happens
	b.Refetch()
	if n := len(mocks.Requests()); n != 0 {
		t.Fatalf("expected no requests before mount; got %d", n)
	}

	b.Mount()
	waitIdle(t, b)
	b.Refetch()
	waitIdle(t, b)
	if n := len(mocks.Requests()); n != 2 {
		t.Fatalf("expected 2 requests; got %d", n)
	}
	if greeting := greetingOf(t, b.Props()); greeting != "Bugger Off!" {
		t.Fatalf("expected Bugger Off!; got %v", greeting)
	}
}

func TestBoundActions(t *testing.T) {
	s := store.New(store.Reduce)
	mocks, err := query.NewMockTransport(greetingMocks...)
	if err != nil {
		t.Fatal(err)
	}
	b := NewGreeting(s, mocks, nil)
	defer b.Close()
	b.Mount()

	actions, ok := b.Props()[ActionsProp].(*store.ActionCreators)
	if !ok {
		t.Fatalf("expected bound actions prop; got %v", b.Props()[ActionsProp])
	}
	actions.SetNice(store.Bool(false))
	waitIdle(t, b)
	if greeting := greetingOf(t, b.Props()); greeting != "Bugger Off!" {
		t.Fatalf("expected Bugger Off!; got %v", greeting)
	}
	if _, sent := b.SentVariables()[ActionsProp]; sent {
		t.Fatal("actions must never be sent as a variable")
	}
}

func TestMetricsRegistered(t *testing.T) {
	s := store.New(store.Reduce)
	mocks, err := query.NewMockTransport(greetingMocks...)
	if err != nil {
		t.Fatal(err)
	}
	b := NewGreeting(s, mocks, nil)
	defer b.Close()
	b.Mount()
	waitIdle(t, b)

	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 5 {
		t.Fatalf("expected 5 metric families; got %d", len(families))
	}
}

func TestConnectedGreeting(t *testing.T) {
	s := store.New(store.Reduce)
	b := NewConnectedGreeting(s, view.Props{"someprop": "BLATZ"})
	defer b.Close()

	var renders []string
	b.OnRender(func(n *view.Node) {
		renders = append(renders, view.HTML(n))
	})
	b.Mount()

	// nothing to fetch, so it's settled right away
	if b.Status() != query.Success {
		t.Fatalf("expected success; got %s", b.Status())
	}
	waitIdle(t, b)
	if html := view.HTML(b.View()); html != "<h3></h3>" {
		t.Fatalf("expected empty heading; got %s", html)
	}

	// renders happen on the dispatching goroutine
	s.Dispatch(store.SetGreeting(store.String("Hello!")))
	if html := view.HTML(b.View()); html != "<h3>Hello!</h3>" {
		t.Fatalf("expected <h3>Hello!</h3>; got %s", html)
	}
	props := b.Props()
	if props["greeting"] != "Hello!" || props["someprop"] != "BLATZ" {
		t.Fatalf("unexpected props %v", props)
	}

	actions := props[ActionsProp].(*store.ActionCreators)
	actions.SetGreeting(nil)
	if html := view.HTML(b.View()); html != "<h3></h3>" {
		t.Fatalf("expected cleared heading; got %s", html)
	}

	// refetch just re-renders
	b.Refetch()
	if len(b.SentVariables()) != 0 {
		t.Fatalf("expected no variables; got %v", b.SentVariables())
	}

	expected := []string{"<h3></h3>", "<h3>Hello!</h3>", "<h3></h3>", "<h3></h3>"}
	if !reflect.DeepEqual(renders, expected) {
		t.Fatalf("expected renders %v; got %v", expected, renders)
	}
}
