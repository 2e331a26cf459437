package main

import (
	"context"
	"flag"
	"fmt"
	"html"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/vilterp/querybind/pkg/binding"
	"github.com/vilterp/querybind/pkg/client"
	clog "github.com/vilterp/querybind/pkg/log"
	"github.com/vilterp/querybind/pkg/query"
	"github.com/vilterp/querybind/pkg/server"
	"github.com/vilterp/querybind/pkg/store"
	"github.com/vilterp/querybind/pkg/view"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var url = flag.String("url", "ws://localhost:9000/ws", "url of greeting server to connect to")
var numSessions = flag.Int("numSessions", 5, "number of sessions, each with its own connection, store and binding")
var numToggles = flag.Int("numToggles", 1000, "number of beNice changes per session")
var timeout = flag.Duration("timeout", 5*time.Minute, "give up after this long")
var seedFile = flag.String("seed", "", "YAML file of greetings the server was seeded with (default: built-in greetings)")

type stats struct {
	toggles int64
	renders int64
}

func main() {
	flag.Parse()
	clog.SetLogger(zap.NewNop())

	greetings := server.DefaultGreetings
	if *seedFile != "" {
		seed, err := server.LoadSeed(*seedFile)
		if err != nil {
			log.Fatal("error loading seed:", err)
		}
		greetings = seed.Greetings
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	startTime := time.Now()
	st, err := runWorkload(ctx, *url, greetings, *numSessions, *numToggles)
	if err != nil {
		log.Fatal(err)
	}
	duration := time.Since(startTime)
	log.Printf(
		"%d toggles, %d renders in %s (%.0f toggles/s)",
		st.toggles, st.renders, duration, float64(st.toggles)/duration.Seconds(),
	)
}

// runWorkload runs sessions concurrently; each one flips beNice at random
// and waits for its greeting view to show the matching greeting. greetings
// are what the server was seeded with.
func runWorkload(ctx context.Context, url string, greetings map[string]string, sessions int, toggles int) (*stats, error) {
	st := &stats{}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < sessions; i++ {
		seed := int64(i)
		g.Go(func() error {
			return runSession(ctx, url, greetings, toggles, rand.New(rand.NewSource(seed)), st)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}

func runSession(ctx context.Context, url string, greetings map[string]string, toggles int, rng *rand.Rand, st *stats) error {
	c, err := client.Dial(url)
	if err != nil {
		return err
	}
	defer c.Close()

	s := store.New(store.Reduce)
	b := binding.NewGreeting(s, c, nil)
	b.OnRender(func(*view.Node) {
		atomic.AddInt64(&st.renders, 1)
	})
	b.Mount()
	defer b.Close()

	for i := 0; i < toggles; i++ {
		var beNice *bool
		switch rng.Intn(3) {
		case 0:
			beNice = store.Bool(true)
		case 1:
			beNice = store.Bool(false)
		}
		s.Dispatch(store.SetNice(beNice))
		if err := b.WaitIdle(ctx); err != nil {
			return err
		}
		if err := checkGreeting(b, greetings, beNice); err != nil {
			return errors.Wrapf(err, "toggle %d", i)
		}
		atomic.AddInt64(&st.toggles, 1)
	}
	return nil
}

// checkGreeting makes sure the view shows the greeting seeded for beNice,
// not one from an earlier query.
func checkGreeting(b *binding.Binding, greetings map[string]string, beNice *bool) error {
	if b.Status() != query.Success {
		return fmt.Errorf("query %s: %v", b.Status(), b.Props()["message"])
	}
	expected := "<h3>" + html.EscapeString(expectedGreeting(greetings, beNice)) + "</h3>"
	if got := view.HTML(b.View()); got != expected {
		return fmt.Errorf("beNice %s: expected %s; got %s", formatNice(beNice), expected, got)
	}
	return nil
}

func expectedGreeting(greetings map[string]string, beNice *bool) string {
	switch {
	case beNice == nil:
		return greetings[server.DefaultGreeting]
	case *beNice:
		return greetings[server.NiceGreeting]
	}
	return greetings[server.MeanGreeting]
}

func formatNice(beNice *bool) string {
	if beNice == nil {
		return "unset"
	}
	return fmt.Sprint(*beNice)
}
