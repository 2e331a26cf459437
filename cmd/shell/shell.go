package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chzyer/readline"
	"github.com/robertkrimen/isatty"
	"github.com/vilterp/querybind/pkg/binding"
	"github.com/vilterp/querybind/pkg/client"
	clog "github.com/vilterp/querybind/pkg/log"
	"github.com/vilterp/querybind/pkg/store"
	"github.com/vilterp/querybind/pkg/view"
	"go.uber.org/zap"
)

var url = flag.String("url", "ws://localhost:9000/ws", "URL of greeting server to connect to")
var verbose = flag.Bool("verbose", false, "log binding and store activity")

func main() {
	// get cmdline flags
	flag.Parse()

	if !*verbose {
		clog.SetLogger(zap.NewNop())
	}

	// connect to server
	c, connErr := client.Dial(*url)
	if connErr != nil {
		fmt.Println("couldn't connect:", connErr)
		os.Exit(1)
		return
	}
	defer c.Close()

	// Wait for server closing
	go waitForServerClose(c)

	s := store.New(store.Reduce)
	greeting := binding.NewGreeting(s, c, nil)
	greeting.OnRender(func(n *view.Node) {
		fmt.Println("render:", view.HTML(n))
	})
	greeting.Mount()
	defer greeting.Close()

	heading := binding.NewConnectedGreeting(s, nil)
	heading.OnRender(func(n *view.Node) {
		fmt.Println("store greeting:", view.HTML(n))
	})
	heading.Mount()
	defer heading.Close()

	actions := store.BindActionCreators(s.Dispatch)

	// check if is TTY
	isInputTty := isatty.Check(os.Stdin.Fd())

	if isInputTty {
		fmt.Println("greeting shell")
		fmt.Println("\\h for help")
	}

	// initialize readline
	prompt := ""
	if isInputTty {
		prompt = fmt.Sprintf("%s> ", *url)
	}
	l, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       "/tmp/.querybind-history",
		InterruptPrompt:   "^C",
		EOFPrompt:         "bye!",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()

	for {
		line, readlineErr := l.Readline()
		if readlineErr != nil {
			fmt.Println("bye!")
			return
		}
		if err := runCommand(line, actions, s, os.Stdout); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func waitForServerClose(c *client.Client) {
	<-c.Done()
	fmt.Println("server closed the connection")
	os.Exit(0)
}
