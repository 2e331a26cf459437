package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vilterp/querybind/pkg/server"
)

var port = flag.Int("port", 9000, "port to listen on")
var host = flag.String("host", "0.0.0.0", "host to listen on")
var dataFile = flag.String("data-file", "querybind.data", "data file")
var seedFile = flag.String("seed", "", "YAML file of greetings to write before serving (default: built-in greetings)")

func main() {
	// get cmdline flags
	flag.Parse()

	fmt.Println("greeting server")

	s, err := server.NewServer(*dataFile, *host, *port)
	if err != nil {
		log.Fatal("error opening database:", err)
	}

	greetings := server.DefaultGreetings
	if *seedFile != "" {
		seed, err := server.LoadSeed(*seedFile)
		if err != nil {
			log.Fatal("error loading seed:", err)
		}
		greetings = seed.Greetings
	}
	if err := s.Database().SeedGreetings(greetings); err != nil {
		log.Fatal("error seeding greetings:", err)
	}

	// graceful shutdown on Ctrl-C
	ctrlCChan := make(chan os.Signal, 1)
	signal.Notify(ctrlCChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlCChan
		if err := s.Close(); err != nil {
			log.Println("error closing:", err)
		}
		os.Exit(0)
	}()

	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("error listening:", err)
	}
}
