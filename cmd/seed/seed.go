package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/vilterp/querybind/pkg/server"
)

var dataFile = flag.String("data-file", "querybind.data", "data file")
var seedFile = flag.String("seed", "", "YAML file of greetings to write")

func main() {
	flag.Parse()

	if *seedFile == "" {
		log.Fatal("-seed is required")
	}
	seed, err := server.LoadSeed(*seedFile)
	if err != nil {
		log.Fatal(err)
	}

	db, err := server.NewDatabase(*dataFile)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.SeedGreetings(seed.Greetings); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %d greetings to %s\n", len(seed.Greetings), *dataFile)
}
