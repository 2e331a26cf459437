package server

import (
	"fmt"
	"os"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	clog "github.com/vilterp/querybind/pkg/log"
	"gopkg.in/yaml.v3"
)

// Seed is the format of greeting seed files:
//
//	greetings:
//	  nice: Howdy!
//	  mean: Bugger Off!
type Seed struct {
	Greetings map[string]string `yaml:"greetings"`
}

// DefaultGreetings are written by the server binary when no seed file
// is given.
var DefaultGreetings = map[string]string{
	NiceGreeting: "Howdy!",
	MeanGreeting: "Bugger Off!",
}

func LoadSeed(path string) (*Seed, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading seed file")
	}
	seed := &Seed{}
	if err := yaml.Unmarshal(contents, seed); err != nil {
		return nil, errors.Wrapf(err, "parsing seed file %s", path)
	}
	return seed, nil
}

type unknownGreetingKey struct {
	Key string
}

func (e *unknownGreetingKey) Error() string {
	return fmt.Sprintf("unknown greeting %q; expected one of %s, %s, %s",
		e.Key, NiceGreeting, MeanGreeting, DefaultGreeting)
}

// SeedGreetings writes the given greetings, replacing existing ones with
// the same key. Nothing is written if any key is unknown.
func (db *Database) SeedGreetings(greetings map[string]string) error {
	for key := range greetings {
		switch key {
		case NiceGreeting, MeanGreeting, DefaultGreeting:
		default:
			return &unknownGreetingKey{Key: key}
		}
	}
	err := db.boltDB.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(greetingsBucket)
		for key, greeting := range greetings {
			if err := bucket.Put([]byte(key), []byte(greeting)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "writing greetings")
	}
	clog.Println(db, "seeded", len(greetings), "greetings")
	return nil
}
