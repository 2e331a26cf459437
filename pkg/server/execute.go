package server

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	clog "github.com/vilterp/querybind/pkg/log"
	"github.com/vilterp/querybind/pkg/query"
)

func (conn *connection) executeQuery(doc *query.Document, vars query.Variables, channel *channel) error {
	startTime := time.Now()

	data := map[string]interface{}{}
	err := conn.database.boltDB.View(func(tx *bolt.Tx) error {
		for _, selection := range doc.Selections {
			field := conn.database.schema.rootFields[selection.Name]
			args := map[string]interface{}{}
			for _, arg := range selection.Arguments {
				args[arg.Name] = arg.Value.Resolve(vars)
			}
			object, err := field.resolve(tx, args)
			if err != nil {
				return errors.Wrapf(err, "resolving %s", selection.Name)
			}
			data[selection.Name] = project(object, selection.Selections)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "executing query")
	}

	channel.writeResult(&query.Result{Data: data})

	endTime := time.Now()
	duration := endTime.Sub(startTime)
	clog.Println(channel, "query ran in", duration)
	conn.database.metrics.queryLatency.Observe(float64(duration.Nanoseconds()))
	return nil
}
