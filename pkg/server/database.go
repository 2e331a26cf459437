package server

import (
	"context"
	"sync"

	"github.com/boltdb/bolt"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

type Database struct {
	schema *schema
	boltDB *bolt.DB

	mu               sync.Mutex
	connections      map[connectionID]*connection
	nextConnectionID int
	handlers         sync.WaitGroup
	closed           bool

	ctx     context.Context
	metrics *metrics
}

func NewDatabase(dataFile string) (*Database, error) {
	boltDB, openErr := bolt.Open(dataFile, 0600, nil)
	if openErr != nil {
		return nil, errors.Wrapf(openErr, "opening %s", dataFile)
	}

	database := &Database{
		schema:      greetingSchema(),
		boltDB:      boltDB,
		connections: make(map[connectionID]*connection),
		ctx:         context.Background(),
	}
	if err := database.ensureBuckets(); err != nil {
		boltDB.Close()
		return nil, err
	}

	database.metrics = newMetrics(database)

	return database, nil
}

func (db *Database) Ctx() context.Context {
	return db.ctx
}

func (db *Database) ensureBuckets() error {
	return db.boltDB.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(greetingsBucket); err != nil {
			return errors.Wrap(err, "creating greetings bucket")
		}
		return nil
	})
}

// addConnection serves a websocket until it closes.
func (db *Database) addConnection(wsConn *websocket.Conn) {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		wsConn.Close()
		return
	}
	conn := newConnection(wsConn, db, db.nextConnectionID)
	db.nextConnectionID++
	db.connections[conn.id] = conn
	db.handlers.Add(1)
	db.mu.Unlock()

	defer db.handlers.Done()
	conn.handleRequests()
}

func (db *Database) removeConn(conn *connection) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.connections, conn.id)
}

func (db *Database) numConnections() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.connections)
}

func (db *Database) numChannels() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	count := 0
	for _, conn := range db.connections {
		count += conn.numChannels()
	}
	return count
}

func (db *Database) connectionCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.nextConnectionID
}

// Close hangs up on every open connection, waits for their handlers to
// return and closes the data file.
func (db *Database) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	for _, conn := range db.connections {
		conn.clientConn.Close()
	}
	db.mu.Unlock()

	db.handlers.Wait()
	return db.boltDB.Close()
}
