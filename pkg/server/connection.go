package server

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	clog "github.com/vilterp/querybind/pkg/log"
)

type connectionID int

type connection struct {
	clientConn *websocket.Conn
	id         connectionID
	database   *Database
	messages   chan *ChannelMessage
	context    context.Context

	mu            sync.Mutex
	channels      map[int]*channel // keyed by statement id (aka channel id)
	nextChannelID int

	writerDone chan struct{}
}

func newConnection(wsConn *websocket.Conn, db *Database, ID int) *connection {
	ctx := context.WithValue(db.Ctx(), clog.ConnIDKey, ID)
	conn := &connection{
		clientConn: wsConn,
		id:         connectionID(ID),
		database:   db,
		channels:   make(map[int]*channel),
		messages:   make(chan *ChannelMessage),
		context:    ctx,
		writerDone: make(chan struct{}),
	}
	go conn.writeMessagesToSocket()
	return conn
}

func (conn *connection) Ctx() context.Context {
	return conn.context
}

func (conn *connection) writeMessagesToSocket() {
	defer close(conn.writerDone)
	broken := false
	for msg := range conn.messages {
		if broken {
			// keep draining so channels never block on a dead socket
			continue
		}
		if err := conn.clientConn.WriteJSON(msg); err != nil {
			clog.Errorf(conn, "error writing to socket: %v", err)
			broken = true
		}
	}
}

// handleRequests runs each request to completion before reading the
// next one, so replies go out in request order.
func (conn *connection) handleRequests() {
	clog.Println(conn, "initiated from", conn.clientConn.RemoteAddr())
	for {
		_, message, readErr := conn.clientConn.ReadMessage()
		if readErr != nil {
			clog.Println(conn, "terminated:", readErr)
			break
		}
		conn.addChannel(message).handleRequest()
		conn.removeChannel()
	}
	close(conn.messages)
	<-conn.writerDone
	conn.clientConn.Close()
	conn.database.removeConn(conn)
}

func (conn *connection) addChannel(request []byte) *channel {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	channel := newChannel(request, conn.nextChannelID, conn)
	conn.nextChannelID++
	conn.channels[channel.id] = channel
	return channel
}

func (conn *connection) removeChannel() {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	delete(conn.channels, conn.nextChannelID-1)
}

func (conn *connection) numChannels() int {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return len(conn.channels)
}
