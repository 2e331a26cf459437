// Package client sends queries to a server over a websocket. A Client
// is a query.Transport.
package client

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	clog "github.com/vilterp/querybind/pkg/log"
	"github.com/vilterp/querybind/pkg/query"
	"github.com/vilterp/querybind/pkg/server"
)

// ErrClosed is returned for requests still waiting when the connection
// goes away.
var ErrClosed = errors.New("connection closed")

type Client struct {
	conn    *websocket.Conn
	url     string
	context context.Context

	statementsToSend chan *statementRequest
	incomingMessages chan *server.ChannelMessage
	abandoned        chan int

	// owned by handleStatements
	channels        map[int]*clientChannel
	nextStatementID int

	done      chan struct{}
	closeOnce sync.Once
	workers   sync.WaitGroup
}

type statementRequest struct {
	request *server.QueryRequest
	result  chan *clientChannel
}

type clientChannel struct {
	statementID int
	err         error
	// buffered so a reply never blocks the dispatch loop
	updates chan *server.MessageToClient
}

func Dial(url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", url)
	}
	c := &Client{
		conn:             conn,
		url:              url,
		context:          context.Background(),
		statementsToSend: make(chan *statementRequest),
		incomingMessages: make(chan *server.ChannelMessage),
		abandoned:        make(chan int),
		channels:         map[int]*clientChannel{},
		done:             make(chan struct{}),
	}
	c.workers.Add(2)
	go c.handleStatements()
	go c.handleIncoming()
	return c, nil
}

func (c *Client) Ctx() context.Context {
	return c.context
}

// Done is closed once the connection is gone, whether Close was called or
// the server hung up.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the socket and fails every request still waiting.
func (c *Client) Close() error {
	c.shutdown()
	err := c.conn.Close()
	c.workers.Wait()
	return err
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) handleStatements() {
	defer c.workers.Done()
	for {
		select {
		case request := <-c.statementsToSend:
			channel := &clientChannel{
				statementID: c.nextStatementID,
				updates:     make(chan *server.MessageToClient, 1),
			}
			c.nextStatementID++
			if err := c.conn.WriteJSON(request.request); err != nil {
				channel.err = errors.Wrap(err, "sending query")
			} else {
				c.channels[channel.statementID] = channel
			}
			request.result <- channel

		case incomingMsg := <-c.incomingMessages:
			channel, ok := c.channels[incomingMsg.StatementID]
			if !ok {
				clog.Println(c, "dropping reply to abandoned statement", incomingMsg.StatementID)
				continue
			}
			delete(c.channels, incomingMsg.StatementID)
			channel.updates <- incomingMsg.Message

		case statementID := <-c.abandoned:
			// the reply may still come; it will be dropped
			delete(c.channels, statementID)

		case <-c.done:
			return
		}
	}
}

func (c *Client) handleIncoming() {
	defer c.workers.Done()
	defer c.shutdown()
	for {
		parsedMessage := &server.ChannelMessage{}
		if err := c.conn.ReadJSON(parsedMessage); err != nil {
			select {
			case <-c.done:
			default:
				clog.Errorf(c, "connection lost: %v", err)
			}
			return
		}
		select {
		case c.incomingMessages <- parsedMessage:
		case <-c.done:
			return
		}
	}
}

func (c *Client) statement(ctx context.Context, request *server.QueryRequest) (*clientChannel, error) {
	resultChan := make(chan *clientChannel, 1)
	select {
	case c.statementsToSend <- &statementRequest{request: request, result: resultChan}:
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case channel := <-resultChan:
		if channel.err != nil {
			return nil, channel.err
		}
		return channel, nil
	case <-c.done:
		return nil, ErrClosed
	}
}

// Execute sends the query and waits for its reply. Errors the server
// reports come back in Result.Errors; a non-nil error means no reply
// arrived.
func (c *Client) Execute(ctx context.Context, doc *query.Document, vars query.Variables) (*query.Result, error) {
	channel, err := c.statement(ctx, &server.QueryRequest{
		Query:     doc.String(),
		Variables: vars,
	})
	if err != nil {
		return nil, err
	}

	select {
	case update := <-channel.updates:
		return toResult(update)
	case <-ctx.Done():
		select {
		case c.abandoned <- channel.statementID:
		case <-c.done:
		}
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Query parses text and executes it.
func (c *Client) Query(ctx context.Context, text string, vars query.Variables) (*query.Result, error) {
	doc, err := query.Parse(text)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, doc, vars)
}

func toResult(update *server.MessageToClient) (*query.Result, error) {
	switch update.Type {
	case server.ResultMessage:
		if update.ResultMessage == nil {
			return nil, errors.New("result message without a result")
		}
		return update.ResultMessage, nil
	case server.ErrorMessage:
		if update.ErrorMessage == nil {
			return nil, errors.New("error message without an error")
		}
		return &query.Result{Errors: []string{*update.ErrorMessage}}, nil
	}
	return nil, errors.Errorf("unexpected message type %s", update.Type)
}
