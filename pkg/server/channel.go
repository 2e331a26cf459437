package server

import (
	"context"
	"encoding/json"
	"fmt"

	clog "github.com/vilterp/querybind/pkg/log"
	"github.com/vilterp/querybind/pkg/query"
)

type channel struct {
	connection *connection
	rawRequest []byte
	id         int // unique within its connection

	context context.Context
}

func (channel *channel) Ctx() context.Context {
	return channel.context
}

func newChannel(rawRequest []byte, ID int, conn *connection) *channel {
	ctx := context.WithValue(conn.Ctx(), clog.ChannelIDKey, ID)
	return &channel{
		connection: conn,
		rawRequest: rawRequest,
		id:         ID,
		context:    ctx,
	}
}

func (channel *channel) handleRequest() {
	if err := channel.validateAndRun(); err != nil {
		clog.Println(channel, err.Error())
		channel.connection.database.metrics.queryErrors.Inc()
		channel.writeErrorMessage(err)
	}
}

func (channel *channel) validateAndRun() error {
	req := &QueryRequest{}
	if err := json.Unmarshal(channel.rawRequest, req); err != nil {
		return &badRequest{error: err}
	}

	doc, err := query.Parse(req.Query)
	if err != nil {
		return &parseError{error: err}
	}

	if err := channel.connection.database.schema.validate(doc); err != nil {
		return &validationError{error: err}
	}
	return channel.connection.executeQuery(doc, req.Variables, channel)
}

// QueryRequest is what clients send, one per websocket message. Replies
// carry the request's position on the connection as their StatementID.
type QueryRequest struct {
	Query     string          `json:"query"`
	Variables query.Variables `json:"variables,omitempty"`
}

type ChannelMessage struct {
	StatementID int
	Message     *MessageToClient
}

type MessageToClientType int

const (
	ErrorMessage MessageToClientType = iota
	ResultMessage
)

func (m MessageToClientType) String() string {
	switch m {
	case ErrorMessage:
		return "error"
	case ResultMessage:
		return "result"
	}
	return fmt.Sprintf("MessageToClientType(%d)", int(m))
}

func (m MessageToClientType) MarshalText() ([]byte, error) {
	switch m {
	case ErrorMessage, ResultMessage:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("unknown message type %d", int(m))
}

func (m *MessageToClientType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "error":
		*m = ErrorMessage
	case "result":
		*m = ResultMessage
	default:
		return fmt.Errorf("unknown message type %q", text)
	}
	return nil
}

type MessageToClient struct {
	Type          MessageToClientType `json:"type"`
	ErrorMessage  *string             `json:"error,omitempty"`
	ResultMessage *query.Result       `json:"result,omitempty"`
}

func (channel *channel) writeErrorMessage(err error) {
	errStr := err.Error()
	channel.writeMessage(&MessageToClient{
		Type:         ErrorMessage,
		ErrorMessage: &errStr,
	})
}

func (channel *channel) writeResult(result *query.Result) {
	channel.writeMessage(&MessageToClient{
		Type:          ResultMessage,
		ResultMessage: result,
	})
}

func (channel *channel) writeMessage(message *MessageToClient) {
	channel.connection.messages <- &ChannelMessage{
		StatementID: channel.id,
		Message:     message,
	}
}
