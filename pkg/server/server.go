// Package server answers greeting queries over websockets, reading
// greetings from a bolt data file.
package server

import (
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	clog "github.com/vilterp/querybind/pkg/log"
)

type Server struct {
	db         *Database
	httpServer *http.Server
}

func NewServer(dataFile string, host string, port int) (*Server, error) {
	database, err := NewDatabase(dataFile)
	if err != nil {
		return nil, err
	}
	clog.Println(database, "opened data file:", dataFile)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: database.Handler(),
	}

	return &Server{
		db:         database,
		httpServer: httpServer,
	}, nil
}

func (s *Server) Database() *Database {
	return s.db
}

// Handler serves the websocket endpoint, metrics and pprof.
func (db *Database) Handler() http.Handler {
	mux := http.NewServeMux()

	// Serve metrics.
	mux.Handle(
		"/metrics",
		promhttp.HandlerFor(db.metrics.registry, promhttp.HandlerOpts{}),
	)

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// Serve WebSocket endpoint for queries.
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(_ *http.Request) bool { return true },
	}
	mux.HandleFunc("/ws", func(resp http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(resp, req, nil)
		if err != nil {
			clog.Println(db, "upgrading connection:", err)
			return
		}
		db.addConnection(conn)
	})

	return mux
}

func (s *Server) ListenAndServe() error {
	clog.Println(s.db, "serving HTTP at", fmt.Sprintf("http://%s/", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Close() error {
	clog.Println(s.db, "closing http server...")
	if err := s.httpServer.Close(); err != nil {
		return err
	}
	clog.Println(s.db, "closing storage layer...")
	if err := s.db.Close(); err != nil {
		return err
	}
	clog.Println(s.db, "bye!")
	return nil
}
