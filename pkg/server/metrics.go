package server

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	registry *prometheus.Registry

	// Counters
	nextConnectionID prometheus.CounterFunc
	queryErrors      prometheus.Counter

	// Gauges
	openConnections prometheus.GaugeFunc
	openChannels    prometheus.GaugeFunc

	// Latency histograms
	queryLatency prometheus.Summary
}

func newMetrics(db *Database) *metrics {
	m := &metrics{
		nextConnectionID: prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "next_connection_id",
				Help: "number of connections to this server over its lifetime",
			},
			func() float64 {
				return float64(db.connectionCount())
			},
		),
		queryErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_errors",
				Help: "number of requests answered with an error message",
			},
		),
		openConnections: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "open_connections",
				Help: "number of connections currently open",
			},
			func() float64 {
				return float64(db.numConnections())
			},
		),
		openChannels: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "open_channels",
				Help: "number of requests currently running across all connections",
			},
			func() float64 {
				return float64(db.numChannels())
			},
		),
		queryLatency: prometheus.NewSummary(
			prometheus.SummaryOpts{
				Name: "query_latency_ns",
				Help: "latency to resolve a query and queue its result",
			},
		),
	}
	m.registry = prometheus.NewPedanticRegistry()
	reg := m.registry

	reg.MustRegister(prometheus.NewProcessCollector(os.Getpid(), ""))
	reg.MustRegister(prometheus.NewGoCollector())

	reg.MustRegister(m.nextConnectionID)
	reg.MustRegister(m.queryErrors)
	reg.MustRegister(m.openConnections)
	reg.MustRegister(m.openChannels)
	reg.MustRegister(m.queryLatency)
	return m
}
