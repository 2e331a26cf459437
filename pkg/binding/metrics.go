package binding

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	registry *prometheus.Registry

	queriesIssued prometheus.Counter
	queryFailures prometheus.Counter
	staleResults  prometheus.Counter
	renders       prometheus.Counter

	queryLatency prometheus.Summary
}

func newMetrics() *metrics {
	m := &metrics{
		queriesIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "binding_queries_issued",
				Help: "number of queries sent to the transport",
			},
		),
		queryFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "binding_query_failures",
				Help: "number of current queries that settled with an error",
			},
		),
		staleResults: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "binding_stale_results",
				Help: "number of query results discarded because their variables were no longer current",
			},
		),
		renders: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "binding_renders",
				Help: "number of times the bound component was rendered",
			},
		),
		queryLatency: prometheus.NewSummary(
			prometheus.SummaryOpts{
				Name: "binding_query_latency_ns",
				Help: "latency from issuing a query to its result arriving",
			},
		),
	}
	m.registry = prometheus.NewPedanticRegistry()
	m.registry.MustRegister(m.queriesIssued)
	m.registry.MustRegister(m.queryFailures)
	m.registry.MustRegister(m.staleResults)
	m.registry.MustRegister(m.renders)
	m.registry.MustRegister(m.queryLatency)
	return m
}
