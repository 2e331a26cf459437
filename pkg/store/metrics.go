package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	registry *prometheus.Registry

	dispatches   prometheus.Counter
	stateChanges prometheus.Counter
	listeners    prometheus.GaugeFunc
}

func newMetrics(s *Store) *metrics {
	m := &metrics{
		dispatches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "store_dispatches",
				Help: "number of actions dispatched to the store",
			},
		),
		stateChanges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "store_state_changes",
				Help: "number of dispatches that produced a new state",
			},
		),
		listeners: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "store_listeners",
				Help: "number of listeners currently subscribed to the store",
			},
			func() float64 {
				s.mu.Lock()
				defer s.mu.Unlock()
				return float64(s.listeners.getNumListeners())
			},
		),
	}
	m.registry = prometheus.NewPedanticRegistry()
	m.registry.MustRegister(m.dispatches)
	m.registry.MustRegister(m.stateChanges)
	m.registry.MustRegister(m.listeners)
	return m
}
