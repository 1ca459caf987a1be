// Package metrics exposes Prometheus instrumentation for the core and
// link packages, adapted from the teacher's resource-kind metrics
// (prometheus/prometheus.go) onto the global/link/negotiation domain.
package metrics

import (
	"net/http"

	errwrap "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultListen is the default metrics listen address, following the
// convention of the teacher's own DefaultPrometheusListen constant.
const DefaultListen = "127.0.0.1:9312"

// Metrics holds the registered Prometheus collectors for a running core.
// Run Init on it before use. Unlike the teacher's prometheus.go, which
// registers into the global prometheus.DefaultRegisterer, this Metrics
// keeps its own Registry: a core is a library type that may be
// constructed more than once per process (e.g. once per test), and the
// global registry panics on double-registration.
type Metrics struct {
	Listen   string
	Registry *prometheus.Registry

	globalsTotal        *prometheus.GaugeVec   // current globals, by type
	linksByState        *prometheus.GaugeVec   // current links, by wire state
	negotiationFailures *prometheus.CounterVec // IncompatibleFormats, by port pair
	bindErrorsTotal     *prometheus.CounterVec // Bind failures, by Kind
	buffersRelayedTotal prometheus.Counter     // total buffers forwarded by any link
	server              *http.Server
}

// Init creates and registers every collector. Safe to call once per
// Metrics value (Prometheus collectors cannot be registered twice in the
// same Registry).
func (m *Metrics) Init() error {
	if m.Listen == "" {
		m.Listen = DefaultListen
	}
	if m.Registry == nil {
		m.Registry = prometheus.NewRegistry()
	}

	m.globalsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pwired_globals",
			Help: "Number of published globals, by type.",
		},
		[]string{"type"},
	)
	m.Registry.MustRegister(m.globalsTotal)

	m.linksByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pwired_links",
			Help: "Number of links, by wire state.",
		},
		[]string{"state"},
	)
	m.Registry.MustRegister(m.linksByState)

	m.negotiationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pwired_negotiation_failures_total",
			Help: "Total format negotiations that ended in IncompatibleFormats.",
		},
		[]string{"output_port", "input_port"},
	)
	m.Registry.MustRegister(m.negotiationFailures)

	m.bindErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pwired_bind_errors_total",
			Help: "Total resource-binder failures, by error kind.",
		},
		[]string{"kind"},
	)
	m.Registry.MustRegister(m.bindErrorsTotal)

	m.buffersRelayedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pwired_buffers_relayed_total",
			Help: "Total buffers forwarded across any link's data path.",
		},
	)
	m.Registry.MustRegister(m.buffersRelayedTotal)

	return nil
}

// Start runs the metrics http server in a goroutine.
func (m *Metrics) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{Addr: m.Listen, Handler: mux}
	go func() {
		_ = m.server.ListenAndServe()
	}()
	return nil
}

// Stop shuts the metrics http server down.
func (m *Metrics) Stop() error {
	if m.server == nil {
		return nil
	}
	if err := m.server.Close(); err != nil {
		return errwrap.Wrap(err, "metrics: stopping server")
	}
	return nil
}

// GlobalAdded increments the gauge for typeName.
func (m *Metrics) GlobalAdded(typeName string) {
	m.globalsTotal.With(prometheus.Labels{"type": typeName}).Inc()
}

// GlobalRemoved decrements the gauge for typeName.
func (m *Metrics) GlobalRemoved(typeName string) {
	m.globalsTotal.With(prometheus.Labels{"type": typeName}).Dec()
}

// LinkStateChanged moves a link's count from one wire-state bucket to
// another.
func (m *Metrics) LinkStateChanged(from, to string) {
	if from != "" {
		m.linksByState.With(prometheus.Labels{"state": from}).Dec()
	}
	m.linksByState.With(prometheus.Labels{"state": to}).Inc()
}

// NegotiationFailed records one IncompatibleFormats failure between the
// named ports.
func (m *Metrics) NegotiationFailed(outputPort, inputPort string) {
	m.negotiationFailures.With(prometheus.Labels{"output_port": outputPort, "input_port": inputPort}).Inc()
}

// BindFailed records one bind failure of the given kind name.
func (m *Metrics) BindFailed(kind string) {
	m.bindErrorsTotal.With(prometheus.Labels{"kind": kind}).Inc()
}

// BufferRelayed increments the total buffers-relayed counter.
func (m *Metrics) BufferRelayed() {
	m.buffersRelayedTotal.Inc()
}
