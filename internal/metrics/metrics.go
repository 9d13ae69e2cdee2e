// Package metrics defines the Prometheus counters and histograms shared
// across the pipeline, grounded on the /metrics registration style
// kerry80866-test-indexer and VladislavFirsov-solana-token-lab use
// (prometheus/client_golang's promauto-free manual registration, since
// neither pack repo pulls in promauto either).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every counter/histogram the pipeline emits. One
// instance is constructed at orchestrator startup and handed by reference
// to every subsystem (§9 "Global mutable state" — explicit, not a
// package-level singleton).
type Registry struct {
	reg *prometheus.Registry

	RPCRequestAttempt     *prometheus.CounterVec
	RPCRequestSuccess     *prometheus.CounterVec
	RPCRequestError       *prometheus.CounterVec
	RPCRequestRateLimited *prometheus.CounterVec
	RPCRequestDuration    *prometheus.HistogramVec

	SocketMessagesReceived   *prometheus.CounterVec
	SocketMessagesDropped    *prometheus.CounterVec
	SocketMessagesMatched    *prometheus.CounterVec
	SocketMessagesUnresolved *prometheus.CounterVec
	SocketMessagesFailed     *prometheus.CounterVec

	ExecutorDispatched *prometheus.CounterVec
	ExecutorSucceeded  *prometheus.CounterVec
	ExecutorFailed     *prometheus.CounterVec
}

// New constructs and registers every metric against a fresh registry.
func New() *Registry {
	r := prometheus.NewRegistry()
	m := &Registry{
		reg: r,
		RPCRequestAttempt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_request_attempt_total",
			Help: "RPC calls attempted, by method.",
		}, []string{"method"}),
		RPCRequestSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_request_success_total",
			Help: "RPC calls that returned successfully, by method.",
		}, []string{"method"}),
		RPCRequestError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_request_error_total",
			Help: "RPC calls that failed terminally, by method.",
		}, []string{"method"}),
		RPCRequestRateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_request_rate_limited_total",
			Help: "RPC calls refused by the local rate limiter, by method.",
		}, []string{"method"}),
		RPCRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rpc_request_duration_seconds",
			Help:    "RPC call latency, by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		SocketMessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "source_messages_received_total",
			Help: "Inbound log messages received, by source program.",
		}, []string{"source"}),
		SocketMessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "source_messages_dropped_total",
			Help: "Inbound log messages dropped (dedup/stale/throttle), by source program and reason.",
		}, []string{"source", "reason"}),
		SocketMessagesMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "source_messages_matched_total",
			Help: "Messages that produced a classification, by source program.",
		}, []string{"source"}),
		SocketMessagesUnresolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "source_messages_unresolved_total",
			Help: "Messages that matched but could not be decoded, by source program.",
		}, []string{"source"}),
		SocketMessagesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "source_messages_failed_total",
			Help: "Messages that failed during execute, by source program.",
		}, []string{"source"}),
		ExecutorDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "executor_dispatched_total",
			Help: "Buy transactions dispatched, by tag.",
		}, []string{"tag"}),
		ExecutorSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "executor_succeeded_total",
			Help: "Buy transactions confirmed, by tag.",
		}, []string{"tag"}),
		ExecutorFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "executor_failed_total",
			Help: "Buy transactions that failed, by tag and error kind.",
		}, []string{"tag", "kind"}),
	}
	r.MustRegister(
		m.RPCRequestAttempt, m.RPCRequestSuccess, m.RPCRequestError, m.RPCRequestRateLimited,
		m.RPCRequestDuration,
		m.SocketMessagesReceived, m.SocketMessagesDropped, m.SocketMessagesMatched,
		m.SocketMessagesUnresolved, m.SocketMessagesFailed,
		m.ExecutorDispatched, m.ExecutorSucceeded, m.ExecutorFailed,
	)
	return m
}

// Gatherer exposes the underlying prometheus.Gatherer for an HTTP handler
// to serve, without leaking registration details to callers.
func (m *Registry) Gatherer() prometheus.Gatherer { return m.reg }
